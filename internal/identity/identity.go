// Package identity turns an upstream-verified identity claim into Claims.
//
// Behind API Gateway the authorizer has already verified the token and the
// claims arrive in the request context. Running locally there is no
// authorizer, so a bearer token signed with a shared secret or a fixed test
// user stands in for it.
package identity

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
	"github.com/imrishuroy/go-idempotent-todo/internal/validation"
)

// Claims is the identity every request runs as.
type Claims struct {
	SubjectID string `json:"subject_id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"required,max=100"`
}

// LocalUser is the fixed identity used when LOCAL_USER is enabled.
var LocalUser = Claims{
	SubjectID: "1234567890",
	Email:     "test@example.com",
	Name:      "Test User",
}

type Options struct {
	// JWTSecret enables HS256 bearer tokens when set.
	JWTSecret string
	// UseLocalUser falls back to LocalUser when no other source applies.
	UseLocalUser bool
}

// Extractor resolves Claims for a request.
type Extractor struct {
	secret    []byte
	localUser bool
	validate  *validatorv10.Validate
}

func NewExtractor(opts Options, v *validatorv10.Validate) *Extractor {
	e := &Extractor{localUser: opts.UseLocalUser, validate: v}
	if opts.JWTSecret != "" {
		e.secret = []byte(opts.JWTSecret)
	}
	return e
}

// FromRequest tries, in order: API Gateway authorizer claims, a bearer
// token, the local user.
func (e *Extractor) FromRequest(r *http.Request) (Claims, error) {
	if apiCtx, ok := core.GetAPIGatewayContextFromContext(r.Context()); ok {
		if raw, ok := apiCtx.Authorizer["claims"].(map[string]interface{}); ok {
			return e.FromClaimsMap(raw)
		}
	}

	if token, ok := bearerToken(r); ok && e.secret != nil {
		return e.fromToken(token)
	}

	if e.localUser {
		return LocalUser, nil
	}
	return Claims{}, apperrors.Unauthorized("no identity claims on request")
}

// FromClaimsMap builds Claims from a verified claim set. The display name
// falls back to cognito:username, then to the email.
func (e *Extractor) FromClaimsMap(raw map[string]interface{}) (Claims, error) {
	c := Claims{
		SubjectID: stringClaim(raw, "sub"),
		Email:     stringClaim(raw, "email"),
		Name:      stringClaim(raw, "name"),
	}
	if c.Name == "" {
		c.Name = stringClaim(raw, "cognito:username")
	}
	if c.Name == "" {
		c.Name = c.Email
	}

	if err := validation.Struct(e.validate, c); err != nil {
		return Claims{}, apperrors.Unauthorized(fmt.Sprintf("invalid identity claims: %v", apperrors.As(err).Fields))
	}
	return c, nil
}

func (e *Extractor) fromToken(token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return e.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, apperrors.Unauthorized("invalid bearer token")
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, apperrors.Unauthorized("invalid bearer token claims")
	}
	return e.FromClaimsMap(mc)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}

func stringClaim(raw map[string]interface{}, name string) string {
	if v, ok := raw[name].(string); ok {
		return v
	}
	return ""
}
