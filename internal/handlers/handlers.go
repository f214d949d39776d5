package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-idempotent-todo/internal/apperrors"
	"github.com/imrishuroy/go-idempotent-todo/internal/identity"
	"github.com/imrishuroy/go-idempotent-todo/internal/idempotency"
	"github.com/imrishuroy/go-idempotent-todo/internal/tasks"
	"github.com/imrishuroy/go-idempotent-todo/internal/users"
)

const (
	// HeaderIdempotencyKey carries the client's idempotency key. It is
	// optional: without it a write runs unguarded.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderReplayed marks a response served from a recorded outcome.
	HeaderReplayed = "Idempotent-Replayed"

	// maxIdempotencyKeyLen keeps the record key well inside DynamoDB's
	// partition key limit.
	maxIdempotencyKeyLen = 255

	contentTypeJSON = "application/json; charset=utf-8"
	userIDKey       = "user_id"
)

// HandlerConfig groups dependencies for the API handlers.
type HandlerConfig struct {
	Tasks     *tasks.Service
	Users     *users.Service
	Identity  *identity.Extractor
	Validator *validatorv10.Validate
	Logger    *zap.Logger
}

// RegisterRoutes registers /health and the /api/v1 routes.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(identityMiddleware(cfg))

	th := &tasksHandler{svc: cfg.Tasks, validate: cfg.Validator}
	api.POST("/tasks", th.create)
	api.GET("/tasks", th.list)
	api.GET("/tasks/:id", th.get)
	api.PUT("/tasks/:id", th.update)
	api.PATCH("/tasks/:id", th.update)
	api.DELETE("/tasks/:id", th.delete)

	uh := &usersHandler{users: cfg.Users, tasks: cfg.Tasks, logger: cfg.Logger}
	api.GET("/users/me", uh.get)
	api.PUT("/users/me", uh.update)
	api.DELETE("/users/me", uh.delete)
}

// identityMiddleware resolves the caller and provisions the user on first
// contact.
func identityMiddleware(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := cfg.Identity.FromRequest(c.Request)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		if _, err := cfg.Users.EnsureUser(c.Request.Context(), claims); err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(userIDKey, claims.SubjectID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string { return c.GetString(userIDKey) }

// idempotencyKey returns the request's Idempotency-Key header, which may be
// empty.
func idempotencyKey(c *gin.Context) (string, error) {
	key := c.GetHeader(HeaderIdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return "", apperrors.Validationf(HeaderIdempotencyKey, "must be at most %d characters", maxIdempotencyKeyLen)
	}
	return key, nil
}

// writeResponse writes a guarded operation's response byte for byte.
func writeResponse(c *gin.Context, resp idempotency.Response) {
	if resp.Replayed {
		c.Header(HeaderReplayed, "true")
	}
	c.Data(resp.StatusCode, contentTypeJSON, resp.Body)
}

func writeError(c *gin.Context, err error) {
	ae := apperrors.As(err)
	if ae.Replayed() {
		c.Header(HeaderReplayed, "true")
	}
	if ae.Kind == apperrors.KindInternal || ae.Kind == apperrors.KindTransient {
		_ = c.Error(err)
	}
	c.Data(ae.Status(), contentTypeJSON, ae.Body())
}
