package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindTransient
	KindUnauthorized
)

// Error codes written into response bodies and idempotency snapshots.
const (
	CodeInternal     = "internal_error"
	CodeValidation   = "validation_failed"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeTransient    = "store_unavailable"
	CodeUnauthorized = "unauthorized"
)

// Error is the error type shared by repositories, services and handlers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error

	// set when the error was rebuilt from a recorded outcome
	status int
	raw    []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTransient:
		return http.StatusServiceUnavailable
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

type body struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Body returns the JSON response body for the error. Errors rebuilt with
// FromSnapshot return the recorded bytes unchanged.
func (e *Error) Body() []byte {
	if e.raw != nil {
		return e.raw
	}
	b, err := json.Marshal(body{Error: e.Code, Message: e.Message, Fields: e.Fields})
	if err != nil {
		return []byte(`{"error":"internal_error","message":"failed to encode error"}`)
	}
	return b
}

// Replayed reports whether the error was rebuilt from a recorded outcome.
func (e *Error) Replayed() bool { return e.raw != nil }

func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: "request validation failed", Fields: fields}
}

func Validationf(field, format string, args ...any) *Error {
	return Validation(map[string]string{field: fmt.Sprintf(format, args...)})
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Code: CodeConflict, Message: msg}
}

func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Code: CodeTransient, Message: msg, Err: err}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: msg}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: msg, Err: err}
}

// As extracts an *Error from err. Anything else is reported as internal.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("internal error", err)
}

func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	return As(err).Kind
}

func IsValidation(err error) bool   { return err != nil && KindOf(err) == KindValidation }
func IsNotFound(err error) bool     { return err != nil && KindOf(err) == KindNotFound }
func IsConflict(err error) bool     { return err != nil && KindOf(err) == KindConflict }
func IsTransient(err error) bool    { return err != nil && KindOf(err) == KindTransient }
func IsUnauthorized(err error) bool { return err != nil && KindOf(err) == KindUnauthorized }

// Status maps any error to an HTTP status code.
func Status(err error) int { return As(err).Status() }

// Body renders any error as a JSON response body.
func Body(err error) []byte { return As(err).Body() }

// FromSnapshot rebuilds an error from a recorded status code and body so a
// replay returns the original outcome instead of a fresh classification.
func FromSnapshot(status int, raw []byte) *Error {
	var b body
	_ = json.Unmarshal(raw, &b)

	e := &Error{
		Kind:    kindForStatus(status),
		Code:    b.Error,
		Message: b.Message,
		Fields:  b.Fields,
		status:  status,
		raw:     append([]byte(nil), raw...),
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusServiceUnavailable:
		return KindTransient
	case http.StatusUnauthorized:
		return KindUnauthorized
	default:
		return KindInternal
	}
}
