package domain

import (
	"errors"
	"strings"
)

// Error is a failure with a stable machine-readable code. Message is safe to
// show to callers.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Caller-visible failures.
var (
	ErrValidation         = &Error{Code: "VALIDATION_FAILED", Message: "validation failed"}
	ErrUsernameTaken      = &Error{Code: "USERNAME_TAKEN", Message: "username is already taken"}
	ErrEmailTaken         = &Error{Code: "EMAIL_TAKEN", Message: "email is already in use"}
	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS", Message: "invalid username or password"}
	ErrInvalidToken       = &Error{Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrUnavailable        = &Error{Code: "SERVICE_UNAVAILABLE", Message: "service temporarily unavailable"}
	ErrInternal           = &Error{Code: "INTERNAL_ERROR", Message: "internal server error"}
)

// Token failure subtypes. They are always wrapped together with
// ErrInvalidToken and are only meant for internal logging.
var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenRevoked          = errors.New("token revoked")
)

// ErrCredentialNotFound is returned by stores when no credential matches.
var ErrCredentialNotFound = errors.New("credential not found")

// FieldViolation describes one rejected request field.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError is the structured result of request validation.
type ValidationError struct {
	Fields []FieldViolation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	if len(msgs) == 0 {
		return ErrValidation.Message
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, rule, message string) *ValidationError {
	return &ValidationError{Fields: []FieldViolation{{Field: field, Rule: rule, Message: message}}}
}

// TokenFailure returns the internal subtype of a token error, or nil when err
// is not a token error.
func TokenFailure(err error) error {
	for _, sub := range []error{ErrTokenMalformed, ErrTokenSignatureInvalid, ErrTokenExpired, ErrTokenRevoked} {
		if errors.Is(err, sub) {
			return sub
		}
	}
	return nil
}
