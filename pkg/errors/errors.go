package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type AppError struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`

	// Field names the offending request field for validation failures.
	Field string `json:"field,omitempty"`
	// InvalidIDs lists member ids that did not resolve to active users.
	InvalidIDs []string `json:"invalidIds,omitempty"`

	Op            string `json:"-"`
	CorrelationID string `json:"correlationId,omitempty"`
	Cause         error  `json:"-"`
}

func (e *AppError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError by kind and message so package-level
// sentinels work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Constructors
func New(kind Kind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

func Validation(field, message string) error {
	return &AppError{Kind: KindValidation, Field: field, Message: message}
}

func InvalidMembers(ids []string) error {
	return &AppError{
		Kind:       KindValidation,
		Field:      "memberIds",
		Message:    "some users are invalid or inactive: " + strings.Join(ids, ", "),
		InvalidIDs: ids,
	}
}

func Unauthorized(msg string) error {
	return New(KindUnauthorized, msg)
}

func Forbidden(msg string) error {
	return New(KindForbidden, msg)
}

func NotFound(msg string) error {
	return New(KindNotFound, msg)
}

func Conflict(msg string, cause error) error {
	return &AppError{Kind: KindConflict, Message: msg, Cause: cause}
}

// Infrastructure wraps a store or transport failure. The correlation id is
// what the caller sees; the cause is only logged.
func Infrastructure(op string, cause error) error {
	return &AppError{
		Kind:          KindInfrastructure,
		Message:       "internal error",
		Op:            op,
		CorrelationID: uuid.NewString(),
		Cause:         cause,
	}
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInfrastructure for anything unclassified.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInfrastructure
}

// As is a shorthand for errors.As with an *AppError target.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func IsNotFound(err error) bool   { return err != nil && KindOf(err) == KindNotFound }
func IsForbidden(err error) bool  { return err != nil && KindOf(err) == KindForbidden }
func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }
