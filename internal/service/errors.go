package service

import (
	"errors"
	"fmt"

	"github.com/egannguyen/fontmarket/internal/repository"
)

// Kind classifies a service failure. The HTTP layer maps each kind to a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindInvalidToken
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindExpired
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidToken:
		return "invalid-token"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not-found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindExpired:
		return "expired"
	case KindRateLimited:
		return "rate-limited"
	}
	return "internal"
}

// Error is a classified failure with a message safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ErrUnauthenticated(msg string) error { return newError(KindUnauthenticated, "%s", msg) }
func ErrInvalidToken(msg string) error    { return newError(KindInvalidToken, "%s", msg) }
func ErrForbidden(msg string) error       { return newError(KindForbidden, "%s", msg) }
func ErrNotFound(msg string) error        { return newError(KindNotFound, "%s", msg) }
func ErrValidation(msg string) error      { return newError(KindValidation, "%s", msg) }
func ErrConflict(msg string) error        { return newError(KindConflict, "%s", msg) }
func ErrExpired(msg string) error         { return newError(KindExpired, "%s", msg) }
func ErrRateLimited(msg string) error     { return newError(KindRateLimited, "%s", msg) }

// KindOf returns the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// notFoundOr maps repository.ErrNotFound to a not-found error with msg and
// wraps anything else as an internal failure.
func notFoundOr(err error, msg, action string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound(msg)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
