// Package apperr defines the error taxonomy shared by the service layer.
//
// Services return *Error values (usually package-level sentinels) so the
// HTTP layer can choose a status code without knowing about storage.
//
// # Usage
//
//	var ErrComicNotFound = apperr.New(apperr.KindNotFound, "Comic not found")
//
//	if errors.Is(err, catalog.ErrComicNotFound) { ... }
//	switch apperr.KindOf(err) { ... }
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failure.
type Kind int

const (
	KindStorage Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindConflict
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "storage"
	}
}

// Error is a classified error with a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// RetryAfter is set on rate-limited errors.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindStorage {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error that keeps the kind of base and matches it with
// errors.Is, but carries its own message.
func Wrap(base *Error, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Message: fmt.Sprintf(format, args...), Err: base}
}

// Throttled returns a copy of base that tells the caller to retry after d.
func Throttled(base *Error, d time.Duration) *Error {
	return &Error{Kind: base.Kind, Message: base.Message, Err: base, RetryAfter: d}
}

// Storage wraps an unexpected persistence failure.
func Storage(err error, op string) *Error {
	return &Error{Kind: KindStorage, Message: "failed to " + op, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
// Unclassified errors are treated as storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// RetryAfterOf returns how long the caller should wait before retrying,
// or zero when err carries no hint.
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}
