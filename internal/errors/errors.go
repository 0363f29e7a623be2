package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure into one of the outcomes a caller can act on.
type Kind string

const (
	KindValidation     Kind = "validation_error"     // malformed or missing input
	KindAuthentication Kind = "authentication_error" // credentials or session invalid/expired
	KindEligibility    Kind = "eligibility_error"    // identity proven but not an active tenant
	KindRateLimit      Kind = "rate_limited"         // too many failed attempts from one source
	KindUpstream       Kind = "upstream_error"       // directory, store or identity provider unreachable
	KindInternal       Kind = "internal_error"
)

// User facing messages. They never reveal more than the kind already does.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgNotAuthenticated   = "Not authenticated"
	MsgAccessDenied       = "Access denied. Your account is not registered as an active tenant. Please contact the dormitory administrator."
	MsgTooManyAttempts    = "Too many failed attempts. Please try again later."
	MsgServiceUnavailable = "Authentication service unavailable. Check your connection and try again."
	MsgInternal           = "Internal server error"
	MsgInvalidIDToken     = "Invalid identity token"
)

// Error is a classified failure. Message is safe to return to clients, Err is the
// internal cause and is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Validation(message string) error {
	return New(KindValidation, message, nil)
}

func Authentication(message string, cause error) error {
	return New(KindAuthentication, message, cause)
}

func Eligibility(cause error) error {
	return New(KindEligibility, MsgAccessDenied, cause)
}

func RateLimited(cause error) error {
	return New(KindRateLimit, MsgTooManyAttempts, cause)
}

func Upstream(cause error) error {
	return New(KindUpstream, MsgServiceUnavailable, cause)
}

func Internal(cause error) error {
	return New(KindInternal, MsgInternal, cause)
}

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return MsgInternal
}

// HTTPStatus maps a kind onto the status code returned by the API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindEligibility:
		return http.StatusForbidden
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
