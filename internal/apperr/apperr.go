package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a request failure into one of the client-facing
// categories. Every stage of a handler maps its failures onto a Kind;
// nothing retries, the Kind travels up and becomes the HTTP response.
type Kind int

const (
	// Unauthorized means the bearer credential was missing or rejected.
	Unauthorized Kind = iota + 1
	// InvalidInput means the request body failed schema or bound checks,
	// including the pest-photo relevance pre-check rejection.
	InvalidInput
	// RateLimited maps an upstream 429.
	RateLimited
	// QuotaExceeded maps an upstream 402.
	QuotaExceeded
	// UpstreamFailure covers any other upstream non-success or an
	// unparseable upstream payload.
	UpstreamFailure
	// PersistenceFailure is a durable-write error after a successful
	// upstream call.
	PersistenceFailure
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case InvalidInput:
		return "invalid_input"
	case RateLimited:
		return "rate_limited"
	case QuotaExceeded:
		return "quota_exceeded"
	case UpstreamFailure:
		return "upstream_failure"
	case PersistenceFailure:
		return "persistence_failure"
	}
	return "unknown"
}

// HTTPStatus returns the response status for the kind. Anything
// unclassified is a 500.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthorized:
		return http.StatusUnauthorized
	case InvalidInput:
		return http.StatusBadRequest
	case RateLimited:
		return http.StatusTooManyRequests
	case QuotaExceeded:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a Kind plus a client-safe message. The wrapped cause is
// for server-side logs only and must never reach the response body.
type Error struct {
	Kind    Kind
	Message string
	Reason  string // optional detail shown to the client (pest pre-check)
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause. The cause is logged, not returned to clients.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithReason sets the optional client-visible reason and returns e.
func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

// KindOf extracts the Kind from err, or UpstreamFailure when err carries
// no classification.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return UpstreamFailure
}
