package analyzer

import (
	"errors"
	"fmt"
)

// ErrorKind classifies Analyzer failures. The orchestrator reacts to each
// kind distinctly: bad requests are never retried automatically, gateway
// errors are safe to retry manually, configuration problems are surfaced to
// the operator.
type ErrorKind string

const (
	KindTimeout       ErrorKind = "timeout"
	KindBadRequest    ErrorKind = "bad_request"
	KindGatewayError  ErrorKind = "gateway_error"
	KindNotConfigured ErrorKind = "not_configured"
)

// Error is a classified Analyzer failure.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("analyzer %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("analyzer %s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, statusCode int, format string, args ...interface{}) *Error {
	return &Error{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// KindOf extracts the error kind, or empty when err did not originate here.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsTimeout reports whether the Analyzer call exceeded its deadline.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}
