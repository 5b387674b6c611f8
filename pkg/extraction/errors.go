package extraction

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrUpstream     = errors.New("upstream error")
)

// InvocationError is a failed call to the extraction backend. Message is meant
// to be shown to the user as is.
type InvocationError struct {
	Kind       error
	StatusCode int
	Message    string
}

func (e *InvocationError) Error() string {
	return e.Message
}

func (e *InvocationError) Unwrap() error {
	return e.Kind
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrUpstream
	}
}

func fallbackMessage(kind error) string {
	switch kind {
	case ErrUnauthorized:
		return "Extraction service rejected the credentials."
	case ErrNotFound:
		return "Extraction project was not found."
	case ErrValidation:
		return "Extraction request was rejected as invalid."
	default:
		return "Extraction service is unavailable."
	}
}

func upstreamError(format string, args ...any) *InvocationError {
	return &InvocationError{
		Kind:    ErrUpstream,
		Message: fmt.Sprintf(format, args...),
	}
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsConfigurationProblem reports whether the failure is something the user can
// fix by changing the node configuration.
func IsConfigurationProblem(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation)
}
