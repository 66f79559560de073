package modelkit

import (
	"errors"
	"fmt"
)

// TransportError is the error type for failures between the loop and the
// underlying model provider: request send failures, mid-stream disconnects,
// provider-side rejections. The chat loop treats any of these as fatal to
// the current run.
type TransportError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *TransportError) Error() string {
	if e.Provider != "" && e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s (status=%d)", e.Provider, e.Message, e.StatusCode)
	}
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s", e.Provider, e.Message)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// NewTransportError wraps a provider failure.
func NewTransportError(provider, message string, cause error) *TransportError {
	return &TransportError{Provider: provider, Message: message, Cause: cause}
}

// IsTransportError reports whether err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
