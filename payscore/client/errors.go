package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-payscore/payscore/circuitbreaker"
)

var (
	// ErrResponseSignature wraps every response verification failure.
	ErrResponseSignature = errors.New("client: response signature verification failed")
	// ErrCircuitOpen is returned when the gateway breaker rejects a call.
	ErrCircuitOpen = circuitbreaker.ErrOpen
	// ErrInvalidOptions is returned by New for unusable Options.
	ErrInvalidOptions = errors.New("client: invalid options")
)

// APIError is a non-2xx gateway reply.
type APIError struct {
	StatusCode int             `json:"-"`
	RequestID  string          `json:"-"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Detail     json.RawMessage `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payscore gateway: status %d", e.StatusCode)
	}

	return fmt.Sprintf("payscore gateway: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// Temporary reports whether the failure is on the gateway side.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500
}

// IsAPIError reports whether err is an *APIError with the given code. An
// empty code matches any APIError.
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	return code == "" || apiErr.Code == code
}

func newAPIError(status int, requestID string, body []byte) *APIError {
	apiErr := &APIError{}
	if len(body) > 0 {
		_ = json.Unmarshal(body, apiErr)
	}

	apiErr.StatusCode = status
	apiErr.RequestID = requestID

	return apiErr
}
