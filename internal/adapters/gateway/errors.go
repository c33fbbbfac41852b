package gateway

import (
	"errors"
	"fmt"
)

// GatewayError is a failed exchange with the payment gateway. StatusCode is zero when
// the request never got an HTTP response.
type GatewayError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gateway error: %s", e.Message)
	}
	return fmt.Sprintf("gateway error: %s (status: %d)", e.Message, e.StatusCode)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether repeating the call could succeed.
func (e *GatewayError) IsRetryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == 429
}

func isRetryable(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.IsRetryable()
	}
	return false
}
