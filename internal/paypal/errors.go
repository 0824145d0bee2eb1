package paypal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	ErrNotFound        = errors.New("paypal: resource not found")
	ErrForbidden       = errors.New("paypal: access to resource forbidden")
	ErrUnauthorized    = errors.New("paypal: authentication failed")
	ErrNothingToUpdate = errors.New("paypal: no valid fields to update")
)

// APIError is a non-2xx answer from PayPal
type APIError struct {
	Op         string // Operation, e.g. "update product"
	StatusCode int
	Body       string
	DebugID    string // PayPal-Debug-Id header, quoted in support requests
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusNotFound:
		return fmt.Sprintf("failed to %s: not found in PayPal", e.Op)
	case http.StatusForbidden:
		return fmt.Sprintf("failed to %s: PayPal app lacks permission", e.Op)
	case http.StatusUnauthorized:
		return fmt.Sprintf("failed to %s: PayPal authentication failed", e.Op)
	}
	return fmt.Sprintf("failed to %s: PayPal returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// Is maps the status code onto the package sentinels
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

func newAPIError(op string, resp *resty.Response) *APIError {
	return &APIError{
		Op:         op,
		StatusCode: resp.StatusCode(),
		Body:       trim(strings.TrimSpace(string(resp.Body())), 512),
		DebugID:    resp.Header().Get("Paypal-Debug-Id"),
	}
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
