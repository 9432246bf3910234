package upstream

import (
	"errors"
	"fmt"
)

const (
	ErrorAPI             = "api_error"
	ErrorTransport       = "transport_error"
	ErrorInvalidResponse = "invalid_response"
)

// Error is a categorized failure reported by an external service (the
// messaging API, a storage backend, a public channel page).
type Error struct {
	Service  string
	Category string
	Detail   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	prefix := e.Category
	if e.Service != "" {
		prefix = e.Service + " " + e.Category
	}
	if e.Detail == "" {
		return prefix
	}

	return fmt.Sprintf("%s: %s", prefix, e.Detail)
}

// NewError creates a categorized upstream error.
func NewError(service string, category string, detail string) error {
	return &Error{Service: service, Category: category, Detail: detail}
}

// APIError reports a non-ok response; detail is the upstream description.
func APIError(service string, detail string) error {
	return NewError(service, ErrorAPI, detail)
}

// TransportError wraps a network level failure.
func TransportError(service string, err error) error {
	if err == nil {
		return nil
	}

	return NewError(service, ErrorTransport, err.Error())
}

// CategoryFromError returns the stable category for an error when available.
func CategoryFromError(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	return ErrorTransport
}

// IsAPIError reports whether err is a non-ok response from an upstream API.
func IsAPIError(err error) bool {
	return CategoryFromError(err) == ErrorAPI
}

// Describe returns the user-facing text for err: the upstream detail when
// err is categorized, the raw error text otherwise.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) && categorized.Detail != "" {
		return categorized.Detail
	}

	return err.Error()
}
