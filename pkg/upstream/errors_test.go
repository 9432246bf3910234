package upstream

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := APIError("telegram", "Bad Request: chat not found")
	if got := err.Error(); got != "telegram api_error: Bad Request: chat not found" {
		t.Fatalf("Error() = %q", got)
	}

	bare := &Error{Category: ErrorTransport}
	if got := bare.Error(); got != ErrorTransport {
		t.Fatalf("Error() = %q, want %q", got, ErrorTransport)
	}
}

func TestDescribeUnwrapsCategorizedErrors(t *testing.T) {
	wrapped := fmt.Errorf("get file: %w", APIError("telegram", "Bad Request: invalid file_id"))
	if got := Describe(wrapped); got != "Bad Request: invalid file_id" {
		t.Fatalf("Describe = %q", got)
	}

	plain := errors.New("dial tcp: timeout")
	if got := Describe(plain); got != "dial tcp: timeout" {
		t.Fatalf("Describe = %q", got)
	}

	if got := Describe(nil); got != "" {
		t.Fatalf("Describe(nil) = %q, want empty", got)
	}
}

func TestCategoryFromError(t *testing.T) {
	if got := CategoryFromError(nil); got != "" {
		t.Fatalf("category(nil) = %q", got)
	}
	if !IsAPIError(fmt.Errorf("wrap: %w", APIError("telegram", "x"))) {
		t.Fatal("expected wrapped api error to be detected")
	}
	if IsAPIError(TransportError("telegram", errors.New("reset"))) {
		t.Fatal("transport error must not be reported as api error")
	}
	if got := CategoryFromError(errors.New("boom")); got != ErrorTransport {
		t.Fatalf("category = %q, want %q", got, ErrorTransport)
	}
	if TransportError("telegram", nil) != nil {
		t.Fatal("expected nil for nil transport error")
	}
}
