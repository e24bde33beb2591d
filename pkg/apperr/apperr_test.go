package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf_UnwrapsChain(t *testing.T) {
	base := Upstream("dialer.dispatch", "provider rejected call", errors.New("503"))
	wrapped := fmt.Errorf("dispatch lead l1: %w", base)

	if got := KindOf(wrapped); got != KindUpstream {
		t.Fatalf("expected upstream, got %v", got)
	}
	if !Is(wrapped, KindUpstream) {
		t.Fatalf("expected Is to match")
	}
	if got := Status(wrapped); got != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", got)
	}
}

func TestStatus_PlainErrorIsInternal(t *testing.T) {
	if got := Status(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
	if KindOf(errors.New("boom")) != KindUnknown {
		t.Fatalf("expected unknown kind")
	}
}

func TestError_MessageIncludesOp(t *testing.T) {
	err := Validation("dialer.start", "limit must be between 1 and 500")
	if err.Error() != "dialer.start: limit must be between 1 and 500" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if err.HTTPStatus() != http.StatusBadRequest {
		t.Fatalf("expected 400")
	}
}
