package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorChainExtraction(t *testing.T) {
	base := NewNotFoundError("appointment")
	wrapped := fmt.Errorf("handling request: %w", base)

	got := GetAppError(wrapped)
	if got == nil {
		t.Fatal("expected AppError from wrapped chain")
	}
	if got.Code != ErrCodeNotFound {
		t.Errorf("Code = %q, want %q", got.Code, ErrCodeNotFound)
	}
	if got.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d, want %d", got.HTTPStatus, http.StatusNotFound)
	}

	if GetAppError(errors.New("plain")) != nil {
		t.Error("plain error must not yield an AppError")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewInvalidStateError("cannot start"))
	if !HasCode(err, ErrCodeInvalidState) {
		t.Error("expected INVALID_STATE in chain")
	}
	if HasCode(err, ErrCodeNotFound) {
		t.Error("did not expect NOT_FOUND")
	}
	if HasCode(nil, ErrCodeNotFound) {
		t.Error("nil error must not match any code")
	}
}

func TestIsUnavailableCoversSubclassifications(t *testing.T) {
	cause := errors.New("connection refused")
	cases := []error{
		NewServiceUnavailableError("provider disabled"),
		NewConnectionError("unreachable", cause),
		NewServerError("upstream 500", cause),
	}
	for _, err := range cases {
		if !IsUnavailable(err) {
			t.Errorf("expected %v to be unavailable", err)
		}
	}
	if IsUnavailable(NewNotFoundError("session")) {
		t.Error("NOT_FOUND must not count as unavailable")
	}
}

func TestConnectionErrorPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewConnectionError("probe failed", cause)
	if !errors.Is(err, cause) {
		t.Error("cause must survive in the chain")
	}
	if err.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("HTTPStatus = %d, want 503", err.HTTPStatus)
	}
}

func TestServerErrorMapsToBadGateway(t *testing.T) {
	err := NewServerError("platform 500", errors.New("boom"))
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("HTTPStatus = %d, want 502", err.HTTPStatus)
	}
}

func TestWithContext(t *testing.T) {
	err := NewInvalidInputError("bad role").WithContext("role", "admin")
	if err.Context["role"] != "admin" {
		t.Errorf("context not attached: %+v", err.Context)
	}
}
