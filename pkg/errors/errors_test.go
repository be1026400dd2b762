package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeValidation, http.StatusBadRequest, false},
		{CodeNotFound, http.StatusNotFound, false},
		{CodeInsufficientStock, http.StatusConflict, false},
		{CodeSerialUnavailable, http.StatusConflict, false},
		{CodeConflict, http.StatusConflict, true},
		{CodeStateConflict, http.StatusUnprocessableEntity, false},
		{Code("BOGUS"), http.StatusInternalServerError, true},
	}
	for _, tc := range tests {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.code, meta.HTTPStatus, tc.status)
		}
		if meta.Retryable != tc.retryable {
			t.Errorf("%s: retryable = %v, want %v", tc.code, meta.Retryable, tc.retryable)
		}
	}
}

func TestWrapAndAs(t *testing.T) {
	cause := stdErrors.New("row locked")
	err := Wrap(CodeConflict, cause, "apply movement")

	typed := As(err)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeConflict {
		t.Fatalf("code = %s", typed.Code())
	}
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if !IsRetryable(err) {
		t.Fatal("conflict should be retryable")
	}
	if IsRetryable(stdErrors.New("plain")) {
		t.Fatal("plain errors are not retryable")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeInsufficientStock, "not enough units").
		WithDetails(map[string]any{"available": 1, "requested": 2})
	if err.Details() == nil {
		t.Fatal("expected details")
	}
}
