package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorError(t *testing.T) {
	e := NotFound("file", "abc")
	if e.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", e.HTTPStatus)
	}
	if e.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", e.Code)
	}
	if e.Details["id"] != "abc" {
		t.Errorf("expected id detail, got %v", e.Details)
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	e := Persistence("upsert_file", cause)
	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if e.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", e.HTTPStatus)
	}
}

func TestAsAppError(t *testing.T) {
	e := UpstreamFetch("http://example.com/x", fmt.Errorf("boom"))
	wrapped := fmt.Errorf("ingest: %w", e)

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed")
	}
	if got.Code != ErrCodeUpstreamFetch {
		t.Errorf("expected UPSTREAM_FETCH, got %s", got.Code)
	}

	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("expected AsAppError to fail for plain error")
	}
}

func TestToResponseHidesCause(t *testing.T) {
	e := Internal(fmt.Errorf("secret detail"))
	resp := e.ToResponse()
	if resp.Error.Message == "secret detail" {
		t.Error("internal cause must not leak into the response")
	}
	if resp.Error.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", resp.Error.Code)
	}
}
