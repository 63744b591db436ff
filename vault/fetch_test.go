package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/cartercloud/cartercloud/errors"
)

func TestIngestURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="notes.txt"`)
		w.Write([]byte("remote content"))
	}))
	defer upstream.Close()

	svc, blobs := newTestService(t)
	ctx := context.Background()

	rec, err := svc.IngestURL(ctx, FetchRequest{URL: upstream.URL + "/some/path"})
	if err != nil {
		t.Fatalf("IngestURL: %v", err)
	}
	if rec.Name != "notes.txt" {
		t.Errorf("name = %q, want the Content-Disposition filename", rec.Name)
	}
	if rec.Type != "text/plain" {
		t.Errorf("type = %q, want media type without parameters", rec.Type)
	}
	if rec.Size != int64(len("remote content")) {
		t.Errorf("size = %d", rec.Size)
	}
	if rec.ID == "" {
		t.Fatal("id not generated")
	}

	data, err := blobs.Read(ctx, rec.ID)
	if err != nil || string(data) != "remote content" {
		t.Errorf("blob = %q, %v", data, err)
	}
}

func TestIngestURLNamePriority(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="header.bin"`)
		w.Write([]byte("x"))
	}))
	defer upstream.Close()

	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.IngestURL(ctx, FetchRequest{URL: upstream.URL + "/path.bin", Name: "explicit.bin"})
	if err != nil {
		t.Fatalf("IngestURL: %v", err)
	}
	if rec.Name != "explicit.bin" {
		t.Errorf("explicit name must win, got %q", rec.Name)
	}
}

func TestIngestURLFilenameFromPath(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer upstream.Close()

	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.IngestURL(ctx, FetchRequest{URL: upstream.URL + "/downloads/archive.zip"})
	if err != nil {
		t.Fatalf("IngestURL: %v", err)
	}
	if rec.Name != "archive.zip" {
		t.Errorf("name = %q, want the last path segment", rec.Name)
	}
	if rec.Type != "application/octet-stream" && rec.Type != "text/plain" {
		// httptest sniffs a Content-Type; either way the record carries one.
		t.Errorf("type = %q", rec.Type)
	}

	rec, err = svc.IngestURL(ctx, FetchRequest{URL: upstream.URL})
	if err != nil {
		t.Fatalf("IngestURL bare host: %v", err)
	}
	if rec.Name != "download" {
		t.Errorf("name = %q, want the fallback", rec.Name)
	}
}

func TestIngestURLUpstreamFailureWritesNothing(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer upstream.Close()

	svc, blobs := newTestService(t)
	ctx := context.Background()

	_, err := svc.IngestURL(ctx, FetchRequest{URL: upstream.URL + "/missing"})
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeUpstreamFetch {
		t.Fatalf("expected UPSTREAM_FETCH, got %v", err)
	}
	if appErr.HTTPStatus != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", appErr.HTTPStatus)
	}

	ids, err := blobs.IDs(ctx)
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("failed fetch must write no blobs, found %v", ids)
	}
	doc, _ := svc.List(ctx)
	if len(doc.Files) != 0 {
		t.Errorf("failed fetch must write no records, found %+v", doc.Files)
	}
}

func TestIngestURLValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, u := range []string{"", "ftp://host/file", "not a url at all", "/relative"} {
		_, err := svc.IngestURL(ctx, FetchRequest{URL: u})
		appErr, ok := apperrors.AsAppError(err)
		if !ok {
			t.Fatalf("url %q: expected AppError, got %v", u, err)
		}
		if appErr.HTTPStatus != http.StatusBadRequest {
			t.Errorf("url %q: status = %d, want 400", u, appErr.HTTPStatus)
		}
	}
}

func TestIngestURLSizeLimit(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer upstream.Close()

	svc, blobs := newTestService(t)
	svc.cfg.MaxFetchBytes = 1024

	_, err := svc.IngestURL(context.Background(), FetchRequest{URL: upstream.URL + "/big"})
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeUpstreamFetch {
		t.Fatalf("expected UPSTREAM_FETCH for oversized resource, got %v", err)
	}

	ids, _ := blobs.IDs(context.Background())
	if len(ids) != 0 {
		t.Errorf("oversized fetch must write nothing, found %v", ids)
	}
}
