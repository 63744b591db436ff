package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cartercloud/cartercloud/auth"
	"github.com/cartercloud/cartercloud/blob"
	"github.com/cartercloud/cartercloud/logger"
	"github.com/cartercloud/cartercloud/metadata"
	"github.com/cartercloud/cartercloud/server/endpoint"
	"github.com/cartercloud/cartercloud/server/middleware"
	"github.com/cartercloud/cartercloud/vault"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	log := logger.NewDefault("test")

	meta, err := metadata.Open(filepath.Join(dir, "data.json"), log)
	if err != nil {
		t.Fatalf("metadata.Open: %v", err)
	}
	blobs, err := blob.NewLocal(filepath.Join(dir, "uploads"), false)
	if err != nil {
		t.Fatalf("blob.NewLocal: %v", err)
	}
	svc := vault.New(meta, blobs, vault.Config{}, log, nil)

	var authCfg auth.Config
	authCfg.ApplyDefaults()
	verifier := auth.NewStaticVerifier(authCfg)

	engine := gin.New()
	engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
	}))
	engine.GET("/health", endpoint.Health("cartercloud", nil))

	NewHandlers(svc, verifier, log).RegisterRoutes(engine)
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp.Error.Code
}

func TestLogin(t *testing.T) {
	engine := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/login", gin.H{
		"username": "carte1", "password": "C@rter!23",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool      `json:"success"`
		User    auth.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.User.Username != "carte1" {
		t.Errorf("unexpected response: %+v", resp)
	}

	w = doJSON(t, engine, http.MethodPost, "/login", gin.H{
		"username": "carte1", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d", w.Code)
	}
	var failed struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &failed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if failed.Success || failed.Error == "" {
		t.Errorf("unexpected failure body: %s", w.Body.String())
	}

	w = doJSON(t, engine, http.MethodPost, "/login", gin.H{"username": "carte1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing password: status = %d", w.Code)
	}
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	engine := newTestRouter(t)

	content := base64.StdEncoding.EncodeToString([]byte("hello world"))
	w := doJSON(t, engine, http.MethodPost, "/upload", gin.H{
		"id": "greeting", "name": "hello.txt", "type": "text/plain", "data": content,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}
	var rec metadata.FileRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Size != int64(len("hello world")) {
		t.Errorf("size = %d", rec.Size)
	}

	w = doJSON(t, engine, http.MethodGet, "/files/greeting", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d", w.Code)
	}
	if got := w.Body.String(); got != "hello world" {
		t.Errorf("body = %q", got)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="hello.txt"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cl := w.Header().Get("Content-Length"); cl != "11" {
		t.Errorf("Content-Length = %q", cl)
	}
}

func TestUploadValidation(t *testing.T) {
	engine := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/upload", gin.H{"data": "aGk="})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if code := errorCode(t, w); code != "MISSING_FIELD" {
		t.Errorf("code = %s", code)
	}

	w = doJSON(t, engine, http.MethodPost, "/upload", gin.H{"id": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodPost, "/upload", gin.H{"id": "../../etc/passwd", "data": "aGk="})
	if w.Code != http.StatusBadRequest {
		t.Errorf("traversal id: status = %d", w.Code)
	}
}

func TestDownloadNotFound(t *testing.T) {
	engine := newTestRouter(t)

	w := doJSON(t, engine, http.MethodGet, "/files/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if code := errorCode(t, w); code != "NOT_FOUND" {
		t.Errorf("code = %s", code)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	engine := newTestRouter(t)

	doJSON(t, engine, http.MethodPost, "/upload", gin.H{"id": "temp", "data": "aGk="})

	for i := 0; i < 2; i++ {
		w := doJSON(t, engine, http.MethodDelete, "/files/temp", nil)
		if w.Code != http.StatusOK {
			t.Errorf("delete #%d: status = %d", i+1, w.Code)
		}
	}
}

func TestFoldersLifecycle(t *testing.T) {
	engine := newTestRouter(t)

	// The body is the bare folder array, not a wrapper object.
	w := doJSON(t, engine, http.MethodPost, "/folders", []gin.H{
		{"id": "docs", "name": "Documents"},
		{"id": "tax", "name": "Taxes", "parentId": "docs"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("replace status = %d, body %s", w.Code, w.Body.String())
	}
	var ok struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &ok); err != nil || !ok.Success {
		t.Fatalf("replace body = %s, %v", w.Body.String(), err)
	}

	// A cyclic tree must be rejected and leave the previous tree in place.
	w = doJSON(t, engine, http.MethodPost, "/folders", []gin.H{
		{"id": "a", "name": "A", "parentId": "b"},
		{"id": "b", "name": "B", "parentId": "a"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("cycle status = %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodGet, "/files", nil)
	var doc metadata.Document
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Folders) != 2 {
		t.Errorf("folders = %+v", doc.Folders)
	}

	w = doJSON(t, engine, http.MethodDelete, "/folders/docs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete folder status = %d", w.Code)
	}
	w = doJSON(t, engine, http.MethodGet, "/files", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Folders) != 0 {
		t.Errorf("cascade left folders: %+v", doc.Folders)
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestHealth(t *testing.T) {
	engine := newTestRouter(t)

	w := doJSON(t, engine, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
}
