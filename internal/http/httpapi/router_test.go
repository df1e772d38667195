package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"colorold/internal/domain"
	"colorold/internal/http/handlers"
	"colorold/internal/providers/replicate"
	"colorold/internal/quota"
)

type fakePredictor struct{}

func (fakePredictor) HasCredentials() bool { return true }

func (fakePredictor) CreatePrediction(context.Context, replicate.Model, string) (*domain.Job, error) {
	return &domain.Job{ID: "p1", Status: domain.JobStatusStarting}, nil
}

func (fakePredictor) GetPrediction(_ context.Context, id string) (*domain.Job, error) {
	return &domain.Job{ID: id, Status: domain.JobStatusProcessing}, nil
}

func newRouter(t *testing.T, staticDir string) http.Handler {
	t.Helper()
	app := &handlers.App{
		Predictor: fakePredictor{},
		Models: map[string]replicate.Model{
			"restore":  replicate.RestoreModel("v1"),
			"colorize": replicate.ColorizeModel("v1"),
		},
		Quota:  quota.NewGuard(quota.Options{Store: quota.NewMemoryStore(0, nil), Limit: 2}),
		Logger: zerolog.Nop(),
	}
	return NewRouter(app, Options{
		Logger:        zerolog.Nop(),
		DefaultLocale: "en",
		CORSOrigins:   []string{"*"},
		JWTSecret:     []byte("secret"),
		StaticDir:     staticDir,
	})
}

func TestRoutes(t *testing.T) {
	h := newRouter(t, "")
	tests := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/v1/healthz", "", http.StatusOK},
		{http.MethodGet, "/v1/usage", "", http.StatusOK},
		{http.MethodPost, "/v1/restore", `{"imageUrl":"https://x.test/a.jpg"}`, http.StatusCreated},
		{http.MethodPost, "/v1/colorize", `{"imageUrl":"https://x.test/a.jpg"}`, http.StatusCreated},
		{http.MethodGet, "/v1/restore/p1", "", http.StatusOK},
		{http.MethodGet, "/v1/colorize/p1", "", http.StatusOK},
		{http.MethodGet, "/v1/unknown", "", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	h := newRouter(t, "")
	req := httptest.NewRequest(http.MethodGet, "/v1/usage", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	req.Header.Set("X-Language", "zh")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Language"); got != "zh" {
		t.Fatalf("Content-Language = %q", got)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "unauthorized" {
		t.Fatalf("body = %v", body)
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := newRouter(t, dir)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/a.txt", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "hi" {
		t.Fatalf("static = %d %q", rec.Code, rec.Body.String())
	}
}
