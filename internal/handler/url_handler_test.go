package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/darkodi/snip/internal/codegen"
	"github.com/darkodi/snip/internal/config"
	apperrors "github.com/darkodi/snip/internal/errors"
	"github.com/darkodi/snip/internal/logger"
	"github.com/darkodi/snip/internal/model"
	"github.com/darkodi/snip/internal/repository"
	"github.com/darkodi/snip/internal/service"
)

type testEnv struct {
	server *httptest.Server
	client *http.Client
	repo   *repository.URLRepository
}

func setupTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()
	repo, err := repository.NewURLRepository(&config.DatabaseConfig{
		Backend:      config.BackendSQLite,
		Path:         ":memory:",
		MaxOpenConns: 1,
		QueryTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create repo: %v", err)
	}

	log := logger.Discard()
	shortener := service.NewShortenService(repo, codegen.New(6), service.DefaultMaxAttempts, log)
	redirector := service.NewRedirectService(repo, nil, nil, log)
	h := NewURLHandler(shortener, redirector, repo, baseURL, log)

	srv := httptest.NewServer(h.SetupRoutes())
	t.Cleanup(func() {
		srv.Close()
		repo.Close()
	})

	return &testEnv{
		server: srv,
		repo:   repo,
		client: &http.Client{
			// Inspect redirects instead of following them
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, e.server.URL+path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, _ := io.ReadAll(res.Body)
	res.Body.Close()
	return res, data
}

func (e *testEnv) shorten(t *testing.T, url string) model.ShortenResponse {
	t.Helper()
	res, body := e.do(t, http.MethodPost, "/api/shorten", `{"url":"`+url+`"}`, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", res.StatusCode, body)
	}
	var out model.ShortenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	return out
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == nil {
		t.Fatalf("Expected error envelope, got: %s", body)
	}
	return resp.Error.Code
}

func TestShortenRedirectStats_EndToEnd(t *testing.T) {
	env := setupTestEnv(t, "https://sho.rt")

	created := env.shorten(t, "https://example.com/page?x=1")
	if created.ShortURL != "https://sho.rt/"+created.ShortCode {
		t.Errorf("Unexpected short URL: %s", created.ShortURL)
	}

	again := env.shorten(t, "https://example.com/page?x=1")
	if again.ShortCode != created.ShortCode {
		t.Errorf("Expected idempotent code, got %s and %s", created.ShortCode, again.ShortCode)
	}

	for i := 0; i < 3; i++ {
		res, _ := env.do(t, http.MethodGet, "/"+created.ShortCode, "", nil)
		if res.StatusCode != http.StatusFound {
			t.Fatalf("Expected 302, got %d", res.StatusCode)
		}
		if loc := res.Header.Get("Location"); loc != "https://example.com/page?x=1" {
			t.Errorf("Unexpected Location: %s", loc)
		}
	}

	res, body := env.do(t, http.MethodGet, "/api/stats/"+created.ShortCode, "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", res.StatusCode, body)
	}
	var stats model.StatsResponse
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if stats.Clicks != 3 || stats.OriginalURL != "https://example.com/page?x=1" || stats.ShortCode != created.ShortCode {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if _, err := time.Parse(time.RFC3339, stats.CreatedAt); err != nil {
		t.Errorf("created_at is not ISO-8601: %q", stats.CreatedAt)
	}
}

func TestShorten_BadRequests(t *testing.T) {
	env := setupTestEnv(t, "https://sho.rt")

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"invalid json", `{"url":`, "INVALID_JSON"},
		{"missing url", `{}`, "MISSING_FIELD"},
		{"empty url", `{"url":""}`, "MISSING_FIELD"},
		{"blank url", `{"url":"   "}`, "MISSING_FIELD"},
		{"not a url", `{"url":"not a url"}`, "INVALID_URL"},
		{"ftp", `{"url":"ftp://example.com"}`, "INVALID_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := env.do(t, http.MethodPost, "/api/shorten", tt.body, nil)
			if res.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", res.StatusCode)
			}
			if code := errorCode(t, body); code != tt.wantCode {
				t.Errorf("Expected %s, got %s", tt.wantCode, code)
			}
		})
	}
}

func TestShorten_MethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t, "https://sho.rt")

	res, _ := env.do(t, http.MethodGet, "/api/shorten", "", nil)
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", res.StatusCode)
	}
}

func TestShorten_BaseURLFromRequest(t *testing.T) {
	env := setupTestEnv(t, "")

	res, body := env.do(t, http.MethodPost, "/api/shorten", `{"url":"https://a.com"}`, map[string]string{
		"X-Forwarded-Proto": "https",
		"X-Forwarded-Host":  "links.example.org",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", res.StatusCode)
	}
	var out model.ShortenResponse
	json.Unmarshal(body, &out)
	if out.ShortURL != "https://links.example.org/"+out.ShortCode {
		t.Errorf("Expected forwarded base URL, got %s", out.ShortURL)
	}

	direct := env.shorten(t, "https://b.com")
	if !strings.HasPrefix(direct.ShortURL, env.server.URL+"/") {
		t.Errorf("Expected request host base URL, got %s", direct.ShortURL)
	}
}

func TestRedirect_NotFound(t *testing.T) {
	env := setupTestEnv(t, "https://sho.rt")

	for _, path := range []string{"/nope00", "/api", "/bad-code", "/api/stats/nope00", "/api/stats/bad_code"} {
		t.Run(path, func(t *testing.T) {
			res, body := env.do(t, http.MethodGet, path, "", nil)
			if res.StatusCode != http.StatusNotFound {
				t.Fatalf("Expected 404, got %d", res.StatusCode)
			}
			if code := errorCode(t, body); code != "URL_NOT_FOUND" {
				t.Errorf("Expected URL_NOT_FOUND, got %s", code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t, "https://sho.rt")

	res, body := env.do(t, http.MethodGet, "/health", "", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), "healthy") {
		t.Errorf("Expected healthy, got %d: %s", res.StatusCode, body)
	}

	env.repo.Close()
	res, _ = env.do(t, http.MethodGet, "/health", "", nil)
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 after store closed, got %d", res.StatusCode)
	}
}

func TestStoreUnavailable(t *testing.T) {
	env := setupTestEnv(t, "https://sho.rt")
	env.repo.Close()

	res, body := env.do(t, http.MethodPost, "/api/shorten", `{"url":"https://a.com"}`, nil)
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", res.StatusCode)
	}
	if code := errorCode(t, body); code != "STORE_UNAVAILABLE" {
		t.Errorf("Expected STORE_UNAVAILABLE, got %s", code)
	}
}

type takenStore struct {
	*repository.URLRepository
}

func (s takenStore) Insert(ctx context.Context, originalURL, shortCode string, createdAt time.Time) (*model.URL, error) {
	return nil, repository.ErrConflict
}

func TestShorten_CodeSpaceExhausted(t *testing.T) {
	repo, err := repository.NewURLRepository(&config.DatabaseConfig{Backend: config.BackendSQLite, Path: ":memory:", MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Failed to create repo: %v", err)
	}
	defer repo.Close()

	log := logger.Discard()
	store := takenStore{repo}
	h := NewURLHandler(
		service.NewShortenService(store, codegen.New(6), 3, log),
		service.NewRedirectService(store, nil, nil, log),
		repo, "https://sho.rt", log)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(`{"url":"https://a.com"}`))
	h.SetupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "CODE_SPACE_EXHAUSTED" {
		t.Errorf("Expected CODE_SPACE_EXHAUSTED, got %s", code)
	}
}

func TestIsCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"abc123", true},
		{"api", false},
		{"health", false},
		{"favicon.ico", false},
		{"", false},
		{"with-dash", false},
	}
	for _, tt := range tests {
		if got := isCode(tt.code); got != tt.want {
			t.Errorf("isCode(%q) = %v; want %v", tt.code, got, tt.want)
		}
	}
}
