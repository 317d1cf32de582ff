package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/darkodi/snip/internal/codegen"
	"github.com/darkodi/snip/internal/errors"
	"github.com/darkodi/snip/internal/logger"
	"github.com/darkodi/snip/internal/middleware"
	"github.com/darkodi/snip/internal/model"
	"github.com/darkodi/snip/internal/repository"
	"github.com/darkodi/snip/internal/service"
	"github.com/darkodi/snip/internal/validator"
)

const (
	maxBodyBytes  = 64 << 10
	maxCodeLength = 32
)

// paths that can never be short codes
var reserved = map[string]bool{
	"api":         true,
	"health":      true,
	"favicon.ico": true,
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// URLHandler handles HTTP requests for URL operations
type URLHandler struct {
	shortener  *service.ShortenService
	redirector *service.RedirectService
	health     Pinger
	baseURL    string // empty: derived from the request
	log        *logger.Logger
}

// NewURLHandler creates a new handler instance
func NewURLHandler(shortener *service.ShortenService, redirector *service.RedirectService, health Pinger, baseURL string, log *logger.Logger) *URLHandler {
	return &URLHandler{
		shortener:  shortener,
		redirector: redirector,
		health:     health,
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log,
	}
}

// ============ HANDLERS ============

// HandleShorten creates (or reuses) a short URL
// POST /api/shorten
func (h *URLHandler) HandleShorten(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req model.ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.InvalidJSON(err.Error()).WriteJSON(w)
		return
	}
	if req.URL == "" {
		errors.MissingField("url").WriteJSON(w)
		return
	}

	resp, err := h.shortener.Shorten(r.Context(), h.requestBaseURL(r), req.URL)
	if err != nil {
		switch {
		case stderrors.Is(err, validator.ErrEmpty):
			errors.MissingField("url").WriteJSON(w)
		case stderrors.Is(err, service.ErrInvalidURL):
			errors.InvalidURL(err.Error()).WriteJSON(w)
		default:
			h.writeInternal(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleRedirect redirects to the original URL
// GET /{code}
func (h *URLHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if !isCode(code) {
		errors.URLNotFound(code).WriteJSON(w)
		return
	}

	originalURL, err := h.redirector.Resolve(r.Context(), code, service.Visit{
		UserAgent:     r.UserAgent(),
		ClientAddress: middleware.ClientIP(r),
	})
	if err != nil {
		if stderrors.Is(err, service.ErrURLNotFound) {
			errors.URLNotFound(code).WriteJSON(w)
			return
		}
		h.writeInternal(w, r, err)
		return
	}

	http.Redirect(w, r, originalURL, http.StatusFound)
}

// HandleStats returns statistics for a short URL
// GET /api/stats/{code}
func (h *URLHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if !isCode(code) {
		errors.URLNotFound(code).WriteJSON(w)
		return
	}

	mapping, err := h.redirector.Stats(r.Context(), code)
	if err != nil {
		if stderrors.Is(err, service.ErrURLNotFound) {
			errors.URLNotFound(code).WriteJSON(w)
			return
		}
		h.writeInternal(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.NewStatsResponse(mapping))
}

// HandleHealth returns service health status
// GET /health
func (h *URLHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		logger.FromContext(r.Context(), h.log).Warn("health check failed", "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ============ ROUTER SETUP ============

// SetupRoutes configures all HTTP routes
func (h *URLHandler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/shorten", h.HandleShorten)
	mux.HandleFunc("GET /api/stats/{code}", h.HandleStats)
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Single-segment catch-all for redirects
	mux.HandleFunc("GET /{code}", h.HandleRedirect)

	return mux
}

// ============ HELPERS ============

// requestBaseURL prefers the configured base URL, then proxy headers, then Host
func (h *URLHandler) requestBaseURL(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme, _, _ = strings.Cut(proto, ",")
		scheme = strings.TrimSpace(scheme)
	}

	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host, _, _ = strings.Cut(fwd, ",")
		host = strings.TrimSpace(host)
	}

	return scheme + "://" + host
}

func (h *URLHandler) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), h.log)

	switch {
	case stderrors.Is(err, service.ErrCodeSpaceExhausted):
		log.Error("short code allocation failed", "error", err.Error())
		errors.CodeSpaceExhausted().WriteJSON(w)
	case stderrors.Is(err, repository.ErrUnavailable):
		log.Error("url store unavailable", "error", err.Error())
		errors.StoreUnavailable().WriteJSON(w)
	default:
		log.Error("unexpected error", "error", err.Error())
		errors.Internal("").WriteJSON(w)
	}
}

func isCode(code string) bool {
	return !reserved[code] && codegen.IsValid(code, maxCodeLength)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
