package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/darkodi/shortlink/internal/errors"
	"github.com/darkodi/shortlink/internal/logger"
	"github.com/darkodi/shortlink/internal/metrics"
	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/service"
	"github.com/darkodi/shortlink/internal/validator"
)

// OwnerHeader carries the authenticated principal, set by the gateway
const OwnerHeader = "X-User-ID"

const healthTimeout = 2 * time.Second

// URLHandler handles HTTP requests for URL operations
type URLHandler struct {
	service        *service.URLService
	validator      *validator.URLValidator
	log            *logger.Logger
	metricsEnabled bool
}

// NewURLHandler creates a new handler instance
func NewURLHandler(svc *service.URLService, log *logger.Logger, metricsEnabled bool) *URLHandler {
	return &URLHandler{
		service:        svc,
		validator:      validator.NewURLValidator(),
		log:            log,
		metricsEnabled: metricsEnabled,
	}
}

// ============ HANDLERS ============

// HandleShorten creates a new short URL
// POST /api/urls/shorten
func (h *URLHandler) HandleShorten(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(OwnerHeader)
	if owner == "" {
		errors.Unauthorized("missing " + OwnerHeader + " header").WriteJSON(w)
		return
	}

	var req model.ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.InvalidJSON(err.Error()).WriteJSON(w)
		return
	}

	resp, err := h.service.Shorten(r.Context(), req, owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleMyURLs lists the caller's mappings
// GET /api/urls/my-urls
func (h *URLHandler) HandleMyURLs(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(OwnerHeader)
	if owner == "" {
		errors.Unauthorized("missing " + OwnerHeader + " header").WriteJSON(w)
		return
	}

	list, err := h.service.ListMappings(r.Context(), owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// HandleDelete deletes one of the caller's mappings
// DELETE /api/urls/{code}
func (h *URLHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(OwnerHeader)
	if owner == "" {
		errors.Unauthorized("missing " + OwnerHeader + " header").WriteJSON(w)
		return
	}

	code := r.PathValue("code")
	deleted, err := h.service.DeleteMapping(r.Context(), code, owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !deleted {
		errors.URLNotFound(code).WriteJSON(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRedirect redirects to the original URL
// GET /{code}
func (h *URLHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	// Validate short code format
	if appErr := h.validator.ValidateShortCode(code); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	originalURL, err := h.service.Resolve(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// 302 so browsers come back and every click is counted
	http.Redirect(w, r, originalURL, http.StatusFound)
}

// HandleStats returns statistics for a short URL
// GET /{code}/stats
func (h *URLHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	if appErr := h.validator.ValidateShortCode(code); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	stats, err := h.service.Stats(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleHealth reports store and cache reachability
// GET /health
func (h *URLHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	checks := map[string]string{}
	for name, err := range h.service.Health(ctx) {
		if err != nil {
			checks[name] = err.Error()
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// writeError renders err, logging anything that is not a known client error
func (h *URLHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.From(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		h.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
	}
	appErr.WriteJSON(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ============ ROUTER SETUP ============

// SetupRoutes configures all HTTP routes
func (h *URLHandler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// API
	mux.HandleFunc("POST /api/urls/shorten", h.HandleShorten)
	mux.HandleFunc("GET /api/urls/my-urls", h.HandleMyURLs)
	mux.HandleFunc("DELETE /api/urls/{code}", h.HandleDelete)

	// Operational
	mux.HandleFunc("GET /health", h.HandleHealth)
	if h.metricsEnabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	// Public short links; literal routes above take precedence
	mux.HandleFunc("GET /{code}", h.HandleRedirect)
	mux.HandleFunc("GET /{code}/stats", h.HandleStats)

	return mux
}
