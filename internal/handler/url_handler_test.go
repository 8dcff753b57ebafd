package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/shortlink/internal/cache"
	"github.com/darkodi/shortlink/internal/errors"
	"github.com/darkodi/shortlink/internal/logger"
	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/repository"
	"github.com/darkodi/shortlink/internal/service"
)

func setupTestRouter(t *testing.T) (http.Handler, *service.URLService) {
	t.Helper()

	repo, err := repository.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	c := cache.NewMemoryCache(time.Minute)

	svc := service.NewURLService(repo, c, service.Options{BaseURL: "http://sho.rt", ClickWorkers: 1})
	t.Cleanup(func() {
		svc.Close(context.Background())
		c.Close()
		repo.Close()
	})

	return NewURLHandler(svc, logger.Discard(), true).SetupRoutes(), svc
}

func do(t *testing.T, router http.Handler, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *errors.AppError {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func shorten(t *testing.T, router http.Handler, req model.ShortenRequest) model.MappingResponse {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/urls/shorten", "alice", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp model.MappingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHandleShorten(t *testing.T) {
	router, _ := setupTestRouter(t)

	resp := shorten(t, router, model.ShortenRequest{OriginalURL: "https://example.com/long"})

	assert.Len(t, resp.ShortCode, 7)
	assert.Equal(t, "http://sho.rt/"+resp.ShortCode, resp.ShortURL)
	assert.NotNil(t, resp.ExpiresAt)
}

func TestHandleShorten_Errors(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name   string
		owner  string
		body   any
		status int
		code   string
	}{
		{"missing owner", "", model.ShortenRequest{OriginalURL: "https://example.com"}, http.StatusUnauthorized, errors.CodeUnauthorized},
		{"bad json", "alice", "not an object", http.StatusBadRequest, errors.CodeValidation},
		{"bad url", "alice", model.ShortenRequest{OriginalURL: "example.com"}, http.StatusBadRequest, errors.CodeValidation},
		{"bad alias", "alice", model.ShortenRequest{OriginalURL: "https://example.com", CustomAlias: "a-b"}, http.StatusBadRequest, errors.CodeValidation},
		{"bad expiration", "alice", model.ShortenRequest{OriginalURL: "https://example.com", ExpirationDate: "soon"}, http.StatusBadRequest, errors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/urls/shorten", tt.owner, tt.body)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestHandleShorten_DuplicateAlias(t *testing.T) {
	router, _ := setupTestRouter(t)

	shorten(t, router, model.ShortenRequest{OriginalURL: "https://example.com", CustomAlias: "promo"})
	rec := do(t, router, http.MethodPost, "/api/urls/shorten", "bob",
		model.ShortenRequest{OriginalURL: "https://other.example.com", CustomAlias: "promo"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.CodeConflict, decodeError(t, rec).Code)
}

func TestHandleRedirect(t *testing.T) {
	router, svc := setupTestRouter(t)
	resp := shorten(t, router, model.ShortenRequest{OriginalURL: "https://example.com/target"})

	rec := do(t, router, http.MethodGet, "/"+resp.ShortCode, "", nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/target", rec.Header().Get("Location"))

	svc.WaitForClicks()
	rec = do(t, router, http.MethodGet, "/"+resp.ShortCode+"/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats model.MappingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.ClickCount)
}

func TestHandleRedirect_NotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	for _, path := range []string{"/nothere", "/favicon.ico", "/nothere/stats"} {
		rec := do(t, router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestHandleMyURLs(t *testing.T) {
	router, _ := setupTestRouter(t)
	shorten(t, router, model.ShortenRequest{OriginalURL: "https://one.example.com"})
	shorten(t, router, model.ShortenRequest{OriginalURL: "https://two.example.com"})

	rec := do(t, router, http.MethodGet, "/api/urls/my-urls", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []model.MappingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 2)

	rec = do(t, router, http.MethodGet, "/api/urls/my-urls", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/urls/my-urls", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleDelete(t *testing.T) {
	router, _ := setupTestRouter(t)
	resp := shorten(t, router, model.ShortenRequest{OriginalURL: "https://example.com"})
	path := "/api/urls/" + resp.ShortCode

	rec := do(t, router, http.MethodDelete, path, "mallory", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, http.StatusFound, do(t, router, http.MethodGet, "/"+resp.ShortCode, "", nil).Code)

	rec = do(t, router, http.MethodDelete, path, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/"+resp.ShortCode, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, path, "alice", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodDelete, path, "", nil).Code)
}

func TestHandleHealth(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := do(t, router, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","checks":{"store":"ok","cache":"ok"}}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := do(t, router, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shortlink_")
}
