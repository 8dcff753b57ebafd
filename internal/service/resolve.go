package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/darkodi/shortlink/internal/errors"
	"github.com/darkodi/shortlink/internal/metrics"
	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/repository"
)

// Resolve returns the original URL for code and counts one click.
//
// A cache hit returns immediately and records the click in the
// background. A miss reads the store, purges the mapping if it has
// expired, and otherwise counts the click synchronously before
// repopulating the cache with the remaining lifetime as TTL.
func (s *URLService) Resolve(ctx context.Context, code string) (string, error) {
	if url, ok := s.cacheGet(ctx, code); ok {
		s.clicks.Record(code)
		metrics.Resolutions.WithLabelValues(metrics.OutcomeCacheHit).Inc()
		return url, nil
	}

	m, outcome, err := s.lookup(ctx, code)
	if err != nil {
		metrics.Resolutions.WithLabelValues(outcome).Inc()
		return "", err
	}

	m.ClickCount++
	err = s.store.Save(ctx, m)
	if errors.Is(err, repository.ErrNotFound) {
		// deleted after the read; must not be cached again
		metrics.Resolutions.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return "", apperrors.URLNotFound(code)
	}
	if err != nil {
		metrics.Resolutions.WithLabelValues(metrics.OutcomeError).Inc()
		return "", fmt.Errorf("count click for %s: %w", code, err)
	}

	s.cachePut(ctx, m, s.now())
	metrics.Resolutions.WithLabelValues(metrics.OutcomeResolved).Inc()
	return m.OriginalURL, nil
}

// Stats returns the mapping for code without counting a click
func (s *URLService) Stats(ctx context.Context, code string) (*model.MappingResponse, error) {
	m, _, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	resp := s.response(m)
	return &resp, nil
}

// lookup reads code from the store, treating expired mappings as absent
// and purging them. On failure it also returns the resolution outcome
// for metrics.
func (s *URLService) lookup(ctx context.Context, code string) (*model.Mapping, string, error) {
	m, err := s.store.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, metrics.OutcomeNotFound, apperrors.URLNotFound(code)
	}
	if err != nil {
		return nil, metrics.OutcomeError, fmt.Errorf("find %s: %w", code, err)
	}

	if m.ExpiredAt(s.now()) {
		s.purge(ctx, m)
		return nil, metrics.OutcomeExpired, apperrors.URLNotFound(code)
	}
	return m, "", nil
}

// purge removes an expired mapping from the store and the cache. Failures
// are logged; the caller still reports the code as not found.
func (s *URLService) purge(ctx context.Context, m *model.Mapping) {
	if err := s.store.Delete(ctx, m.ID); err != nil {
		s.log.Error("purge expired mapping failed", "code", m.ShortCode, "error", err.Error())
		return
	}
	s.cacheDelete(ctx, m.ShortCode)

	metrics.ExpiredPurged.Inc()
	s.log.Info("expired mapping purged", "code", m.ShortCode, "expires_at", m.ExpiresAt)
}

// cacheGet treats cache errors as misses
func (s *URLService) cacheGet(ctx context.Context, code string) (string, bool) {
	url, ok, err := s.cache.Get(ctx, code)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("get").Inc()
		s.log.Warn("cache get failed", "code", code, "error", err.Error())
		return "", false
	}
	return url, ok
}

// cachePut caches m until it expires. Mappings already past their expiry
// are not cached.
func (s *URLService) cachePut(ctx context.Context, m *model.Mapping, now time.Time) {
	ttl := m.TTLAt(now)
	if ttl < 0 {
		return
	}

	if err := s.cache.Set(ctx, m.ShortCode, m.OriginalURL, ttl); err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		s.log.Warn("cache set failed", "code", m.ShortCode, "error", err.Error())
	}
}

func (s *URLService) cacheDelete(ctx context.Context, code string) {
	if err := s.cache.Delete(ctx, code); err != nil {
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		s.log.Warn("cache delete failed", "code", code, "error", err.Error())
	}
}
