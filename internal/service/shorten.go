package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/darkodi/shortlink/internal/errors"
	"github.com/darkodi/shortlink/internal/metrics"
	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/repository"
)

// MaxExpiresInDays keeps relative expiries inside the four-digit years
// that JSON and the stores round-trip.
const MaxExpiresInDays = 365 * 1000

// expirationLayouts are tried in order; layouts without a zone are UTC
var expirationLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Shorten creates a mapping for req owned by owner and warms the cache
func (s *URLService) Shorten(ctx context.Context, req model.ShortenRequest, owner string) (*model.MappingResponse, error) {
	// ============ STEP 1: Validation ============
	if owner == "" {
		return nil, apperrors.Unauthorized("owner identity is required")
	}
	if appErr := s.validator.ValidateURL(req.OriginalURL); appErr != nil {
		return nil, appErr
	}

	// ============ STEP 2: Expiration ============
	now := s.now().Truncate(time.Second)
	expiresAt, err := s.resolveExpiration(req, now)
	if err != nil {
		return nil, err
	}

	m := &model.Mapping{
		OriginalURL: req.OriginalURL,
		Owner:       owner,
		CreatedAt:   now,
		ExpiresAt:   &expiresAt,
	}

	// ============ STEP 3: Code + persist ============
	if req.CustomAlias != "" {
		err = s.saveWithAlias(ctx, m, req.CustomAlias)
	} else {
		err = s.saveWithGeneratedCode(ctx, m)
	}
	if err != nil {
		return nil, err
	}

	// ============ STEP 4: Write-through ============
	s.cachePut(ctx, m, s.now())

	resp := s.response(m)
	return &resp, nil
}

// saveWithAlias checks the alias once and inserts it. A concurrent insert
// of the same alias loses on the store's unique constraint and is
// reported as a conflict, never retried.
func (s *URLService) saveWithAlias(ctx context.Context, m *model.Mapping, alias string) error {
	if appErr := s.validator.ValidateAlias(alias); appErr != nil {
		return appErr
	}

	exists, err := s.store.ExistsByCode(ctx, alias)
	if err != nil {
		return fmt.Errorf("check alias %s: %w", alias, err)
	}
	if exists {
		return apperrors.AliasTaken(alias)
	}

	m.ShortCode = alias
	if err := s.store.Save(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return apperrors.AliasTaken(alias)
		}
		return fmt.Errorf("save mapping: %w", err)
	}

	metrics.MappingsCreated.WithLabelValues("alias").Inc()
	return nil
}

// saveWithGeneratedCode retries with a fresh code when an insert races
// with another writer that took the same code.
func (s *URLService) saveWithGeneratedCode(ctx context.Context, m *model.Mapping) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.codes.Generate(ctx)
		if err != nil {
			return err
		}

		m.ShortCode = code
		err = s.store.Save(ctx, m)
		if err == nil {
			metrics.MappingsCreated.WithLabelValues("generated").Inc()
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return fmt.Errorf("save mapping: %w", err)
		}
		s.log.Debug("generated code taken on insert, retrying", "code", code, "attempt", attempt)
	}
	return apperrors.GenerationExhausted(s.maxAttempts)
}

// resolveExpiration prefers an explicit date, then a positive day count,
// then the default expiry
func (s *URLService) resolveExpiration(req model.ShortenRequest, now time.Time) (time.Time, error) {
	if raw := strings.TrimSpace(req.ExpirationDate); raw != "" {
		t, err := parseExpiration(raw)
		if err != nil {
			return time.Time{}, apperrors.InvalidExpiration(raw, err)
		}
		return t, nil
	}

	if req.ExpiresInDays != nil && *req.ExpiresInDays > 0 {
		days := *req.ExpiresInDays
		if days > MaxExpiresInDays {
			return time.Time{}, apperrors.InvalidExpiresInDays(days, MaxExpiresInDays)
		}
		return now.AddDate(0, 0, days), nil
	}

	return now.Add(s.defaultExpiry), nil
}

func parseExpiration(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range expirationLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ListMappings returns the owner's mappings, newest first
func (s *URLService) ListMappings(ctx context.Context, owner string) ([]model.MappingResponse, error) {
	mappings, err := s.store.FindByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}

	responses := make([]model.MappingResponse, 0, len(mappings))
	for _, m := range mappings {
		responses = append(responses, s.response(m))
	}
	return responses, nil
}

// DeleteMapping removes the mapping for code if owner created it. It
// returns false without error when the code does not exist. A failed
// cache eviction does not undo the store deletion.
func (s *URLService) DeleteMapping(ctx context.Context, code, owner string) (bool, error) {
	m, err := s.store.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find %s: %w", code, err)
	}

	if m.Owner != owner {
		return false, apperrors.Forbidden(code)
	}

	if err := s.store.Delete(ctx, m.ID); err != nil {
		return false, fmt.Errorf("delete %s: %w", code, err)
	}
	s.cacheDelete(ctx, code)

	s.log.Info("mapping deleted", "code", code, "owner", owner)
	return true, nil
}
