package model

import (
	"strings"
	"time"
)

// Mapping is the durable record behind a short code
type Mapping struct {
	ID          int64      `json:"id"`                   // assigned by the store on insert
	ShortCode   string     `json:"short_code"`           // generated or custom alias
	OriginalURL string     `json:"original_url"`         // redirect target
	Owner       string     `json:"owner"`                // creating principal
	CreatedAt   time.Time  `json:"created_at"`           // set once
	ExpiresAt   *time.Time `json:"expires_at,omitempty"` // nil means it never expires
	ClickCount  int64      `json:"click_count"`          // best-effort counter
}

// ExpiredAt reports whether the mapping is no longer resolvable at now.
func (m *Mapping) ExpiredAt(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}

// TTLAt returns the cache lifetime for the mapping measured from now,
// truncated to whole seconds. Zero means no expiration; a negative value
// means the mapping should not be cached at all.
func (m *Mapping) TTLAt(now time.Time) time.Duration {
	if m.ExpiresAt == nil {
		return 0
	}
	ttl := m.ExpiresAt.Sub(now).Truncate(time.Second)
	if ttl <= 0 {
		return -1
	}
	return ttl
}

// ShortenRequest is the API request body
type ShortenRequest struct {
	OriginalURL    string `json:"original_url"`              // original long URL
	CustomAlias    string `json:"custom_alias,omitempty"`    // optional custom short code
	ExpirationDate string `json:"expiration_date,omitempty"` // absolute, RFC 3339 or ISO local time
	ExpiresInDays  *int   `json:"expires_in_days,omitempty"` // relative, used when no date is given
}

// MappingResponse is the API view of a mapping
type MappingResponse struct {
	ID          int64      `json:"id"`
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"` // base URL + "/" + code
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClickCount  int64      `json:"click_count"`
}

// NewMappingResponse projects a mapping into its response view.
func NewMappingResponse(m *Mapping, baseURL string) MappingResponse {
	return MappingResponse{
		ID:          m.ID,
		OriginalURL: m.OriginalURL,
		ShortCode:   m.ShortCode,
		ShortURL:    strings.TrimRight(baseURL, "/") + "/" + m.ShortCode,
		CreatedAt:   m.CreatedAt,
		ExpiresAt:   m.ExpiresAt,
		ClickCount:  m.ClickCount,
	}
}
