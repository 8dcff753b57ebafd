package validator

import (
	"net/url"
	"strings"

	"github.com/darkodi/shortlink/internal/encoder"
	"github.com/darkodi/shortlink/internal/errors"
)

// URLValidator performs format checks on URLs and short codes
type URLValidator struct {
	maxLength      int
	allowedSchemes []string
}

// NewURLValidator creates a validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		maxLength:      2048,
		allowedSchemes: []string{"http", "https"},
	}
}

// ValidateURL validates a URL string
func (v *URLValidator) ValidateURL(rawURL string) *errors.AppError {
	// Check if empty
	if strings.TrimSpace(rawURL) == "" {
		return errors.MissingField("original_url")
	}

	// Check length
	if len(rawURL) > v.maxLength {
		return errors.InvalidURL("URL exceeds maximum length")
	}

	// Parse URL
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.InvalidURL("URL could not be parsed")
	}

	// Check scheme
	if !v.isAllowedScheme(parsedURL.Scheme) {
		return errors.InvalidURL("URL must use http or https scheme")
	}

	// Check host exists
	if parsedURL.Host == "" {
		return errors.InvalidURL("URL must have a valid host")
	}

	return nil
}

// ValidateShortCode checks that a path segment can be a short code at all,
// so malformed lookups never reach the cache or the store.
func (v *URLValidator) ValidateShortCode(code string) *errors.AppError {
	if code == "" {
		return errors.MissingField("code")
	}

	if len(code) < encoder.MinAliasLength || len(code) > encoder.MaxAliasLength || !encoder.IsAlphanumeric(code) {
		return errors.URLNotFound(code)
	}

	return nil
}

// ValidateAlias validates a custom alias: 3-20 alphanumeric characters
func (v *URLValidator) ValidateAlias(alias string) *errors.AppError {
	if !encoder.ValidAlias(alias) {
		return errors.InvalidAlias(alias)
	}
	return nil
}

func (v *URLValidator) isAllowedScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// WithMaxLength sets maximum URL length
func (v *URLValidator) WithMaxLength(length int) *URLValidator {
	v.maxLength = length
	return v
}
