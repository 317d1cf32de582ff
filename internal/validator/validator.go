package validator

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// DefaultMaxLength is the longest URL accepted for shortening
const DefaultMaxLength = 2048

var (
	ErrEmpty     = errors.New("URL is required")
	ErrTooLong   = errors.New("URL exceeds maximum length")
	ErrScheme    = errors.New("URL must use http or https scheme")
	ErrMalformed = errors.New("URL must have a valid host and no whitespace")
)

// urlPattern accepts http(s) URLs whose host is a domain name, localhost or a
// dotted-quad IPv4 address, with an optional port and path or query.
var urlPattern = regexp.MustCompile(`(?i)^https?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// URLValidator validates URL inputs
type URLValidator struct {
	maxLength int
}

// NewURLValidator creates a validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		maxLength: DefaultMaxLength,
	}
}

// WithMaxLength sets maximum URL length
func (v *URLValidator) WithMaxLength(length int) *URLValidator {
	v.maxLength = length
	return v
}

// ValidateURL checks rawURL against the URL shape policy.
// The URL is never rewritten; what is validated is what gets stored.
func (v *URLValidator) ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return ErrEmpty
	}

	if len(rawURL) > v.maxLength {
		return ErrTooLong
	}

	// RE2's \S only covers ASCII whitespace
	if urlPattern.MatchString(rawURL) && !strings.ContainsFunc(rawURL, unicode.IsSpace) {
		return nil
	}

	// Pick the more helpful reason
	if parsed, err := url.Parse(rawURL); err == nil {
		scheme := strings.ToLower(parsed.Scheme)
		if scheme != "http" && scheme != "https" {
			return ErrScheme
		}
	}
	return ErrMalformed
}
