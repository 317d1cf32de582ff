package model

import "time"

// URL represents a shortened URL mapping
type URL struct {
	ID          int64     `json:"id"`           // assigned by the store
	OriginalURL string    `json:"original_url"` // long URL, stored exactly as submitted
	ShortCode   string    `json:"short_code"`   // unique, immutable
	Clicks      int64     `json:"clicks"`       // successful redirects
	CreatedAt   time.Time `json:"created_at"`
}

// ShortenRequest is the API request body
type ShortenRequest struct {
	URL string `json:"url"`
}

// ShortenResponse is the API response
type ShortenResponse struct {
	ShortURL  string `json:"short_url"`
	ShortCode string `json:"short_code"`
}

// StatsResponse is the public view of a mapping
type StatsResponse struct {
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
	Clicks      int64  `json:"clicks"`
	CreatedAt   string `json:"created_at"` // RFC 3339, UTC
}

// NewStatsResponse builds the stats view of u
func NewStatsResponse(u *URL) StatsResponse {
	return StatsResponse{
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		Clicks:      u.Clicks,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ClickEvent is one redirect, as reported to the analytics sink
type ClickEvent struct {
	ShortCode string    `json:"short_code"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
}
