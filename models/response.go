package models

import "time"

// SearchResult is one structured hit from a results page or the web API.
type SearchResult struct {
	Title      string `json:"title"`
	Link       string `json:"link"`
	Snippet    string `json:"snippet,omitempty"`
	DisplayURL string `json:"display_url,omitempty"`

	// Position is the 1-based extraction order, contiguous within a response.
	Position int `json:"position"`

	// SourceEngine names the engine that produced this hit
	// ("google", "bing", "brave-api").
	SourceEngine string `json:"source_engine"`
}

// SearchResponse is the response for GET /search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
	Engine  string         `json:"engine,omitempty"`

	// CacheStatus is "hit" or "miss" when caching is enabled.
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only on failure responses.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ExtractionMode names the fragment-selection strategy used.
type ExtractionMode string

const (
	ModeMainContent ExtractionMode = "main-content"
	ModeFullPage    ExtractionMode = "full-page"
)

// ExtractedContent is the normalized document produced by the content
// pipeline. Exactly one of the three shapes is populated: a Markdown body,
// an AuthRequired advisory, or an IsEmpty advisory.
type ExtractedContent struct {
	Title     string         `json:"title"`
	Markdown  string         `json:"markdown,omitempty"`
	SourceURL string         `json:"source_url"`
	Mode      ExtractionMode `json:"extraction_mode"`
	Platform  string         `json:"platform"`

	// AuthRequired is set when the page sits behind a login wall.
	AuthRequired bool `json:"auth_required,omitempty"`

	// IsEmpty is set when the page produced no meaningful content.
	IsEmpty bool `json:"is_empty,omitempty"`

	// Diagnostics carries observability fields for advisory responses.
	Diagnostics *ContentDiagnostics `json:"diagnostics,omitempty"`
}

// Advisory reports whether the content is an advisory rather than a body.
func (c *ExtractedContent) Advisory() bool {
	return c.AuthRequired || c.IsEmpty
}

// ContentDiagnostics explains why an advisory was returned.
type ContentDiagnostics struct {
	PageTitle       string `json:"page_title,omitempty"`
	ContentLength   int    `json:"content_length"`
	MetaDescription string `json:"meta_description,omitempty"`
	MatchedPhrase   string `json:"matched_phrase,omitempty"`
}

// ExtractResponse is the response for GET /extract.
type ExtractResponse struct {
	URL         string            `json:"url"`
	Content     *ExtractedContent `json:"content,omitempty"`
	ExtractedAt time.Time         `json:"extracted_at"`

	// Suggestions accompanies 422 advisory responses.
	Suggestions map[string]string `json:"suggestions,omitempty"`
	Message     string            `json:"message,omitempty"`

	CacheStatus string       `json:"cache_status,omitempty"`
	Error       *ErrorDetail `json:"error,omitempty"`
}

// LinkedInScrapeResponse is the response for POST /linkedin/scrape.
type LinkedInScrapeResponse struct {
	URL     string            `json:"url"`
	Profile *ExtractedContent `json:"profile,omitempty"`
	Error   *ErrorDetail      `json:"error,omitempty"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
