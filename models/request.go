package models

import "time"

// SearchRequest is the bound query for GET /search.
type SearchRequest struct {
	// Query is the search phrase. Required.
	Query string `form:"q" binding:"required"`

	// Limit caps the number of returned results. Default: 10. Max: 50.
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`

	// RequestedAt is stamped by the handler when the request is bound.
	RequestedAt time.Time `form:"-"`
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults() {
	if r.Limit == 0 {
		r.Limit = 10
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = time.Now()
	}
}

// ExtractRequest is the bound query for GET /extract.
type ExtractRequest struct {
	// URL is the target page. Required.
	URL string `form:"url" binding:"required,url"`

	// FullPage selects whole-document extraction instead of main content.
	FullPage bool `form:"full"`

	// IncludeImages keeps images in the output with absolutized URLs.
	// Default: true.
	IncludeImages *bool `form:"images"`

	RequestedAt time.Time `form:"-"`
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults() {
	if r.IncludeImages == nil {
		t := true
		r.IncludeImages = &t
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = time.Now()
	}
}

// Images reports whether images should be kept in the extracted content.
func (r *ExtractRequest) Images() bool {
	return r.IncludeImages == nil || *r.IncludeImages
}

// LinkedInScrapeRequest is the payload for POST /linkedin/scrape.
// Either Manual must be true (an already-authenticated browser profile is
// assumed) or both Email and Password must be supplied.
type LinkedInScrapeRequest struct {
	URL      string `json:"url" binding:"required,url"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Manual   bool   `json:"manual"`
}

// Valid reports whether the request carries a usable authentication mode.
func (r *LinkedInScrapeRequest) Valid() bool {
	return r.Manual || (r.Email != "" && r.Password != "")
}
