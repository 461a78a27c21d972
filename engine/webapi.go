package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/use-agent/scout/models"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// QuotaState tracks daily usage of the paid API. The counter resets when
// the calendar date (UTC) changes.
type QuotaState struct {
	mu        sync.Mutex
	used      int
	limit     int
	resetDate string // "2006-01-02" of the current counting day
	now       func() time.Time
}

func NewQuotaState(dailyLimit int) *QuotaState {
	return &QuotaState{limit: dailyLimit, now: time.Now}
}

// SetClock replaces the time source; used by tests.
func (q *QuotaState) SetClock(now func() time.Time) { q.now = now }

// Take consumes one unit of quota, or returns a QUOTA_EXCEEDED error when
// the day's budget is spent.
func (q *QuotaState) Take() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	today := q.now().UTC().Format("2006-01-02")
	if q.resetDate != today {
		q.resetDate = today
		q.used = 0
	}
	if q.used >= q.limit {
		return models.NewScrapeError(models.ErrCodeQuotaExceeded,
			fmt.Sprintf("daily API quota of %d exhausted", q.limit), nil)
	}
	q.used++
	return nil
}

// Remaining reports how much of today's budget is left.
func (q *QuotaState) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.resetDate != q.now().UTC().Format("2006-01-02") {
		return q.limit
	}
	return q.limit - q.used
}

// braveResponse mirrors the fields we read from the Brave Search API.
type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			MetaURL     struct {
				Hostname string `json:"hostname"`
				Path     string `json:"path"`
			} `json:"meta_url"`
		} `json:"results"`
	} `json:"web"`
}

// apiEngine is the final fallback: the official Brave Search API. It never
// gets blocked but burns paid quota, so the orchestrator only reaches it
// after both scrape engines fail.
type apiEngine struct {
	key    string
	quota  *QuotaState
	client *http.Client

	// endpoint is overridable for tests.
	endpoint string
}

// NewBraveAPI builds the API fallback engine.
func NewBraveAPI(key string, quota *QuotaState) Engine {
	return &apiEngine{
		key:      key,
		quota:    quota,
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: braveEndpoint,
	}
}

func (e *apiEngine) Name() string { return EngineAPI }

func (e *apiEngine) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if e.key == "" {
		return nil, models.NewScrapeError(models.ErrCodeQuotaExceeded, "no API key configured", nil)
	}
	if err := e.quota.Take(); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s?q=%s&count=%d", e.endpoint, url.QueryEscape(query), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "building API request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", e.key)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeTransient, "API request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, models.NewScrapeError(models.ErrCodeQuotaExceeded, "API rate limit hit", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, models.NewScrapeError(models.ErrCodeTransient,
			fmt.Sprintf("API returned %d: %s", resp.StatusCode, body), nil)
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeTransient, "decoding API response", err)
	}
	if len(parsed.Web.Results) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeEmptyContent, "API returned no results", nil)
	}

	results := make([]models.SearchResult, 0, limit)
	for i, r := range parsed.Web.Results {
		if i >= limit {
			break
		}
		results = append(results, models.SearchResult{
			Title:        r.Title,
			Link:         r.URL,
			Snippet:      r.Description,
			DisplayURL:   r.MetaURL.Hostname + r.MetaURL.Path,
			Position:     i + 1,
			SourceEngine: EngineAPI,
		})
	}
	slog.Debug("API search done", "query", query, "results", len(results), "quotaRemaining", e.quota.Remaining())
	return results, nil
}
