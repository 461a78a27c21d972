package linkedin

import (
	"context"
	"strings"
	"testing"

	"github.com/use-agent/scout/config"
	"github.com/use-agent/scout/content"
	"github.com/use-agent/scout/identity"
	"github.com/use-agent/scout/models"
	"github.com/use-agent/scout/scraper"
)

// fakeNav serves per-URL snapshots and records the navigation order.
type fakeNav struct {
	pages map[string]*scraper.PageSnapshot
	urls  []string
}

func (f *fakeNav) Navigate(_ context.Context, req *scraper.NavigateRequest) (*scraper.PageSnapshot, error) {
	f.urls = append(f.urls, req.URL)
	if snap, ok := f.pages[req.URL]; ok {
		return snap, nil
	}
	return &scraper.PageSnapshot{HTML: "<html><body></body></html>", FinalURL: req.URL}, nil
}

func profilePage() *scraper.PageSnapshot {
	return &scraper.PageSnapshot{
		HTML: `<html><head><title>Alice Example</title></head><body><main><section>` +
			`<h1>Alice Example</h1><p>` + strings.Repeat("Staff engineer working on distributed storage. ", 10) +
			`</p></section></main></body></html>`,
		Title:    "Alice Example",
		FinalURL: "https://www.linkedin.com/in/alice/",
	}
}

func newTestScraper(nav *fakeNav) *Scraper {
	ids := identity.NewRotator()
	ex := content.NewExtractor(config.ExtractConfig{MinContentLength: 50, AuthTextThreshold: 150}, nav, nil, ids, nil, nil)
	return NewScraper(nav, ex, ids)
}

func TestScrapeRequiresAuthMode(t *testing.T) {
	s := newTestScraper(&fakeNav{})
	_, err := s.Scrape(context.Background(), &models.LinkedInScrapeRequest{URL: "https://www.linkedin.com/in/alice/"})
	if models.CodeOf(err) != models.ErrCodeInvalidInput {
		t.Errorf("error code = %q, want %q", models.CodeOf(err), models.ErrCodeInvalidInput)
	}
}

func TestScrapeLogsInThenFetches(t *testing.T) {
	nav := &fakeNav{pages: map[string]*scraper.PageSnapshot{
		loginURL: {HTML: "<html><body>feed</body></html>", FinalURL: "https://www.linkedin.com/feed/"},
		"https://www.linkedin.com/in/alice/": profilePage(),
	}}
	s := newTestScraper(nav)

	resp, err := s.Scrape(context.Background(), &models.LinkedInScrapeRequest{
		URL: "https://www.linkedin.com/in/alice/", Email: "a@example.com", Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(nav.urls) != 2 || nav.urls[0] != loginURL {
		t.Fatalf("navigation order = %v, want login first", nav.urls)
	}
	if resp.Profile == nil || resp.Profile.AuthRequired {
		t.Fatalf("Profile = %+v, want extracted content", resp.Profile)
	}
	if !strings.Contains(resp.Profile.Markdown, "Staff engineer") {
		t.Errorf("profile markdown missing body:\n%s", resp.Profile.Markdown)
	}

	// Second scrape inside the session TTL skips the login navigation.
	if _, err := s.Scrape(context.Background(), &models.LinkedInScrapeRequest{
		URL: "https://www.linkedin.com/in/alice/", Email: "a@example.com", Password: "hunter2",
	}); err != nil {
		t.Fatalf("second Scrape: %v", err)
	}
	if len(nav.urls) != 3 {
		t.Errorf("navigation count = %d, want 3 (session reused)", len(nav.urls))
	}
}

func TestScrapeRejectedLogin(t *testing.T) {
	nav := &fakeNav{pages: map[string]*scraper.PageSnapshot{
		loginURL: {HTML: "<html><body>wrong password</body></html>", FinalURL: "https://www.linkedin.com/login?error=1"},
	}}
	s := newTestScraper(nav)

	_, err := s.Scrape(context.Background(), &models.LinkedInScrapeRequest{
		URL: "https://www.linkedin.com/in/alice/", Email: "a@example.com", Password: "wrong",
	})
	if models.CodeOf(err) != models.ErrCodeAuthRequired {
		t.Errorf("error code = %q, want %q", models.CodeOf(err), models.ErrCodeAuthRequired)
	}
	if len(nav.urls) != 1 {
		t.Errorf("target fetched despite failed login: %v", nav.urls)
	}
}

func TestScrapeManualModeStillWalled(t *testing.T) {
	nav := &fakeNav{pages: map[string]*scraper.PageSnapshot{
		"https://www.linkedin.com/in/alice/": {
			HTML:     "<html><head><title>LinkedIn</title></head><body><p>Sign in to view this profile</p></body></html>",
			Title:    "LinkedIn",
			FinalURL: "https://www.linkedin.com/in/alice/",
		},
	}}
	s := newTestScraper(nav)

	resp, err := s.Scrape(context.Background(), &models.LinkedInScrapeRequest{
		URL: "https://www.linkedin.com/in/alice/", Manual: true,
	})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if resp.Profile == nil || !resp.Profile.AuthRequired {
		t.Errorf("walled page not reported as AuthRequired: %+v", resp.Profile)
	}
}
