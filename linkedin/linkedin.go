// Package linkedin is the credentialed scraping boundary: pages that sit
// behind the LinkedIn login wall are fetched inside an authenticated
// browser session the caller explicitly opted into.
package linkedin

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/scout/content"
	"github.com/use-agent/scout/identity"
	"github.com/use-agent/scout/models"
	"github.com/use-agent/scout/scraper"
)

const loginURL = "https://www.linkedin.com/login"

// sessionTTL is how long a completed login is reused before the next
// request authenticates again.
const sessionTTL = 20 * time.Minute

// Scraper drives authenticated LinkedIn sessions. Credentials are used for
// the login form submission and never persisted.
type Scraper struct {
	nav        content.Navigator
	extractor  *content.Extractor
	ids        *identity.Rotator
	classifier *content.Classifier

	mu          sync.Mutex
	loggedInAt  time.Time
	sessionUser string
}

func NewScraper(nav content.Navigator, extractor *content.Extractor, ids *identity.Rotator) *Scraper {
	return &Scraper{
		nav:        nav,
		extractor:  extractor,
		ids:        ids,
		classifier: content.NewClassifier(),
	}
}

// Scrape fetches one LinkedIn page. With credentials it logs in first
// (reusing a recent session for the same account); in manual mode it
// navigates directly and relies on an externally established session.
// A page that still renders as a login wall comes back as an AuthRequired
// advisory rather than an error.
func (s *Scraper) Scrape(ctx context.Context, req *models.LinkedInScrapeRequest) (*models.LinkedInScrapeResponse, error) {
	if !req.Valid() {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			"either manual mode or both email and password are required", nil)
	}

	id := s.ids.Next()

	if !req.Manual {
		if err := s.ensureSession(ctx, req.Email, req.Password, id); err != nil {
			return nil, err
		}
	}

	snap, err := s.nav.Navigate(ctx, &scraper.NavigateRequest{
		URL:      req.URL,
		Identity: id,
		DebugTag: "linkedin",
	})
	if err != nil {
		return nil, err
	}

	cls := s.classifier.Classify(req.URL)
	profile, err := s.extractor.NormalizeSnapshot(snap, req.URL, cls, models.ModeMainContent, true)
	if err != nil {
		return nil, err
	}
	if profile.AuthRequired {
		// Login looked successful but the target still walled; the
		// session cannot be trusted for the next request either.
		s.invalidateSession()
	}
	return &models.LinkedInScrapeResponse{URL: req.URL, Profile: profile}, nil
}

// ensureSession submits the login form unless a recent session for the
// same account is still live.
func (s *Scraper) ensureSession(ctx context.Context, email, password string, id identity.Identity) error {
	s.mu.Lock()
	fresh := s.sessionUser == email && time.Since(s.loggedInAt) < sessionTTL
	s.mu.Unlock()
	if fresh {
		return nil
	}

	slog.Info("starting login flow", "user", email)
	snap, err := s.nav.Navigate(ctx, &scraper.NavigateRequest{
		URL:      loginURL,
		Identity: id,
		Actions: []scraper.Action{
			{Type: "input", Selector: "#username", Value: email},
			{Type: "input", Selector: "#password", Value: password},
			{Type: "click", Selector: "button[type=submit]"},
			{Type: "wait", Milliseconds: 3000},
		},
		DebugTag: "linkedin-login",
	})
	if err != nil {
		return models.NewScrapeError(models.ErrCodeAuthRequired, "login navigation failed", err)
	}
	if loginFailed(snap) {
		return models.NewScrapeError(models.ErrCodeAuthRequired, "login rejected", nil)
	}

	s.mu.Lock()
	s.loggedInAt = time.Now()
	s.sessionUser = email
	s.mu.Unlock()
	return nil
}

func (s *Scraper) invalidateSession() {
	s.mu.Lock()
	s.loggedInAt = time.Time{}
	s.sessionUser = ""
	s.mu.Unlock()
}

// loginFailed checks whether the post-submit page is still the login or a
// checkpoint page.
func loginFailed(snap *scraper.PageSnapshot) bool {
	u := snap.FinalURL
	return strings.Contains(u, "/login") ||
		strings.Contains(u, "/checkpoint") ||
		strings.Contains(u, "/uas/")
}
