package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/scout/config"
	"github.com/use-agent/scout/governor"
	"github.com/use-agent/scout/models"
)

// stubEngine returns canned results or a canned error and counts calls.
type stubEngine struct {
	name    string
	results []models.SearchResult
	err     error
	calls   int
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Search(_ context.Context, _ string, _ int) ([]models.SearchResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func taggedResults(engine string, n int) []models.SearchResult {
	out := make([]models.SearchResult, n)
	for i := range out {
		out[i] = models.SearchResult{
			Title:        "result",
			Link:         "https://example.com",
			Position:     i + 1,
			SourceEngine: engine,
		}
	}
	return out
}

func testEnginesConfig() config.EnginesConfig {
	return config.EnginesConfig{
		PrimaryEnabled:   true,
		SecondaryEnabled: true,
		ReorderThreshold: 2,
		ReorderWindow:    5 * time.Minute,
	}
}

func testGovernor() *governor.Governor {
	return governor.New(config.GovernorConfig{
		MaxRequestsPerMinute: 100,
		MinDelay:             time.Millisecond,
		MaxDelay:             2 * time.Millisecond,
	})
}

func newTestOrchestrator(t *testing.T, cfg config.EnginesConfig, primary, secondary, api Engine) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(cfg, config.GovernorConfig{}, testGovernor(), primary, secondary, api)
	o.sleep = func(context.Context, time.Duration) error { return nil }
	return o
}

func TestSearchFallsBackToSecondary(t *testing.T) {
	primary := &stubEngine{name: EngineGoogle, err: models.NewScrapeError(models.ErrCodeBlocked, "challenge page", nil)}
	secondary := &stubEngine{name: EngineBing, results: taggedResults(EngineBing, 3)}
	api := &stubEngine{name: EngineAPI}

	o := newTestOrchestrator(t, testEnginesConfig(), primary, secondary, api)
	resp, err := o.Search(context.Background(), "golang generics", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Engine != EngineBing {
		t.Errorf("Engine = %q, want %q", resp.Engine, EngineBing)
	}
	if resp.Count != 3 {
		t.Errorf("Count = %d, want 3", resp.Count)
	}
	for i, r := range resp.Results {
		if r.Position != i+1 {
			t.Errorf("Results[%d].Position = %d, want %d", i, r.Position, i+1)
		}
		if r.SourceEngine != EngineBing {
			t.Errorf("Results[%d].SourceEngine = %q, want %q", i, r.SourceEngine, EngineBing)
		}
	}
	if api.calls != 0 {
		t.Errorf("API engine called %d times after secondary success, want 0", api.calls)
	}
}

func TestSearchAllEnginesFail(t *testing.T) {
	blocked := models.NewScrapeError(models.ErrCodeBlocked, "challenge page", nil)
	quota := models.NewScrapeError(models.ErrCodeQuotaExceeded, "quota spent", nil)

	primary := &stubEngine{name: EngineGoogle, err: blocked}
	secondary := &stubEngine{name: EngineBing, err: blocked}
	api := &stubEngine{name: EngineAPI, err: quota}

	o := newTestOrchestrator(t, testEnginesConfig(), primary, secondary, api)
	_, err := o.Search(context.Background(), "golang generics", 5)
	if err == nil {
		t.Fatal("expected error when every engine fails")
	}
	if code := models.CodeOf(err); code != models.ErrCodeAllEnginesDown {
		t.Errorf("error code = %q, want %q", code, models.ErrCodeAllEnginesDown)
	}
	if primary.calls != 1 || secondary.calls != 1 || api.calls != 1 {
		t.Errorf("each engine should be tried exactly once, got %d/%d/%d",
			primary.calls, secondary.calls, api.calls)
	}
}

func TestSearchReordersAfterRepeatedPrimaryFailures(t *testing.T) {
	primary := &stubEngine{name: EngineGoogle, err: models.NewScrapeError(models.ErrCodeBlocked, "challenge page", nil)}
	secondary := &stubEngine{name: EngineBing, results: taggedResults(EngineBing, 2)}

	o := newTestOrchestrator(t, testEnginesConfig(), primary, secondary, nil)

	// Two searches fail through the primary, reaching the threshold.
	for i := 0; i < 2; i++ {
		if _, err := o.Search(context.Background(), "q", 5); err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
	}
	if primary.calls != 2 {
		t.Fatalf("primary.calls = %d, want 2", primary.calls)
	}

	// Third search skips the primary entirely.
	resp, err := o.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("third search: %v", err)
	}
	if primary.calls != 2 {
		t.Errorf("primary attempted while cooling off (calls = %d)", primary.calls)
	}
	if resp.Engine != EngineBing {
		t.Errorf("Engine = %q, want %q", resp.Engine, EngineBing)
	}
}

func TestSearchRateLimitFailFast(t *testing.T) {
	gov := governor.New(config.GovernorConfig{
		MaxRequestsPerMinute: 1,
		MinDelay:             time.Millisecond,
		MaxDelay:             2 * time.Millisecond,
	})
	primary := &stubEngine{name: EngineGoogle, results: taggedResults(EngineGoogle, 1)}
	o := NewOrchestrator(testEnginesConfig(), config.GovernorConfig{}, gov, primary, nil, nil)
	o.sleep = func(context.Context, time.Duration) error { return nil }

	if _, err := o.Search(context.Background(), "q", 5); err != nil {
		t.Fatalf("first search: %v", err)
	}
	_, err := o.Search(context.Background(), "q", 5)
	if code := models.CodeOf(err); code != models.ErrCodeRateLimited {
		t.Errorf("second search error code = %q, want %q", code, models.ErrCodeRateLimited)
	}
	if primary.calls != 1 {
		t.Errorf("engine reached despite rate limit (calls = %d)", primary.calls)
	}
}

func TestSearchRateLimitWaitMode(t *testing.T) {
	base := time.Now()
	clock := base
	gov := governor.New(config.GovernorConfig{
		MaxRequestsPerMinute: 1,
		MinDelay:             time.Millisecond,
		MaxDelay:             2 * time.Millisecond,
	}, governor.WithClock(func() time.Time { return clock }))

	primary := &stubEngine{name: EngineGoogle, results: taggedResults(EngineGoogle, 1)}
	o := NewOrchestrator(testEnginesConfig(), config.GovernorConfig{WaitOnLimit: true}, gov, primary, nil, nil)

	var waited time.Duration
	o.sleep = func(_ context.Context, d time.Duration) error {
		waited += d
		clock = clock.Add(d) // advancing the clock frees the window slot
		return nil
	}

	if _, err := o.Search(context.Background(), "q", 5); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if _, err := o.Search(context.Background(), "q", 5); err != nil {
		t.Fatalf("second search should succeed after waiting: %v", err)
	}
	if waited < rateLimitWait {
		t.Errorf("waited %v, want at least %v", waited, rateLimitWait)
	}
}

func TestClassifyOutcome(t *testing.T) {
	cases := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeSuccess},
		{models.NewScrapeError(models.ErrCodeBlocked, "", nil), OutcomeBlocked},
		{models.NewScrapeError(models.ErrCodeQuotaExceeded, "", nil), OutcomeBlocked},
		{models.NewScrapeError(models.ErrCodeEmptyContent, "", nil), OutcomeEmpty},
		{models.NewScrapeError(models.ErrCodeTimeout, "", nil), OutcomeTransient},
		{errors.New("plain"), OutcomeTransient},
	}
	for _, tc := range cases {
		if got := classifyOutcome(tc.err); got != tc.want {
			t.Errorf("classifyOutcome(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestDetectBlock(t *testing.T) {
	if err := detectBlock("https://www.google.com/sorry/index?continue=x", "", ""); err == nil {
		t.Error("challenge URL not detected")
	} else if models.CodeOf(err) != models.ErrCodeBlocked {
		t.Errorf("code = %q", models.CodeOf(err))
	}

	if err := detectBlock("https://www.google.com/search?q=x", "Before you continue",
		"<html><body>Our systems have detected unusual traffic from your computer network</body></html>"); err == nil {
		t.Error("challenge phrase not detected")
	}

	if err := detectBlock("https://www.google.com/search?q=x", "x - Google Search",
		"<html><body><div id=search>results</div></body></html>"); err != nil {
		t.Errorf("clean page flagged: %v", err)
	}
}

func TestAttemptLogWindow(t *testing.T) {
	l := NewAttemptLog()
	now := time.Now()
	l.SetClock(func() time.Time { return now })

	l.Record("s1", EngineGoogle, OutcomeBlocked)
	l.Record("s1", EngineGoogle, OutcomeSuccess)
	now = now.Add(10 * time.Minute)
	l.Record("s2", EngineGoogle, OutcomeTransient)
	l.Record("s2", EngineBing, OutcomeBlocked)

	if got := l.RecentFailures(EngineGoogle, 5*time.Minute); got != 1 {
		t.Errorf("RecentFailures(google, 5m) = %d, want 1 (old entries aged out)", got)
	}
	if got := l.RecentFailures(EngineGoogle, time.Hour); got != 2 {
		t.Errorf("RecentFailures(google, 1h) = %d, want 2", got)
	}
	if got := l.RecentFailures(EngineBing, 5*time.Minute); got != 1 {
		t.Errorf("RecentFailures(bing, 5m) = %d, want 1", got)
	}
}

func TestQuotaStateDailyReset(t *testing.T) {
	q := NewQuotaState(2)
	now := time.Date(2026, 3, 9, 23, 50, 0, 0, time.UTC)
	q.SetClock(func() time.Time { return now })

	if err := q.Take(); err != nil {
		t.Fatalf("first take: %v", err)
	}
	if err := q.Take(); err != nil {
		t.Fatalf("second take: %v", err)
	}
	if err := q.Take(); err == nil {
		t.Fatal("third take should exhaust quota")
	} else if models.CodeOf(err) != models.ErrCodeQuotaExceeded {
		t.Errorf("code = %q, want %q", models.CodeOf(err), models.ErrCodeQuotaExceeded)
	}

	// Quota refills as the UTC date rolls over.
	now = now.Add(20 * time.Minute)
	if err := q.Take(); err != nil {
		t.Errorf("take after midnight: %v", err)
	}
	if rem := q.Remaining(); rem != 1 {
		t.Errorf("Remaining = %d, want 1", rem)
	}
}
