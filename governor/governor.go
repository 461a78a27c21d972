// Package governor decides whether and when the next outbound scrape
// attempt may proceed. It enforces a sliding per-minute cap, shapes
// inter-request delays around human activity patterns, and adapts the base
// delay to the recent success/failure history.
package governor

import (
	"math/rand"
	"sync"
	"time"

	"github.com/use-agent/scout/config"
	"github.com/use-agent/scout/models"
)

const (
	// outcomeWindow bounds the success/failure history ring.
	outcomeWindow = 50

	// adaptSample is how many recent outcomes feed the delay adaptation.
	adaptSample = 10
)

// Governor is safe for concurrent use; all state sits behind one mutex.
type Governor struct {
	mu sync.Mutex

	cfg config.GovernorConfig

	// attempts holds the timestamps of dispatched attempts inside the
	// sliding 60s window. Pruned on every Reserve.
	attempts []time.Time

	baseDelay time.Duration

	// outcomes is a ring buffer of the most recent results.
	outcomes [outcomeWindow]bool
	next     int
	total    int

	now func() time.Time
	rng *rand.Rand
}

// Option customises a Governor, mainly for deterministic tests.
type Option func(*Governor)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(g *Governor) { g.now = now }
}

// WithRand replaces the jitter source.
func WithRand(rng *rand.Rand) Option {
	return func(g *Governor) { g.rng = rng }
}

// New creates a Governor with the base delay at the configured minimum.
func New(cfg config.GovernorConfig, opts ...Option) *Governor {
	g := &Governor{
		cfg:       cfg,
		baseDelay: cfg.MinDelay,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanAttempt reports whether a new attempt fits inside the sliding window.
func (g *Governor) CanAttempt() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.windowCountLocked(g.now()) < g.cfg.MaxRequestsPerMinute
}

// Reserve claims a slot in the sliding window, stamping the attempt time.
// When the window is full it returns a typed RateLimitExceeded error and
// records nothing; the caller decides whether to wait or fail fast.
func (g *Governor) Reserve() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.windowCountLocked(now) >= g.cfg.MaxRequestsPerMinute {
		return models.NewScrapeError(
			models.ErrCodeRateLimited,
			"per-minute request cap reached",
			nil,
		)
	}
	g.attempts = append(g.attempts, now)
	return nil
}

// windowCountLocked prunes expired timestamps and returns the count of
// attempts inside the last 60 seconds. Caller must hold g.mu.
func (g *Governor) windowCountLocked(now time.Time) int {
	cutoff := now.Add(-time.Minute)
	keep := g.attempts[:0]
	for _, t := range g.attempts {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	g.attempts = keep
	return len(g.attempts)
}

// NextDelay computes the pause before the next attempt. The base delay is
// scaled by circadian, weekend, lunch and off-hours multipliers, jittered
// by ±30%, optionally extended by a simulated micro-pause, and clamped to
// [MinDelay, MaxDelay].
func (g *Governor) NextDelay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := g.baseDelay
	if g.cfg.HumanPatterns {
		d = g.shapeLocked(d, g.now())
	}
	return g.clamp(d)
}

// shapeLocked applies the human-pattern multipliers. Caller holds g.mu.
func (g *Governor) shapeLocked(d time.Duration, now time.Time) time.Duration {
	f := float64(d)

	f *= circadianFactor(now.Hour())

	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		f *= 1.43
	default:
		if now.Hour() >= 12 && now.Hour() < 13 {
			f *= 2.0 // lunch break
		} else if now.Hour() < 8 || now.Hour() >= 18 {
			f *= 1.5 // off hours on a weekday
		}
	}

	// ±30% multiplicative jitter.
	f *= 0.7 + g.rng.Float64()*0.6

	return time.Duration(f) + g.microPauseLocked()
}

// circadianFactor maps the hour of day, bucketed into 3-hour blocks, to a
// delay multiplier. Night traffic is slower to generate, so delays shrink;
// daytime stays near 1.0.
func circadianFactor(hour int) float64 {
	switch hour / 3 {
	case 0: // 00-03
		return 0.2
	case 1: // 03-06
		return 0.3
	case 2: // 06-09
		return 0.7
	case 3, 4: // 09-15
		return 1.0
	case 5: // 15-18
		return 0.95
	case 6: // 18-21
		return 0.8
	default: // 21-24
		return 0.5
	}
}

// microPauseLocked occasionally adds a longer human-shaped pause:
// 30% "thinking" 2-7s, 10% "distraction" 10-25s, 5% "break" 60-90s.
// The rolls are independent; at most one pause applies, longest first.
func (g *Governor) microPauseLocked() time.Duration {
	if !g.cfg.HumanPatterns {
		return 0
	}
	if g.rng.Float64() < 0.05 {
		return g.randBetween(60*time.Second, 90*time.Second)
	}
	if g.rng.Float64() < 0.10 {
		return g.randBetween(10*time.Second, 25*time.Second)
	}
	if g.rng.Float64() < 0.30 {
		return g.randBetween(2*time.Second, 7*time.Second)
	}
	return 0
}

func (g *Governor) randBetween(lo, hi time.Duration) time.Duration {
	return lo + time.Duration(g.rng.Int63n(int64(hi-lo)))
}

func (g *Governor) clamp(d time.Duration) time.Duration {
	if d < g.cfg.MinDelay {
		return g.cfg.MinDelay
	}
	if d > g.cfg.MaxDelay {
		return g.cfg.MaxDelay
	}
	return d
}

// RecordOutcome appends a result to the history ring and adapts the base
// delay: a success rate under 70% over the last 10 outcomes multiplies the
// base delay by 1.5 (capped at MaxDelay); over 90% multiplies it by 0.8
// (floored at MinDelay).
func (g *Governor) RecordOutcome(success bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.outcomes[g.next] = success
	g.next = (g.next + 1) % outcomeWindow
	if g.total < outcomeWindow {
		g.total++
	}

	sample := adaptSample
	if g.total < sample {
		sample = g.total
	}
	if sample == 0 {
		return
	}

	successes := 0
	for i := 1; i <= sample; i++ {
		idx := (g.next - i + outcomeWindow) % outcomeWindow
		if g.outcomes[idx] {
			successes++
		}
	}
	rate := float64(successes) / float64(sample)

	switch {
	case rate < 0.7:
		g.baseDelay = g.clamp(time.Duration(float64(g.baseDelay) * 1.5))
	case rate > 0.9 && g.baseDelay > g.cfg.MinDelay:
		g.baseDelay = g.clamp(time.Duration(float64(g.baseDelay) * 0.8))
	}
}

// BaseDelay returns the current adapted base delay.
func (g *Governor) BaseDelay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.baseDelay
}
