package governor

import (
	"math/rand"
	"testing"
	"time"

	"github.com/use-agent/scout/config"
	"github.com/use-agent/scout/models"
)

func testConfig() config.GovernorConfig {
	return config.GovernorConfig{
		MaxRequestsPerMinute: 3,
		MinDelay:             2 * time.Second,
		MaxDelay:             90 * time.Second,
		HumanPatterns:        true,
	}
}

// fixedClock returns a clock pinned to t, advanced by calling the returned
// setter.
func fixedClock(t time.Time) (func() time.Time, func(time.Time)) {
	current := t
	return func() time.Time { return current }, func(nt time.Time) { current = nt }
}

func TestReserve_SlidingWindowCap(t *testing.T) {
	start := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	now, advance := fixedClock(start)
	g := New(testConfig(), WithClock(now))

	for i := 0; i < 3; i++ {
		if err := g.Reserve(); err != nil {
			t.Fatalf("attempt %d inside cap should succeed: %v", i+1, err)
		}
		advance(start.Add(time.Duration(i+1) * 5 * time.Second))
	}

	err := g.Reserve()
	if err == nil {
		t.Fatal("4th attempt inside 60s window should be rejected")
	}
	if models.CodeOf(err) != models.ErrCodeRateLimited {
		t.Errorf("expected %s, got %s", models.ErrCodeRateLimited, models.CodeOf(err))
	}

	// Once the window fully elapses the next attempt succeeds.
	advance(start.Add(61 * time.Second))
	if err := g.Reserve(); err != nil {
		t.Errorf("attempt after window elapsed should succeed: %v", err)
	}
}

func TestCanAttempt_TracksWindow(t *testing.T) {
	start := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	now, advance := fixedClock(start)
	g := New(testConfig(), WithClock(now))

	if !g.CanAttempt() {
		t.Fatal("empty window should allow attempts")
	}
	for i := 0; i < 3; i++ {
		if err := g.Reserve(); err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
	}
	if g.CanAttempt() {
		t.Error("full window should deny attempts")
	}
	advance(start.Add(2 * time.Minute))
	if !g.CanAttempt() {
		t.Error("expired window should allow attempts again")
	}
}

func TestCircadianFactor_NightBelowDay(t *testing.T) {
	night := circadianFactor(1)  // 00-03 bucket
	day := circadianFactor(10)   // 09-12 bucket
	if night >= day {
		t.Errorf("night factor %.2f should be below day factor %.2f", night, day)
	}
}

func TestNextDelay_NightShorterThanDay(t *testing.T) {
	// Two governors with identical seeds draw identical jitter, so the
	// only difference between them is the circadian multiplier.
	nightTime := time.Date(2025, 3, 5, 1, 0, 0, 0, time.UTC)  // Wednesday 01:00
	dayTime := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)   // Wednesday 10:00

	cfg := testConfig()
	cfg.MinDelay = time.Millisecond // keep the floor from masking the difference
	cfg.MaxDelay = time.Hour

	nightNow, _ := fixedClock(nightTime)
	dayNow, _ := fixedClock(dayTime)

	for seed := int64(0); seed < 20; seed++ {
		gNight := New(cfg, WithClock(nightNow), WithRand(rand.New(rand.NewSource(seed))))
		gDay := New(cfg, WithClock(dayNow), WithRand(rand.New(rand.NewSource(seed))))
		gNight.baseDelay = 10 * time.Second
		gDay.baseDelay = 10 * time.Second

		n := gNight.NextDelay()
		d := gDay.NextDelay()
		if n >= d {
			t.Errorf("seed %d: night delay %v should be below day delay %v", seed, n, d)
		}
	}
}

func TestNextDelay_PatternsDisabledReturnsBase(t *testing.T) {
	cfg := testConfig()
	cfg.HumanPatterns = false
	g := New(cfg)

	if got := g.NextDelay(); got != cfg.MinDelay {
		t.Errorf("with patterns disabled expected base delay %v, got %v", cfg.MinDelay, got)
	}
}

func TestNextDelay_Clamped(t *testing.T) {
	cfg := testConfig()
	g := New(cfg)

	for i := 0; i < 100; i++ {
		d := g.NextDelay()
		if d < cfg.MinDelay || d > cfg.MaxDelay {
			t.Fatalf("delay %v escaped clamp [%v, %v]", d, cfg.MinDelay, cfg.MaxDelay)
		}
	}
}

func TestRecordOutcome_BackoffOnFailures(t *testing.T) {
	cfg := testConfig()
	g := New(cfg)

	before := g.BaseDelay()
	// 6 successes then 4 failures: 60% success rate over the last 10.
	for i := 0; i < 6; i++ {
		g.RecordOutcome(true)
	}
	for i := 0; i < 4; i++ {
		g.RecordOutcome(false)
	}
	after := g.BaseDelay()
	if after <= before {
		t.Errorf("base delay should grow under failures: before=%v after=%v", before, after)
	}
}

func TestRecordOutcome_CappedAtMax(t *testing.T) {
	cfg := testConfig()
	g := New(cfg)

	for i := 0; i < 200; i++ {
		g.RecordOutcome(false)
	}
	if got := g.BaseDelay(); got != cfg.MaxDelay {
		t.Errorf("base delay should cap at %v, got %v", cfg.MaxDelay, got)
	}
}

func TestRecordOutcome_RecoveryOnSuccesses(t *testing.T) {
	cfg := testConfig()
	g := New(cfg)

	// Drive the delay up, then feed a clean success streak.
	for i := 0; i < 30; i++ {
		g.RecordOutcome(false)
	}
	raised := g.BaseDelay()

	for i := 0; i < 30; i++ {
		g.RecordOutcome(true)
	}
	recovered := g.BaseDelay()

	if recovered >= raised {
		t.Errorf("base delay should shrink on success streak: raised=%v recovered=%v", raised, recovered)
	}
	if recovered < cfg.MinDelay {
		t.Errorf("base delay fell under the floor: %v", recovered)
	}
}

func TestRecordOutcome_FlooredAtMin(t *testing.T) {
	cfg := testConfig()
	g := New(cfg)

	for i := 0; i < 100; i++ {
		g.RecordOutcome(true)
	}
	if got := g.BaseDelay(); got != cfg.MinDelay {
		t.Errorf("base delay should floor at %v, got %v", cfg.MinDelay, got)
	}
}
