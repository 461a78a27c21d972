package engine

import (
	"sync"
	"time"
)

// Attempt is one recorded engine try.
type Attempt struct {
	Session string
	Engine  string
	Outcome Outcome
	At      time.Time
}

// attemptLogSize bounds the in-memory history.
const attemptLogSize = 256

// AttemptLog is a fixed-size ring of recent engine attempts. The
// orchestrator consults it to reorder the chain when the primary engine
// keeps failing.
type AttemptLog struct {
	mu      sync.Mutex
	entries [attemptLogSize]Attempt
	next    int
	filled  bool
	now     func() time.Time
}

func NewAttemptLog() *AttemptLog {
	return &AttemptLog{now: time.Now}
}

// SetClock replaces the time source; used by tests.
func (l *AttemptLog) SetClock(now func() time.Time) { l.now = now }

// Record appends one attempt.
func (l *AttemptLog) Record(session, engine string, outcome Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = Attempt{Session: session, Engine: engine, Outcome: outcome, At: l.now()}
	l.next++
	if l.next == attemptLogSize {
		l.next = 0
		l.filled = true
	}
}

// RecentFailures counts non-success attempts for the engine inside the
// lookback window.
func (l *AttemptLog) RecentFailures(engine string, window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-window)
	count := 0
	n := l.next
	if l.filled {
		n = attemptLogSize
	}
	for i := 0; i < n; i++ {
		e := l.entries[i]
		if e.Engine == engine && e.Outcome != OutcomeSuccess && e.At.After(cutoff) {
			count++
		}
	}
	return count
}
