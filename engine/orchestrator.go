package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/scout/config"
	"github.com/use-agent/scout/governor"
	"github.com/use-agent/scout/models"
)

// rateLimitWait is the fixed wait applied when the rate window is full and
// waiting is enabled. Deliberately coarse: the window is a minute wide, so
// one full window-length pause always frees a slot.
const rateLimitWait = 60 * time.Second

// Orchestrator walks the engine chain for each search: primary scrape,
// secondary scrape, then the paid API. Every attempt passes through the
// rate governor first, and recent primary failures reorder the chain to
// start at the secondary engine.
type Orchestrator struct {
	cfg      config.EnginesConfig
	gov      *governor.Governor
	log      *AttemptLog
	chain    []Engine
	sleep    func(ctx context.Context, d time.Duration) error
	waitMode bool
}

// NewOrchestrator builds the chain from the enabled engines, in fallback
// order. Engines may be nil (disabled); they are skipped.
func NewOrchestrator(cfg config.EnginesConfig, govCfg config.GovernorConfig, gov *governor.Governor, primary, secondary, api Engine) *Orchestrator {
	var chain []Engine
	if cfg.PrimaryEnabled && primary != nil {
		chain = append(chain, primary)
	}
	if cfg.SecondaryEnabled && secondary != nil {
		chain = append(chain, secondary)
	}
	if api != nil {
		chain = append(chain, api)
	}
	return &Orchestrator{
		cfg:      cfg,
		gov:      gov,
		log:      NewAttemptLog(),
		chain:    chain,
		sleep:    sleepCtx,
		waitMode: govCfg.WaitOnLimit,
	}
}

// AttemptLog exposes the shared attempt history, for health reporting.
func (o *Orchestrator) AttemptLog() *AttemptLog { return o.log }

// Search runs the fallback chain for one query.
func (o *Orchestrator) Search(ctx context.Context, query string, limit int) (*models.SearchResponse, error) {
	session := uuid.NewString()[:8]
	logger := slog.With("session", session, "query", query)

	if err := o.reserve(ctx, logger); err != nil {
		return nil, err
	}

	if delay := o.gov.NextDelay(); delay > 0 {
		logger.Debug("pacing before search", "delay", delay)
		if err := o.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	chain := o.orderedChain(logger)
	if len(chain) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeAllEnginesDown, "no engines enabled", nil)
	}

	var failures []string
	for _, eng := range chain {
		results, err := eng.Search(ctx, query, limit)
		outcome := classifyOutcome(err)
		o.log.Record(session, eng.Name(), outcome)
		o.gov.RecordOutcome(outcome == OutcomeSuccess)

		if outcome == OutcomeSuccess {
			logger.Info("search served", "engine", eng.Name(), "results", len(results))
			return &models.SearchResponse{
				Query:   query,
				Results: results,
				Count:   len(results),
				Engine:  eng.Name(),
			}, nil
		}

		logger.Warn("engine attempt failed",
			"engine", eng.Name(), "outcome", outcome.String(), "error", err)
		failures = append(failures, fmt.Sprintf("%s: %s", eng.Name(), outcome))

		if ctx.Err() != nil {
			return nil, models.NewScrapeError(models.ErrCodeTimeout, "search cancelled", ctx.Err())
		}
	}

	return nil, models.NewScrapeError(models.ErrCodeAllEnginesDown,
		"all engines failed ("+strings.Join(failures, "; ")+")", nil)
}

// reserve claims a governor slot, optionally waiting one window length
// when the budget is spent.
func (o *Orchestrator) reserve(ctx context.Context, logger *slog.Logger) error {
	err := o.gov.Reserve()
	if err == nil {
		return nil
	}
	if !o.waitMode {
		return err
	}

	logger.Info("rate window full, waiting", "wait", rateLimitWait)
	if serr := o.sleep(ctx, rateLimitWait); serr != nil {
		return serr
	}
	return o.gov.Reserve()
}

// orderedChain reorders the fallback chain when the primary engine has
// accumulated enough recent failures: the chain then starts at the
// secondary engine and the primary is skipped entirely for this request.
func (o *Orchestrator) orderedChain(logger *slog.Logger) []Engine {
	if len(o.chain) < 2 {
		return o.chain
	}
	primary := o.chain[0]
	fails := o.log.RecentFailures(primary.Name(), o.cfg.ReorderWindow)
	if fails < o.cfg.ReorderThreshold {
		return o.chain
	}
	logger.Info("primary engine cooling off",
		"engine", primary.Name(), "recentFailures", fails, "window", o.cfg.ReorderWindow)
	return o.chain[1:]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return models.NewScrapeError(models.ErrCodeTimeout, "wait interrupted", ctx.Err())
	case <-t.C:
		return nil
	}
}
