// Package engine coordinates the search back-ends: two browser-rendered
// result pages and an official web API, tried in a fallback chain until
// one yields results.
package engine

import (
	"context"
	"strings"

	"github.com/use-agent/scout/models"
)

// Engine names. The orchestrator's chain order is primary, secondary, api.
const (
	EngineGoogle = "google"
	EngineBing   = "bing"
	EngineAPI    = "brave-api"
)

// Engine is one search back-end.
type Engine interface {
	// Name identifies the engine in logs, attempt records, and results.
	Name() string

	// Search runs one query and returns up to limit results, each
	// tagged with this engine's name.
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// Outcome classifies one engine attempt for the fallback decision.
type Outcome int

const (
	// OutcomeSuccess: at least one result was returned.
	OutcomeSuccess Outcome = iota
	// OutcomeBlocked: the engine detected automation; hammering it
	// again would deepen the block, so the chain advances.
	OutcomeBlocked
	// OutcomeTransient: timeout, network error, or similar; the engine
	// may work next time but the chain still advances for this request.
	OutcomeTransient
	// OutcomeEmpty: the engine answered normally with zero results.
	OutcomeEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeTransient:
		return "transient"
	case OutcomeEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// classifyOutcome maps an attempt's error to an Outcome.
func classifyOutcome(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	switch models.CodeOf(err) {
	case models.ErrCodeBlocked, models.ErrCodeQuotaExceeded:
		return OutcomeBlocked
	case models.ErrCodeEmptyContent:
		return OutcomeEmpty
	default:
		return OutcomeTransient
	}
}

// blockPagePhrases appear in interstitial challenge pages.
var blockPagePhrases = []string{
	"unusual traffic",
	"verify you are human",
	"are you a robot",
	"detected unusual activity",
	"enable javascript and cookies",
}

// blockURLFragments appear in challenge-redirect URLs.
var blockURLFragments = []string{
	"/sorry/",
	"captcha",
	"challenge",
	"/verify",
}

// detectBlock inspects a rendered result page for automation challenges.
// Returns a typed NAVIGATION_BLOCKED error when one is found, nil otherwise.
func detectBlock(finalURL, title, html string) error {
	lowerURL := strings.ToLower(finalURL)
	for _, frag := range blockURLFragments {
		if strings.Contains(lowerURL, frag) {
			return models.NewScrapeError(models.ErrCodeBlocked,
				"redirected to challenge page: "+finalURL, nil)
		}
	}

	// Phrase scan is bounded to the page head; challenge pages are small
	// and real result pages bury these words far down, if at all.
	sample := strings.ToLower(title) + " " + strings.ToLower(truncate(html, 4096))
	for _, phrase := range blockPagePhrases {
		if strings.Contains(sample, phrase) {
			return models.NewScrapeError(models.ErrCodeBlocked,
				"challenge phrase on page: "+phrase, nil)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
