package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/scout/identity"
	"github.com/use-agent/scout/models"
	"github.com/use-agent/scout/proxy"
	"github.com/use-agent/scout/scraper"
	"github.com/use-agent/scout/serp"
)

// Navigator renders one page in the headless browser.
type Navigator interface {
	Navigate(ctx context.Context, req *scraper.NavigateRequest) (*scraper.PageSnapshot, error)
}

// scrapeEngine renders an engine's result page in the browser and parses
// it with the engine's selector strategies. Google and Bing are both
// instances of this with different URL shapes and strategies.
type scrapeEngine struct {
	name       string
	queryURL   func(query string) string
	strategies *serp.Strategies

	nav     Navigator
	ids     *identity.Rotator
	proxies *proxy.Selector
}

// NewGoogle builds the primary scrape engine.
func NewGoogle(nav Navigator, ids *identity.Rotator, proxies *proxy.Selector) Engine {
	return &scrapeEngine{
		name: EngineGoogle,
		queryURL: func(q string) string {
			return "https://www.google.com/search?q=" + url.QueryEscape(q) + "&num=20&hl=en"
		},
		strategies: serp.GoogleStrategies(),
		nav:        nav,
		ids:        ids,
		proxies:    proxies,
	}
}

// NewBing builds the secondary scrape engine.
func NewBing(nav Navigator, ids *identity.Rotator, proxies *proxy.Selector) Engine {
	return &scrapeEngine{
		name: EngineBing,
		queryURL: func(q string) string {
			return "https://www.bing.com/search?q=" + url.QueryEscape(q) + "&count=20"
		},
		strategies: serp.BingStrategies(),
		nav:        nav,
		ids:        ids,
		proxies:    proxies,
	}
}

func (e *scrapeEngine) Name() string { return e.name }

func (e *scrapeEngine) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	var ep *proxy.Endpoint
	if e.proxies != nil {
		ep = e.proxies.Select(proxy.ClassResidential)
	}

	req := &scraper.NavigateRequest{
		URL:      e.queryURL(query),
		Identity: e.ids.Next(),
		Proxy:    ep,
		DebugTag: "serp-" + e.name,
	}

	start := time.Now()
	snap, err := e.nav.Navigate(ctx, req)
	if err != nil && ep != nil && models.CodeOf(err) == models.ErrCodeProxyFailure {
		e.proxies.ReportFailure(ep, err)
		slog.Warn("proxied search failed, retrying direct", "engine", e.name, "error", err)
		req.Proxy = nil
		snap, err = e.nav.Navigate(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if snap.StatusCode == 429 {
		return nil, models.NewScrapeError(models.ErrCodeBlocked,
			fmt.Sprintf("%s returned 429", e.name), nil)
	}
	if blockErr := detectBlock(snap.FinalURL, snap.Title, snap.HTML); blockErr != nil {
		return nil, blockErr
	}

	results, err := serp.Parse(snap.HTML, e.strategies, limit)
	if err != nil {
		return nil, err
	}
	slog.Debug("result page parsed",
		"engine", e.name, "query", query,
		"results", len(results), "elapsed", time.Since(start))
	return results, nil
}
