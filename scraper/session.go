package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/scout/identity"
	"github.com/use-agent/scout/models"
	"github.com/use-agent/scout/proxy"
)

// NavigateRequest describes one browser navigation.
type NavigateRequest struct {
	URL      string
	Identity identity.Identity

	// Proxy routes the session through an egress endpoint. A proxied
	// session gets its own short-lived browser because the proxy is a
	// launch-time property of Chromium.
	Proxy *proxy.Endpoint

	// Timeout bounds the whole navigation (launch excluded).
	Timeout time.Duration

	// WaitSelector, when set, is waited for after load; its absence is a
	// structural-drift signal surfaced as SELECTOR_NOT_FOUND.
	WaitSelector string

	// Actions run after the page settles (login flows, lazy loading).
	Actions []Action

	// DebugTag names the screenshot file when debug screenshots are on.
	DebugTag string
}

// PageSnapshot is the rendered result of a navigation.
type PageSnapshot struct {
	HTML       string
	Title      string
	FinalURL   string
	StatusCode int
}

// Navigate renders the requested page under the given identity and returns
// a snapshot of the final DOM.
//
// Session lifecycle:
//
//  1. Timeout guard        – hard deadline on the entire operation
//  2. Acquire page         – pooled tab, or a dedicated proxied browser
//  3. Stealth + identity   – must be installed before navigation
//  4. Navigate + settle    – DOM-stable wait, optional selector wait
//  5. Actions              – optional scripted interaction
//  6. Snapshot             – HTML, title, final URL, status code
func (s *Scraper) Navigate(ctx context.Context, req *NavigateRequest) (*PageSnapshot, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.browserCfg.NavigationTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if req.Proxy != nil {
		return s.navigateProxied(ctx, req)
	}

	s.activePages.Add(1)
	defer s.activePages.Add(-1)

	page, acquireErr := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			acquireErr,
		)
	}

	// Reset to about:blank before returning the tab so the next borrower
	// never sees a stale DOM, then put it back even if this request's
	// context has already expired.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.pagePool.Put(page)
	}()

	return s.renderPage(ctx, page, req, false)
}

// navigateProxied launches a dedicated browser routed through the proxy,
// renders the page, and tears the browser down again. Proxy failures are
// wrapped with PROXY_FAILURE so the caller can quarantine the endpoint and
// retry without one.
func (s *Scraper) navigateProxied(ctx context.Context, req *NavigateRequest) (*PageSnapshot, error) {
	proxyURL, err := req.Proxy.URL()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeProxyFailure, "invalid proxy address", err)
	}

	l := newLauncher(s.browserCfg, proxyURL.Host)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeProxyFailure, "failed to launch proxied browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewScrapeError(models.ErrCodeProxyFailure, "failed to connect to proxied browser", err)
	}
	defer func() {
		_ = browser.Close()
		l.Kill()
	}()

	// Chromium prompts for proxy credentials out-of-band.
	if user := proxyURL.User; user != nil {
		pass, _ := user.Password()
		waitAuth := browser.HandleAuth(user.Username(), pass)
		go func() { _ = waitAuth() }()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeProxyFailure, "failed to open proxied page", err)
	}
	defer func() { _ = page.Close() }()

	snapshot, err := s.renderPage(ctx, page, req, true)
	if err != nil {
		// Tag the failure so the proxy selector's caller can report it.
		return nil, models.NewScrapeError(models.ErrCodeProxyFailure, "proxied navigation failed", err)
	}
	return snapshot, nil
}

// renderPage runs the shared navigation pipeline on an acquired page.
func (s *Scraper) renderPage(ctx context.Context, page *rod.Page, req *NavigateRequest, proxied bool) (*PageSnapshot, error) {
	// Stealth and identity overrides only take effect for navigations
	// that happen after they are installed.
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	if err := applyIdentity(page, req.Identity); err != nil {
		slog.Warn("identity override failed", "identity", req.Identity.String(), "error", err)
	}

	router := setupHijack(page, s.browserCfg)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, categorizeError(navErr, "navigation to target URL failed")
	}

	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	if req.WaitSelector != "" {
		waitPage := p.Timeout(s.browserCfg.SelectorTimeout)
		if selErr := waitPage.WaitElementsMoreThan(req.WaitSelector, 0); selErr != nil {
			return nil, models.NewScrapeError(
				models.ErrCodeSelector,
				fmt.Sprintf("selector %q never appeared", req.WaitSelector),
				selErr,
			)
		}
	}

	if len(req.Actions) > 0 {
		if err := executeActions(ctx, page, req.Actions); err != nil {
			return nil, err
		}
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}

	snapshot := &PageSnapshot{
		HTML:     rawHTML,
		Title:    evalStringOrEmpty(p, `() => document.title`),
		FinalURL: evalStringOrEmpty(p, `() => window.location.href`),
	}
	if snapshot.FinalURL == "" {
		snapshot.FinalURL = req.URL
	}

	// Status via the navigation timing entry; no CDP event listeners needed.
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		snapshot.StatusCode = res.Value.Int()
	}

	s.maybeScreenshot(p, req.DebugTag)

	return snapshot, nil
}

// applyIdentity installs the fingerprint on the page: UA string, platform,
// language, viewport and the derived extra headers.
func applyIdentity(page *rod.Page, id identity.Identity) error {
	if id.UserAgent == "" {
		return nil
	}

	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      id.UserAgent,
		AcceptLanguage: id.AcceptLanguage,
		Platform:       id.Platform,
	}).Call(page); err != nil {
		return err
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             id.Viewport.Width,
		Height:            id.Viewport.Height,
		DeviceScaleFactor: 1,
	}).Call(page); err != nil {
		return err
	}

	extra := make(map[string]string, len(id.Headers))
	for k, v := range id.Headers {
		if k == "User-Agent" {
			continue // already covered by the UA override
		}
		extra[k] = v
	}
	if len(extra) > 0 {
		return proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(extra)}.Call(page)
	}
	return nil
}

// maybeScreenshot writes a diagnostic PNG when the toggle is on.
func (s *Scraper) maybeScreenshot(p *rod.Page, tag string) {
	if !s.debugCfg.Screenshots || tag == "" {
		return
	}
	data, err := p.Screenshot(false, nil)
	if err != nil {
		slog.Debug("debug screenshot failed", "tag", tag, "error", err)
		return
	}
	if err := os.MkdirAll(s.debugCfg.Dir, 0o755); err != nil {
		return
	}
	name := fmt.Sprintf("%s-%d.png", tag, time.Now().UnixMilli())
	if err := os.WriteFile(filepath.Join(s.debugCfg.Dir, name), data, 0o644); err != nil {
		slog.Debug("debug screenshot write failed", "tag", tag, "error", err)
	}
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors so callers can
// classify the outcome.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	case isProxyNetworkError(err):
		return models.NewScrapeError(models.ErrCodeProxyFailure, msg, err)
	default:
		return models.NewScrapeError(models.ErrCodeTransient, msg, err)
	}
}

// isProxyNetworkError spots Chromium net errors that point at a dead proxy.
func isProxyNetworkError(err error) bool {
	msg := err.Error()
	for _, needle := range []string{
		"ERR_PROXY_CONNECTION_FAILED",
		"ERR_TUNNEL_CONNECTION_FAILED",
		"ERR_NO_SUPPORTED_PROXIES",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
