// Package content turns a rendered document page into a cleaned,
// Markdown-encoded content object, with platform-aware detection of
// authentication walls.
package content

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/scout/config"
	"github.com/use-agent/scout/identity"
	"github.com/use-agent/scout/models"
	"github.com/use-agent/scout/proxy"
	"github.com/use-agent/scout/scraper"
)

// Navigator renders a page in the headless browser.
type Navigator interface {
	Navigate(ctx context.Context, req *scraper.NavigateRequest) (*scraper.PageSnapshot, error)
}

// Fetcher is the plain-HTTP fast path.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, id identity.Identity) (*scraper.PageSnapshot, error)
}

// mainContentSelectors is the ordered list of semantic containers tried in
// main-content mode; the first match wins, the whole document is the
// fallback.
var mainContentSelectors = []string{
	"main",
	"article",
	"[role='main']",
	"#main-content",
	"#content",
	".post-content",
	".article-body",
	".entry-content",
	".content",
}

// boilerplateSelectors are stripped from the selected fragment in
// main-content mode.
var boilerplateSelectors = []string{
	"nav", "header", "footer", "aside",
	".sidebar", ".menu", ".breadcrumb",
	".comments", ".related", ".share", ".social",
	".ad", ".ads", ".advertisement", ".cookie-banner",
}

// Extractor runs the full normalization pipeline for one URL.
type Extractor struct {
	cfg        config.ExtractConfig
	nav        Navigator
	fetcher    Fetcher
	ids        *identity.Rotator
	proxies    *proxy.Selector
	classifier *Classifier
	md         *converter.Converter
}

// NewExtractor wires the pipeline. fetcher may be nil to disable the HTTP
// fast path regardless of configuration.
func NewExtractor(cfg config.ExtractConfig, nav Navigator, fetcher Fetcher, ids *identity.Rotator, proxies *proxy.Selector, classifier *Classifier) *Extractor {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Extractor{
		cfg:        cfg,
		nav:        nav,
		fetcher:    fetcher,
		ids:        ids,
		proxies:    proxies,
		classifier: classifier,
		md:         newMarkdownConverter(),
	}
}

// Extract normalizes the page at req.URL.
//
// Pipeline:
//
//  1. Platform classification — confidently auth-walled URLs short-circuit
//     to an advisory without navigating.
//  2. Fetch: HTTP fast path when enabled, browser otherwise; a proxied
//     browser failure reports the endpoint and retries once direct.
//  3. Login-wall heuristic on the rendered page.
//  4. Fragment selection (full-page or main-content) + boilerplate strip.
//  5. Image removal or absolutization.
//  6. Markdown conversion + cleanup.
//  7. Near-empty results on classified platforms become isEmpty advisories.
//
// Advisory conditions return a populated ExtractedContent and a nil error;
// only pipeline crashes surface as errors.
func (e *Extractor) Extract(ctx context.Context, req *models.ExtractRequest) (*models.ExtractedContent, error) {
	cls := e.classifier.Classify(req.URL)

	mode := models.ModeMainContent
	if req.FullPage {
		mode = models.ModeFullPage
	}

	if cls.AuthWalled {
		slog.Info("auth-walled URL short-circuited", "url", req.URL, "platform", cls.Platform)
		return &models.ExtractedContent{
			SourceURL:    req.URL,
			Mode:         mode,
			Platform:     cls.Platform,
			AuthRequired: true,
			Diagnostics:  &models.ContentDiagnostics{},
		}, nil
	}

	snapshot, err := e.fetchPage(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	return e.NormalizeSnapshot(snapshot, req.URL, cls, mode, req.Images())
}

// NormalizeSnapshot runs the post-fetch half of the pipeline on an
// already-rendered page: wall detection, fragment selection, image
// handling, Markdown conversion, and the empty-content fallback. Callers
// that manage their own navigation (authenticated sessions) use this
// directly.
func (e *Extractor) NormalizeSnapshot(snapshot *scraper.PageSnapshot, sourceURL string, cls Classification, mode models.ExtractionMode, images bool) (*models.ExtractedContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot.HTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeTransient, "rendered page did not parse as HTML", err)
	}

	if verdict := detectLoginWall(doc, snapshot.Title, cls, e.cfg.AuthTextThreshold); verdict.walled {
		slog.Info("login wall detected",
			"url", sourceURL,
			"platform", cls.Platform,
			"phrase", verdict.matchedPhrase,
			"contentLength", verdict.contentLength,
		)
		return &models.ExtractedContent{
			Title:        snapshot.Title,
			SourceURL:    sourceURL,
			Mode:         mode,
			Platform:     cls.Platform,
			AuthRequired: true,
			Diagnostics: &models.ContentDiagnostics{
				PageTitle:       snapshot.Title,
				ContentLength:   verdict.contentLength,
				MetaDescription: verdict.metaDesc,
				MatchedPhrase:   verdict.matchedPhrase,
			},
		}, nil
	}

	frag := e.selectFragment(doc, mode, snapshot)

	base, _ := url.Parse(snapshot.FinalURL)
	if images {
		absolutizeImages(frag, base)
	} else {
		removeImages(frag)
	}

	fragHTML, err := goquery.OuterHtml(frag)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeTransient, "failed to serialize fragment", err)
	}

	markdown, err := toMarkdown(e.md, fragHTML, snapshot.FinalURL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeTransient, "markdown conversion failed", err)
	}

	if len(markdown) < e.cfg.MinContentLength && cls.Platform != PlatformGeneric {
		return &models.ExtractedContent{
			Title:     snapshot.Title,
			SourceURL: sourceURL,
			Mode:      mode,
			Platform:  cls.Platform,
			IsEmpty:   true,
			Diagnostics: &models.ContentDiagnostics{
				PageTitle:     snapshot.Title,
				ContentLength: len(markdown),
			},
		}, nil
	}

	return &models.ExtractedContent{
		Title:     snapshot.Title,
		Markdown:  markdown,
		SourceURL: sourceURL,
		Mode:      mode,
		Platform:  cls.Platform,
	}, nil
}

// fetchPage obtains the rendered page: HTTP fast path first when enabled,
// then the browser. A proxied browser attempt that fails with a proxy
// error reports the endpoint for quarantine and retries once direct.
func (e *Extractor) fetchPage(ctx context.Context, rawURL string) (*scraper.PageSnapshot, error) {
	id := e.ids.Next()

	if e.cfg.HTTPFirst && e.fetcher != nil {
		if snap, err := e.fetcher.Fetch(ctx, rawURL, id); err == nil && !looksLikeShell(snap.HTML) {
			return snap, nil
		} else if err != nil {
			slog.Debug("http fast path failed, escalating to browser", "url", rawURL, "error", err)
		}
	}

	var ep *proxy.Endpoint
	if e.proxies != nil {
		ep = e.proxies.Select(proxy.ClassResidential)
	}

	navReq := &scraper.NavigateRequest{
		URL:      rawURL,
		Identity: id,
		Proxy:    ep,
		DebugTag: "extract",
	}
	snap, err := e.nav.Navigate(ctx, navReq)
	if err != nil && ep != nil && models.CodeOf(err) == models.ErrCodeProxyFailure {
		e.proxies.ReportFailure(ep, err)
		slog.Warn("proxied navigation failed, retrying direct", "url", rawURL, "error", err)
		navReq.Proxy = nil
		snap, err = e.nav.Navigate(ctx, navReq)
	}
	return snap, err
}

// looksLikeShell reports whether a statically-fetched page is a JS shell
// whose real content only exists after rendering.
func looksLikeShell(rawHTML string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return true
	}
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return len(normalizeSpace(body.Text())) < 200
}

// selectFragment picks the DOM subtree the Markdown conversion runs on.
func (e *Extractor) selectFragment(doc *goquery.Document, mode models.ExtractionMode, snapshot *scraper.PageSnapshot) *goquery.Selection {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body.Find("script, style, noscript").Remove()

	if mode == models.ModeFullPage {
		return body
	}

	var frag *goquery.Selection
	for _, sel := range mainContentSelectors {
		if found := body.Find(sel).First(); found.Length() > 0 {
			frag = found
			break
		}
	}
	if frag == nil {
		// No semantic container; let readability score the main body
		// before settling for the whole document.
		if art := e.readabilityFallback(snapshot); art != nil {
			return art
		}
		frag = body
	}

	for _, sel := range boilerplateSelectors {
		frag.Find(sel).Remove()
	}
	return frag
}

// readabilityFallback runs readability over the raw page; used only when
// no semantic container matched. Returns nil when readability extracts
// nothing meaningful.
func (e *Extractor) readabilityFallback(snapshot *scraper.PageSnapshot) *goquery.Selection {
	pageURL, err := url.Parse(snapshot.FinalURL)
	if err != nil {
		return nil
	}
	article, err := readability.FromReader(strings.NewReader(snapshot.HTML), pageURL)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return body
	}
	return doc.Selection
}
