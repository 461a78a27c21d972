package content

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/scout/config"
	"github.com/use-agent/scout/identity"
	"github.com/use-agent/scout/models"
	"github.com/use-agent/scout/scraper"
)

// fakeNavigator counts calls and serves canned pages.
type fakeNavigator struct {
	calls    int
	snapshot *scraper.PageSnapshot
	errs     []error // consumed per call before snapshot is returned
}

func (f *fakeNavigator) Navigate(_ context.Context, _ *scraper.NavigateRequest) (*scraper.PageSnapshot, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.snapshot, nil
}

func extractCfg() config.ExtractConfig {
	return config.ExtractConfig{
		MinContentLength:  50,
		AuthTextThreshold: 150,
	}
}

func boolPtr(b bool) *bool { return &b }

func articleHTML(paras int) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Field Notes</title></head><body><article>`)
	for i := 0; i < paras; i++ {
		b.WriteString(`<p>The canal network froze early this year, and the barge crews spent a week cutting channels by hand before the icebreaker arrived from the coast.</p>`)
	}
	b.WriteString(`<img src="/images/canal.jpg" alt="canal">`)
	b.WriteString(`</article></body></html>`)
	return b.String()
}

func TestClassifyDefaults(t *testing.T) {
	c := NewClassifier()

	cases := []struct {
		url      string
		platform string
		walled   bool
	}{
		{"https://www.linkedin.com/in/alice", "linkedin", true},
		{"https://linkedin.com/company/acme", "linkedin", true},
		{"https://www.linkedin.com/pulse/go-errors-done-right", "linkedin", false},
		{"https://www.instagram.com/someuser", "instagram", true},
		{"https://www.instagram.com/p/Cxyz123/", "instagram", false},
		{"https://x.com/home", "twitter", true},
		{"https://medium.com/@author/some-post", "medium", false},
		{"https://example.com/blog/post", PlatformGeneric, false},
	}
	for _, tc := range cases {
		got := c.Classify(tc.url)
		if got.Platform != tc.platform {
			t.Errorf("Classify(%s).Platform = %q, want %q", tc.url, got.Platform, tc.platform)
		}
		if got.AuthWalled != tc.walled {
			t.Errorf("Classify(%s).AuthWalled = %v, want %v", tc.url, got.AuthWalled, tc.walled)
		}
	}
}

func TestExtractAuthWallShortCircuit(t *testing.T) {
	classifier := NewClassifier(Platform{
		Name:  "socialnet",
		Hosts: []string{"socialnet.example"},
		AuthPatterns: []*regexp.Regexp{
			regexp.MustCompile(`^/in/[^/]+`),
		},
	})

	nav := &fakeNavigator{}
	ex := NewExtractor(extractCfg(), nav, nil, identity.NewRotator(), nil, classifier)

	req := &models.ExtractRequest{URL: "https://socialnet.example/in/alice", IncludeImages: boolPtr(true)}
	got, err := ex.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !got.AuthRequired {
		t.Error("expected AuthRequired=true for profile URL")
	}
	if got.Markdown != "" {
		t.Errorf("advisory result carries markdown: %q", got.Markdown)
	}
	if nav.calls != 0 {
		t.Errorf("navigation performed %d times, want 0", nav.calls)
	}
}

func TestExtractImagesExcluded(t *testing.T) {
	nav := &fakeNavigator{snapshot: &scraper.PageSnapshot{
		HTML:     articleHTML(3),
		Title:    "Field Notes",
		FinalURL: "https://example.com/notes",
	}}
	ex := NewExtractor(extractCfg(), nav, nil, identity.NewRotator(), nil, nil)

	req := &models.ExtractRequest{URL: "https://example.com/notes", IncludeImages: boolPtr(false)}
	got, err := ex.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.AuthRequired || got.IsEmpty {
		t.Fatalf("unexpected advisory: %+v", got)
	}
	if strings.Contains(got.Markdown, "![") {
		t.Errorf("images=false output still contains image syntax:\n%s", got.Markdown)
	}
}

func TestExtractImagesAbsolutized(t *testing.T) {
	nav := &fakeNavigator{snapshot: &scraper.PageSnapshot{
		HTML:     articleHTML(3),
		Title:    "Field Notes",
		FinalURL: "https://example.com/notes",
	}}
	ex := NewExtractor(extractCfg(), nav, nil, identity.NewRotator(), nil, nil)

	req := &models.ExtractRequest{URL: "https://example.com/notes", IncludeImages: boolPtr(true)}
	got, err := ex.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got.Markdown, "https://example.com/images/canal.jpg") {
		t.Errorf("relative image not absolutized:\n%s", got.Markdown)
	}
}

func TestExtractFullPageMode(t *testing.T) {
	page := `<html><head><title>T</title></head><body>` +
		`<nav>site navigation links that main-content mode would drop entirely</nav>` +
		`<article><p>` + strings.Repeat("body text ", 30) + `</p></article></body></html>`
	nav := &fakeNavigator{snapshot: &scraper.PageSnapshot{HTML: page, Title: "T", FinalURL: "https://example.com/"}}
	ex := NewExtractor(extractCfg(), nav, nil, identity.NewRotator(), nil, nil)

	full, err := ex.Extract(context.Background(), &models.ExtractRequest{URL: "https://example.com/", FullPage: true, IncludeImages: boolPtr(false)})
	if err != nil {
		t.Fatalf("Extract full: %v", err)
	}
	if full.Mode != models.ModeFullPage {
		t.Errorf("Mode = %q, want %q", full.Mode, models.ModeFullPage)
	}
	if !strings.Contains(full.Markdown, "site navigation") {
		t.Error("full-page mode dropped navigation text")
	}

	main, err := ex.Extract(context.Background(), &models.ExtractRequest{URL: "https://example.com/", IncludeImages: boolPtr(false)})
	if err != nil {
		t.Fatalf("Extract main: %v", err)
	}
	if strings.Contains(main.Markdown, "site navigation") {
		t.Error("main-content mode kept navigation text")
	}
}

func TestExtractLoginWallDetected(t *testing.T) {
	page := `<html><head><title>Sign in</title></head><body>` +
		`<main><p>Please sign in to continue reading this story and many more.</p></main></body></html>`
	nav := &fakeNavigator{snapshot: &scraper.PageSnapshot{HTML: page, Title: "Sign in", FinalURL: "https://example.com/story"}}
	ex := NewExtractor(extractCfg(), nav, nil, identity.NewRotator(), nil, nil)

	got, err := ex.Extract(context.Background(), &models.ExtractRequest{URL: "https://example.com/story", IncludeImages: boolPtr(true)})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !got.AuthRequired {
		t.Error("login phrase page not flagged AuthRequired")
	}
	if got.Diagnostics == nil || got.Diagnostics.MatchedPhrase == "" {
		t.Errorf("diagnostics missing matched phrase: %+v", got.Diagnostics)
	}
	if nav.calls != 1 {
		t.Errorf("navigation count = %d, want 1", nav.calls)
	}
}

func TestExtractEmptyFallbackOnKnownPlatform(t *testing.T) {
	// Enough visible text to clear the wall heuristic, but below the
	// inflated minimum length: a classified platform yields an advisory.
	page := `<html><head><title>A quiet afternoon on the towpath</title></head><body><article><p>` +
		strings.Repeat("towpath gravel and low water ", 10) + `</p></article></body></html>`
	nav := &fakeNavigator{snapshot: &scraper.PageSnapshot{HTML: page, Title: "A quiet afternoon on the towpath", FinalURL: "https://medium.com/@a/towpath"}}

	cfg := extractCfg()
	cfg.MinContentLength = 5000
	ex := NewExtractor(cfg, nav, nil, identity.NewRotator(), nil, nil)

	got, err := ex.Extract(context.Background(), &models.ExtractRequest{URL: "https://medium.com/@a/towpath", IncludeImages: boolPtr(true)})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !got.IsEmpty {
		t.Errorf("short result on known platform not flagged IsEmpty: %+v", got)
	}
	if got.Markdown != "" {
		t.Error("isEmpty advisory still carries markdown")
	}
}

func TestExtractShortGenericContentKept(t *testing.T) {
	page := `<html><head><title>Tiny</title></head><body><article><p>` +
		strings.Repeat("short but real content on an unclassified site ", 5) + `</p></article></body></html>`
	nav := &fakeNavigator{snapshot: &scraper.PageSnapshot{HTML: page, Title: "Tiny", FinalURL: "https://example.com/tiny"}}

	cfg := extractCfg()
	cfg.MinContentLength = 5000
	ex := NewExtractor(cfg, nav, nil, identity.NewRotator(), nil, nil)

	got, err := ex.Extract(context.Background(), &models.ExtractRequest{URL: "https://example.com/tiny", IncludeImages: boolPtr(true)})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.IsEmpty {
		t.Error("generic site result wrongly flagged IsEmpty")
	}
	if got.Markdown == "" {
		t.Error("generic result missing markdown")
	}
}

func TestDetectLoginWall(t *testing.T) {
	mustDoc := func(html string) *goquery.Document {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		return doc
	}

	known := Classification{Platform: "linkedin", Known: true, phrases: []string{"join linkedin"}}
	generic := Classification{Platform: PlatformGeneric}

	t.Run("platform phrase", func(t *testing.T) {
		doc := mustDoc(`<body><p>Join LinkedIn to see the full profile and much more besides, including everything else this page would otherwise have shown you here today.</p></body>`)
		if v := detectLoginWall(doc, "Alice | LinkedIn", known, 150); !v.walled {
			t.Error("platform phrase not detected")
		}
	})

	t.Run("short text on known platform", func(t *testing.T) {
		doc := mustDoc(`<body><p>Almost nothing here.</p></body>`)
		if v := detectLoginWall(doc, "Some page", known, 150); !v.walled {
			t.Error("near-empty known-platform page not flagged")
		}
	})

	t.Run("short text on generic site", func(t *testing.T) {
		doc := mustDoc(`<body><p>Almost nothing here.</p></body>`)
		if v := detectLoginWall(doc, "Some page", generic, 150); v.walled {
			t.Error("short generic page wrongly flagged")
		}
	})

	t.Run("long article survives", func(t *testing.T) {
		doc := mustDoc(`<body><article><p>` + strings.Repeat("a long paragraph about engineering practice ", 30) + `</p></article></body>`)
		if v := detectLoginWall(doc, "Go errors done right", known, 150); v.walled {
			t.Error("substantial article wrongly flagged")
		}
	})
}

func TestAbsolutizeIdempotent(t *testing.T) {
	base, _ := url.Parse("https://example.com/articles/post")

	once := absolutize("/images/a.png", base)
	if once != "https://example.com/images/a.png" {
		t.Fatalf("absolutize = %q", once)
	}
	if twice := absolutize(once, base); twice != once {
		t.Errorf("second pass changed URL: %q -> %q", once, twice)
	}
	if got := absolutize("data:image/png;base64,AAAA", base); !strings.HasPrefix(got, "data:") {
		t.Errorf("data URI rewritten: %q", got)
	}
}

func TestAbsolutizeSrcsetPreservesDescriptors(t *testing.T) {
	base, _ := url.Parse("https://example.com/p")
	got := absolutizeSrcset("/a.png 1x, /b.png 2x", base)
	want := "https://example.com/a.png 1x, https://example.com/b.png 2x"
	if got != want {
		t.Errorf("absolutizeSrcset = %q, want %q", got, want)
	}
}

func TestPostprocessMarkdown(t *testing.T) {
	in := "Title\n\n\n\n\nBody [![logo](https://e.com/l.png)](https://e.com/) text\n\n"
	got := postprocessMarkdown(in)
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("newlines not collapsed: %q", got)
	}
	if !strings.Contains(got, "![logo](https://e.com/l.png)") || strings.Contains(got, "[![") {
		t.Errorf("nested image link not flattened: %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Errorf("output not trimmed: %q", got)
	}
}
