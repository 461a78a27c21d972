// Package identity produces self-consistent browser fingerprints. A
// template bundles user agent, platform, viewport and language so the
// pieces presented to a site never contradict each other; one identity is
// reused for the full lifetime of a browsing session.
package identity

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Viewport is a browser window size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// Identity is the set of client-visible characteristics for one session.
type Identity struct {
	UserAgent      string
	Viewport       Viewport
	Platform       string // navigator.platform value
	AcceptLanguage string
	ScreenProfile  string // template name, e.g. "win-chrome"

	// Headers are the derived request headers for this identity.
	Headers map[string]string
}

// template is one realistic desktop identity. Viewports get jittered per
// session so repeated sessions from the same template still vary.
type template struct {
	name           string
	userAgent      string
	platform       string
	acceptLanguage string
	viewport       Viewport
	secChUA        string // client-hint brand list; empty for Firefox
	secChPlatform  string
}

var templates = []template{
	{
		name:           "win-chrome",
		userAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		platform:       "Win32",
		acceptLanguage: "en-US,en;q=0.9",
		viewport:       Viewport{Width: 1920, Height: 1080},
		secChUA:        `"Chromium";v="125", "Google Chrome";v="125", "Not.A/Brand";v="24"`,
		secChPlatform:  `"Windows"`,
	},
	{
		name:           "win-firefox",
		userAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:126.0) Gecko/20100101 Firefox/126.0",
		platform:       "Win32",
		acceptLanguage: "en-US,en;q=0.5",
		viewport:       Viewport{Width: 1536, Height: 864},
	},
	{
		name:           "mac-chrome",
		userAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		platform:       "MacIntel",
		acceptLanguage: "en-US,en;q=0.9",
		viewport:       Viewport{Width: 1728, Height: 1117},
		secChUA:        `"Chromium";v="125", "Google Chrome";v="125", "Not.A/Brand";v="24"`,
		secChPlatform:  `"macOS"`,
	},
	{
		name:           "mac-firefox",
		userAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:126.0) Gecko/20100101 Firefox/126.0",
		platform:       "MacIntel",
		acceptLanguage: "en-US,en;q=0.5",
		viewport:       Viewport{Width: 1440, Height: 900},
	},
	{
		name:           "linux-chrome",
		userAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		platform:       "Linux x86_64",
		acceptLanguage: "en-US,en;q=0.9",
		viewport:       Viewport{Width: 1920, Height: 1080},
		secChUA:        `"Chromium";v="125", "Google Chrome";v="125", "Not.A/Brand";v="24"`,
		secChPlatform:  `"Linux"`,
	},
	{
		name:           "linux-firefox",
		userAgent:      "Mozilla/5.0 (X11; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0",
		platform:       "Linux x86_64",
		acceptLanguage: "en-US,en;q=0.5",
		viewport:       Viewport{Width: 1600, Height: 900},
	},
}

// viewportJitter bounds the per-session random viewport offset in pixels.
const viewportJitter = 50

// Rotator hands out identities. Safe for concurrent use.
type Rotator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRotator creates a Rotator seeded from the wall clock.
func NewRotator() *Rotator {
	return &Rotator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewRotatorWithRand creates a Rotator with an injectable random source.
func NewRotatorWithRand(rng *rand.Rand) *Rotator {
	return &Rotator{rng: rng}
}

// Next selects a template uniformly at random and returns a fully-populated
// Identity with jittered viewport dimensions and derived request headers.
func (r *Rotator) Next() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := templates[r.rng.Intn(len(templates))]

	id := Identity{
		UserAgent:      t.userAgent,
		Platform:       t.platform,
		AcceptLanguage: t.acceptLanguage,
		ScreenProfile:  t.name,
		Viewport: Viewport{
			Width:  t.viewport.Width + r.jitter(),
			Height: t.viewport.Height + r.jitter(),
		},
	}

	id.Headers = map[string]string{
		"User-Agent":      id.UserAgent,
		"Accept-Language": id.AcceptLanguage,
		"Accept-Encoding": "gzip, deflate, br",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	}

	// Client-hint headers only exist on Chromium, and real traffic does
	// not always carry them; send them half the time for variance.
	if t.secChUA != "" && r.rng.Float64() < 0.5 {
		id.Headers["Sec-Ch-Ua"] = t.secChUA
		id.Headers["Sec-Ch-Ua-Mobile"] = "?0"
		id.Headers["Sec-Ch-Ua-Platform"] = t.secChPlatform
	}

	return id
}

// jitter returns a uniform offset in [-viewportJitter, +viewportJitter].
func (r *Rotator) jitter() int {
	return r.rng.Intn(2*viewportJitter+1) - viewportJitter
}

// String identifies the fingerprint in logs without dumping headers.
func (i Identity) String() string {
	return fmt.Sprintf("%s %dx%d", i.ScreenProfile, i.Viewport.Width, i.Viewport.Height)
}
