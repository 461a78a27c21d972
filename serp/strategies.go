package serp

import "github.com/andybalholm/cascadia"

// FieldStrategy is one named way to extract a field from a result
// container. Strategies are tried in order; the first that yields a
// non-empty value wins, so a markup change on the source site degrades to
// the next strategy instead of breaking the parser.
type FieldStrategy struct {
	Name    string
	matcher cascadia.Selector
	Attr    string // "" reads text content; otherwise the attribute
}

func strategy(name, selector, attr string) FieldStrategy {
	return FieldStrategy{Name: name, matcher: cascadia.MustCompile(selector), Attr: attr}
}

// Strategies bundles the per-field strategy lists for one results page
// layout, together with the engine's own host for self-link filtering.
type Strategies struct {
	Engine string
	Host   string // engine's own domain, e.g. "google.com"

	Containers []FieldStrategy
	Title      []FieldStrategy
	Link       []FieldStrategy
	Snippet    []FieldStrategy
	DisplayURL []FieldStrategy
}

// GoogleStrategies parses a rendered Google results page. Selector lists
// are ordered newest-layout-first.
func GoogleStrategies() *Strategies {
	return &Strategies{
		Engine: "google",
		Host:   "google.com",
		Containers: []FieldStrategy{
			strategy("modern", "#search div.MjjYud", ""),
			strategy("classic", "#search div.g", ""),
			strategy("bare", "div.g", ""),
		},
		Title: []FieldStrategy{
			strategy("heading", "h3", ""),
			strategy("role-heading", "div[role='heading']", ""),
		},
		Link: []FieldStrategy{
			strategy("title-block", "div.yuRUbf a", "href"),
			strategy("any-anchor", "a[href]", "href"),
		},
		Snippet: []FieldStrategy{
			strategy("modern", "div.VwiC3b", ""),
			strategy("legacy", "div.IsZvec", ""),
			strategy("data-attr", "div[data-sncf]", ""),
		},
		DisplayURL: []FieldStrategy{
			strategy("cite", "cite", ""),
		},
	}
}

// BingStrategies parses a rendered Bing results page.
func BingStrategies() *Strategies {
	return &Strategies{
		Engine: "bing",
		Host:   "bing.com",
		Containers: []FieldStrategy{
			strategy("algo", "#b_results li.b_algo", ""),
			strategy("bare-algo", "li.b_algo", ""),
		},
		Title: []FieldStrategy{
			strategy("heading-link", "h2 a", ""),
			strategy("heading", "h2", ""),
		},
		Link: []FieldStrategy{
			strategy("heading-link", "h2 a", "href"),
			strategy("any-anchor", "a[href]", "href"),
		},
		Snippet: []FieldStrategy{
			strategy("caption", "div.b_caption p", ""),
			strategy("paragraph", "p", ""),
		},
		DisplayURL: []FieldStrategy{
			strategy("cite", "cite", ""),
		},
	}
}
