// Package serp turns a rendered search-results page into an ordered list
// of structured hits. Extraction tolerates incremental markup drift via
// ordered selector strategies per field.
package serp

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/scout/models"
)

// Parse extracts up to limit results from the rendered results page.
// Positions are assigned 1-based in extraction order, contiguous over the
// kept results. Containers whose primary link points back into the engine's
// own domain are discarded, as are repeated links and near-duplicate
// title+snippet pairs. If no container strategy matches at all the parse is
// classified as empty content.
func Parse(rawHTML string, st *Strategies, limit int) ([]models.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeTransient, "results page did not parse as HTML", err)
	}

	containers := firstMatching(doc.Selection, st.Containers)
	if containers == nil || containers.Length() == 0 {
		return nil, models.NewScrapeError(
			models.ErrCodeEmptyContent,
			"no result containers matched any strategy",
			nil,
		)
	}

	results := make([]models.SearchResult, 0, limit)
	dedup := newDeduper()
	containers.EachWithBreak(func(_ int, c *goquery.Selection) bool {
		if len(results) >= limit {
			return false
		}

		link := fieldValue(c, st.Link)
		link = unwrapRedirect(st.Host, link)
		if link == "" || !isExternalLink(link, st.Host) {
			return true // ad slot, engine feature box, or self-referential
		}

		title := fieldValue(c, st.Title)
		if title == "" {
			return true
		}

		snippet := fieldValue(c, st.Snippet)
		if dedup.seen(link, title, snippet) {
			return true
		}

		results = append(results, models.SearchResult{
			Title:        title,
			Link:         link,
			Snippet:      snippet,
			DisplayURL:   fieldValue(c, st.DisplayURL),
			Position:     len(results) + 1,
			SourceEngine: st.Engine,
		})
		return true
	})

	if len(results) == 0 {
		return nil, models.NewScrapeError(
			models.ErrCodeEmptyContent,
			"result containers matched but yielded no usable hits",
			nil,
		)
	}
	return results, nil
}

// firstMatching returns the selection of the first container strategy that
// matches at least one element.
func firstMatching(root *goquery.Selection, strategies []FieldStrategy) *goquery.Selection {
	for _, st := range strategies {
		if sel := root.FindMatcher(st.matcher); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// fieldValue tries each strategy in order and returns the first non-empty
// trimmed value.
func fieldValue(container *goquery.Selection, strategies []FieldStrategy) string {
	for _, st := range strategies {
		el := container.FindMatcher(st.matcher).First()
		if el.Length() == 0 {
			continue
		}
		var v string
		if st.Attr != "" {
			v, _ = el.Attr(st.Attr)
		} else {
			v = el.Text()
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// unwrapRedirect resolves engine-internal redirect links to their real
// destination. Google wraps results as /url?q=<target>; Bing wraps them as
// /ck/a?...&u=a1<base64(target)>.
func unwrapRedirect(engineHost, href string) string {
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	switch {
	case strings.HasPrefix(u.Path, "/url"):
		q := u.Query()
		if target := q.Get("q"); target != "" {
			return target
		}
		return q.Get("url")

	case strings.HasPrefix(u.Path, "/ck/"):
		enc := u.Query().Get("u")
		enc = strings.TrimPrefix(enc, "a1")
		if decoded, err := base64.RawURLEncoding.DecodeString(enc); err == nil {
			return string(decoded)
		}
		return ""
	}

	// Relative links without a redirect shape stay inside the engine and
	// get dropped by the self-link filter.
	if !u.IsAbs() {
		return "https://" + engineHost + href
	}
	return href
}

// isExternalLink reports whether the link leaves the engine's own domain.
func isExternalLink(link, engineHost string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Scheme == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host != engineHost && !strings.HasSuffix(host, "."+engineHost)
}
