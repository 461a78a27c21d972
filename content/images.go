package content

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// backgroundImageRe pulls url(...) values out of inline style attributes.
var backgroundImageRe = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// removeImages strips every image element from the fragment.
func removeImages(frag *goquery.Selection) {
	frag.Find("img, picture, source[srcset]").Remove()
}

// absolutizeImages rewrites every image src/srcset and inline CSS
// background-image URL to an absolute URL resolved against the page's
// final URL. Re-running the rewrite is a no-op: resolving an
// already-absolute URL yields the same URL.
func absolutizeImages(frag *goquery.Selection, base *url.URL) {
	frag.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			s.SetAttr("src", absolutize(src, base))
		}
	})

	frag.Find("img[srcset], source[srcset]").Each(func(_ int, s *goquery.Selection) {
		if srcset, ok := s.Attr("srcset"); ok {
			s.SetAttr("srcset", absolutizeSrcset(srcset, base))
		}
	})

	frag.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		if !strings.Contains(style, "url(") {
			return
		}
		rewritten := backgroundImageRe.ReplaceAllStringFunc(style, func(m string) string {
			sub := backgroundImageRe.FindStringSubmatch(m)
			if len(sub) < 2 {
				return m
			}
			return "url('" + absolutize(sub[1], base) + "')"
		})
		s.SetAttr("style", rewritten)
	})
}

// absolutize resolves raw against base. Data URIs and unparseable values
// pass through untouched.
func absolutize(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") || base == nil {
		return raw
	}
	resolved, err := base.Parse(raw)
	if err != nil {
		return raw
	}
	return resolved.String()
}

// absolutizeSrcset rewrites each candidate URL in a srcset value,
// preserving the width/density descriptors.
func absolutizeSrcset(srcset string, base *url.URL) string {
	candidates := strings.Split(srcset, ",")
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		fields := strings.Fields(strings.TrimSpace(c))
		if len(fields) == 0 {
			continue
		}
		fields[0] = absolutize(fields[0], base)
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, ", ")
}
