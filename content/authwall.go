package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// genericLoginPhrases indicate a login wall on any platform.
var genericLoginPhrases = []string{
	"sign in to continue",
	"log in to continue",
	"login to continue",
	"create an account to",
	"join now to view",
	"you must be logged in",
	"please sign in",
	"authentication required",
}

// wallVerdict is the outcome of the login-wall heuristic.
type wallVerdict struct {
	walled        bool
	matchedPhrase string
	contentLength int
	metaDesc      string
}

// detectLoginWall applies the post-navigation heuristic. Phrase matching
// runs for every page; the text-length and title checks only run on
// recognised platforms, where a near-empty page with the platform's own
// name in the title is a wall rather than a thin article.
func detectLoginWall(doc *goquery.Document, title string, cls Classification, textThreshold int) wallVerdict {
	text := strings.ToLower(normalizeSpace(doc.Text()))
	verdict := wallVerdict{
		contentLength: len(text),
		metaDesc:      metaDescription(doc),
	}

	phrases := append(genericLoginPhrases, cls.phrases...)
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			verdict.walled = true
			verdict.matchedPhrase = phrase
			return verdict
		}
	}

	if !cls.Known {
		return verdict
	}

	if verdict.contentLength < textThreshold {
		verdict.walled = true
		return verdict
	}

	lowerTitle := strings.ToLower(strings.TrimSpace(title))
	if lowerTitle == "" || lowerTitle == cls.Platform ||
		strings.Contains(lowerTitle, cls.Platform) && verdict.contentLength < 4*textThreshold {
		verdict.walled = true
	}
	return verdict
}

func metaDescription(doc *goquery.Document) string {
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	return desc
}

// normalizeSpace collapses runs of whitespace so length thresholds measure
// visible text rather than indentation.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
