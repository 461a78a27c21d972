package content

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// newMarkdownConverter creates a reusable, goroutine-safe Converter:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta,
//     link, input, textarea and HTML comments.
//   - commonmark plugin: standard Markdown rendering.
//   - table plugin: preserves table structure with minimal cell padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// toMarkdown converts the HTML fragment to Markdown. The domain resolves
// relative anchors so the output is self-contained.
func toMarkdown(conv *converter.Converter, htmlContent string, domain string) (string, error) {
	md, err := conv.ConvertString(htmlContent, converter.WithDomain(domain))
	if err != nil {
		return "", err
	}
	return postprocessMarkdown(md), nil
}

var (
	excessNewlinesRe = regexp.MustCompile(`\n{3,}`)

	// nestedImageLinkRe matches an image wrapped in a link ("[![alt](img)](href)"),
	// a pattern converters emit for linked thumbnails; the wrapper adds
	// nothing once the page is flattened to text.
	nestedImageLinkRe = regexp.MustCompile(`\[(!\[[^\]]*\]\([^)]*\))\]\([^)]*\)`)
)

// postprocessMarkdown normalizes converter output: 3+ consecutive
// newlines collapse to exactly 2, nested image-link artifacts flatten to
// the bare image, and the result is trimmed.
func postprocessMarkdown(md string) string {
	md = nestedImageLinkRe.ReplaceAllString(md, "$1")
	md = excessNewlinesRe.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}
