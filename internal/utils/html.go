package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML returns the visible text of an HTML document with whitespace collapsed
func StripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CollapseWhitespace(html)
	}
	doc.Find("script, style, head").Remove()
	// keep block boundaries from gluing words together
	doc.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})
	return CollapseWhitespace(doc.Text())
}

// CollapseWhitespace replaces every whitespace run with a single space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ExtractText picks the plain text body, falling back to the stripped HTML body.
// Plain text keeps its line structure; only HTML is collapsed.
func ExtractText(textBody, htmlBody string) string {
	if text := strings.TrimSpace(textBody); text != "" {
		return text
	}
	if strings.TrimSpace(htmlBody) == "" {
		return ""
	}
	return StripHTML(htmlBody)
}
