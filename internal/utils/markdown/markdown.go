// Package markdown converts fetched HTML into compact markdown suitable as
// model input. Hospital sites carry heavy navigation chrome; stripping it
// before conversion keeps the payload inside the content budget.
package markdown

import (
	"regexp"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// boilerplateKeywords mark elements dropped by class or id.
var boilerplateKeywords = []string{
	"cookie", "consent", "banner", "navbar", "nav-", "menu-", "header",
	"pagination", "share", "search-", "signup", "signin", "login",
	"ad-", "advert", "promo", "modal", "popup", "dialog",
	"breadcrumbs", "breadcrumb", "sidebar",
}

var blankRunsRe = regexp.MustCompile(`\n{3,}`)

// FromHTML converts HTML to cleaned markdown. Returns "" when the document
// cannot be parsed.
func FromHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	// Prefer an explicit main-content region when the page has one.
	var content *goquery.Selection
	for _, sel := range []string{"main", "[role=\"main\"]", "#content", "#main"} {
		if doc.Find(sel).Length() > 0 {
			content = doc.Find(sel).First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	content.Find("script, style, noscript, nav, header, aside, form, iframe, svg, button, input").
		Each(func(_ int, s *goquery.Selection) { s.Remove() })
	content.Find("[role=\"navigation\"], [role=\"banner\"], [role=\"contentinfo\"], [aria-label*=\"cookie\" i], [aria-modal]").
		Each(func(_ int, s *goquery.Selection) { s.Remove() })

	content.Find("[class], [id]").Each(func(_ int, sel *goquery.Selection) {
		classVal, _ := sel.Attr("class")
		idVal, _ := sel.Attr("id")
		lower := strings.ToLower(classVal + " " + idVal)
		for _, kw := range boilerplateKeywords {
			if strings.Contains(lower, kw) {
				sel.Remove()
				break
			}
		}
	})

	body, err := content.Html()
	if err != nil {
		return ""
	}

	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(body)
	if err != nil {
		return ""
	}

	out = dropImageOnlyLines(out)
	out = blankRunsRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

var imageLineRe = regexp.MustCompile(`!\[[^\]]*\]\([^\)]+\)`)

func dropImageOnlyLines(mdText string) string {
	lines := strings.Split(mdText, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		line := strings.TrimSpace(l)
		if line == "" {
			continue
		}
		if imageLineRe.MatchString(line) && strings.TrimSpace(imageLineRe.ReplaceAllString(line, "")) == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// Clamp truncates text to max runes-ish bytes at a line boundary where
// possible, appending a truncation marker.
func Clamp(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := text[:max]
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	if idx := strings.LastIndexByte(cut, '\n'); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "\n...[truncated]"
}
