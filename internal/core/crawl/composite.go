package crawl

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Schedule media. A schedule lives in an HTML table, an embedded image, or a
// linked PDF; the medium decides how the extraction payload is fetched.
const (
	MediumText  = "txt"
	MediumImage = "img"
	MediumPDF   = "pdf"
)

// MediumFor inspects a page for the medium its schedule is published in.
// An HTML table wins over embedded media: text extraction is cheaper and
// more reliable than the multimodal path.
func MediumFor(doc *goquery.Document) string {
	if doc.Find("table").Length() > 0 {
		return MediumText
	}
	img := false
	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		alt, _ := sel.Attr("alt")
		if LooksLikeSchedule(src + " " + alt) {
			img = true
			return false
		}
		return true
	})
	if img {
		return MediumImage
	}
	pdf := false
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if strings.HasSuffix(strings.ToLower(strings.Split(href, "?")[0]), ".pdf") {
			pdf = true
			return false
		}
		return true
	})
	if pdf {
		return MediumPDF
	}
	return MediumText
}

// LooksLikeSchedule reports whether an attribute string hints at schedule
// media.
func LooksLikeSchedule(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range []string{"schedule", "gairai", "外来", "担当", "診療"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// TypeCode maps page signals to the type code vocabulary. Composite codes
// are only emitted when the feature is enabled; otherwise a page with both
// signals reports as a roster page, the stronger of the two.
func TypeCode(score PageScore, medium string, compositeEnabled bool) string {
	hasDoctor := score.Doctor >= 1
	hasSchedule := score.Schedule >= 1
	switch {
	case hasDoctor && hasSchedule && compositeEnabled:
		return "sg_" + medium
	case hasDoctor:
		return "s"
	case hasSchedule:
		return "g_" + medium
	default:
		return "none"
	}
}

// MergeTypeCode reconciles the model's classification with the crawler's
// hint. The model wins except when composite detection saw both signals and
// the model reported only one of them.
func MergeTypeCode(modelCode, hint string, compositeEnabled bool) string {
	if !compositeEnabled || !strings.HasPrefix(hint, "sg_") {
		return modelCode
	}
	if modelCode == "s" || strings.HasPrefix(modelCode, "g_") {
		return hint
	}
	return modelCode
}
