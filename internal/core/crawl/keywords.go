package crawl

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keywords holds the scoring tables used to decide which pages of a facility
// site are worth classifying. The defaults cover common Japanese hospital
// site conventions; a YAML file can replace any table without a rebuild.
type Keywords struct {
	Doctor     []string `yaml:"doctor"`
	Schedule   []string `yaml:"schedule"`
	Department []string `yaml:"department"`
	PathHints  []string `yaml:"path_hints"`
	Exclude    []string `yaml:"exclude"`
}

// DefaultKeywords returns the built-in tables.
func DefaultKeywords() *Keywords {
	return &Keywords{
		Doctor: []string{
			"医師", "医師紹介", "ドクター", "スタッフ紹介", "担当医",
			"常勤医", "専門医", "doctor", "physician", "staff",
		},
		Schedule: []string{
			"外来", "診療時間", "外来担当", "担当医表", "外来担当表",
			"診療案内", "診察日", "schedule", "外来表",
		},
		Department: []string{
			"内科", "外科", "小児科", "整形外科", "皮膚科", "眼科",
			"耳鼻咽喉科", "泌尿器科", "産婦人科", "精神科", "脳神経外科",
			"循環器", "消化器", "呼吸器", "リハビリテーション",
		},
		PathHints: []string{
			"/doctor", "/physician", "/staff", "/ishi", "/senmon",
			"/outpatient", "/gairai", "/schedule", "/tantou",
			"naika", "geka", "shonika", "seikei", "hifuka", "ganka",
			"jibika", "hinyouki", "sanfujinka", "seishinka", "junkanki",
			"shokaki", "kokyuki",
		},
		Exclude: []string{
			"sitemap", "privacy", "contact", "recruit", "access",
			"tel:", "mailto:", "javascript:",
			"サイトマップ", "プライバシー", "個人情報", "お問い合わせ", "採用",
		},
	}
}

// LoadKeywords merges YAML overrides from path over the defaults. An empty
// path returns the defaults unchanged.
func LoadKeywords(path string) (*Keywords, error) {
	kw := DefaultKeywords()
	if path == "" {
		return kw, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var override Keywords
	if err := yaml.Unmarshal(b, &override); err != nil {
		return nil, err
	}
	if len(override.Doctor) > 0 {
		kw.Doctor = override.Doctor
	}
	if len(override.Schedule) > 0 {
		kw.Schedule = override.Schedule
	}
	if len(override.Department) > 0 {
		kw.Department = override.Department
	}
	if len(override.PathHints) > 0 {
		kw.PathHints = override.PathHints
	}
	if len(override.Exclude) > 0 {
		kw.Exclude = override.Exclude
	}
	return kw, nil
}

// binaryExtRe excludes document and media links from the crawl queue; they
// are payloads, not pages.
var binaryExtRe = regexp.MustCompile(`(?i)\.(pdf|doc|docx|xls|xlsx|zip|jpg|jpeg|png|gif)(\?.*)?$`)

// Excluded reports whether a link should never enter the queue.
func (k *Keywords) Excluded(link, anchorText string) bool {
	lower := strings.ToLower(link)
	if binaryExtRe.MatchString(lower) {
		return true
	}
	if strings.Contains(lower, "#") {
		return true
	}
	haystack := lower + " " + anchorText
	for _, kw := range k.Exclude {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Score counts table hits in a text.
func score(text string, table []string) int {
	n := 0
	lower := strings.ToLower(text)
	for _, kw := range table {
		if strings.Contains(lower, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}

// PageScore summarizes how strongly a page (or link) signals roster or
// schedule content.
type PageScore struct {
	Doctor     int
	Schedule   int
	Department int
	PathHit    bool
}

// ScorePage scores page-level text (title plus body extract).
func (k *Keywords) ScorePage(text string) PageScore {
	return PageScore{
		Doctor:     score(text, k.Doctor),
		Schedule:   score(text, k.Schedule),
		Department: score(text, k.Department),
	}
}

// ScoreLink scores a link by its URL path and anchor text.
func (k *Keywords) ScoreLink(link, anchorText string) PageScore {
	s := k.ScorePage(anchorText)
	lower := strings.ToLower(link)
	for _, hint := range k.PathHints {
		if strings.Contains(lower, hint) {
			s.PathHit = true
			break
		}
	}
	return s
}

// Candidate reports whether a score clears the collection bar: any roster or
// schedule signal, a department cluster, or a telling URL path.
func (s PageScore) Candidate() bool {
	return s.Doctor >= 1 || s.Schedule >= 1 || s.Department >= 2 || s.PathHit
}

// PathPatterns renders the path hints as glob patterns for the link mapper
// fallback.
func (k *Keywords) PathPatterns() []string {
	patterns := make([]string, 0, len(k.PathHints))
	for _, h := range k.PathHints {
		if strings.HasPrefix(h, "/") {
			patterns = append(patterns, h+"*")
		}
	}
	return patterns
}
