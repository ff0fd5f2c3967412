package decode

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"collector/internal/core/job"
	"collector/internal/logger"
)

// Outcome is the decoded verdict for one validated record. Corrected fields
// are empty when the stage that matched could not recover them.
type Outcome struct {
	Status    string
	Message   string
	Corrected job.DoctorFields
	// Weak marks outcomes recovered from free text rather than the
	// requested format. Counted as a response-quality signal.
	Weak bool
}

type stage struct {
	name  string
	parse func(raw string) (Outcome, bool)
}

// ValidationDecoder decodes validation responses through an ordered fallback
// chain and counts which stage each response needed.
type ValidationDecoder struct {
	stages []stage
	log    *logger.Logger

	mu   sync.Mutex
	hits map[string]int
}

func NewValidationDecoder() *ValidationDecoder {
	d := &ValidationDecoder{
		log:  logger.New("ValidationDecoder"),
		hits: make(map[string]int),
	}
	d.stages = []stage{
		{"tab_delimited", parseTabDelimited},
		{"multi_space", parseMultiSpace},
		{"status_pattern", parseStatusPattern},
		{"comma_delimited", parseCommaDelimited},
		{"keyword_scan", parseKeywordScan},
	}
	return d
}

// Decode runs the chain. It always returns an outcome: when every stage
// fails, the record is NOTFOUND with the raw text preserved for triage.
func (d *ValidationDecoder) Decode(raw string) Outcome {
	cleaned := codeFenceRe.ReplaceAllString(raw, "")
	for _, st := range d.stages {
		if out, ok := st.parse(cleaned); ok {
			d.count(st.name)
			if st.name != "tab_delimited" {
				d.log.LogDebugf("validation response needed fallback stage %s", st.name)
			}
			return out
		}
	}
	d.count("unparsed")
	msg := Truncate(strings.TrimSpace(cleaned), 200)
	return Outcome{Status: job.StatusNotFound, Message: "unparseable response: " + msg, Weak: true}
}

// Truncate clamps a string to max bytes without splitting a rune. Quoted raw
// responses are mostly Japanese; a byte slice would emit invalid UTF-8.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 {
		if r, size := utf8.DecodeLastRuneInString(cut); r != utf8.RuneError || size != 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut
}

func (d *ValidationDecoder) count(stage string) {
	d.mu.Lock()
	d.hits[stage]++
	d.mu.Unlock()
}

// StageHits returns how many responses each stage decoded.
func (d *ValidationDecoder) StageHits() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int, len(d.hits))
	for k, v := range d.hits {
		out[k] = v
	}
	return out
}

// outcomeFromParts builds an outcome from the canonical 8-column layout:
// status, message, then name, department, position, specialty, licence,
// others.
func outcomeFromParts(parts []string) (Outcome, bool) {
	for len(parts) < 8 {
		parts = append(parts, "")
	}
	status := normalizeStatus(parts[0])
	if status == "" {
		return Outcome{}, false
	}
	return Outcome{
		Status:  status,
		Message: parts[1],
		Corrected: job.DoctorFields{
			Name:       parts[2],
			Department: parts[3],
			Position:   parts[4],
			Specialty:  parts[5],
			Licence:    parts[6],
			Others:     parts[7],
		},
	}, true
}

func normalizeStatus(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case job.StatusValid:
		return job.StatusValid
	case job.StatusPartial:
		return job.StatusPartial
	case job.StatusInvalid:
		return job.StatusInvalid
	case job.StatusNotFound, "NOT_FOUND", "NOT FOUND":
		return job.StatusNotFound
	}
	return ""
}

// Stage 1: the requested format, one tab-separated line.
func parseTabDelimited(raw string) (Outcome, bool) {
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(line, "\t") {
			continue
		}
		parts := splitFields(line)
		if len(parts) >= 3 {
			if out, ok := outcomeFromParts(parts); ok {
				return out, true
			}
		}
	}
	return Outcome{}, false
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// Stage 2: columns separated by runs of spaces instead of tabs.
func parseMultiSpace(raw string) (Outcome, bool) {
	for _, line := range strings.Split(raw, "\n") {
		parts := multiSpaceRe.Split(strings.TrimSpace(line), -1)
		if len(parts) >= 8 {
			if out, ok := outcomeFromParts(parts); ok {
				return out, true
			}
		}
	}
	return Outcome{}, false
}

var statusPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(VALID|PARTIAL|INVALID|NOTFOUND)\s*[:\-\|]\s*(.+)`),
	regexp.MustCompile(`ステータス[:\s]*([A-Z]+)`),
	regexp.MustCompile(`判定[:\s]*([A-Z]+)`),
}

// Stage 3: a labeled status anywhere in the text.
func parseStatusPattern(raw string) (Outcome, bool) {
	for _, re := range statusPatterns {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		status := normalizeStatus(m[1])
		if status == "" {
			continue
		}
		msg := ""
		if len(m) > 2 {
			msg = strings.TrimSpace(m[2])
		}
		return Outcome{Status: status, Message: msg}, true
	}
	return Outcome{}, false
}

// Stage 4: comma-separated columns.
func parseCommaDelimited(raw string) (Outcome, bool) {
	for _, line := range strings.Split(raw, "\n") {
		parts := strings.Split(line, ",")
		if len(parts) < 8 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if out, ok := outcomeFromParts(parts); ok {
			return out, true
		}
	}
	return Outcome{}, false
}

var keywordStatuses = []struct {
	status   string
	keywords []string
}{
	{job.StatusInvalid, []string{"invalid", "無効", "存在しない", "見つかりません", "該当なし"}},
	{job.StatusPartial, []string{"partial", "部分的", "一部"}},
	{job.StatusValid, []string{"valid", "正しい", "一致", "確認"}},
}

// Stage 5: the model answered in prose. Scan for verdict keywords; anything
// still ambiguous is NOTFOUND.
func parseKeywordScan(raw string) (Outcome, bool) {
	text := strings.ToLower(raw)
	if strings.TrimSpace(text) == "" {
		return Outcome{}, false
	}
	for _, ks := range keywordStatuses {
		for _, kw := range ks.keywords {
			if strings.Contains(text, kw) {
				msg := Truncate(strings.TrimSpace(raw), 200)
				return Outcome{Status: ks.status, Message: msg, Weak: true}, true
			}
		}
	}
	return Outcome{}, false
}
