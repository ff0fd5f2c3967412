package decode

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collector/internal/core/job"
)

func TestValidationDecodeTabDelimited(t *testing.T) {
	d := NewValidationDecoder()
	out := d.Decode("VALID\tok\t田中一\t内科\t部長\t\t\t\n")
	assert.Equal(t, job.StatusValid, out.Status)
	assert.Equal(t, "ok", out.Message)
	assert.Equal(t, "田中一", out.Corrected.Name)
	assert.Equal(t, "内科", out.Corrected.Department)
	assert.Equal(t, "部長", out.Corrected.Position)
	assert.False(t, out.Weak)
	assert.Equal(t, 1, d.StageHits()["tab_delimited"])
}

// The corrected block is name-first: the third column is the doctor's name,
// the fourth the department.
func TestValidationDecodeCorrectedColumnOrder(t *testing.T) {
	d := NewValidationDecoder()
	out := d.Decode("VALID\tok\t田中\t内科\t\t\t\t")
	assert.Equal(t, "田中", out.Corrected.Name)
	assert.Equal(t, "内科", out.Corrected.Department)
	assert.Empty(t, out.Corrected.Position)
}

func TestValidationDecodeTabDelimitedPadsShortRows(t *testing.T) {
	d := NewValidationDecoder()
	out := d.Decode("PARTIAL\tname differs\t田中一")
	assert.Equal(t, job.StatusPartial, out.Status)
	assert.Equal(t, "田中一", out.Corrected.Name)
	assert.Empty(t, out.Corrected.Department)
}

func TestValidationDecodeInsideCodeFence(t *testing.T) {
	d := NewValidationDecoder()
	// A fenced block is stripped wholesale; the duplicate line outside the
	// fence still parses.
	out := d.Decode("```\nnoise\n```\nINVALID\tno such doctor\t\t\t\t\t\t")
	assert.Equal(t, job.StatusInvalid, out.Status)
}

func TestValidationDecodeMultiSpace(t *testing.T) {
	d := NewValidationDecoder()
	out := d.Decode("VALID  ok  田中一  内科  部長  循環器  専門医  なし")
	assert.Equal(t, job.StatusValid, out.Status)
	assert.Equal(t, "田中一", out.Corrected.Name)
	assert.Equal(t, "内科", out.Corrected.Department)
	assert.Equal(t, 1, d.StageHits()["multi_space"])
}

func TestValidationDecodeStatusPattern(t *testing.T) {
	d := NewValidationDecoder()
	out := d.Decode("INVALID: the record does not appear on the page")
	assert.Equal(t, job.StatusInvalid, out.Status)
	assert.Contains(t, out.Message, "does not appear")
	assert.Equal(t, 1, d.StageHits()["status_pattern"])
}

func TestValidationDecodeJapaneseStatusLabel(t *testing.T) {
	d := NewValidationDecoder()
	out := d.Decode("判定: PARTIAL")
	assert.Equal(t, job.StatusPartial, out.Status)
}

func TestValidationDecodeCommaDelimited(t *testing.T) {
	d := NewValidationDecoder()
	out := d.Decode("NOTFOUND,page unreachable,,,,,,")
	assert.Equal(t, job.StatusNotFound, out.Status)
	assert.Equal(t, 1, d.StageHits()["comma_delimited"])
}

func TestValidationDecodeKeywordScanIsWeak(t *testing.T) {
	d := NewValidationDecoder()
	out := d.Decode("この医師は存在しないようです。")
	assert.Equal(t, job.StatusInvalid, out.Status)
	assert.True(t, out.Weak)
	assert.Equal(t, 1, d.StageHits()["keyword_scan"])
}

func TestValidationDecodeIsTotal(t *testing.T) {
	d := NewValidationDecoder()
	out := d.Decode("%%%% ???")
	require.Equal(t, job.StatusNotFound, out.Status)
	assert.True(t, out.Weak)
	assert.Contains(t, out.Message, "%%%%")
	assert.Equal(t, 1, d.StageHits()["unparsed"])
}

func TestValidationDecodeEmptyResponse(t *testing.T) {
	d := NewValidationDecoder()
	out := d.Decode("")
	assert.Equal(t, job.StatusNotFound, out.Status)
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abcde", Truncate("abcdef", 5))

	// 200 bytes falls mid-rune in a run of 3-byte kanji.
	jp := strings.Repeat("医", 100)
	out := Truncate(jp, 200)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, 198, len(out))
}

func TestValidationDecodeUnparsedQuoteIsValidUTF8(t *testing.T) {
	d := NewValidationDecoder()
	out := d.Decode(strings.Repeat("謎", 100))
	assert.Equal(t, job.StatusNotFound, out.Status)
	assert.True(t, utf8.ValidString(out.Message))
}
