package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collector/internal/core/job"
)

func TestLinesStripsFencesAndHeader(t *testing.T) {
	raw := "```tsv\nfac_id_unif\turl\tdepartment\n```\n" +
		"123\thttps://example.org/doctors\ts\t内科\t医師紹介\t2026-01-01\tv1\n"
	lines := Lines(raw)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "example.org")
}

func TestURLCollectFullAndMinimalLayouts(t *testing.T) {
	raw := "123\thttps://example.org/doctors\ts\t内科\t医師紹介\t2026-01-01\tv1\n" +
		"https://example.org/gairai\tg_txt\t外科\n"
	records := URLCollect(raw)
	require.Len(t, records, 2)

	assert.Equal(t, "123", records[0].FacIDUnif)
	assert.Equal(t, "s", records[0].Type)
	assert.Equal(t, "医師紹介", records[0].PageTitle)

	assert.Equal(t, "https://example.org/gairai", records[1].URL)
	assert.Equal(t, "g_txt", records[1].Type)
	assert.Equal(t, "外科", records[1].Department)
}

func TestURLCollectNormalizesBadTypeCode(t *testing.T) {
	records := URLCollect("https://example.org/x\tweird\t内科\n")
	require.Len(t, records, 1)
	assert.Equal(t, "s", records[0].Type)
}

func TestDoctorInfoMinesTrailingColumns(t *testing.T) {
	raw := "1\t内科\t部長\t田中一\t循環器内科担当\t日本内科学会総合内科専門医\thttps://example.org/dr/1\n"
	records := DoctorInfo(raw)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "1", rec.OutputOrder)
	assert.Equal(t, "田中一", rec.Name)
	assert.Equal(t, "循環器", rec.Specialty)
	assert.Contains(t, rec.Licence, "専門医")
}

func TestDoctorInfoRepairsSwappedNameAndPosition(t *testing.T) {
	// Name column carries the title, position column carries the person.
	raw := "1\t内科\t田中一\t副院長\n"
	records := DoctorInfo(raw)
	require.Len(t, records, 1)
	assert.Equal(t, "田中一", records[0].Name)
	assert.Equal(t, "副院長", records[0].Position)
}

func TestDoctorInfoLicenceDedup(t *testing.T) {
	raw := "1\t内科\t医師\t田中一\t内科専門医 内科専門医\n"
	records := DoctorInfo(raw)
	require.Len(t, records, 1)
	assert.Equal(t, "内科専門医", records[0].Licence)
}

func TestOutpatientRelocatesTimeText(t *testing.T) {
	raw := "123\t市立病院\t内科\t月\t初診\t田中一\t部長\t毎週\t\t9:00〜12:00\t2026-01-01\thttps://example.org/s\n"
	records := Outpatient(raw)
	require.Len(t, records, 1)
	assert.Equal(t, "9:00〜12:00", records[0].ChargeDate)
	assert.Empty(t, records[0].Specialty)
}

func TestOutpatientDropsShortLines(t *testing.T) {
	assert.Empty(t, Outpatient("a\tb\tc\n"))
}

func TestFilterDoctorRecords(t *testing.T) {
	records := []job.DoctorRecord{
		{Name: "田中一", Department: "内科"},
		{Name: "山田太郎", Department: "内科"},  // sample name
		{Name: "循環器内科", Department: "内科"}, // department as name
		{Name: "〇〇", Department: "内科"},    // placeholder
		{Name: "佐々木二", Department: "外科", Others: "○○大学"},
	}
	kept, dropped := FilterDoctorRecords(records)
	require.Len(t, kept, 2)
	assert.Equal(t, 3, dropped)
	assert.Equal(t, "田中一", kept[0].Name)
	assert.Empty(t, kept[1].Others, "placeholder secondary field is blanked")
}

func TestTypePriorityOrdering(t *testing.T) {
	assert.Less(t, TypePriority("s"), TypePriority("sg_txt"))
	assert.Less(t, TypePriority("sg_txt"), TypePriority("g_txt"))
	assert.Less(t, TypePriority("g_img"), TypePriority("sg_pdf"))
	assert.Less(t, TypePriority("g_pdf"), TypePriority("bogus"))
}
