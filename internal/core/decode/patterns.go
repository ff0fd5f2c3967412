package decode

import "regexp"

// Page type codes emitted by url_collect. "s" marks a personnel page,
// "g_*" a schedule page by medium, "sg_*" a page carrying both.
var validTypeCodes = map[string]struct{}{
	"s": {}, "g_txt": {}, "g_img": {}, "g_pdf": {}, "none": {},
	"sg_txt": {}, "sg_img": {}, "sg_pdf": {},
}

// typePriority orders page types when one page per facility must be chosen.
// Composite pages slot between their schedule counterparts.
var typePriority = map[string]float64{
	"s":      0,
	"sg_txt": 0.5,
	"g_txt":  1,
	"sg_img": 2.5,
	"g_img":  3,
	"sg_pdf": 3.5,
	"g_pdf":  4,
}

// specialtyTerms are medical field markers pulled out of free-text trailing
// columns into the specialty field.
var specialtyTerms = []string{
	"循環器", "消化器", "呼吸器", "腎臓", "糖尿病", "血液", "神経内科", "リウマチ",
	"感染症", "内分泌", "腫瘍", "一般外科", "心臓血管外科", "脳神経外科", "整形外科",
	"小児科", "産婦人科", "泌尿器科", "皮膚科", "眼科", "耳鼻咽喉科", "精神科",
	"放射線科", "麻酔科", "救急",
}

// licencePatterns match board certifications and academic titles.
var licencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`日本[\p{Han}ぁ-んァ-ヶー]+学会[\p{Han}ぁ-んァ-ヶー]*(?:専門医|認定医|指導医)`),
	regexp.MustCompile(`[\p{Han}ぁ-んァ-ヶー]+(?:専門医|認定医|指導医)`),
	regexp.MustCompile(`医学博士`),
	regexp.MustCompile(`[\p{Han}ぁ-んァ-ヶー]+評議員`),
	regexp.MustCompile(`[\p{Han}ぁ-んァ-ヶー]+理事`),
}

// positionPatterns recognize job titles. Used both to repair swapped
// name/position columns and to reject titles extracted as names.
var positionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^名誉院長$`),
	regexp.MustCompile(`^院長$`),
	regexp.MustCompile(`^副院長$`),
	regexp.MustCompile(`^.+部長$`),
	regexp.MustCompile(`^.+科長$`),
	regexp.MustCompile(`^.+医長$`),
	regexp.MustCompile(`^.+医員$`),
	regexp.MustCompile(`^診療部長$`),
	regexp.MustCompile(`^理事長$`),
	regexp.MustCompile(`^理事$`),
	regexp.MustCompile(`^医師$`),
}

// fakeNamePatterns match placeholder people the model invents when a page
// has no real roster.
var fakeNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`山田.*太郎`),
	regexp.MustCompile(`佐藤.*花子`),
	regexp.MustCompile(`鈴木.*一郎`),
	regexp.MustCompile(`田中.*三郎`),
	regexp.MustCompile(`高橋.*次郎`),
	regexp.MustCompile(`田中.*一郎`),
	regexp.MustCompile(`伊藤.*四郎`),
	regexp.MustCompile(`渡辺.*五郎`),
	regexp.MustCompile(`斉藤.*六郎`),
	regexp.MustCompile(`〇〇`),
	regexp.MustCompile(`○○`),
	regexp.MustCompile(`^〇+$`),
	regexp.MustCompile(`^○+$`),
}

// nameIsDepartmentPatterns reject department labels that leaked into the
// name column.
var nameIsDepartmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^内科$`),
	regexp.MustCompile(`^外科$`),
	regexp.MustCompile(`^小児科$`),
	regexp.MustCompile(`^.{3,}内科$`),
	regexp.MustCompile(`^.{3,}外科$`),
	regexp.MustCompile(`^.{4,}科$`),
}

// placeholderPatterns blank out masked values in secondary fields.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^〇〇$`),
	regexp.MustCompile(`^○○$`),
	regexp.MustCompile(`^△△$`),
	regexp.MustCompile(`^○○大学$`),
	regexp.MustCompile(`^[〇○△]+大学$`),
	regexp.MustCompile(`^[〇○△]{2,}$`),
}

// Sample values the model copies from prompt examples.
var (
	sampleNames       = []string{"山田太郎", "佐藤一郎", "鈴木次郎", "田中三郎", "サンプル", "テスト", "例", "example"}
	sampleDepartments = []string{"○○科", "サンプル科", "テスト科"}
	sampleFacilityIDs = []string{"123456789", "sample", "test"}
)

// timeRangePatterns detect clinic-hour text that belongs in charge_date, not
// specialty.
var timeRangePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}:\d{2}[〜～-]\d{1,2}:\d{2}`),
	regexp.MustCompile(`午前`),
	regexp.MustCompile(`午後`),
	regexp.MustCompile(`\d{1,2}時[〜～-]\d{1,2}時`),
	regexp.MustCompile(`\d{1,2}:\d{2}まで`),
}

var (
	codeFenceRe = regexp.MustCompile("```[^`]*```")
	urlFieldRe  = regexp.MustCompile(`^https?://\S+$`)
)

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// TypePriority returns the selection priority of a type code; unknown codes
// sort last.
func TypePriority(code string) float64 {
	if p, ok := typePriority[code]; ok {
		return p
	}
	return 100
}

// NormalizeTypeCode coerces unexpected model output to a known code.
func NormalizeTypeCode(code string) string {
	if _, ok := validTypeCodes[code]; ok {
		return code
	}
	return "s"
}
