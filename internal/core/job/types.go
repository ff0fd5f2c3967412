package job

import (
	"strconv"
	"time"

	"collector/internal/config"
)

// TimestampLayout is used for output_datetime style columns.
const TimestampLayout = "2006-01-02 15:04:05"

// FileTimestampLayout is used in output object names.
const FileTimestampLayout = "20060102_150405"

// Input is one row of the shared input table: a facility identifier and the
// page (or site root) to process.
type Input struct {
	FacIDUnif string
	URL       string
}

// URLRecord is one classified page found while crawling a facility site.
type URLRecord struct {
	FacIDUnif      string
	URL            string
	Type           string
	Department     string
	PageTitle      string
	UpdateDatetime string
	AIVersion      string
}

func (r URLRecord) Row() []string {
	return []string{r.FacIDUnif, r.URL, r.Type, r.Department, r.PageTitle, r.UpdateDatetime, r.AIVersion}
}

// DoctorRecord is one extracted personnel entry.
type DoctorRecord struct {
	FacIDUnif      string
	URL            string
	OutputOrder    string
	Department     string
	Position       string
	Name           string
	Specialty      string
	Licence        string
	Others         string
	OutputDatetime string
	AIVersion      string
}

func (r DoctorRecord) Row() []string {
	return []string{r.FacIDUnif, r.URL, r.OutputOrder, r.Department, r.Position, r.Name,
		r.Specialty, r.Licence, r.Others, r.OutputDatetime, r.AIVersion}
}

// OutpatientRecord is one cell of an outpatient schedule table.
type OutpatientRecord struct {
	FacIDUnif          string
	FacNm              string
	Department         string
	DayOfWeek          string
	FirstFollowupVisit string
	DoctorsName        string
	Position           string
	ChargeWeek         string
	ChargeDate         string
	Specialty          string
	UpdateDate         string
	URLSingleTable     string
	OutputDatetime     string
	AIVersion          string
}

func (r OutpatientRecord) Row() []string {
	return []string{r.FacIDUnif, r.FacNm, r.Department, r.DayOfWeek, r.FirstFollowupVisit,
		r.DoctorsName, r.Position, r.ChargeWeek, r.ChargeDate, r.Specialty,
		r.UpdateDate, r.URLSingleTable, r.OutputDatetime, r.AIVersion}
}

// Validation verdicts, strongest to weakest.
const (
	StatusValid    = "VALID"
	StatusPartial  = "PARTIAL"
	StatusInvalid  = "INVALID"
	StatusNotFound = "NOTFOUND"
)

// DoctorFields groups the six textual fields carried through validation, in
// their wire order: name leads both the original and corrected column blocks.
type DoctorFields struct {
	Name       string
	Department string
	Position   string
	Specialty  string
	Licence    string
	Others     string
}

func (f DoctorFields) row() []string {
	return []string{f.Name, f.Department, f.Position, f.Specialty, f.Licence, f.Others}
}

// ValidationRecord is the outcome of re-checking one previously extracted
// personnel record against its source page.
type ValidationRecord struct {
	FacIDUnif   string
	URL         string
	OutputOrder string

	Original  DoctorFields
	Status    string
	Message   string
	Corrected DoctorFields

	ValidationDatetime string
	AIVersion          string
}

func (r ValidationRecord) Row() []string {
	row := []string{r.FacIDUnif, r.URL, r.OutputOrder}
	row = append(row, r.Original.row()...)
	row = append(row, r.Status, r.Message)
	row = append(row, r.Corrected.row()...)
	return append(row, r.ValidationDatetime, r.AIVersion)
}

// Spec is the static shape of one job type: output schema, bucket layout and
// dispatch pacing.
type Spec struct {
	Type         config.JobType
	Header       []string
	BatchSize    int
	BatchPause   time.Duration
	OutputPrefix string
}

var specs = map[config.JobType]Spec{
	config.JobURLCollect: {
		Type: config.JobURLCollect,
		Header: []string{"fac_id_unif", "url", "type", "department", "page_title",
			"update_datetime", "ai_version"},
		BatchSize:    20,
		BatchPause:   500 * time.Millisecond,
		OutputPrefix: "url_collect",
	},
	config.JobDoctorInfo: {
		Type: config.JobDoctorInfo,
		Header: []string{"fac_id_unif", "url", "output_order", "department", "position",
			"name", "specialty", "licence", "others", "output_datetime", "ai_version"},
		BatchSize:    20,
		BatchPause:   500 * time.Millisecond,
		OutputPrefix: "doctor_info",
	},
	config.JobOutpatient: {
		Type: config.JobOutpatient,
		Header: []string{"fac_id_unif", "fac_nm", "department", "day_of_week",
			"first_followup_visit", "doctors_name", "position", "charge_week",
			"charge_date", "specialty", "update_date", "url_single_table",
			"output_datetime", "ai_version"},
		BatchSize:    30,
		BatchPause:   time.Second,
		OutputPrefix: "outpatient",
	},
	config.JobValidation: {
		Type: config.JobValidation,
		Header: []string{"fac_id_unif", "url", "output_order",
			"original_name", "original_department", "original_position",
			"original_specialty", "original_licence", "original_others",
			"validation_status", "validation_message",
			"corrected_name", "corrected_department", "corrected_position",
			"corrected_specialty", "corrected_licence", "corrected_others",
			"validation_datetime", "ai_version"},
		BatchSize:    5,
		BatchPause:   time.Second,
		OutputPrefix: "doctor_info_validation",
	},
}

// SpecFor returns the static spec for a job type. The second return is false
// for unknown types.
func SpecFor(t config.JobType) (Spec, bool) {
	s, ok := specs[t]
	return s, ok
}

// InputPath is the bucket object holding the job's shared input table.
func (s Spec) InputPath() string { return s.OutputPrefix + "/input/input.csv" }

// PromptPath is the bucket object holding the job's extraction prompt.
func (s Spec) PromptPath() string { return s.OutputPrefix + "/input/prompt.txt" }

// OutputPath names one shard's result table.
func (s Spec) OutputPath(taskIndex int, at time.Time) string {
	return s.OutputPrefix + "/tsv/" + string(s.Type) + "_result_task_" +
		strconv.Itoa(taskIndex) + "_" + at.Format(FileTimestampLayout) + ".tsv"
}

// LogPath names one shard's uploaded log capture.
func (s Spec) LogPath(taskIndex int, at time.Time) string {
	return s.OutputPrefix + "/log/" + string(s.Type) + "_task_" +
		strconv.Itoa(taskIndex) + "_" + at.Format(FileTimestampLayout) + ".log"
}

// StatisticsPath names one shard's persisted statistics snapshot.
func (s Spec) StatisticsPath(taskIndex int, at time.Time) string {
	return s.OutputPrefix + "/statistics/" + string(s.Type) + "_stats_task_" +
		strconv.Itoa(taskIndex) + "_" + at.Format(FileTimestampLayout) + ".json"
}
