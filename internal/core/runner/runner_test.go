package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collector/internal/config"
	"collector/internal/core/crawl"
	"collector/internal/core/fetch"
	"collector/internal/core/job"
	"collector/internal/platform/gemini"
	"collector/internal/platform/storage"
)

type fakeAI struct {
	respond func(prompt string, payload *fetch.Content) (string, error)
	calls   int
}

func (f *fakeAI) Generate(_ context.Context, prompt string, payload *fetch.Content, _ gemini.Params) (*gemini.Result, error) {
	f.calls++
	text, err := f.respond(prompt, payload)
	if err != nil {
		return nil, err
	}
	return &gemini.Result{Text: text}, nil
}

func (f *fakeAI) Model() string { return "test-model" }

type fakeCrawler struct {
	candidates []crawl.Candidate
}

func (f *fakeCrawler) CrawlSite(_ context.Context, _ string) ([]crawl.Candidate, error) {
	return f.candidates, nil
}

func testConfig(jobType config.JobType) config.Config {
	return config.Config{
		JobType:                   jobType,
		TaskIndex:                 0,
		TaskCount:                 1,
		AITimeout:                 5 * time.Second,
		MaxRetries:                0,
		RetryDelay:                10 * time.Millisecond,
		MaxContentLength:          30000,
		RequestTimeout:            5 * time.Second,
		MaxConcurrentRequests:     2,
		FailureRateAlertThreshold: 0.5,
	}
}

func newFetcher() *fetch.Client {
	return fetch.New(fetch.Options{Timeout: 5 * time.Second, MaxContentLength: 30000})
}

func seedInput(t *testing.T, store storage.Store, spec job.Spec, csv string) {
	t.Helper()
	require.NoError(t, store.WriteFile(context.Background(), spec.InputPath(), []byte(csv), "text/csv"))
	require.NoError(t, store.WriteFile(context.Background(), spec.PromptPath(), []byte("extract"), "text/plain"))
}

func readOutput(t *testing.T, store *storage.Local, spec job.Spec, taskIndex int, startedAt time.Time) []string {
	t.Helper()
	data, err := store.ReadFile(context.Background(), spec.OutputPath(taskIndex, startedAt))
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRunDoctorInfo(t *testing.T) {
	page := `<html><head><title>医師紹介</title></head><body>
		<h1>内科</h1>
		<p>部長 田中 太郎（循環器専門医）</p>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	ai := &fakeAI{respond: func(_ string, payload *fetch.Content) (string, error) {
		assert.Equal(t, fetch.KindText, payload.Kind)
		return "1\t内科\t部長\t田中 太郎\t循環器専門医", nil
	}}

	store := storage.NewLocal(t.TempDir())
	spec, _ := job.SpecFor(config.JobDoctorInfo)
	seedInput(t, store, spec, "fac_id_unif,URL\nF001,"+srv.URL+"/\n")

	r, err := New(testConfig(config.JobDoctorInfo), store, ai, newFetcher())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	lines := readOutput(t, store, spec, 0, r.startedAt)
	require.Len(t, lines, 2)
	fields := strings.Split(lines[1], "\t")
	assert.Equal(t, "F001", fields[0])
	assert.Equal(t, "田中 太郎", fields[5])
	assert.Equal(t, "循環器", fields[6])
	assert.Equal(t, "test-model", fields[10])

	// Statistics snapshot lands next to the table.
	_, err = store.ReadFile(context.Background(), spec.StatisticsPath(0, r.startedAt))
	assert.NoError(t, err)
}

func TestRunDoctorInfoDropsUnattestedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>内科 部長 田中 太郎</p></body></html>`))
	}))
	defer srv.Close()

	ai := &fakeAI{respond: func(string, *fetch.Content) (string, error) {
		return "1\t内科\t部長\t田中 太郎\n2\t外科\t医長\t架空 医師", nil
	}}

	store := storage.NewLocal(t.TempDir())
	spec, _ := job.SpecFor(config.JobDoctorInfo)
	seedInput(t, store, spec, "fac_id_unif,URL\nF001,"+srv.URL+"/\n")

	r, err := New(testConfig(config.JobDoctorInfo), store, ai, newFetcher())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	lines := readOutput(t, store, spec, 0, r.startedAt)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "田中 太郎")
	assert.NotContains(t, strings.Join(lines, "\n"), "架空 医師")
}

func TestRunURLCollect(t *testing.T) {
	ai := &fakeAI{respond: func(_ string, payload *fetch.Content) (string, error) {
		return payload.URL + "\ts\t内科", nil
	}}

	store := storage.NewLocal(t.TempDir())
	spec, _ := job.SpecFor(config.JobURLCollect)
	seedInput(t, store, spec, "fac_id_unif,URL\nF001,https://hospital.example.org/\n")

	r, err := New(testConfig(config.JobURLCollect), store, ai, newFetcher())
	require.NoError(t, err)
	r.crawler = &fakeCrawler{candidates: []crawl.Candidate{
		{URL: "https://hospital.example.org/doctors/", Title: "医師紹介", TypeHint: "s"},
	}}

	require.NoError(t, r.Run(context.Background()))

	lines := readOutput(t, store, spec, 0, r.startedAt)
	require.Len(t, lines, 2)
	fields := strings.Split(lines[1], "\t")
	assert.Equal(t, "F001", fields[0])
	assert.Equal(t, "https://hospital.example.org/doctors/", fields[1])
	assert.Equal(t, "s", fields[2])
	assert.Equal(t, "医師紹介", fields[4])
}

func TestRunValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>内科 部長 田中 太郎</p></body></html>`))
	}))
	defer srv.Close()

	ai := &fakeAI{respond: func(prompt string, _ *fetch.Content) (string, error) {
		// The record's fields are rendered into the prompt.
		assert.Contains(t, prompt, "田中 太郎")
		return "VALID\t一致\t田中 太郎\t内科\t部長\t\t\t", nil
	}}

	store := storage.NewLocal(t.TempDir())
	spec, _ := job.SpecFor(config.JobValidation)
	seedInput(t, store, spec,
		"fac_id_unif,url,output_order,department,position,name,specialty,licence,others\n"+
			"F001,"+srv.URL+"/,1,内科,部長,田中 太郎,,,\n")
	require.NoError(t, store.WriteFile(context.Background(), spec.PromptPath(),
		[]byte("検証対象: {name} / {department}"), "text/plain"))

	r, err := New(testConfig(config.JobValidation), store, ai, newFetcher())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	lines := readOutput(t, store, spec, 0, r.startedAt)
	require.Len(t, lines, 2)
	fields := strings.Split(lines[1], "\t")
	assert.Equal(t, "VALID", fields[9])
	// Name leads both the original and corrected column blocks.
	assert.Equal(t, "田中 太郎", fields[3])
	assert.Equal(t, "内科", fields[4])
	assert.Equal(t, "田中 太郎", fields[11])
	assert.Equal(t, "内科", fields[12])
}

func TestRunValidationRecordsNotFoundOnFailure(t *testing.T) {
	ai := &fakeAI{respond: func(string, *fetch.Content) (string, error) {
		t.Error("model must not be called when the page fetch fails")
		return "", nil
	}}

	store := storage.NewLocal(t.TempDir())
	spec, _ := job.SpecFor(config.JobValidation)
	seedInput(t, store, spec,
		"fac_id_unif,url,output_order,department,position,name,specialty,licence,others\n"+
			"F001,http://127.0.0.1:1/,1,内科,部長,田中 太郎,,,\n")

	r, err := New(testConfig(config.JobValidation), store, ai, newFetcher())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	lines := readOutput(t, store, spec, 0, r.startedAt)
	require.Len(t, lines, 2)
	fields := strings.Split(lines[1], "\t")
	assert.Equal(t, "NOTFOUND", fields[9])
	assert.Contains(t, fields[10], "processing failed")
	// The original fields survive into the output row.
	assert.Equal(t, "田中 太郎", fields[3])
}

func TestRunMissingPromptFallsBackToDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>内科 部長 田中 太郎</p></body></html>`))
	}))
	defer srv.Close()

	var seenPrompt string
	ai := &fakeAI{respond: func(prompt string, _ *fetch.Content) (string, error) {
		seenPrompt = prompt
		return "1\t内科\t部長\t田中 太郎", nil
	}}

	store := storage.NewLocal(t.TempDir())
	spec, _ := job.SpecFor(config.JobDoctorInfo)
	// Input only, no prompt object.
	require.NoError(t, store.WriteFile(context.Background(), spec.InputPath(),
		[]byte("fac_id_unif,URL\nF001,"+srv.URL+"/\n"), "text/csv"))

	r, err := New(testConfig(config.JobDoctorInfo), store, ai, newFetcher())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, seenPrompt, "TSV")
}
