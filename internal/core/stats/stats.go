// Package stats aggregates per-item outcomes of a run: success and failure
// counts, failure reasons, and an alert when the failure rate climbs past a
// configured threshold.
package stats

import (
	"encoding/json"
	"sync"
	"time"

	"collector/internal/logger"
)

// HourLayout keys the hourly breakdown.
const HourLayout = "2006-01-02-15"

// Failure records one failed item with enough context to retry it by hand.
type Failure struct {
	Key     string `json:"key"`
	URL     string `json:"url,omitempty"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
	At      string `json:"at"`
}

// Snapshot is the JSON-serializable state of an aggregator.
type Snapshot struct {
	Total            int            `json:"total_processed"`
	Success          int            `json:"success_count"`
	Failed           int            `json:"failure_count"`
	FailureRate      float64        `json:"failure_rate"`
	FailureBreakdown map[Reason]int `json:"failure_breakdown"`
	ByHour           map[string]int `json:"processing_by_hour"`
	CompositeTypes   map[string]int `json:"composite_type_stats,omitempty"`
	Failures         []Failure      `json:"failures,omitempty"`
}

// Aggregator accumulates outcomes. All methods are safe for concurrent use;
// dispatcher workers report into a single shared instance.
type Aggregator struct {
	mu sync.Mutex

	total     int
	success   int
	failed    int
	byReason  map[Reason]int
	byHour    map[string]int
	composite map[string]int
	failures  []Failure

	alertThreshold float64
	logInterval    int
	alerting       bool

	log *logger.Logger
	now func() time.Time
}

// New creates an aggregator. alertThreshold is a failure-rate fraction in
// (0, 1]; logInterval is the item count between periodic summaries.
func New(alertThreshold float64, logInterval int) *Aggregator {
	return &Aggregator{
		byReason:       make(map[Reason]int),
		byHour:         make(map[string]int),
		composite:      make(map[string]int),
		alertThreshold: alertThreshold,
		logInterval:    logInterval,
		log:            logger.New("Statistics"),
		now:            time.Now,
	}
}

// Success records one successfully processed item.
func (a *Aggregator) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	a.success++
	a.byHour[a.now().Format(HourLayout)]++
	a.afterUpdateLocked()
}

// Failure records one failed item with its classified reason.
func (a *Aggregator) Failure(key, url string, err error) {
	reason := Classify(err)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	a.failed++
	a.byReason[reason]++
	a.byHour[a.now().Format(HourLayout)]++
	a.failures = append(a.failures, Failure{
		Key: key, URL: url, Reason: reason, Message: msg,
		At: a.now().Format(time.RFC3339),
	})
	a.afterUpdateLocked()
}

// CountType records a page type code observed during URL collection.
func (a *Aggregator) CountType(typeCode string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.composite[typeCode]++
}

// afterUpdateLocked re-evaluates the alert condition and emits the periodic
// summary. The alert is level-triggered: it logs on every update while the
// rate stays above the threshold.
func (a *Aggregator) afterUpdateLocked() {
	rate := a.rateLocked()
	if a.total > 0 && rate > a.alertThreshold {
		a.alerting = true
		a.log.LogWarnf("[ALERT:HIGH_AI_FAILURE_RATE] failure rate %.1f%% exceeds threshold %.1f%% (%d/%d failed)",
			rate*100, a.alertThreshold*100, a.failed, a.total)
	} else {
		a.alerting = false
	}
	if a.logInterval > 0 && a.total%a.logInterval == 0 {
		a.log.LogInfof("processed=%d success=%d failed=%d rate=%.1f%%",
			a.total, a.success, a.failed, rate*100)
	}
}

func (a *Aggregator) rateLocked() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.failed) / float64(a.total)
}

// Alerting reports whether the last update left the failure rate above the
// threshold.
func (a *Aggregator) Alerting() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alerting
}

// Snapshot returns a copy of the current state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		Total:            a.total,
		Success:          a.success,
		Failed:           a.failed,
		FailureRate:      a.rateLocked(),
		FailureBreakdown: make(map[Reason]int, len(a.byReason)),
		ByHour:           make(map[string]int, len(a.byHour)),
		CompositeTypes:   make(map[string]int, len(a.composite)),
		Failures:         make([]Failure, len(a.failures)),
	}
	for k, v := range a.byReason {
		s.FailureBreakdown[k] = v
	}
	for k, v := range a.byHour {
		s.ByHour[k] = v
	}
	for k, v := range a.composite {
		s.CompositeTypes[k] = v
	}
	copy(s.Failures, a.failures)
	return s
}

// MarshalSnapshot serializes the current state for persistence.
func (a *Aggregator) MarshalSnapshot() ([]byte, error) {
	return json.MarshalIndent(a.Snapshot(), "", "  ")
}

// LogSummary writes the final run summary.
func (a *Aggregator) LogSummary() {
	s := a.Snapshot()
	a.log.LogInfof("run summary: processed=%d success=%d failed=%d rate=%.1f%%",
		s.Total, s.Success, s.Failed, s.FailureRate*100)
	for reason, n := range s.FailureBreakdown {
		a.log.LogInfof("  %s: %d", reason, n)
	}
}
