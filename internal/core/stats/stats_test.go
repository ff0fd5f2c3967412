package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Reason
	}{
		{errors.New("connection refused"), ReasonConnection},
		{errors.New("dns lookup failed"), ReasonConnection},
		{errors.New("request timed out"), ReasonTimeout},
		{context.DeadlineExceeded, ReasonTimeout},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), ReasonTimeout},
		{errors.New("429 Too Many Requests"), ReasonRateLimit},
		{errors.New("quota exhausted"), ReasonRateLimit},
		{errors.New("server returned 503"), ReasonAPI},
		{errors.New("model returned empty response"), ReasonEmptyResponse},
		{errors.New("decode failed: bad row"), ReasonParsing},
		{errors.New("something odd"), ReasonUnknown},
		{nil, ReasonUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err), "err=%v", c.err)
	}
}

func TestClassifyRateLimitBeatsStatusCode(t *testing.T) {
	// A 429 message also contains a status code digit sequence; the rate
	// limit class must win.
	assert.Equal(t, ReasonRateLimit, Classify(errors.New("api error 429: rate limit")))
}

func TestAggregatorCountsAndRate(t *testing.T) {
	a := New(0.5, 0)
	a.Success()
	a.Success()
	a.Failure("k1", "https://example.org", errors.New("timed out"))

	s := a.Snapshot()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Success)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 1.0/3.0, s.FailureRate, 1e-9)
	assert.Equal(t, 1, s.FailureBreakdown[ReasonTimeout])
	require.Len(t, s.Failures, 1)
	assert.Equal(t, "k1", s.Failures[0].Key)
}

func TestAggregatorAlertIsLevelTriggered(t *testing.T) {
	a := New(0.15, 0)
	a.Failure("k", "", errors.New("boom"))
	assert.True(t, a.Alerting())

	// Enough successes pull the rate back under the threshold.
	for i := 0; i < 20; i++ {
		a.Success()
	}
	assert.False(t, a.Alerting())
}

func TestAggregatorConcurrentUpdates(t *testing.T) {
	a := New(0.99, 0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); a.Success() }()
		go func() { defer wg.Done(); a.Failure("k", "", errors.New("x")) }()
	}
	wg.Wait()
	s := a.Snapshot()
	assert.Equal(t, 100, s.Total)
	assert.Equal(t, 50, s.Success)
	assert.Equal(t, 50, s.Failed)
}

func TestAggregatorCompositeTypeCounts(t *testing.T) {
	a := New(0.15, 0)
	a.CountType("s")
	a.CountType("sg_txt")
	a.CountType("sg_txt")
	s := a.Snapshot()
	assert.Equal(t, 1, s.CompositeTypes["s"])
	assert.Equal(t, 2, s.CompositeTypes["sg_txt"])
}

func TestMarshalSnapshot(t *testing.T) {
	a := New(0.15, 0)
	a.Success()
	b, err := a.MarshalSnapshot()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"total_processed": 1`)
}
