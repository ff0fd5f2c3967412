package mapper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSiteCollectsMatchingLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<a href="/doctor/list">医師</a>
			<a href="/news/1">お知らせ</a>
		</body></html>`))
	})
	mux.HandleFunc("/doctor/list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="/doctor/naika">内科</a></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New()
	res, err := s.MapSite(context.Background(), Request{URL: srv.URL, Depth: 2, LinkLimit: 10, Patterns: []string{"/doctor*"}})
	require.NoError(t, err)
	assert.Contains(t, res.Links, srv.URL+"/doctor/list")
	assert.NotContains(t, res.Links, srv.URL+"/news/1")
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, matchesPattern("https://example.org/doctor/list", []string{"/doctor*"}))
	assert.True(t, matchesPattern("https://example.org/anything", nil))
	assert.False(t, matchesPattern("https://example.org/news", []string{"/doctor*"}))
}
