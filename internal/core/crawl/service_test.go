package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collector/internal/core/fetch"
)

func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>市立病院</title></head><body>
			<a href="/doctors/">医師紹介</a>
			<a href="/access/">アクセス</a>
			<a href="/privacy/">プライバシーポリシー</a>
			<a href="https://other.example.com/">外部</a>
		</body></html>`))
	})
	mux.HandleFunc("/doctors/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>医師紹介</title></head><body>
			<h1>医師紹介</h1><p>内科 部長 田中一</p>
			<a href="/doctors/naika/">内科</a>
		</body></html>`))
	})
	mux.HandleFunc("/doctors/naika/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>内科</title></head><body>
			<p>担当医 佐々木二</p></body></html>`))
	})
	mux.HandleFunc("/access/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>アクセス</title></head><body><p>地図</p></body></html>`))
	})
	return httptest.NewServer(mux)
}

func newTestService(opts Options) *Service {
	f := fetch.New(fetch.Options{Timeout: 5 * time.Second, MaxContentLength: 30000})
	opts.Delay = time.Millisecond
	return New(f, nil, opts)
}

func TestCrawlSiteFindsDoctorPages(t *testing.T) {
	srv := testSite(t)
	defer srv.Close()

	s := newTestService(Options{MaxDepth: 2, MaxPages: 50})
	found, err := s.CrawlSite(context.Background(), srv.URL)
	require.NoError(t, err)

	urls := make([]string, 0, len(found))
	for _, c := range found {
		urls = append(urls, c.URL)
	}
	assert.Contains(t, urls, srv.URL+"/doctors/")
	assert.NotContains(t, urls, srv.URL+"/privacy/")
	for _, c := range found {
		assert.NotContains(t, c.URL, "other.example.com")
	}
}

func TestCrawlSiteHonorsDepthLimit(t *testing.T) {
	srv := testSite(t)
	defer srv.Close()

	s := newTestService(Options{MaxDepth: 1, MaxPages: 50})
	found, err := s.CrawlSite(context.Background(), srv.URL)
	require.NoError(t, err)
	for _, c := range found {
		assert.LessOrEqual(t, c.Depth, 1)
		assert.NotContains(t, c.URL, "/naika")
	}
}

func TestCrawlSiteHonorsPageBudget(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		// Every page links to two fresh pages; only the budget stops this.
		_, _ = w.Write([]byte(`<html><body>医師
			<a href="` + r.URL.Path + `a/">a</a>
			<a href="` + r.URL.Path + `b/">b</a>
		</body></html>`))
	}))
	defer srv.Close()

	s := newTestService(Options{MaxDepth: 10, MaxPages: 5})
	_, err := s.CrawlSite(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, hits, 5*2+1, "fetch count stays near the page budget")
}

func TestCrawlSiteStopsOnCancel(t *testing.T) {
	srv := testSite(t)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestService(Options{MaxDepth: 2, MaxPages: 50})
	_, err := s.CrawlSite(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrawlSiteRejectsBadRoot(t *testing.T) {
	s := newTestService(Options{})
	_, err := s.CrawlSite(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestMediumFor(t *testing.T) {
	assert.Equal(t, MediumText, MediumFor(mustDoc(t, `<body><table><tr><td>月</td></tr></table></body>`)))
	assert.Equal(t, MediumImage, MediumFor(mustDoc(t, `<body><img src="/img/gairai_schedule.png"></body>`)))
	assert.Equal(t, MediumPDF, MediumFor(mustDoc(t, `<body><a href="/files/schedule.pdf">外来表</a></body>`)))
	assert.Equal(t, MediumText, MediumFor(mustDoc(t, `<body><p>文章のみ</p></body>`)))
}

func TestTypeCode(t *testing.T) {
	both := PageScore{Doctor: 2, Schedule: 1}
	assert.Equal(t, "sg_txt", TypeCode(both, MediumText, true))
	assert.Equal(t, "s", TypeCode(both, MediumText, false))
	assert.Equal(t, "g_img", TypeCode(PageScore{Schedule: 1}, MediumImage, true))
	assert.Equal(t, "s", TypeCode(PageScore{Doctor: 1}, MediumText, true))
	assert.Equal(t, "none", TypeCode(PageScore{}, MediumText, true))
}

func TestMergeTypeCode(t *testing.T) {
	assert.Equal(t, "sg_txt", MergeTypeCode("s", "sg_txt", true))
	assert.Equal(t, "sg_pdf", MergeTypeCode("g_pdf", "sg_pdf", true))
	assert.Equal(t, "s", MergeTypeCode("s", "sg_txt", false))
	assert.Equal(t, "none", MergeTypeCode("none", "sg_txt", true))
	assert.Equal(t, "g_txt", MergeTypeCode("g_txt", "s", true))
}
