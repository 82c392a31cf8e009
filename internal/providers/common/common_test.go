package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regwatch/internal/model"
)

const listPage = `<html><body>
<ul class="list">
  <li><a href="/news/1.html">  First item
  </a></li>
  <li><a href="https://other.example.com/2">Second item</a></li>
  <li><a>No href</a></li>
  <li><a href="/news/1.html">First item</a></li>
</ul>
</body></html>`

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/list" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHeadlineScraper_Scrape(t *testing.T) {
	srv := newServer(t, http.StatusOK, listPage)
	scraper := NewHeadlineScraper(SourceConfig{
		Name:     "Test",
		BaseURL:  srv.URL,
		Path:     "/list",
		Selector: ".list li a",
	}, srv.Client())

	items, err := scraper.Scrape(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Test", scraper.Source())
	assert.Equal(t, []model.Item{
		{Title: "First item", URL: srv.URL + "/news/1.html"},
		{Title: "Second item", URL: "https://other.example.com/2"},
		{Title: "First item", URL: srv.URL + "/news/1.html"},
	}, items)
}

func TestHeadlineScraper_NonOKStatus(t *testing.T) {
	srv := newServer(t, http.StatusServiceUnavailable, listPage)
	scraper := NewHeadlineScraper(SourceConfig{Name: "Test", BaseURL: srv.URL, Path: "/list", Selector: "a"}, srv.Client())

	_, err := scraper.Scrape(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHeadlineScraper_SelectorMismatch(t *testing.T) {
	srv := newServer(t, http.StatusOK, listPage)
	scraper := NewHeadlineScraper(SourceConfig{Name: "Test", BaseURL: srv.URL, Path: "/list", Selector: ".missing a"}, srv.Client())

	_, err := scraper.Scrape(context.Background())
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestHeadlineScraper_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	scraper := NewHeadlineScraper(SourceConfig{Name: "Slow", BaseURL: srv.URL, Path: "/", Selector: "a"},
		srv.Client(), WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := scraper.Scrape(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWithBaseURL(t *testing.T) {
	scraper := NewHeadlineScraper(SourceConfig{Name: "X", BaseURL: "https://a.example"}, nil, WithBaseURL("http://b.example"))
	assert.Equal(t, "http://b.example", scraper.Config().BaseURL)
}

func TestExtractItems_ResolvesRelativeLinks(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div class="x"><a href="press/a.htm">A</a><a href="../b.htm">B</a></div>`))
	require.NoError(t, err)
	base, err := url.Parse("https://www.example.gov/news/")
	require.NoError(t, err)

	items := ExtractItems(doc, base, ".x a")

	assert.Equal(t, []model.Item{
		{Title: "A", URL: "https://www.example.gov/news/press/a.htm"},
		{Title: "B", URL: "https://www.example.gov/b.htm"},
	}, items)
}
