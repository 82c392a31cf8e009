package federalreserve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regwatch/internal/model"
	"regwatch/internal/providers/common"
)

const newsPage = `<html><body>
<div class="nePanelBox">
  <div class="news__item">
    <p class="news__title"><a href="/newsevents/pressreleases/monetary20240131a.htm">Federal Reserve issues FOMC statement</a></p>
    <p class="news__date">1/31/2024</p>
  </div>
  <div class="news__item">
    <p class="news__title"><a href="/newsevents/speech/powell20240201a.htm">Speech by Chair Powell</a></p>
  </div>
</div>
<div class="news__item"><p class="news__title"><a href="/elsewhere.htm">Outside panel</a></p></div>
</body></html>`

func TestScraper_NewsPanel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/newsevents.htm" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(newsPage))
	}))
	defer srv.Close()

	scraper := NewScraper(srv.Client(), common.WithBaseURL(srv.URL))
	items, err := scraper.Scrape(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceName, scraper.Source())
	assert.Equal(t, []model.Item{
		{Title: "Federal Reserve issues FOMC statement", URL: srv.URL + "/newsevents/pressreleases/monetary20240131a.htm"},
		{Title: "Speech by Chair Powell", URL: srv.URL + "/newsevents/speech/powell20240201a.htm"},
	}, items)
}

func TestScraper_PageMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewScraper(srv.Client(), common.WithBaseURL(srv.URL)).Scrape(context.Background())
	assert.Error(t, err)
}
