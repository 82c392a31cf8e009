package federalreserve

import (
	"net/http"

	"regwatch/internal/providers/common"
)

const SourceName = "Federal Reserve"

// Config targets the news panel on the Board's news and events page.
var Config = common.SourceConfig{
	Name:     SourceName,
	BaseURL:  "https://www.federalreserve.gov",
	Path:     "/newsevents.htm",
	Selector: ".nePanelBox .news__item .news__title a",
}

func NewScraper(client *http.Client, options ...common.Option) *common.HeadlineScraper {
	return common.NewHeadlineScraper(Config, client, options...)
}
