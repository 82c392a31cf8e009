package occ

import (
	"net/http"

	"regwatch/internal/providers/common"
)

const SourceName = "OCC"

// Config targets the card-list layout on the OCC home page.
var Config = common.SourceConfig{
	Name:     SourceName,
	BaseURL:  "https://www.occ.gov",
	Path:     "/",
	Selector: ".usa-card-group .usa-card__body a",
}

func NewScraper(client *http.Client, options ...common.Option) *common.HeadlineScraper {
	return common.NewHeadlineScraper(Config, client, options...)
}
