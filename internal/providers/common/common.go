package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"regwatch/internal/model"
)

const (
	DefaultTimeout = 15 * time.Second
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// ErrNoItems is returned when the selector matched nothing on the page.
var ErrNoItems = errors.New("no items matched selector")

// SourceConfig describes where a source publishes its headline list.
type SourceConfig struct {
	Name     string
	BaseURL  string
	Path     string
	Selector string
}

// HeadlineScraper fetches one page and extracts (title, url) pairs from the
// anchors matching the configured selector.
type HeadlineScraper struct {
	cfg     SourceConfig
	client  *http.Client
	timeout time.Duration
}

type Option func(*HeadlineScraper)

// WithTimeout bounds each request. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(s *HeadlineScraper) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithBaseURL points the scraper at another host, used by tests.
func WithBaseURL(base string) Option {
	return func(s *HeadlineScraper) {
		s.cfg.BaseURL = base
	}
}

func NewHeadlineScraper(cfg SourceConfig, client *http.Client, options ...Option) *HeadlineScraper {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	s := &HeadlineScraper{cfg: cfg, client: client, timeout: DefaultTimeout}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *HeadlineScraper) Source() string {
	return s.cfg.Name
}

func (s *HeadlineScraper) Config() SourceConfig {
	return s.cfg
}

func (s *HeadlineScraper) Scrape(ctx context.Context) ([]model.Item, error) {
	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	page, err := base.Parse(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}

	doc, err := s.fetchDocument(ctx, page.String())
	if err != nil {
		return nil, err
	}

	items := ExtractItems(doc, base, s.cfg.Selector)
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

func (s *HeadlineScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ExtractItems returns one item per matched node in document order. Nodes
// without an href, or whose href cannot be resolved, are skipped; duplicates
// are kept.
func ExtractItems(doc *goquery.Document, base *url.URL, selector string) []model.Item {
	var items []model.Item
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		link, err := base.Parse(href)
		if err != nil {
			return
		}
		items = append(items, model.Item{
			Title: strings.TrimSpace(sel.Text()),
			URL:   link.String(),
		})
	})
	return items
}
