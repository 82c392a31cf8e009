package model

import "strings"

// Item is a single headline scraped from a source page. URL is its identity.
type Item struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// HistoryRecord is one persisted row of the history store.
type HistoryRecord struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

func RecordsFor(source string, items []Item) []HistoryRecord {
	records := make([]HistoryRecord, 0, len(items))
	for _, item := range items {
		records = append(records, HistoryRecord{Title: item.Title, URL: item.URL, Source: source})
	}
	return records
}

const DigestPreamble = "Here are the new links:\n\n"

// FormatDigest renders the notification body: the preamble followed by one
// "title: url" line per item.
func FormatDigest(items []Item) string {
	var b strings.Builder
	b.WriteString(DigestPreamble)
	for _, item := range items {
		b.WriteString(item.Title)
		b.WriteString(": ")
		b.WriteString(item.URL)
		b.WriteString("\n")
	}
	return b.String()
}
