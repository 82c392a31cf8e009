package scraping

import "regwatch/internal/model"

// Filter returns the items whose URL is not in known, in their original order.
func Filter(known map[string]struct{}, items []model.Item) []model.Item {
	fresh := make([]model.Item, 0, len(items))
	for _, item := range items {
		if _, seen := known[item.URL]; !seen {
			fresh = append(fresh, item)
		}
	}
	return fresh
}
