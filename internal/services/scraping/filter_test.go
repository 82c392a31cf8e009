package scraping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"regwatch/internal/model"
)

func TestFilter(t *testing.T) {
	items := []model.Item{
		{Title: "Rule X", URL: "https://a/1"},
		{Title: "Rule Y", URL: "https://a/2"},
		{Title: "Rule Z", URL: "https://a/3"},
		{Title: "Rule Y again", URL: "https://a/2"},
	}

	tests := []struct {
		name  string
		known map[string]struct{}
		want  []model.Item
	}{
		{
			name:  "empty history keeps everything",
			known: map[string]struct{}{},
			want:  items,
		},
		{
			name:  "nil history keeps everything",
			known: nil,
			want:  items,
		},
		{
			name:  "known urls removed in order",
			known: map[string]struct{}{"https://a/1": {}, "https://a/3": {}},
			want:  []model.Item{items[1], items[3]},
		},
		{
			name:  "all known",
			known: map[string]struct{}{"https://a/1": {}, "https://a/2": {}, "https://a/3": {}},
			want:  []model.Item{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filter(tt.known, items))
		})
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	known := map[string]struct{}{"https://a/1": {}}
	items := []model.Item{{Title: "A", URL: "https://a/1"}, {Title: "B", URL: "https://a/2"}}

	_ = Filter(known, items)

	assert.Len(t, known, 1)
	assert.Equal(t, "https://a/1", items[0].URL)
}
