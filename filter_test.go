package reviewpress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reviewpress/reviewpress/store"
)

func titles(posts []store.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestFilterPosts(t *testing.T) {
	posts := publishedSample()

	tests := []struct {
		name     string
		search   string
		category string
		want     []string
	}{
		{"no filter", "", "", []string{"Chrome Soft Review", "Pro V1x Distance", "TP5 Design Notes"}},
		{"search lower", "chrome", "", []string{"Chrome Soft Review"}},
		{"search upper", "DESIGN", "", []string{"TP5 Design Notes"}},
		{"search padded", "  soft ", "", []string{"Chrome Soft Review"}},
		{"search miss", "zzz", "", []string{}},
		{"category", "", store.CategoryDistance, []string{"Pro V1x Distance"}},
		{"category outside set", "", "golf", []string{"Chrome Soft Review", "Pro V1x Distance", "TP5 Design Notes"}},
		{"category case matters", "", "Feel", []string{"Chrome Soft Review", "Pro V1x Distance", "TP5 Design Notes"}},
		{"both", "notes", store.CategoryDesign, []string{"TP5 Design Notes"}},
		{"both miss", "chrome", store.CategoryDesign, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titles(FilterPosts(posts, tt.search, tt.category)))
		})
	}
}
