package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/marquee/internal/domain"
)

// Rank reorders remote search results so titles that contain the query's
// characters in order come first, closest match first. The remaining
// results keep the order the server returned them in.
func Rank(query string, items []domain.MediaSummary) []domain.MediaSummary {
	query = strings.TrimSpace(query)
	if query == "" || len(items) < 2 {
		return items
	}

	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Title
	}

	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Stable(ranks)

	ranked := make([]domain.MediaSummary, 0, len(items))
	matched := make([]bool, len(items))
	for _, r := range ranks {
		ranked = append(ranked, items[r.OriginalIndex])
		matched[r.OriginalIndex] = true
	}
	for i, item := range items {
		if !matched[i] {
			ranked = append(ranked, item)
		}
	}
	return ranked
}
