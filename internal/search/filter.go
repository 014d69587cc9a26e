package search

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// filterIndex implements fuzzy.Source over pre-lowercased titles
type filterIndex struct {
	items       []FilterItem
	lowerTitles []string
}

func (idx *filterIndex) String(i int) string { return idx.lowerTitles[i] }

func (idx *filterIndex) Len() int { return len(idx.items) }

// Filter matches query against item titles, best match first.
// MatchedIndexes are byte positions in the title, for highlighting.
func Filter(query string, items []FilterItem) []FilterResult {
	query = strings.TrimSpace(query)
	if query == "" || len(items) == 0 {
		return nil
	}

	idx := &filterIndex{
		items:       items,
		lowerTitles: make([]string, len(items)),
	}
	for i, item := range items {
		idx.lowerTitles[i] = strings.ToLower(item.Title)
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), idx)

	results := make([]FilterResult, len(matches))
	for i, m := range matches {
		results[i] = FilterResult{
			FilterItem:     items[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// FilterTitles returns the indexes of titles matching query, best match first
func FilterTitles(query string, titles []string) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	lower := make([]string, len(titles))
	for i, t := range titles {
		lower[i] = strings.ToLower(t)
	}

	matches := fuzzy.Find(strings.ToLower(query), lower)
	indexes := make([]int, len(matches))
	for i, m := range matches {
		indexes[i] = m.Index
	}
	return indexes
}
