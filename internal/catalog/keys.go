package catalog

import (
	"fmt"
	"strings"

	"github.com/mmcdole/marquee/internal/domain"
)

// Cache key prefixes
const (
	PrefixCategory = "category:"
	PrefixSearch   = "search:"
	PrefixDetails  = "details:"
	PrefixSimilar  = "similar:"
	PrefixVideos   = "videos:"
	PrefixPerson   = "person:"
)

// QueryKey identifies one independent pagination stream:
// a media kind plus either a category name or a literal search query.
type QueryKey struct {
	Kind     domain.MediaKind
	Category string
	Query    string
	Search   bool
}

// CategoryKey returns the key for a fixed category listing
func CategoryKey(kind domain.MediaKind, category string) QueryKey {
	return QueryKey{Kind: kind, Category: category}
}

// SearchKey returns the key for a free-text search. The query is kept literally.
func SearchKey(kind domain.MediaKind, query string) QueryKey {
	return QueryKey{Kind: kind, Query: query, Search: true}
}

// Enabled reports whether the key may issue requests. Blank searches are disabled.
func (k QueryKey) Enabled() bool {
	if k.Search {
		return strings.TrimSpace(k.Query) != ""
	}
	return k.Category != ""
}

// String returns the cache key (e.g. "category:movie:popular", "search:tv:the office")
func (k QueryKey) String() string {
	if k.Search {
		return PrefixSearch + string(k.Kind) + ":" + k.Query
	}
	return PrefixCategory + string(k.Kind) + ":" + k.Category
}

func pageFlightKey(k QueryKey, page int) string {
	return fmt.Sprintf("%s#%d", k, page)
}

func entityKey(prefix string, kind domain.MediaKind, id int) string {
	return fmt.Sprintf("%s%s:%d", prefix, kind, id)
}
