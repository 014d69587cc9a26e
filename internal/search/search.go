// Package search filters and ranks catalog titles already held in memory
package search

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/mmcdole/marquee/internal/catalog"
	"github.com/mmcdole/marquee/internal/domain"
)

// StreamSource exposes accumulated pagination streams (catalog.Cache)
type StreamSource interface {
	Stream(key catalog.QueryKey) catalog.StreamView
}

// FilterItem represents a searchable item
type FilterItem struct {
	Item   domain.MediaSummary
	Title  string
	Kind   domain.MediaKind
	Source catalog.QueryKey // stream the item was found in
}

// FilterResult represents a search result with match metadata
type FilterResult struct {
	FilterItem
	MatchedIndexes []int
	Score          int // higher is better
}

// Service handles fuzzy search over cached catalog pages
type Service struct {
	streams StreamSource
	logger  *slog.Logger
}

// NewService creates a new search service
func NewService(streams StreamSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		streams: streams,
		logger:  logger,
	}
}

// FilterLocal searches titles already loaded for keys without touching the network.
// A title present in several streams is returned once.
func (s *Service) FilterLocal(query string, keys []catalog.QueryKey) []FilterResult {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	var items []FilterItem
	seen := make(map[string]bool)
	for _, key := range keys {
		for _, item := range s.streams.Stream(key).Items {
			id := string(item.Kind) + ":" + strconv.Itoa(item.ID)
			if seen[id] {
				continue
			}
			seen[id] = true
			items = append(items, FilterItem{
				Item:   item,
				Title:  item.Title,
				Kind:   item.Kind,
				Source: key,
			})
		}
	}

	results := Filter(query, items)
	s.logger.Debug("local filter", "query", query, "candidates", len(items), "results", len(results))
	return results
}
