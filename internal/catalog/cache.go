package catalog

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/marquee/internal/domain"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrPageOutOfOrder is returned when a page is requested before its predecessor is known
	ErrPageOutOfOrder = errors.New("page requested before previous page")

	// ErrFetchInFlight is returned by GetPage while another page or a refresh
	// of the same key is being fetched
	ErrFetchInFlight = errors.New("fetch already in flight")
)

// stream is the accumulated pagination state of one QueryKey.
// Pages 1..last are contiguous and cached; last+1 is the only fetchable page.
type stream struct {
	key        QueryKey
	pages      []*domain.CatalogPage // pages[i] is page i+1
	totalPages int
	err        error // last fetch error, cleared by the next success
	inFlight   int   // page fetches currently running for this key
	elem       *list.Element
}

func (st *stream) last() int { return len(st.pages) }

func (st *stream) exhausted() bool {
	return st.last() > 0 && st.last() >= st.totalPages
}

// StreamView is a read-only snapshot of a pagination stream for rendering.
// Err and Items can both be set: stale data is shown alongside the failure.
type StreamView struct {
	Key        QueryKey
	Enabled    bool
	Pages      int
	TotalPages int
	Items      []domain.MediaSummary
	Err        error
	Loading    bool
	HasMore    bool
}

// Cache wraps a CatalogClient with per-query caching, request coalescing
// and incremental pagination. Nothing is persisted; streams live for the process.
type Cache struct {
	client domain.CatalogClient
	logger *slog.Logger

	group singleflight.Group

	mu         sync.Mutex
	streams    map[string]*stream
	lru        *list.List // front = most recently used stream key
	maxStreams int        // 0 = unbounded
	entities   map[string]any
	epoch      uint64 // bumped by InvalidateAll; older entity results are not stored
}

// NewCache creates a catalog cache. maxStreams caps the number of pagination
// streams kept; the least recently used stream is dropped first. 0 means unbounded.
func NewCache(client domain.CatalogClient, maxStreams int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if maxStreams < 0 {
		maxStreams = 0
	}
	return &Cache{
		client:     client,
		logger:     logger,
		streams:    make(map[string]*stream),
		lru:        list.New(),
		maxStreams: maxStreams,
		entities:   make(map[string]any),
	}
}

// streamLocked returns the stream for key, creating it if needed. Caller holds c.mu.
func (c *Cache) streamLocked(key QueryKey) *stream {
	k := key.String()
	if st, ok := c.streams[k]; ok {
		c.lru.MoveToFront(st.elem)
		return st
	}

	st := &stream{key: key}
	st.elem = c.lru.PushFront(k)
	c.streams[k] = st
	c.evictLocked()
	return st
}

func (c *Cache) evictLocked() {
	if c.maxStreams == 0 {
		return
	}
	for c.lru.Len() > c.maxStreams {
		oldest := c.lru.Back()
		k := oldest.Value.(string)
		c.lru.Remove(oldest)
		delete(c.streams, k)
		c.logger.Debug("evicted catalog stream", "key", k)
	}
}

// GetPage returns page n of key, from cache when present. Concurrent callers
// for the same (key, page) share one request. Pages must be requested in
// order: n may be at most one past the last cached page. Fetches for one key
// never overlap; a different flight for key yields ErrFetchInFlight.
func (c *Cache) GetPage(ctx context.Context, key QueryKey, n int) (*domain.CatalogPage, error) {
	if !key.Enabled() {
		return emptyPage(), nil
	}
	if n < 1 {
		return nil, fmt.Errorf("invalid page number %d", n)
	}

	c.mu.Lock()
	st := c.streamLocked(key)
	if n <= st.last() {
		page := st.pages[n-1]
		c.mu.Unlock()
		return page, nil
	}
	if n > st.last()+1 {
		last := st.last()
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s page %d (last %d)", ErrPageOutOfOrder, key, n, last)
	}
	if st.exhausted() {
		c.mu.Unlock()
		return nil, &domain.CatalogError{Kind: domain.CatalogNotFound, Err: fmt.Errorf("%s has %d pages", key, st.totalPages)}
	}
	c.mu.Unlock()

	return c.fetchPage(ctx, key, n)
}

// FetchNext fetches the page after the last cached one. It returns (nil, nil)
// without issuing a request when the stream is exhausted, disabled, or a
// fetch for the key is already in flight.
func (c *Cache) FetchNext(ctx context.Context, key QueryKey) (*domain.CatalogPage, error) {
	if !key.Enabled() {
		return nil, nil
	}

	c.mu.Lock()
	st := c.streamLocked(key)
	if st.inFlight > 0 || st.exhausted() {
		c.mu.Unlock()
		return nil, nil
	}
	next := st.last() + 1
	c.mu.Unlock()

	page, err := c.fetchPage(ctx, key, next)
	if errors.Is(err, ErrFetchInFlight) {
		return nil, nil
	}
	return page, err
}

// fetchPage runs (or joins) the single request for (key, n) and records the result.
// The shared request is detached from the caller's cancellation: a late result
// still lands in the cache, addressed by key.
func (c *Cache) fetchPage(ctx context.Context, key QueryKey, n int) (*domain.CatalogPage, error) {
	flightKey := pageFlightKey(key, n)

	ch := c.group.DoChan(flightKey, func() (any, error) {
		c.mu.Lock()
		st := c.streamLocked(key)
		if n <= st.last() {
			// A flight for this page finished between the caller's cache check and now
			page := st.pages[n-1]
			c.mu.Unlock()
			return page, nil
		}
		if st.inFlight > 0 {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrFetchInFlight, key)
		}
		st.inFlight++
		c.mu.Unlock()

		page, err := c.request(context.WithoutCancel(ctx), key, n)

		c.mu.Lock()
		defer c.mu.Unlock()
		st.inFlight--
		c.recordLocked(st, n, page, err)
		return page, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		page, _ := res.Val.(*domain.CatalogPage)
		return page, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) request(ctx context.Context, key QueryKey, n int) (*domain.CatalogPage, error) {
	if key.Search {
		return c.client.Search(ctx, key.Kind, key.Query, n)
	}
	return c.client.ListByCategory(ctx, key.Kind, key.Category, n)
}

// recordLocked applies a fetch result to st. Results for streams that were
// evicted or replaced meanwhile are dropped.
func (c *Cache) recordLocked(st *stream, n int, page *domain.CatalogPage, err error) {
	if c.streams[st.key.String()] != st {
		return
	}
	if err != nil {
		st.err = err
		c.logger.Warn("catalog page fetch failed", "key", st.key.String(), "page", n, "error", err)
		return
	}
	if n != st.last()+1 {
		// Stream was refreshed while this page was in flight
		return
	}
	st.pages = append(st.pages, page)
	st.totalPages = page.TotalPages
	st.err = nil
	c.logger.Debug("cached catalog page", "key", st.key.String(), "page", n, "total", page.TotalPages, "items", len(page.Items))
}

// Refresh refetches page 1 of key. On success the stream restarts from that
// page; on failure the previously cached pages are kept and the error recorded.
// While a page fetch for key is in flight it returns (nil, nil) without a request.
func (c *Cache) Refresh(ctx context.Context, key QueryKey) (*domain.CatalogPage, error) {
	if !key.Enabled() {
		return emptyPage(), nil
	}

	ch := c.group.DoChan("refresh:"+key.String(), func() (any, error) {
		c.mu.Lock()
		st := c.streamLocked(key)
		if st.inFlight > 0 {
			c.mu.Unlock()
			c.logger.Debug("refresh skipped, fetch in flight", "key", key.String())
			return nil, nil
		}
		st.inFlight++
		c.mu.Unlock()

		page, err := c.request(context.WithoutCancel(ctx), key, 1)

		c.mu.Lock()
		defer c.mu.Unlock()
		st.inFlight--
		if c.streams[key.String()] != st {
			return page, err
		}
		if err != nil {
			st.err = err
			c.logger.Warn("catalog refresh failed", "key", key.String(), "error", err)
			return nil, err
		}
		st.pages = []*domain.CatalogPage{page}
		st.totalPages = page.TotalPages
		st.err = nil
		return page, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		page, _ := res.Val.(*domain.CatalogPage)
		return page, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stream returns the accumulated state of key
func (c *Cache) Stream(key QueryKey) StreamView {
	view := StreamView{Key: key, Enabled: key.Enabled()}
	if !view.Enabled {
		return view
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.streams[key.String()]
	if !ok {
		view.HasMore = true
		return view
	}

	view.Pages = st.last()
	view.TotalPages = st.totalPages
	view.Err = st.err
	view.Loading = st.inFlight > 0
	view.HasMore = !st.exhausted()
	for _, p := range st.pages {
		view.Items = append(view.Items, p.Items...)
	}
	return view
}

// Invalidate drops every cached page of key
func (c *Cache) Invalidate(key QueryKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key.String()
	if st, ok := c.streams[k]; ok {
		c.lru.Remove(st.elem)
		delete(c.streams, k)
	}
}

// InvalidateAll drops all cached streams and entities. Fetches still in
// flight complete for their callers but are not cached.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.streams = make(map[string]*stream)
	c.lru.Init()
	c.entities = make(map[string]any)
	c.epoch++
}

// Len returns the number of cached pagination streams
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.streams)
}

func emptyPage() *domain.CatalogPage {
	return &domain.CatalogPage{PageNumber: 1, TotalPages: 1}
}
