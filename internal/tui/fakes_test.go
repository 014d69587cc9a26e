package tui

import (
	"context"
	"sync"

	"github.com/mmcdole/marquee/internal/catalog"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/search"
)

type fakeSession struct {
	mu        sync.Mutex
	snap      domain.SessionSnapshot
	observers []domain.SessionObserver

	loginErr    error
	registerErr error
	resetErr    error
	logoutErr   error

	logins      []string
	registered  []string
	resets      []string
	logouts     int
	onboarded   int
	clearErrors int
}

func (f *fakeSession) Snapshot() domain.SessionSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Subscribe(observer domain.SessionObserver) func() {
	f.mu.Lock()
	f.observers = append(f.observers, observer)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.observers = nil
		f.mu.Unlock()
	}
}

func (f *fakeSession) Login(_ context.Context, email, _ string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, email)
	session := &domain.Session{ID: "uid-1", Email: domain.StringPtr(email)}
	if domain.IsOperationNotice(f.loginErr) {
		return session, f.loginErr
	}
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return session, nil
}

func (f *fakeSession) Register(_ context.Context, email, _, displayName string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, email)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &domain.Session{ID: "uid-2", Email: domain.StringPtr(email), DisplayName: domain.StringPtr(displayName)}, nil
}

func (f *fakeSession) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return f.logoutErr
}

func (f *fakeSession) SendPasswordReset(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, email)
	return f.resetErr
}

func (f *fakeSession) CompleteOnboarding() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onboarded++
}

func (f *fakeSession) ClearError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearErrors++
}

type fakeCatalog struct {
	mu        sync.Mutex
	streams   map[string]catalog.StreamView
	details   map[int]*domain.MediaDetails
	similar   map[int][]domain.MediaSummary
	videos    map[int][]domain.VideoRef
	people    map[int]*domain.PersonDetails
	fetches   []string
	refreshes []string
	cleared   int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		streams: make(map[string]catalog.StreamView),
		details: make(map[int]*domain.MediaDetails),
		similar: make(map[int][]domain.MediaSummary),
		videos:  make(map[int][]domain.VideoRef),
		people:  make(map[int]*domain.PersonDetails),
	}
}

// setItems makes key report one loaded page of items
func (f *fakeCatalog) setItems(key catalog.QueryKey, hasMore bool, items ...domain.MediaSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[key.String()] = catalog.StreamView{
		Key:     key,
		Enabled: key.Enabled(),
		Pages:   1,
		Items:   items,
		HasMore: hasMore,
	}
}

func (f *fakeCatalog) Stream(key catalog.QueryKey) catalog.StreamView {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.streams[key.String()]; ok {
		return v
	}
	return catalog.StreamView{Key: key, Enabled: key.Enabled(), HasMore: key.Enabled()}
}

func (f *fakeCatalog) FetchNext(_ context.Context, key catalog.QueryKey) (*domain.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, key.String())
	return &domain.CatalogPage{PageNumber: 1, TotalPages: 1}, nil
}

func (f *fakeCatalog) Refresh(_ context.Context, key catalog.QueryKey) (*domain.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, key.String())
	return &domain.CatalogPage{PageNumber: 1, TotalPages: 1}, nil
}

func (f *fakeCatalog) Details(_ context.Context, _ domain.MediaKind, id int) (*domain.MediaDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return nil, &domain.CatalogError{Kind: domain.CatalogNotFound}
}

func (f *fakeCatalog) Similar(_ context.Context, _ domain.MediaKind, id int) (*domain.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &domain.CatalogPage{PageNumber: 1, TotalPages: 1, Items: f.similar[id]}, nil
}

func (f *fakeCatalog) Videos(_ context.Context, _ domain.MediaKind, id int) ([]domain.VideoRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.videos[id], nil
}

func (f *fakeCatalog) Person(_ context.Context, personID int) (*domain.PersonDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.people[personID]; ok {
		return p, nil
	}
	return nil, &domain.CatalogError{Kind: domain.CatalogNotFound}
}

func (f *fakeCatalog) InvalidateAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	f.streams = make(map[string]catalog.StreamView)
}

type fakeSearcher struct {
	queries []string
	results []search.FilterResult
}

func (f *fakeSearcher) FilterLocal(query string, _ []catalog.QueryKey) []search.FilterResult {
	f.queries = append(f.queries, query)
	return f.results
}

type fakeLauncher struct {
	urls []string
}

func (f *fakeLauncher) Launch(url string) error {
	f.urls = append(f.urls, url)
	return nil
}
