package tui

import (
	"github.com/mmcdole/marquee/internal/domain"
)

// PageKind identifies what a drill-down page shows
type PageKind int

const (
	PageDetails PageKind = iota
	PagePerson
)

// Page is one drill-down screen above the browse tabs.
// Content is nil until its load message arrives.
type Page struct {
	Kind      PageKind
	MediaKind domain.MediaKind
	ID        int
	Title     string

	Details *domain.MediaDetails
	Similar []domain.MediaSummary
	Person  *domain.PersonDetails

	Cursor int // saved link selection for back navigation
}

// Loaded reports whether the page content has arrived
func (p *Page) Loaded() bool {
	if p.Kind == PagePerson {
		return p.Person != nil
	}
	return p.Details != nil
}

// PageStack manages detail and person pages pushed over the main tabs.
//
//	Browse:  [Popular movies | Info]
//	Details: [Inception]
//	Person:  [Inception > Leonardo DiCaprio]
//
// An empty stack means the tab content is showing.
type PageStack struct {
	pages []*Page
}

// NewPageStack creates a new empty page stack
func NewPageStack() *PageStack {
	return &PageStack{}
}

// Len returns the number of pages in the stack
func (ps *PageStack) Len() int {
	return len(ps.pages)
}

// Top returns the topmost (visible) page, or nil
func (ps *PageStack) Top() *Page {
	if len(ps.pages) == 0 {
		return nil
	}
	return ps.pages[len(ps.pages)-1]
}

// Push adds a page, saving the cursor of the page it covers
func (ps *PageStack) Push(p *Page, saveCursor int) {
	if top := ps.Top(); top != nil {
		top.Cursor = saveCursor
	}
	ps.pages = append(ps.pages, p)
}

// Pop removes the top page and returns it, or nil when empty
func (ps *PageStack) Pop() *Page {
	if len(ps.pages) == 0 {
		return nil
	}
	popped := ps.pages[len(ps.pages)-1]
	ps.pages = ps.pages[:len(ps.pages)-1]
	return popped
}

// Clear removes every page
func (ps *PageStack) Clear() {
	ps.pages = nil
}

// Find returns the most recent page showing the given item, or nil
func (ps *PageStack) Find(kind PageKind, mediaKind domain.MediaKind, id int) *Page {
	for i := len(ps.pages) - 1; i >= 0; i-- {
		p := ps.pages[i]
		if p.Kind == kind && p.ID == id && (kind == PagePerson || p.MediaKind == mediaKind) {
			return p
		}
	}
	return nil
}

// Breadcrumb returns the page titles from bottom to top
func (ps *PageStack) Breadcrumb() []string {
	titles := make([]string, len(ps.pages))
	for i, p := range ps.pages {
		titles[i] = p.Title
	}
	return titles
}
