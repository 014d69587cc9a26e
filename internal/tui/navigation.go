package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/route"
	"github.com/mmcdole/marquee/internal/tui/components"
)

// Router is the screen-group navigation stack driven by the route gate.
// Only the active group matters: Replace resets navigation to a group root.
type Router struct {
	group      route.Group
	generation int
}

var _ route.Navigator = (*Router)(nil)

// NewRouter creates a router with no group shown yet
func NewRouter() *Router {
	return &Router{group: route.GroupNone}
}

// Current returns the active screen group
func (r *Router) Current() route.Group {
	return r.group
}

// Replace resets navigation to the root of group
func (r *Router) Replace(group route.Group) {
	r.group = group
	r.generation++
}

// Generation increases on every Replace, so callers can detect a redirect
func (r *Router) Generation() int {
	return r.generation
}

// openDetails pushes a detail page for item and starts loading it
func (m *Model) openDetails(item domain.MediaSummary) tea.Cmd {
	m.Pages.Push(&Page{
		Kind:      PageDetails,
		MediaKind: item.Kind,
		ID:        item.ID,
		Title:     item.Title,
	}, m.PageView.Cursor())
	m.PageView.SetItem(&item)
	m.Gate.Settle()
	return LoadDetailsCmd(m.CatalogSvc, item.Kind, item.ID)
}

// openPerson pushes a person page and starts loading it
func (m *Model) openPerson(personID int, name string) tea.Cmd {
	m.Pages.Push(&Page{
		Kind:  PagePerson,
		ID:    personID,
		Title: name,
	}, m.PageView.Cursor())
	m.PageView.SetItem(nil)
	m.Gate.Settle()
	return LoadPersonCmd(m.CatalogSvc, personID)
}

// popPage returns to the previous page, or to the tab content
func (m *Model) popPage() {
	if m.Pages.Pop() == nil {
		return
	}
	top := m.Pages.Top()
	switch {
	case top == nil:
		m.Preview.SetItem(m.List.Selected())
	case top.Kind == PagePerson && top.Person != nil:
		m.PageView.SetPerson(top.Person)
		m.PageView.SetCursor(top.Cursor)
	case top.Kind == PageDetails && top.Details != nil:
		m.PageView.SetDetails(top.Details, top.Similar)
		m.PageView.SetCursor(top.Cursor)
	default:
		m.PageView.SetItem(nil)
	}
	m.Gate.Settle()
}

// followLink opens whatever the selected page link points to
func (m *Model) followLink() tea.Cmd {
	link := m.PageView.SelectedLink()
	if link == nil {
		return nil
	}
	switch link.Kind {
	case components.LinkPerson:
		return m.openPerson(link.PersonID, link.Label)
	case components.LinkTitle:
		return m.openDetails(link.Media)
	case components.LinkVideo:
		if m.Player == nil {
			return m.setStatus(link.URL, false)
		}
		return tea.Batch(LaunchVideoCmd(m.Player, link.URL), m.setStatus("Opening "+link.Label+"...", false))
	}
	return nil
}

// switchTab moves to tab and loads its stream if needed
func (m *Model) switchTab(tab Tab) tea.Cmd {
	m.Tab = (tab + tabCount) % tabCount
	m.List.ClearFilter()
	m.SearchInput.Blur()
	if m.Tab == TabProfile {
		return nil
	}
	m.List.Reset(m.listTitle(), nil)
	if m.Tab == TabSearch && m.SearchQuery == "" {
		m.SearchInput.Focus()
	}
	return m.loadCurrent()
}

// shiftCategory moves the category selection of a browse tab by delta
func (m *Model) shiftCategory(delta int) tea.Cmd {
	kind, ok := m.Tab.Kind()
	if !ok {
		return nil
	}
	n := len(domain.Categories(kind))
	m.CategoryIdx[kind] = (m.CategoryIdx[kind] + delta + n) % n
	m.List.Reset(m.listTitle(), nil)
	return m.loadCurrent()
}
