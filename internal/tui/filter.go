package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/marquee/internal/search"
)

// handleGlobalSearchKey routes keys to the finder and opens the chosen title
func (m Model) handleGlobalSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var selected bool
	m.GlobalSearch, cmd, selected = m.GlobalSearch.Update(msg)

	if selected {
		item := m.GlobalSearch.Selected()
		m.GlobalSearch.Hide()
		if item == nil {
			return m, nil
		}
		return m, m.jumpTo(*item)
	}

	if m.GlobalSearch.QueryChanged() {
		m.GlobalSearch.SetResults(m.SearchSvc.FilterLocal(m.GlobalSearch.Query(), m.browseKeys()))
	}
	return m, cmd
}

// jumpTo opens the details page of a finder result
func (m *Model) jumpTo(item search.FilterItem) tea.Cmd {
	m.logger.Debug("finder jump", "title", item.Title, "source", item.Source.String())
	return m.openDetails(item.Item)
}
