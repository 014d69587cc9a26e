package tui

// Layout proportions for the main screen
const (
	ListColumnPercent = 55 // List; the preview takes the rest
	MinColumnWidth    = 24
	MinPreviewWidth   = 80 // Below this terminal width the preview is hidden

	// Tab bar, category/search bar and footer
	ChromeHeight = 3
)

// mainLayout holds calculated pane sizes for the main screen
type mainLayout struct {
	listWidth     int
	previewWidth  int // 0 if not shown
	contentHeight int
}

// calculateLayout computes pane sizes from the window size
func (m Model) calculateLayout() mainLayout {
	layout := mainLayout{
		contentHeight: max(m.Height-ChromeHeight, 3),
	}

	if m.Width < MinPreviewWidth {
		layout.listWidth = m.Width
		return layout
	}

	layout.listWidth = max(m.Width*ListColumnPercent/100, MinColumnWidth)
	layout.previewWidth = m.Width - layout.listWidth
	return layout
}

// updateLayout updates component sizes based on window size
func (m *Model) updateLayout() {
	if m.Width == 0 || m.Height == 0 {
		return
	}

	layout := m.calculateLayout()
	m.List.SetSize(layout.listWidth, layout.contentHeight)
	if layout.previewWidth > 0 {
		m.Preview.SetSize(layout.previewWidth, layout.contentHeight)
	}
	m.PageView.SetSize(m.Width, layout.contentHeight)
	m.GlobalSearch.SetSize(m.Width, m.Height)
	m.SearchInput.Width = max(m.Width-30, 10)
}
