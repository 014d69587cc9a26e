package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/search"
	"github.com/mmcdole/marquee/internal/tui/styles"
)

// Layout constants for bordered panes
const (
	// Border adds 1 char on each side (left+right for width, top+bottom for height)
	BorderWidth  = 2
	BorderHeight = 2

	// Scroll indicators ("↑ more" and "↓ more") each take 1 line
	ScrollIndicatorLines = 2

	// loadAheadRows is how close to the end the cursor gets before more pages are wanted
	loadAheadRows = 5
)

// MediaList is a scrollable, filterable list of catalog titles.
// It renders whatever pages have accumulated so far and reports when
// the cursor nears the end so the caller can fetch the next page.
type MediaList struct {
	items []domain.MediaSummary

	// Selection
	cursor     int
	offset     int
	maxVisible int

	// Dimensions
	width   int
	height  int
	focused bool

	title string

	// Stream state
	loading     bool
	hasMore     bool
	err         error
	spinnerView string
	emptyText   string

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filterQuery  string
	filteredIdx  []int // indices into items
}

// NewMediaList creates an empty list with the given title
func NewMediaList(title string) *MediaList {
	ti := textinput.New()
	ti.Placeholder = "filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle
	ti.CharLimit = 64

	return &MediaList{
		title:       title,
		filterInput: ti,
		emptyText:   "No titles",
		maxVisible:  1,
	}
}

// SetItems replaces the list contents, keeping the cursor where it was
func (l *MediaList) SetItems(items []domain.MediaSummary) {
	l.items = items
	if l.filterActive && l.filterQuery != "" {
		l.applyFilter(false)
	}
	l.clampCursor()
}

// Reset replaces the contents and moves the cursor to the top
func (l *MediaList) Reset(title string, items []domain.MediaSummary) {
	l.title = title
	l.cursor = 0
	l.offset = 0
	l.clearFilter()
	l.SetItems(items)
}

// SetStreamState sets the paging indicators shown under the list
func (l *MediaList) SetStreamState(loading, hasMore bool, err error) {
	l.loading = loading
	l.hasMore = hasMore
	l.err = err
}

// SetSpinnerView sets the rendered spinner frame used while loading
func (l *MediaList) SetSpinnerView(view string) {
	l.spinnerView = view
}

// SetEmptyText sets the message shown when there is nothing to list
func (l *MediaList) SetEmptyText(text string) {
	l.emptyText = text
}

// SetTitle sets the header line
func (l *MediaList) SetTitle(title string) {
	l.title = title
}

// Title returns the header line
func (l *MediaList) Title() string {
	return l.title
}

// SetSize updates the component dimensions
func (l *MediaList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.recalcMaxVisible()
	l.ensureVisible()
}

// SetFocused sets whether the list receives keys
func (l *MediaList) SetFocused(focused bool) {
	l.focused = focused
}

// Items returns every loaded title, ignoring the filter
func (l *MediaList) Items() []domain.MediaSummary {
	return l.items
}

// ItemCount returns the number of visible rows (after filtering)
func (l *MediaList) ItemCount() int {
	if l.filteredIdx != nil {
		return len(l.filteredIdx)
	}
	return len(l.items)
}

// Selected returns the title under the cursor, or nil
func (l *MediaList) Selected() *domain.MediaSummary {
	if l.ItemCount() == 0 {
		return nil
	}
	idx := l.mapIndex(l.cursor)
	if idx < 0 || idx >= len(l.items) {
		return nil
	}
	item := l.items[idx]
	return &item
}

// SelectedIndex returns the cursor position
func (l *MediaList) SelectedIndex() int {
	return l.cursor
}

// WantsMore reports whether the cursor is close enough to the end
// that the next page should be requested
func (l *MediaList) WantsMore() bool {
	if !l.hasMore || l.loading || l.err != nil || l.filterActive {
		return false
	}
	return l.cursor >= len(l.items)-loadAheadRows
}

// ToggleFilter activates the filter input
func (l *MediaList) ToggleFilter() {
	l.filterActive = true
	l.filterInput.Focus()
	l.recalcMaxVisible()
}

// IsFiltering returns true if filter mode is active
func (l *MediaList) IsFiltering() bool {
	return l.filterActive
}

// IsFilterTyping returns true if filter is active AND input is focused
func (l *MediaList) IsFilterTyping() bool {
	return l.filterActive && l.filterInput.Focused()
}

// ClearFilter deactivates the filter and shows all items
func (l *MediaList) ClearFilter() {
	l.clearFilter()
}

// Update handles navigation and filter keys
func (l *MediaList) Update(msg tea.Msg) tea.Cmd {
	if !l.focused {
		return nil
	}

	keyMsg, isKey := msg.(tea.KeyMsg)

	// Filter typing mode: everything goes to the text input
	if l.IsFilterTyping() {
		if isKey {
			switch {
			case key.Matches(keyMsg, ListKeys.Escape):
				l.clearFilter()
				return nil
			case key.Matches(keyMsg, ListKeys.Enter):
				l.filterInput.Blur()
				return nil
			case keyMsg.String() == "backspace" && l.filterInput.Value() == "":
				l.clearFilter()
				return nil
			}
		}
		var cmd tea.Cmd
		l.filterInput, cmd = l.filterInput.Update(msg)
		l.applyFilter(true)
		return cmd
	}

	if !isKey {
		return nil
	}

	if l.filterActive {
		switch {
		case key.Matches(keyMsg, ListKeys.Escape):
			l.clearFilter()
			return nil
		case key.Matches(keyMsg, ListKeys.Filter):
			l.filterInput.Focus()
			return nil
		}
	}

	count := l.ItemCount()
	if count == 0 {
		return nil
	}

	switch {
	case key.Matches(keyMsg, ListKeys.Down):
		if l.cursor < count-1 {
			l.cursor++
		}
	case key.Matches(keyMsg, ListKeys.Up):
		if l.cursor > 0 {
			l.cursor--
		}
	case key.Matches(keyMsg, ListKeys.Home):
		l.cursor = 0
	case key.Matches(keyMsg, ListKeys.End):
		l.cursor = count - 1
	case key.Matches(keyMsg, ListKeys.HalfDown):
		l.cursor = min(l.cursor+max(l.maxVisible/2, 1), count-1)
	case key.Matches(keyMsg, ListKeys.HalfUp):
		l.cursor = max(l.cursor-max(l.maxVisible/2, 1), 0)
	}
	l.ensureVisible()
	return nil
}

func (l *MediaList) recalcMaxVisible() {
	// Interior height minus title line and scroll indicators
	interiorHeight := l.height - BorderHeight
	l.maxVisible = interiorHeight - ScrollIndicatorLines - 1
	// Paging status line
	l.maxVisible--
	if l.filterActive {
		l.maxVisible--
	}
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
}

func (l *MediaList) ensureVisible() {
	if l.maxVisible <= 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.maxVisible {
		l.offset = l.cursor - l.maxVisible + 1
	}
}

func (l *MediaList) clampCursor() {
	count := l.ItemCount()
	if l.cursor >= count {
		l.cursor = max(count-1, 0)
	}
	if l.offset > l.cursor {
		l.offset = l.cursor
	}
	l.ensureVisible()
}

func (l *MediaList) clearFilter() {
	l.filterActive = false
	l.filterQuery = ""
	l.filteredIdx = nil
	l.filterInput.SetValue("")
	l.filterInput.Blur()
	l.recalcMaxVisible()
	l.clampCursor()
}

func (l *MediaList) applyFilter(resetCursor bool) {
	query := l.filterInput.Value()
	l.filterQuery = query

	if strings.TrimSpace(query) == "" {
		l.filteredIdx = nil
		return
	}

	titles := make([]string, len(l.items))
	for i, item := range l.items {
		titles[i] = item.Title
	}
	l.filteredIdx = search.FilterTitles(query, titles)
	if l.filteredIdx == nil {
		l.filteredIdx = []int{}
	}

	if resetCursor {
		l.cursor = 0
		l.offset = 0
	}
}

func (l *MediaList) mapIndex(i int) int {
	if l.filteredIdx != nil {
		if i < len(l.filteredIdx) {
			return l.filteredIdx[i]
		}
		return -1
	}
	return i
}

// View renders the list inside a border
func (l *MediaList) View() string {
	style := styles.InactiveBorder
	if l.focused {
		style = styles.ActiveBorder
	}

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(max(l.width-frameW, 0)).
		Height(max(l.height-frameH, 0)).
		Render(l.renderContent())
}

func (l *MediaList) renderContent() string {
	itemWidth := l.width - BorderWidth
	if itemWidth < 10 {
		itemWidth = 10
	}

	titleLine := styles.AccentStyle.Render(styles.Truncate(l.title, itemWidth))

	count := l.ItemCount()
	if count == 0 {
		var msg string
		switch {
		case l.loading:
			msg = l.spinnerView + " Loading..."
		case l.err != nil:
			msg = styles.ErrorStyle.Render(styles.Truncate(ErrorText(l.err), itemWidth))
		case l.filterActive && l.filterQuery != "":
			msg = styles.DimStyle.Render("No matches")
		default:
			msg = styles.DimStyle.Render(l.emptyText)
		}
		content := titleLine + "\n \n" + msg + "\n "
		if l.filterActive {
			content += "\n" + l.renderFilterBar()
		}
		return content
	}

	end := min(l.offset+l.maxVisible, count)
	lines := make([]string, 0, end-l.offset)
	for i := l.offset; i < end; i++ {
		idx := l.mapIndex(i)
		if idx < 0 {
			continue
		}
		lines = append(lines, renderMediaRow(l.items[idx], i == l.cursor && l.focused, itemWidth))
	}

	// Always reserve the indicator lines to prevent layout shifts
	header := " "
	if l.offset > 0 {
		header = styles.DimStyle.Render("↑ more")
	}
	footer := " "
	if end < count {
		footer = styles.DimStyle.Render("↓ more")
	}

	content := titleLine + "\n" + header + "\n" + strings.Join(lines, "\n") + "\n" + footer
	content += "\n" + l.renderPagingLine(itemWidth)
	if l.filterActive {
		content += "\n" + l.renderFilterBar()
	}
	return content
}

func (l *MediaList) renderPagingLine(width int) string {
	switch {
	case l.loading:
		return l.spinnerView + styles.DimStyle.Render(" Loading more...")
	case l.err != nil:
		return styles.ErrorStyle.Render(styles.Truncate(ErrorText(l.err)+" (n to retry)", width))
	case l.hasMore:
		return styles.DimStyle.Render(fmt.Sprintf("%d loaded · n for more", len(l.items)))
	default:
		return styles.DimStyle.Render(fmt.Sprintf("%d titles", len(l.items)))
	}
}

func (l *MediaList) renderFilterBar() string {
	countStr := ""
	if l.filterQuery != "" {
		countStr = styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", l.ItemCount(), len(l.items)))
	}
	return l.filterInput.View() + countStr
}

func renderMediaRow(item domain.MediaSummary, selected bool, width int) string {
	badge := "MOV"
	if item.Kind == domain.MediaKindTV {
		badge = "TV "
	}
	badgeFg := styles.DimGray

	title := item.Title
	if y := item.Year(); y > 0 {
		title = fmt.Sprintf("%s (%d)", item.Title, y)
	}

	rating := ""
	if item.Rating > 0 {
		rating = fmt.Sprintf(" %.1f", item.Rating)
	}
	ratingFg := styles.Gold

	// Available space: badge(3) + space(1) + rating + margins(2)
	available := width - 6 - lipgloss.Width(rating)
	if available < 5 {
		available = 5
	}
	title = styles.Truncate(title, available)
	pad := available - lipgloss.Width(title)
	if pad < 0 {
		pad = 0
	}

	parts := []styles.RowPart{
		{Text: badge, Foreground: &badgeFg},
		{Text: " " + title + strings.Repeat(" ", pad)},
	}
	if rating != "" {
		parts = append(parts, styles.RowPart{Text: rating, Foreground: &ratingFg})
	}
	return styles.RenderListRow(parts, selected, width)
}

// ErrorText returns the user-facing text for a catalog or auth failure
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	if kind := domain.AuthErrorKindOf(err); kind != domain.AuthUnknown {
		return kind.Message()
	}
	switch domain.CatalogErrorKindOf(err) {
	case domain.CatalogNetworkUnavailable:
		return "Network unavailable"
	case domain.CatalogRateLimited:
		return "Rate limited, try again shortly"
	case domain.CatalogNotFound:
		return "Not found"
	}
	return err.Error()
}
