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

const (
	finderMinWidth = 44
	finderMaxWidth = 84
	finderRows     = 10
)

// GlobalSearch is the "find in loaded" overlay: a fuzzy finder over every
// title the catalog cache holds for the browse tabs
type GlobalSearch struct {
	input     textinput.Model
	results   []search.FilterResult
	cursor    int
	offset    int // first visible result
	visible   bool
	width     int
	height    int
	lastQuery string
}

func NewGlobalSearch() GlobalSearch {
	in := textinput.New()
	in.Prompt = "› "
	in.PromptStyle = styles.FilterPromptStyle
	in.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	in.PlaceholderStyle = styles.DimStyle
	in.Placeholder = "title of anything already loaded"
	in.CharLimit = 100
	in.Width = finderMinWidth - 8
	return GlobalSearch{input: in}
}

// Show opens the finder with an empty query
func (g *GlobalSearch) Show() {
	g.input.SetValue("")
	g.input.Focus()
	g.results = nil
	g.cursor, g.offset = 0, 0
	g.lastQuery = ""
	g.visible = true
}

func (g *GlobalSearch) Hide() {
	g.input.Blur()
	g.visible = false
}

func (g GlobalSearch) IsVisible() bool { return g.visible }

// SetResults replaces the result list and moves the cursor to the best match
func (g *GlobalSearch) SetResults(results []search.FilterResult) {
	g.results = results
	g.cursor, g.offset = 0, 0
}

func (g *GlobalSearch) SetSize(width, height int) {
	g.width, g.height = width, height
	g.input.Width = g.boxWidth() - 8
}

func (g GlobalSearch) Query() string { return g.input.Value() }

// QueryChanged reports whether the query differs from the one last seen
func (g *GlobalSearch) QueryChanged() bool {
	q := g.input.Value()
	if q == g.lastQuery {
		return false
	}
	g.lastQuery = q
	return true
}

// Selected returns the highlighted result, or nil
func (g GlobalSearch) Selected() *search.FilterItem {
	if g.cursor < 0 || g.cursor >= len(g.results) {
		return nil
	}
	return &g.results[g.cursor].FilterItem
}

func (g GlobalSearch) ResultCount() int { return len(g.results) }

func (g GlobalSearch) Init() tea.Cmd { return textinput.Blink }

// Update returns true as its third value when a result was chosen
func (g GlobalSearch) Update(msg tea.Msg) (GlobalSearch, tea.Cmd, bool) {
	if !g.visible {
		return g, nil, false
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, GlobalSearchKeys.Escape):
			g.Hide()
			return g, nil, false
		case key.Matches(msg, GlobalSearchKeys.Enter):
			return g, nil, len(g.results) > 0
		case key.Matches(msg, GlobalSearchKeys.Down):
			g.move(1)
			return g, nil, false
		case key.Matches(msg, GlobalSearchKeys.Up):
			g.move(-1)
			return g, nil, false
		}
	}

	var cmd tea.Cmd
	g.input, cmd = g.input.Update(msg)
	return g, cmd, false
}

// move shifts the cursor and scrolls the visible window to keep it in view
func (g *GlobalSearch) move(delta int) {
	if len(g.results) == 0 {
		return
	}
	g.cursor = max(0, min(len(g.results)-1, g.cursor+delta))
	switch {
	case g.cursor < g.offset:
		g.offset = g.cursor
	case g.cursor >= g.offset+finderRows:
		g.offset = g.cursor - finderRows + 1
	}
}

func (g GlobalSearch) boxWidth() int {
	return max(finderMinWidth, min(finderMaxWidth, g.width*2/3))
}

func (g GlobalSearch) View() string {
	if !g.visible {
		return ""
	}

	width := g.boxWidth()
	inner := width - 4

	sections := []string{
		styles.ModalTitleStyle.Render("Find in loaded"),
		g.input.View(),
		g.renderBody(inner),
	}
	body := lipgloss.NewStyle().Width(inner).Render(strings.Join(sections, "\n\n"))
	box := styles.ModalStyle.Width(width).Render(body)

	return lipgloss.Place(g.width, g.height, lipgloss.Center, lipgloss.Center, box)
}

func (g GlobalSearch) renderBody(width int) string {
	if len(g.results) == 0 {
		if g.input.Value() == "" {
			return styles.DimStyle.Render("Titles from every tab you have browsed")
		}
		return styles.DimStyle.Render("Nothing loaded matches")
	}

	end := min(len(g.results), g.offset+finderRows)
	rows := make([]string, 0, end-g.offset+1)
	for i := g.offset; i < end; i++ {
		rows = append(rows, finderRow(g.results[i], i == g.cursor, width))
	}
	rows = append(rows, styles.DimStyle.Render(fmt.Sprintf("%d of %d", g.cursor+1, len(g.results))))
	return strings.Join(rows, "\n")
}

// finderRow renders one result as a list row with the matched runes of the
// title in the accent colour
func finderRow(r search.FilterResult, selected bool, width int) string {
	dim, accent := styles.DimGray, styles.Gold

	badge := "MOV "
	if r.Kind == domain.MediaKindTV {
		badge = "TV  "
	}
	suffix := ""
	if y := r.Item.Year(); y > 0 {
		suffix = fmt.Sprintf(" (%d)", y)
	}

	title := styles.Truncate(r.Title, width-lipgloss.Width(badge+suffix)-2)
	matched := r.MatchedIndexes
	if title != r.Title {
		// Indexes refer to the full title
		matched = nil
	}

	parts := []styles.RowPart{{Text: badge, Foreground: &dim}}
	for _, sp := range matchSpans(title, matched) {
		part := styles.RowPart{Text: sp.text}
		if sp.matched {
			part.Foreground = &accent
		}
		parts = append(parts, part)
	}
	if suffix != "" {
		parts = append(parts, styles.RowPart{Text: suffix, Foreground: &dim})
	}
	return styles.RenderListRow(parts, selected, width)
}

type span struct {
	text    string
	matched bool
}

// matchSpans splits text into runs of matched and unmatched runes
func matchSpans(text string, indexes []int) []span {
	hit := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		hit[i] = true
	}

	var spans []span
	for i, r := range []rune(text) {
		if n := len(spans); n > 0 && spans[n-1].matched == hit[i] {
			spans[n-1].text += string(r)
			continue
		}
		spans = append(spans, span{text: string(r), matched: hit[i]})
	}
	return spans
}
