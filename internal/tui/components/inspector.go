package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/tui/styles"
)

// Layout constants for inspector
const (
	InspectorBorderHeight     = 2
	InspectorScrollIndicators = 2

	maxCastLinks    = 12
	maxCreditLinks  = 20
	maxSimilarLinks = 10
)

// LinkKind identifies what a selectable inspector line leads to
type LinkKind int

const (
	LinkPerson LinkKind = iota
	LinkTitle
	LinkVideo
)

// Link is a selectable line on a details or person page
type Link struct {
	Kind     LinkKind
	Label    string
	PersonID int
	Media    domain.MediaSummary
	URL      string
}

// inspectorContent holds the three-zone layout content
type inspectorContent struct {
	header string   // fixed top
	body   []string // scrollable middle
	footer string   // fixed bottom

	linkLines []int // body line index of each link
}

// Inspector displays metadata for a list selection, a detail page or a person page.
// On detail and person pages the cast, video and similar-title lines are selectable.
type Inspector struct {
	item    any // domain.MediaSummary, *domain.MediaDetails or *domain.PersonDetails
	similar []domain.MediaSummary
	links   []Link

	cursor     int
	focused    bool
	width      int
	height     int
	offset     int // scroll offset
	maxVisible int // max visible body lines
}

// NewInspector creates a new inspector component
func NewInspector() Inspector {
	return Inspector{}
}

// SetItem shows a list selection preview
func (i *Inspector) SetItem(item *domain.MediaSummary) {
	if item == nil {
		i.item = nil
	} else {
		i.item = *item
	}
	i.similar = nil
	i.links = nil
	i.cursor = 0
	i.offset = 0
}

// SetDetails shows a full detail page
func (i *Inspector) SetDetails(d *domain.MediaDetails, similar []domain.MediaSummary) {
	i.item = d
	i.similar = similar
	i.links = detailLinks(d, similar)
	i.cursor = 0
	i.offset = 0
}

// SetPerson shows a cast member's page
func (i *Inspector) SetPerson(p *domain.PersonDetails) {
	i.item = p
	i.similar = nil
	i.links = personLinks(p)
	i.cursor = 0
	i.offset = 0
}

// SetSize updates the component dimensions
func (i *Inspector) SetSize(width, height int) {
	i.width = width
	i.height = height
	i.maxVisible = height - InspectorBorderHeight - InspectorScrollIndicators - 2 // title + blank line
	if i.maxVisible < 1 {
		i.maxVisible = 1
	}
}

// SetFocused sets whether the inspector receives keys
func (i *Inspector) SetFocused(focused bool) {
	i.focused = focused
}

// HasItem returns true if there is an item to display
func (i Inspector) HasItem() bool {
	return i.item != nil
}

// Links returns the selectable lines of the current page
func (i Inspector) Links() []Link {
	return i.links
}

// Cursor returns the selected link index
func (i Inspector) Cursor() int {
	return i.cursor
}

// SetCursor restores a saved link selection
func (i *Inspector) SetCursor(c int) {
	if c >= 0 && c < len(i.links) {
		i.cursor = c
		i.ensureLinkVisible()
	}
}

// SelectedLink returns the link under the cursor, or nil
func (i Inspector) SelectedLink() *Link {
	if i.cursor < 0 || i.cursor >= len(i.links) {
		return nil
	}
	link := i.links[i.cursor]
	return &link
}

// Update moves the link cursor and scrolls the body
func (i Inspector) Update(msg tea.Msg) (Inspector, tea.Cmd) {
	if !i.focused {
		return i, nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return i, nil
	}

	switch {
	case key.Matches(keyMsg, ListKeys.Down):
		if i.cursor < len(i.links)-1 {
			i.cursor++
			i.ensureLinkVisible()
		} else {
			i.offset++
		}
	case key.Matches(keyMsg, ListKeys.Up):
		if i.cursor > 0 {
			i.cursor--
			i.ensureLinkVisible()
		} else if i.offset > 0 {
			i.offset--
		}
	case key.Matches(keyMsg, ListKeys.Home):
		i.cursor = 0
		i.offset = 0
	case key.Matches(keyMsg, ListKeys.End):
		if len(i.links) > 0 {
			i.cursor = len(i.links) - 1
			i.ensureLinkVisible()
		}
	case key.Matches(keyMsg, ListKeys.HalfDown):
		i.offset += max(i.maxVisible/2, 1)
	case key.Matches(keyMsg, ListKeys.HalfUp):
		i.offset = max(i.offset-max(i.maxVisible/2, 1), 0)
	}
	return i, nil
}

// ensureLinkVisible scrolls so the selected link's line is in the body window
func (i *Inspector) ensureLinkVisible() {
	content := i.render(i.contentWidth())
	if i.cursor >= len(content.linkLines) {
		return
	}
	line := content.linkLines[i.cursor]
	avail := i.bodyHeight(content)
	if line < i.offset {
		i.offset = line
	}
	if line >= i.offset+avail {
		i.offset = line - avail + 1
	}
}

func (i Inspector) contentWidth() int {
	// Border takes 2 chars (1 each side), leave 1 char safety margin
	return max(i.width-3, 10)
}

func (i Inspector) bodyHeight(content inspectorContent) int {
	avail := i.maxVisible - len(splitLines(content.header)) - len(splitLines(content.footer))
	return max(avail, 1)
}

// View renders the component
func (i Inspector) View() string {
	style := styles.InactiveBorder
	if i.focused {
		style = styles.ActiveBorder
	}

	contentWidth := i.contentWidth()
	content := i.render(contentWidth)

	titleLine := styles.AccentStyle.Render(styles.Truncate(i.heading(), contentWidth))

	headerLines := splitLines(content.header)
	footerLines := splitLines(content.footer)
	bodyLines := content.body
	availableForBody := i.bodyHeight(content)

	// Clamp body scroll offset
	maxOffset := max(len(bodyLines)-availableForBody, 0)
	offset := min(i.offset, maxOffset)
	end := min(offset+availableForBody, len(bodyLines))
	visibleBody := bodyLines[offset:end]

	up := " "
	if offset > 0 {
		up = styles.DimStyle.Render("↑ more")
	}
	down := " "
	if end < len(bodyLines) {
		down = styles.DimStyle.Render("↓ more")
	}

	parts := []string{titleLine, ""}
	if content.header != "" {
		parts = append(parts, strings.Join(headerLines, "\n"))
	}
	parts = append(parts, up)
	if len(visibleBody) > 0 {
		parts = append(parts, strings.Join(visibleBody, "\n"))
	}
	for j := len(visibleBody); j < availableForBody; j++ {
		parts = append(parts, "")
	}
	parts = append(parts, down)
	if content.footer != "" {
		parts = append(parts, strings.Join(footerLines, "\n"))
	}

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(max(i.width-frameW, 0)).
		Height(max(i.height-frameH, 0)).
		Render(strings.Join(parts, "\n"))
}

func (i Inspector) heading() string {
	switch i.item.(type) {
	case *domain.MediaDetails:
		return "Details"
	case *domain.PersonDetails:
		return "Person"
	default:
		return "Info"
	}
}

func (i Inspector) render(width int) inspectorContent {
	switch v := i.item.(type) {
	case domain.MediaSummary:
		return renderSummary(v, width)
	case *domain.MediaDetails:
		return i.renderDetails(v, width)
	case *domain.PersonDetails:
		return i.renderPerson(v, width)
	default:
		return inspectorContent{body: []string{styles.DimStyle.Render("Nothing selected")}}
	}
}

func renderSummary(item domain.MediaSummary, width int) inspectorContent {
	header := mediaHeader(item, width)
	body := wrapDim(item.Overview, width)
	if len(body) == 0 {
		body = []string{styles.DimStyle.Render("No overview available.")}
	}
	return inspectorContent{
		header: header,
		body:   body,
		footer: styles.DimStyle.Render("enter for details"),
	}
}

func mediaHeader(item domain.MediaSummary, width int) string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(styles.Truncate(item.Title, width)))
	b.WriteString("\n")

	var meta []string
	if y := item.Year(); y > 0 {
		meta = append(meta, fmt.Sprintf("%d", y))
	}
	if item.Kind == domain.MediaKindTV {
		meta = append(meta, "TV")
	} else {
		meta = append(meta, "Movie")
	}
	if r := styles.RenderRating(item.Rating); r != "" {
		meta = append(meta, r)
	}
	b.WriteString(styles.DimStyle.Render(strings.Join(meta, " · ")))
	return b.String()
}

func (i Inspector) renderDetails(d *domain.MediaDetails, width int) inspectorContent {
	var b strings.Builder
	b.WriteString(mediaHeader(d.MediaSummary, width))

	var facts []string
	if rt := d.FormattedRuntime(); rt != "" {
		facts = append(facts, rt)
	}
	if d.SeasonCount > 0 {
		facts = append(facts, fmt.Sprintf("%d seasons · %d episodes", d.SeasonCount, d.EpisodeCount))
	}
	if d.Status != "" {
		facts = append(facts, d.Status)
	}
	if len(facts) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.SubtitleStyle.Render(styles.Truncate(strings.Join(facts, " · "), width)))
	}
	if g := d.GenreNames(); g != "" {
		b.WriteString("\n")
		b.WriteString(styles.DimStyle.Render(styles.Truncate(g, width)))
	}

	var body []string
	if d.Tagline != "" {
		body = append(body, lipgloss.NewStyle().Italic(true).Foreground(styles.LightGray).Render(styles.Truncate(d.Tagline, width)), "")
	}
	body = append(body, wrapDim(d.Overview, width)...)

	var linkLines []int
	link := 0
	addLink := func(label string) {
		linkLines = append(linkLines, len(body))
		body = append(body, i.renderLink(link, label, width))
		link++
	}

	if len(d.Cast) > 0 {
		body = append(body, "", styles.AccentStyle.Render("Cast"))
		for _, c := range d.Cast[:min(len(d.Cast), maxCastLinks)] {
			label := c.Name
			if c.Character != "" {
				label += " as " + c.Character
			}
			addLink(label)
		}
	}
	if len(d.Videos) > 0 {
		body = append(body, "", styles.AccentStyle.Render("Videos"))
		for _, v := range d.Videos {
			if v.URL() == "" {
				continue
			}
			addLink(fmt.Sprintf("%s (%s)", v.Name, v.Type))
		}
	}
	if len(i.similar) > 0 {
		body = append(body, "", styles.AccentStyle.Render("Similar"))
		for _, s := range i.similar[:min(len(i.similar), maxSimilarLinks)] {
			addLink(titleLabel(s))
		}
	}

	footer := ""
	if d.Homepage != "" {
		footer = styles.LinkStyle.Render(styles.Truncate(d.Homepage, width))
	}

	return inspectorContent{header: b.String(), body: body, footer: footer, linkLines: linkLines}
}

func (i Inspector) renderPerson(p *domain.PersonDetails, width int) inspectorContent {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(styles.Truncate(p.Name, width)))

	var facts []string
	if p.KnownForDepartment != "" {
		facts = append(facts, p.KnownForDepartment)
	}
	if p.Birthday != "" {
		facts = append(facts, "born "+p.Birthday)
	}
	if len(facts) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.DimStyle.Render(styles.Truncate(strings.Join(facts, " · "), width)))
	}
	if p.PlaceOfBirth != "" {
		b.WriteString("\n")
		b.WriteString(styles.DimStyle.Render(styles.Truncate(p.PlaceOfBirth, width)))
	}

	body := wrapDim(p.Biography, width)
	if len(body) == 0 {
		body = []string{styles.DimStyle.Render("No biography available.")}
	}

	var linkLines []int
	if len(p.Credits) > 0 {
		body = append(body, "", styles.AccentStyle.Render("Known For"))
		for n, c := range p.Credits[:min(len(p.Credits), maxCreditLinks)] {
			linkLines = append(linkLines, len(body))
			body = append(body, i.renderLink(n, titleLabel(c), width))
		}
	}

	return inspectorContent{header: b.String(), body: body, linkLines: linkLines}
}

func (i Inspector) renderLink(n int, label string, width int) string {
	selected := i.focused && n == i.cursor
	prefix := "  "
	if selected {
		prefix = "› "
	}
	return styles.RenderListRow([]styles.RowPart{{Text: prefix + styles.Truncate(label, width-4)}}, selected, width)
}

func detailLinks(d *domain.MediaDetails, similar []domain.MediaSummary) []Link {
	if d == nil {
		return nil
	}
	var links []Link
	for _, c := range d.Cast[:min(len(d.Cast), maxCastLinks)] {
		links = append(links, Link{Kind: LinkPerson, Label: c.Name, PersonID: c.ID})
	}
	for _, v := range d.Videos {
		if url := v.URL(); url != "" {
			links = append(links, Link{Kind: LinkVideo, Label: v.Name, URL: url})
		}
	}
	for _, s := range similar[:min(len(similar), maxSimilarLinks)] {
		links = append(links, Link{Kind: LinkTitle, Label: s.Title, Media: s})
	}
	return links
}

func personLinks(p *domain.PersonDetails) []Link {
	if p == nil {
		return nil
	}
	var links []Link
	for _, c := range p.Credits[:min(len(p.Credits), maxCreditLinks)] {
		links = append(links, Link{Kind: LinkTitle, Label: c.Title, Media: c})
	}
	return links
}

func titleLabel(s domain.MediaSummary) string {
	if y := s.Year(); y > 0 {
		return fmt.Sprintf("%s (%d)", s.Title, y)
	}
	return s.Title
}

func wrapDim(text string, width int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lines := styles.Wrap(text, width)
	for j, l := range lines {
		lines[j] = styles.SubtitleStyle.Render(l)
	}
	return lines
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
