package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/route"
	"github.com/mmcdole/marquee/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.Gate.Waiting() || m.Router.Current() == route.GroupNone {
		return m.renderWaiting()
	}

	switch m.State {
	case StateHelp:
		return m.renderHelp()
	case StateConfirmLogout:
		return m.renderLogoutConfirmation()
	}

	switch m.Router.Current() {
	case route.GroupOnboarding:
		return m.renderOnboarding()
	case route.GroupAuth:
		return m.renderAuth()
	default:
		return m.renderMain()
	}
}

// RenderSpinner renders one spinner frame
func RenderSpinner(frame int) string {
	return styles.SpinnerStyle.Render(styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])
}

func (m Model) renderWaiting() string {
	label := "Starting..."
	if m.Snapshot.State == domain.SyncRestoring {
		label = "Restoring your session..."
	}
	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		RenderSpinner(m.SpinnerFrame)+" "+styles.DimStyle.Render(label))
}

func (m Model) renderOnboarding() string {
	body := strings.Join([]string{
		styles.ModalTitleStyle.Render("Welcome to Marquee"),
		styles.SubtitleStyle.Render("Browse popular, trending and top rated"),
		styles.SubtitleStyle.Render("movies and TV shows from your terminal."),
		"",
		styles.SubtitleStyle.Render("Search titles, read details, and follow"),
		styles.SubtitleStyle.Render("cast members to everything they starred in."),
		"",
		styles.AccentStyle.Render("enter") + styles.DimStyle.Render(" get started   ") +
			styles.AccentStyle.Render("q") + styles.DimStyle.Render(" quit"),
	}, "\n")

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(body))
}

func (m Model) renderAuth() string {
	form := m.AuthForms[m.AuthMode].View(RenderSpinner(m.SpinnerFrame))
	brand := styles.AccentStyle.Bold(true).Render("MARQUEE")
	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, brand, "", form))
}

func (m Model) renderMain() string {
	layout := m.calculateLayout()

	var content string
	switch {
	case m.Pages.Len() > 0:
		content = m.PageView.View()
	case m.Tab == TabProfile:
		content = m.renderProfile(layout.contentHeight)
	case layout.previewWidth > 0:
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.List.View(), m.Preview.View())
	default:
		content = m.List.View()
	}

	view := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTabBar(),
		m.renderSubBar(),
		content,
		m.renderFooter(),
	)

	if m.GlobalSearch.IsVisible() {
		view = m.GlobalSearch.View()
	}
	return view
}

func (m Model) renderTabBar() string {
	var tabs []string
	for t := TabMovies; t < tabCount; t++ {
		if t == m.Tab {
			tabs = append(tabs, styles.ActiveTabStyle.Render(t.String()))
		} else {
			tabs = append(tabs, styles.InactiveTabStyle.Render(t.String()))
		}
	}
	left := strings.Join(tabs, " ")

	right := ""
	if s := m.Snapshot.Session; s != nil {
		right = styles.DimStyle.Render(s.Name())
	}

	gap := max(m.Width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

// renderSubBar shows the category strip, the search input or the page breadcrumb
func (m Model) renderSubBar() string {
	if m.Pages.Len() > 0 {
		crumb := strings.Join(m.Pages.Breadcrumb(), " › ")
		line := styles.DimStyle.Render(styles.Truncate(crumb, m.Width))
		if top := m.Pages.Top(); top != nil && !top.Loaded() {
			line = RenderSpinner(m.SpinnerFrame) + " " + line
		}
		return line
	}

	if kind, ok := m.Tab.Kind(); ok {
		cats := domain.Categories(kind)
		current := m.CategoryIdx[kind] % len(cats)
		parts := make([]string, len(cats))
		for i, c := range cats {
			if i == current {
				parts[i] = styles.AccentStyle.Bold(true).Render(domain.CategoryTitle(c))
			} else {
				parts[i] = styles.DimStyle.Render(domain.CategoryTitle(c))
			}
		}
		return strings.Join(parts, styles.DimStyle.Render(" · "))
	}

	if m.Tab == TabSearch {
		movie, tv := styles.DimStyle, styles.DimStyle
		if m.SearchKind == domain.MediaKindTV {
			tv = styles.AccentStyle
		} else {
			movie = styles.AccentStyle
		}
		return m.SearchInput.View() + "  " + movie.Render("Movies") + styles.DimStyle.Render(" / ") + tv.Render("TV")
	}
	return ""
}

func (m Model) renderProfile(height int) string {
	var b strings.Builder
	b.WriteString(styles.ModalTitleStyle.Render("Profile"))
	b.WriteString("\n")

	if s := m.Snapshot.Session; s != nil {
		name := "—"
		if s.DisplayName != nil && *s.DisplayName != "" {
			name = *s.DisplayName
		}
		email := "—"
		if s.Email != nil {
			email = *s.Email
		}
		fmt.Fprintf(&b, "%s %s\n", styles.DimStyle.Render("Name   "), styles.TitleStyle.Render(name))
		fmt.Fprintf(&b, "%s %s\n", styles.DimStyle.Render("Email  "), styles.SubtitleStyle.Render(email))
		fmt.Fprintf(&b, "%s %s\n", styles.DimStyle.Render("User ID"), styles.DimStyle.Render(s.ID))
	}
	b.WriteString("\n")
	b.WriteString(styles.AccentStyle.Render("L") + styles.DimStyle.Render(" log out"))

	return lipgloss.Place(m.Width, height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(b.String()))
}

// renderFooter renders a single-line minimal footer
func (m Model) renderFooter() string {
	var left string
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	}

	hint := func(k, desc string) string {
		return styles.AccentStyle.Render(k) + styles.DimStyle.Render(" "+desc)
	}
	var hints []string
	switch {
	case m.Pages.Len() > 0:
		hints = append(hints, hint("enter", "open"), hint("esc", "back"))
	case m.Tab == TabSearch:
		hints = append(hints, hint("/", "search"), hint("h/l", "movies/tv"))
	case m.Tab != TabProfile:
		hints = append(hints, hint("h/l", "category"), hint("enter", "details"))
	}
	hints = append(hints, hint("?", "help"))
	right := strings.Join(hints, "  ")

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		left = styles.Truncate(m.StatusMsg, max(m.Width-lipgloss.Width(right)-1, 0))
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
BROWSING                        PAGES
  tab/S-tab  Next/prev tab        enter  Open cast, video or title
  h/l        Prev/next category   esc    Back
  j/k        Up/down              j/k    Select
  g/G        First/last item
  C-u/C-d    Half page

SEARCH & LISTS                  OTHER
  /          Filter list / search  r      Refresh
  f          Find in loaded titles L      Log out
  n          Load more             q      Quit
  enter      Details               ?      This help

Press any key to return...
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}

// renderLogoutConfirmation renders the logout confirmation modal
func (m Model) renderLogoutConfirmation() string {
	modal := `
              Log Out?

  You will need to sign in again
  to browse the catalog.

        [Y] Yes      [N] No
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(modal))
}
