package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/marquee/internal/catalog"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/route"
	"github.com/mmcdole/marquee/internal/search"
	"github.com/mmcdole/marquee/internal/tui/components"
	"github.com/mmcdole/marquee/internal/tui/styles"
)

// SessionService is the session synchronizer as seen by the UI
type SessionService interface {
	Snapshot() domain.SessionSnapshot
	Subscribe(observer domain.SessionObserver) (unsubscribe func())
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Register(ctx context.Context, email, password, displayName string) (*domain.Session, error)
	Logout(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	CompleteOnboarding()
	ClearError()
}

// CatalogService is the paginated catalog cache as seen by the UI
type CatalogService interface {
	Stream(key catalog.QueryKey) catalog.StreamView
	FetchNext(ctx context.Context, key catalog.QueryKey) (*domain.CatalogPage, error)
	Refresh(ctx context.Context, key catalog.QueryKey) (*domain.CatalogPage, error)
	Details(ctx context.Context, kind domain.MediaKind, id int) (*domain.MediaDetails, error)
	Similar(ctx context.Context, kind domain.MediaKind, id int) (*domain.CatalogPage, error)
	Videos(ctx context.Context, kind domain.MediaKind, id int) ([]domain.VideoRef, error)
	Person(ctx context.Context, personID int) (*domain.PersonDetails, error)
	InvalidateAll()
}

// LocalSearcher finds titles among pages already loaded
type LocalSearcher interface {
	FilterLocal(query string, keys []catalog.QueryKey) []search.FilterResult
}

// VideoLauncher opens trailer URLs outside the terminal
type VideoLauncher interface {
	Launch(url string) error
}

// ApplicationState represents modal overlays of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateHelp
	StateConfirmLogout
)

// Tab is a top-level section of the main screen group
type Tab int

const (
	TabMovies Tab = iota
	TabTV
	TabSearch
	TabProfile
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabMovies:
		return "Movies"
	case TabTV:
		return "TV Shows"
	case TabSearch:
		return "Search"
	case TabProfile:
		return "Profile"
	default:
		return ""
	}
}

// Kind returns the media kind browsed by a category tab
func (t Tab) Kind() (domain.MediaKind, bool) {
	switch t {
	case TabMovies:
		return domain.MediaKindMovie, true
	case TabTV:
		return domain.MediaKindTV, true
	}
	return "", false
}

const tickInterval = 100 * time.Millisecond

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	// Services
	SessionSvc SessionService
	CatalogSvc CatalogService
	SearchSvc  LocalSearcher
	Player     VideoLauncher

	// Routing
	Router   *Router
	Gate     *route.Gate
	Snapshot domain.SessionSnapshot

	sessionCh   chan domain.SessionSnapshot
	unsubscribe func()

	// Auth group
	AuthMode  AuthMode
	AuthForms [3]components.Form

	// Main group
	Tab          Tab
	CategoryIdx  map[domain.MediaKind]int
	SearchKind   domain.MediaKind
	SearchInput  textinput.Model
	SearchQuery  string // debounced query the search tab is showing
	searchSeq    int
	List         *components.MediaList
	Preview      components.Inspector
	PageView     components.Inspector
	Pages        *PageStack
	GlobalSearch components.GlobalSearch
	pending      map[string]bool // stream keys with a fetch command outstanding

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	SpinnerFrame int

	logger *slog.Logger
}

// NewModel creates the application model and subscribes it to session changes.
// Call Close when the program exits.
func NewModel(sessionSvc SessionService, catalogSvc CatalogService, searchSvc LocalSearcher, player VideoLauncher, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	router := NewRouter()

	si := textinput.New()
	si.Placeholder = "Search titles..."
	si.Prompt = "Search: "
	si.PromptStyle = styles.AccentStyle
	si.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	si.PlaceholderStyle = styles.DimStyle
	si.CharLimit = 100

	m := Model{
		State:        StateBrowsing,
		SessionSvc:   sessionSvc,
		CatalogSvc:   catalogSvc,
		SearchSvc:    searchSvc,
		Player:       player,
		Router:       router,
		Gate:         route.NewGate(router, logger),
		Snapshot:     domain.SessionSnapshot{State: domain.SyncInitializing},
		sessionCh:    make(chan domain.SessionSnapshot, 8),
		AuthForms:    newAuthForms(),
		CategoryIdx:  make(map[domain.MediaKind]int),
		SearchKind:   domain.MediaKindMovie,
		SearchInput:  si,
		List:         components.NewMediaList(""),
		Preview:      components.NewInspector(),
		PageView:     components.NewInspector(),
		Pages:        NewPageStack(),
		GlobalSearch: components.NewGlobalSearch(),
		pending:      make(map[string]bool),
		logger:       logger,
	}
	m.List.SetFocused(true)
	m.PageView.SetFocused(true)
	m.unsubscribe = sessionSvc.Subscribe(NewChannelObserver(m.sessionCh))
	return m
}

func newAuthForms() [3]components.Form {
	var forms [3]components.Form
	forms[AuthModeLogin] = components.NewForm("Login",
		components.FormField{Label: "Email", Placeholder: "you@example.com"},
		components.FormField{Label: "Password", Secret: true},
	)
	forms[AuthModeLogin].SetHint("enter submit · C-r register · C-f forgot password")

	forms[AuthModeRegister] = components.NewForm("Create Account",
		components.FormField{Label: "Display name", Placeholder: "optional", CharLimit: 64},
		components.FormField{Label: "Email", Placeholder: "you@example.com"},
		components.FormField{Label: "Password", Placeholder: "at least 6 characters", Secret: true},
		components.FormField{Label: "Confirm password", Secret: true},
	)
	forms[AuthModeRegister].SetHint("enter submit · C-r back to login")

	forms[AuthModeReset] = components.NewForm("Reset Password",
		components.FormField{Label: "Email", Placeholder: "you@example.com"},
	)
	forms[AuthModeReset].SetHint("enter send link · esc back to login")
	return forms
}

// Close stops session updates
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		WaitForSessionCmd(m.sessionCh),
		TickCmd(tickInterval),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		m.List.SetSpinnerView(RenderSpinner(m.SpinnerFrame))
		return m, TickCmd(tickInterval)

	case SessionChangedMsg:
		cmd := m.applySession(msg.Snapshot)
		return m, tea.Batch(cmd, WaitForSessionCmd(m.sessionCh))

	case AuthResultMsg:
		return m.handleAuthResult(msg)

	case LogoutCompleteMsg:
		if domain.IsOperationNotice(msg.Error) {
			m.logger.Warn("logout completed with provider error", "error", msg.Error)
			return m, nil
		}
		if msg.Error != nil {
			m.logger.Warn("logout failed", "error", msg.Error)
			return m, m.setStatus("Logout failed: "+components.ErrorText(msg.Error), true)
		}
		// Navigation follows from the session snapshot
		return m, nil

	case PageLoadedMsg:
		delete(m.pending, msg.Key.String())
		if msg.Err != nil {
			m.logger.Debug("page load failed", "key", msg.Key.String(), "error", msg.Err)
		}
		if msg.Key == m.currentKey() {
			m.syncList()
			if msg.Err != nil {
				return m, m.setStatus(components.ErrorText(msg.Err), true)
			}
		}
		return m, nil

	case DetailsLoadedMsg:
		if page := m.Pages.Find(PageDetails, msg.Kind, msg.ID); page != nil {
			page.Details = msg.Details
			page.Similar = msg.Similar
			if m.Pages.Top() == page {
				m.PageView.SetDetails(page.Details, page.Similar)
			}
		}
		return m, nil

	case PersonLoadedMsg:
		if page := m.Pages.Find(PagePerson, "", msg.Person.ID); page != nil {
			page.Person = msg.Person
			if m.Pages.Top() == page {
				m.PageView.SetPerson(page.Person)
			}
		}
		return m, nil

	case SearchDebounceMsg:
		if msg.Seq != m.searchSeq {
			return m, nil
		}
		return m, m.commitSearch()

	case ErrMsg:
		m.logger.Error("command failed", "context", msg.Context, "error", msg.Err)
		// A page whose content failed to load is dropped rather than left spinning
		if top := m.Pages.Top(); top != nil && !top.Loaded() {
			m.popPage()
		}
		return m, m.setStatus(msg.Context+": "+components.ErrorText(msg.Err), true)

	case StatusMsg:
		return m, m.setStatus(msg.Message, msg.IsError)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	// Cursor blink and other input messages
	var cmds []tea.Cmd
	if m.Router.Current() == route.GroupAuth {
		var cmd tea.Cmd
		m.AuthForms[m.AuthMode], cmd, _ = m.AuthForms[m.AuthMode].Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.SearchInput.Focused() {
		var cmd tea.Cmd
		m.SearchInput, cmd = m.SearchInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// applySession feeds a snapshot to the route gate and prepares any screen group it enters
func (m *Model) applySession(snap domain.SessionSnapshot) tea.Cmd {
	prev := m.Snapshot
	m.Snapshot = snap

	// Cached pages belong to the signed-in user
	if prev.Session != nil && snap.Session == nil {
		m.CatalogSvc.InvalidateAll()
		clear(m.pending)
	}

	gen := m.Router.Generation()
	m.Gate.OnSessionChange(snap)

	var cmds []tea.Cmd
	if m.Router.Generation() != gen {
		cmds = append(cmds, m.enterGroup(m.Router.Current()))
	}

	// A failure attached to a snapshot with a live session (refresh, restore) goes to the footer
	if snap.Err != nil && snap.Err != prev.Err && snap.Session != nil {
		cmds = append(cmds, m.setStatus(components.ErrorText(snap.Err), true))
	}
	return tea.Batch(cmds...)
}

// enterGroup resets the screens of a group the gate just navigated to
func (m *Model) enterGroup(group route.Group) tea.Cmd {
	m.logger.Debug("entering screen group", "group", string(group))
	m.State = StateBrowsing
	m.GlobalSearch.Hide()

	switch group {
	case route.GroupAuth:
		m.AuthMode = AuthModeLogin
		for i := range m.AuthForms {
			m.AuthForms[i].Reset()
		}
		if m.Snapshot.Session == nil && m.Snapshot.Err != nil && m.Snapshot.State == domain.SyncError {
			m.AuthForms[AuthModeLogin].SetError(components.ErrorText(m.Snapshot.Err))
		}
		return textinput.Blink

	case route.GroupMain:
		m.Pages.Clear()
		m.Tab = TabMovies
		m.SearchInput.Blur()
		m.List.Reset(m.listTitle(), nil)
		return m.loadCurrent()
	}
	return nil
}

// setStatus shows a footer message that clears itself
func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.StatusMsg = msg
	m.StatusIsErr = isErr
	delay := 3 * time.Second
	if isErr {
		delay = 5 * time.Second
	}
	return ClearStatusCmd(delay)
}

// currentKey returns the stream shown by the active tab
func (m Model) currentKey() catalog.QueryKey {
	if kind, ok := m.Tab.Kind(); ok {
		cats := domain.Categories(kind)
		return catalog.CategoryKey(kind, cats[m.CategoryIdx[kind]%len(cats)])
	}
	if m.Tab == TabSearch {
		return catalog.SearchKey(m.SearchKind, m.SearchQuery)
	}
	return catalog.QueryKey{}
}

// listTitle returns the header of the active tab's list
func (m Model) listTitle() string {
	if _, ok := m.Tab.Kind(); ok {
		return domain.CategoryTitle(m.currentKey().Category) + " " + m.Tab.String()
	}
	if m.Tab == TabSearch {
		label := "Movies"
		if m.SearchKind == domain.MediaKindTV {
			label = "TV Shows"
		}
		if m.SearchQuery == "" {
			return "Search " + label
		}
		return fmt.Sprintf("%s matching %q", label, m.SearchQuery)
	}
	return ""
}

// syncList copies the active stream into the list and preview
func (m *Model) syncList() {
	key := m.currentKey()
	view := m.CatalogSvc.Stream(key)

	items := view.Items
	if key.Search {
		items = search.Rank(key.Query, items)
	}

	m.List.SetTitle(m.listTitle())
	m.List.SetItems(items)
	m.List.SetStreamState(view.Loading || m.pending[key.String()], view.HasMore && view.Enabled, view.Err)
	switch {
	case !view.Enabled:
		m.List.SetEmptyText("Type a title and press enter")
	case key.Search:
		m.List.SetEmptyText("No results")
	default:
		m.List.SetEmptyText("No titles")
	}
	m.Preview.SetItem(m.List.Selected())
}

// loadCurrent fetches the first page of the active stream when nothing is loaded yet
func (m *Model) loadCurrent() tea.Cmd {
	key := m.currentKey()
	view := m.CatalogSvc.Stream(key)
	var cmd tea.Cmd
	if view.Enabled && view.Pages == 0 && !view.Loading {
		cmd = m.fetchNext(key)
	}
	m.syncList()
	return cmd
}

// fetchNext requests the next page of key unless one is already outstanding
func (m *Model) fetchNext(key catalog.QueryKey) tea.Cmd {
	if !key.Enabled() || m.pending[key.String()] {
		return nil
	}
	m.pending[key.String()] = true
	return FetchNextCmd(m.CatalogSvc, key)
}

// refresh re-fetches page 1 of the active stream
func (m *Model) refresh() tea.Cmd {
	key := m.currentKey()
	if !key.Enabled() || m.pending[key.String()] {
		return nil
	}
	m.pending[key.String()] = true
	m.syncList()
	return RefreshCmd(m.CatalogSvc, key)
}

// commitSearch switches the search tab to the typed query
func (m *Model) commitSearch() tea.Cmd {
	m.SearchQuery = m.SearchInput.Value()
	m.List.Reset(m.listTitle(), nil)
	return m.loadCurrent()
}

// browseKeys returns every stream the global finder searches
func (m Model) browseKeys() []catalog.QueryKey {
	var keys []catalog.QueryKey
	for _, kind := range []domain.MediaKind{domain.MediaKindMovie, domain.MediaKindTV} {
		for _, cat := range domain.Categories(kind) {
			keys = append(keys, catalog.CategoryKey(kind, cat))
		}
	}
	if m.SearchQuery != "" {
		keys = append(keys, catalog.SearchKey(m.SearchKind, m.SearchQuery))
	}
	return keys
}
