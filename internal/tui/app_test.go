package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/marquee/internal/catalog"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/log"
	"github.com/mmcdole/marquee/internal/route"
	"github.com/mmcdole/marquee/internal/search"
	"github.com/mmcdole/marquee/internal/tui/components"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	popularMovies = catalog.CategoryKey(domain.MediaKindMovie, domain.CategoryPopular)
	popularTV     = catalog.CategoryKey(domain.MediaKindTV, domain.CategoryPopular)

	inception    = domain.MediaSummary{ID: 27205, Kind: domain.MediaKindMovie, Title: "Inception", Rating: 8.4, ReleaseDate: "2010-07-15"}
	darkKnight   = domain.MediaSummary{ID: 155, Kind: domain.MediaKindMovie, Title: "The Dark Knight", Rating: 8.5, ReleaseDate: "2008-07-16"}
	interstellar = domain.MediaSummary{ID: 157336, Kind: domain.MediaKindMovie, Title: "Interstellar", Rating: 8.4, ReleaseDate: "2014-11-05"}

	restoring = domain.SessionSnapshot{State: domain.SyncRestoring, Onboarded: true}
	signedOut = domain.SessionSnapshot{State: domain.SyncSynced, Onboarded: true}
	signedIn  = domain.SessionSnapshot{
		State:     domain.SyncSynced,
		Onboarded: true,
		Session: &domain.Session{
			ID:          "uid-1",
			Email:       domain.StringPtr("ada@example.com"),
			DisplayName: domain.StringPtr("Ada"),
		},
	}
)

type testEnv struct {
	session  *fakeSession
	catalog  *fakeCatalog
	searcher *fakeSearcher
	launcher *fakeLauncher
}

func newTestModel(t *testing.T) (Model, *testEnv) {
	t.Helper()
	env := &testEnv{
		session:  &fakeSession{},
		catalog:  newFakeCatalog(),
		searcher: &fakeSearcher{},
		launcher: &fakeLauncher{},
	}
	env.catalog.setItems(popularMovies, true, inception, darkKnight, interstellar)

	m := NewModel(env.session, env.catalog, env.searcher, env.launcher, log.NullLogger())
	t.Cleanup(m.Close)

	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, env
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func press(m Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = update(m, k)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
	tabKey   = tea.KeyMsg{Type: tea.KeyTab}
)

// execFirst runs cmd, or the first command of a batch, and returns its message.
// Later batch entries are status timers and session waits that would block.
func execFirst(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		require.NotEmpty(t, batch)
		return batch[0]()
	}
	return msg
}

func signIn(t *testing.T) (Model, *testEnv) {
	t.Helper()
	m, env := newTestModel(t)
	m, _ = update(m, SessionChangedMsg{Snapshot: signedIn})
	require.Equal(t, route.GroupMain, m.Router.Current())
	return m, env
}

func TestModel_SubscribesToSession(t *testing.T) {
	m, env := newTestModel(t)
	require.Len(t, env.session.observers, 1)

	env.session.observers[0].OnSessionChange(signedIn)

	msg := WaitForSessionCmd(m.sessionCh)()
	require.IsType(t, SessionChangedMsg{}, msg)
	assert.Equal(t, "uid-1", msg.(SessionChangedMsg).Snapshot.Session.ID)
}

func TestModel_WaitsWhileRestoring(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = update(m, SessionChangedMsg{Snapshot: restoring})

	assert.True(t, m.Gate.Waiting())
	assert.Equal(t, route.GroupNone, m.Router.Current())
	assert.Contains(t, m.View(), "Restoring your session")

	// Keys other than quit are ignored until the session resolves
	m, cmd := press(m, runes("L"))
	assert.Nil(t, cmd)
	assert.Equal(t, StateBrowsing, m.State)

	_, cmd = press(m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_GateRedirects(t *testing.T) {
	tests := []struct {
		name string
		snap domain.SessionSnapshot
		want route.Group
	}{
		{"not onboarded", domain.SessionSnapshot{State: domain.SyncSynced}, route.GroupOnboarding},
		{"signed out", signedOut, route.GroupAuth},
		{"restore failed", domain.SessionSnapshot{State: domain.SyncError, Onboarded: true}, route.GroupAuth},
		{"signed in", signedIn, route.GroupMain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel(t)
			m, _ = update(m, SessionChangedMsg{Snapshot: restoring})
			m, _ = update(m, SessionChangedMsg{Snapshot: tt.snap})

			assert.False(t, m.Gate.Waiting())
			assert.Equal(t, tt.want, m.Router.Current())
		})
	}
}

func TestModel_SignOutReturnsToAuth(t *testing.T) {
	m, _ := signIn(t)

	m, _ = update(m, SessionChangedMsg{Snapshot: signedOut})
	assert.Equal(t, route.GroupAuth, m.Router.Current())
	assert.Equal(t, AuthModeLogin, m.AuthMode)
	assert.Contains(t, m.View(), "Login")
}

func TestModel_CompleteOnboarding(t *testing.T) {
	m, env := newTestModel(t)
	m, _ = update(m, SessionChangedMsg{Snapshot: domain.SessionSnapshot{State: domain.SyncSynced}})
	require.Equal(t, route.GroupOnboarding, m.Router.Current())
	assert.Contains(t, m.View(), "Welcome to Marquee")

	press(m, enterKey)
	assert.Equal(t, 1, env.session.onboarded)
}

func TestModel_Login(t *testing.T) {
	m, env := newTestModel(t)
	m, _ = update(m, SessionChangedMsg{Snapshot: signedOut})

	m, _ = press(m, runes("ada@example.com"), enterKey, runes("secret"))
	m, cmd := press(m, enterKey)
	require.NotNil(t, cmd)
	assert.True(t, m.AuthForms[AuthModeLogin].Busy())

	msg := cmd()
	require.IsType(t, AuthResultMsg{}, msg)
	assert.NoError(t, msg.(AuthResultMsg).Err)
	assert.Equal(t, []string{"ada@example.com"}, env.session.logins)

	m, _ = update(m, msg)
	assert.False(t, m.AuthForms[AuthModeLogin].Busy())

	// Success is reflected through the session snapshot
	m, _ = update(m, SessionChangedMsg{Snapshot: signedIn})
	assert.Equal(t, route.GroupMain, m.Router.Current())
}

func TestModel_LoginError(t *testing.T) {
	m, env := newTestModel(t)
	env.session.loginErr = domain.NewAuthError(domain.AuthInvalidCredentials, "INVALID_PASSWORD", nil)
	m, _ = update(m, SessionChangedMsg{Snapshot: signedOut})

	m, cmd := press(m, runes("ada@example.com"), enterKey, runes("wrong"), enterKey)
	m, _ = update(m, cmd())

	assert.Equal(t, domain.AuthInvalidCredentials.Message(), m.AuthForms[AuthModeLogin].Error())
	assert.Equal(t, route.GroupAuth, m.Router.Current())
}

func TestModel_LoginWithProviderNoticeIsNotAFailure(t *testing.T) {
	m, env := newTestModel(t)
	env.session.loginErr = &domain.OperationNotice{
		Op:  "login",
		Err: domain.NewAuthError(domain.AuthRateLimited, "", nil),
	}
	m, _ = update(m, SessionChangedMsg{Snapshot: signedOut})

	m, cmd := press(m, runes("ada@example.com"), enterKey, runes("secret"), enterKey)
	m, _ = update(m, cmd())

	assert.False(t, m.AuthForms[AuthModeLogin].Busy())
	assert.Empty(t, m.AuthForms[AuthModeLogin].Error())
}

func TestModel_LoginRequiresAllFields(t *testing.T) {
	m, env := newTestModel(t)
	m, _ = update(m, SessionChangedMsg{Snapshot: signedOut})

	m, cmd := press(m, runes("ada@example.com"), enterKey, enterKey)
	assert.Nil(t, cmd)
	assert.Equal(t, "Please fill in all fields.", m.AuthForms[AuthModeLogin].Error())
	assert.Empty(t, env.session.logins)
}

func TestModel_RegisterPasswordMismatch(t *testing.T) {
	m, env := newTestModel(t)
	m, _ = update(m, SessionChangedMsg{Snapshot: signedOut})

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Equal(t, AuthModeRegister, m.AuthMode)

	m, cmd := press(m,
		runes("Ada"), enterKey,
		runes("ada@example.com"), enterKey,
		runes("abcdef"), enterKey,
		runes("abcdeg"), enterKey,
	)
	assert.Nil(t, cmd)
	assert.Equal(t, "Passwords do not match.", m.AuthForms[AuthModeRegister].Error())
	assert.Empty(t, env.session.registered)
}

func TestModel_PasswordReset(t *testing.T) {
	m, env := newTestModel(t)
	m, _ = update(m, SessionChangedMsg{Snapshot: signedOut})

	// The typed email carries over to the reset form
	m, _ = press(m, runes("ada@example.com"), tea.KeyMsg{Type: tea.KeyCtrlF})
	require.Equal(t, AuthModeReset, m.AuthMode)
	assert.Equal(t, "ada@example.com", m.AuthForms[AuthModeReset].Value(0))

	m, cmd := press(m, enterKey)
	require.NotNil(t, cmd)
	m, _ = update(m, cmd())

	assert.Equal(t, []string{"ada@example.com"}, env.session.resets)
	assert.Contains(t, m.AuthForms[AuthModeReset].Notice(), "Password reset email sent")

	m, _ = press(m, escKey)
	assert.Equal(t, AuthModeLogin, m.AuthMode)
}

func TestModel_EscapeClearsSessionError(t *testing.T) {
	m, env := newTestModel(t)
	failed := domain.SessionSnapshot{
		State:     domain.SyncError,
		Onboarded: true,
		Err:       domain.NewAuthError(domain.AuthSessionExpired, "TOKEN_EXPIRED", nil),
	}
	m, _ = update(m, SessionChangedMsg{Snapshot: failed})
	require.Equal(t, route.GroupAuth, m.Router.Current())
	assert.Equal(t, domain.AuthSessionExpired.Message(), m.AuthForms[AuthModeLogin].Error())

	m, _ = press(m, escKey)
	assert.Equal(t, 1, env.session.clearErrors)
	assert.Empty(t, m.AuthForms[AuthModeLogin].Error())
}

func TestModel_MainShowsFirstCategory(t *testing.T) {
	m, _ := signIn(t)

	assert.Equal(t, TabMovies, m.Tab)
	assert.Equal(t, popularMovies, m.currentKey())
	assert.Equal(t, 3, m.List.ItemCount())
	require.NotNil(t, m.List.Selected())
	assert.Equal(t, "Inception", m.List.Selected().Title)

	view := m.View()
	assert.Contains(t, view, "Movies")
	assert.Contains(t, view, "Ada")
	assert.Contains(t, view, "Inception")
}

func TestModel_TabLoadsStream(t *testing.T) {
	m, env := signIn(t)

	m, cmd := press(m, tabKey)
	require.Equal(t, TabTV, m.Tab)
	assert.True(t, m.pending[popularTV.String()])
	require.NotNil(t, cmd)

	msg := cmd()
	require.IsType(t, PageLoadedMsg{}, msg)
	assert.Equal(t, []string{popularTV.String()}, env.catalog.fetches)

	show := domain.MediaSummary{ID: 1396, Kind: domain.MediaKindTV, Title: "Breaking Bad"}
	env.catalog.setItems(popularTV, false, show)
	m, _ = update(m, msg)

	assert.False(t, m.pending[popularTV.String()])
	require.Equal(t, 1, m.List.ItemCount())
	assert.Equal(t, "Breaking Bad", m.List.Selected().Title)
}

func TestModel_StalePageMessageIgnoredByList(t *testing.T) {
	m, env := signIn(t)

	env.catalog.setItems(popularTV, false, domain.MediaSummary{ID: 1, Kind: domain.MediaKindTV, Title: "Other"})
	m, _ = update(m, PageLoadedMsg{Key: popularTV})

	assert.Equal(t, 3, m.List.ItemCount())
	assert.Equal(t, "Inception", m.List.Selected().Title)
}

func TestModel_ShiftCategory(t *testing.T) {
	m, _ := signIn(t)

	m, _ = press(m, runes("l"))
	assert.Equal(t, catalog.CategoryKey(domain.MediaKindMovie, domain.CategoryTrending), m.currentKey())
	assert.Contains(t, m.List.Title(), "Trending")

	m, _ = press(m, runes("h"), runes("h"))
	assert.Equal(t, catalog.CategoryKey(domain.MediaKindMovie, domain.CategoryUpcoming), m.currentKey())
}

func TestModel_ScrollingNearEndFetchesMore(t *testing.T) {
	m, env := signIn(t)

	m, cmd := press(m, runes("j"))
	require.NotNil(t, cmd)
	assert.True(t, m.pending[popularMovies.String()])

	// A second request is not issued while one is outstanding
	_, cmd2 := press(m, runes("j"))
	assert.Nil(t, cmd2)

	_ = execFirst(t, cmd)
	assert.Contains(t, env.catalog.fetches, popularMovies.String())
}

func TestModel_Refresh(t *testing.T) {
	m, env := signIn(t)

	m, cmd := press(m, runes("r"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, []string{popularMovies.String()}, env.catalog.refreshes)

	m, _ = update(m, msg)
	assert.False(t, m.pending[popularMovies.String()])
}

func TestModel_DetailsAndPersonPages(t *testing.T) {
	m, env := signIn(t)
	env.catalog.details[inception.ID] = &domain.MediaDetails{
		MediaSummary: inception,
		Runtime:      148,
		Cast:         []domain.CastMember{{ID: 6193, Name: "Leonardo DiCaprio", Character: "Cobb"}},
	}
	env.catalog.similar[inception.ID] = []domain.MediaSummary{interstellar}
	env.catalog.people[6193] = &domain.PersonDetails{
		ID:      6193,
		Name:    "Leonardo DiCaprio",
		Credits: []domain.MediaSummary{inception},
	}

	// Open details
	m, cmd := press(m, enterKey)
	require.Equal(t, 1, m.Pages.Len())
	assert.False(t, m.Pages.Top().Loaded())
	require.NotNil(t, cmd)

	m, _ = update(m, cmd())
	require.True(t, m.Pages.Top().Loaded())
	assert.Equal(t, []domain.MediaSummary{interstellar}, m.Pages.Top().Similar)
	links := m.PageView.Links()
	require.Len(t, links, 2)
	assert.Equal(t, "Leonardo DiCaprio", links[0].Label)
	assert.Contains(t, m.View(), "Inception")

	// Follow the cast link
	m, cmd = press(m, enterKey)
	require.Equal(t, 2, m.Pages.Len())
	assert.Equal(t, []string{"Inception", "Leonardo DiCaprio"}, m.Pages.Breadcrumb())
	m, _ = update(m, cmd())
	assert.Equal(t, "Inception", m.PageView.Links()[0].Label)

	// Back restores the details page
	m, _ = press(m, escKey)
	require.Equal(t, 1, m.Pages.Len())
	assert.Equal(t, "Leonardo DiCaprio", m.PageView.SelectedLink().Label)

	m, _ = press(m, escKey)
	assert.Equal(t, 0, m.Pages.Len())
	assert.Equal(t, route.GroupMain, m.Router.Current())
}

func TestModel_FailedDetailsDropsPage(t *testing.T) {
	m, _ := signIn(t)

	m, cmd := press(m, enterKey)
	require.Equal(t, 1, m.Pages.Len())

	msg := cmd()
	require.IsType(t, ErrMsg{}, msg)
	m, _ = update(m, msg)

	assert.Equal(t, 0, m.Pages.Len())
	assert.True(t, m.StatusIsErr)
	assert.Contains(t, m.StatusMsg, "Not found")
}

func TestModel_VideoLinkLaunchesPlayer(t *testing.T) {
	m, env := signIn(t)
	cached := &domain.MediaDetails{MediaSummary: inception}
	env.catalog.details[inception.ID] = cached
	env.catalog.videos[inception.ID] = []domain.VideoRef{{Key: "YoHD9XEInc0", Name: "Official Trailer", Site: "YouTube", Type: "Trailer"}}

	m, cmd := press(m, enterKey)
	m, _ = update(m, cmd())
	require.Len(t, m.Pages.Top().Details.Videos, 1)
	assert.Empty(t, cached.Videos, "cached details are not modified")
	require.Equal(t, components.LinkVideo, m.PageView.SelectedLink().Kind)

	m, cmd = press(m, enterKey)
	assert.Contains(t, m.StatusMsg, "Official Trailer")
	assert.Nil(t, execFirst(t, cmd))
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=YoHD9XEInc0"}, env.launcher.urls)
}

func TestModel_Logout(t *testing.T) {
	m, env := signIn(t)

	m, _ = press(m, runes("L"))
	require.Equal(t, StateConfirmLogout, m.State)
	assert.Contains(t, m.View(), "Log Out?")

	// n cancels
	m, _ = press(m, runes("n"))
	assert.Equal(t, StateBrowsing, m.State)
	assert.Zero(t, env.session.logouts)

	m, _ = press(m, runes("L"))
	m, cmd := press(m, runes("y"))
	assert.Equal(t, StateBrowsing, m.State)
	assert.Equal(t, "Signing out...", m.StatusMsg)

	msg := execFirst(t, cmd)
	require.IsType(t, LogoutCompleteMsg{}, msg)
	assert.Equal(t, 1, env.session.logouts)

	m, _ = update(m, msg)
	assert.Zero(t, env.catalog.cleared)

	m, _ = update(m, SessionChangedMsg{Snapshot: signedOut})
	assert.Equal(t, route.GroupAuth, m.Router.Current())
	assert.Equal(t, 1, env.catalog.cleared, "signing out drops cached pages")
}

func TestModel_SearchDebounce(t *testing.T) {
	m, _ := signIn(t)

	m, _ = press(m, tabKey, tabKey)
	require.Equal(t, TabSearch, m.Tab)
	require.True(t, m.SearchInput.Focused())

	m, cmd := press(m, runes("dune"))
	require.NotNil(t, cmd)
	seq := m.searchSeq
	assert.Empty(t, m.SearchQuery)

	// A superseded debounce tick does nothing
	m, _ = update(m, SearchDebounceMsg{Seq: seq - 1})
	assert.Empty(t, m.SearchQuery)

	m, cmd = update(m, SearchDebounceMsg{Seq: seq})
	assert.Equal(t, "dune", m.SearchQuery)
	key := catalog.SearchKey(domain.MediaKindMovie, "dune")
	assert.Equal(t, key, m.currentKey())
	assert.True(t, m.pending[key.String()])
	assert.NotNil(t, cmd)
	assert.Contains(t, m.List.Title(), `"dune"`)
}

func TestModel_SearchKindToggle(t *testing.T) {
	m, _ := signIn(t)
	m, _ = press(m, tabKey, tabKey, runes("alien"), enterKey)
	require.False(t, m.SearchInput.Focused())
	require.Equal(t, "alien", m.SearchQuery)

	m, _ = press(m, runes("l"))
	assert.Equal(t, catalog.SearchKey(domain.MediaKindTV, "alien"), m.currentKey())
}

func TestModel_GlobalFinder(t *testing.T) {
	m, env := signIn(t)
	env.searcher.results = []search.FilterResult{
		{FilterItem: search.FilterItem{Item: darkKnight, Title: darkKnight.Title, Kind: darkKnight.Kind, Source: popularMovies}},
	}

	m, _ = press(m, runes("f"))
	require.True(t, m.GlobalSearch.IsVisible())

	m, _ = press(m, runes("dark"))
	assert.Equal(t, []string{"dark"}, env.searcher.queries)
	assert.Equal(t, 1, m.GlobalSearch.ResultCount())

	m, cmd := press(m, enterKey)
	assert.False(t, m.GlobalSearch.IsVisible())
	require.Equal(t, 1, m.Pages.Len())
	assert.Equal(t, darkKnight.ID, m.Pages.Top().ID)
	assert.NotNil(t, cmd)
}

func TestModel_Help(t *testing.T) {
	m, _ := signIn(t)

	m, _ = press(m, runes("?"))
	require.Equal(t, StateHelp, m.State)
	assert.Contains(t, m.View(), "BROWSING")

	m, _ = press(m, runes("x"))
	assert.Equal(t, StateBrowsing, m.State)
}

func TestModel_ProfileTab(t *testing.T) {
	m, _ := signIn(t)

	m, _ = press(m, tabKey, tabKey, escKey, tabKey)
	require.Equal(t, TabProfile, m.Tab)

	view := m.View()
	assert.Contains(t, view, "ada@example.com")
	assert.Contains(t, view, "uid-1")
}
