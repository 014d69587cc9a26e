package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/route"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Handle state-specific keys
	switch m.State {
	case StateHelp:
		m.State = StateBrowsing
		return m, nil

	case StateConfirmLogout:
		switch {
		case key.Matches(msg, Keys.Confirm):
			m.State = StateBrowsing
			return m, tea.Batch(LogoutCmd(m.SessionSvc), m.setStatus("Signing out...", false))
		case key.Matches(msg, Keys.Deny):
			m.State = StateBrowsing
		}
		return m, nil
	}

	// Nothing is interactive while the session is being restored
	if m.Gate.Waiting() {
		if key.Matches(msg, Keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	switch m.Router.Current() {
	case route.GroupOnboarding:
		return m.handleOnboardingKey(msg)
	case route.GroupAuth:
		return m.handleAuthKey(msg)
	case route.GroupMain:
		return m.handleMainKey(msg)
	}

	if key.Matches(msg, Keys.Quit) {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleOnboardingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, Keys.Enter), msg.String() == " ":
		// The snapshot update redirects away from onboarding
		m.SessionSvc.CompleteOnboarding()
	}
	return m, nil
}

func (m Model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	form := &m.AuthForms[m.AuthMode]

	if !form.Busy() {
		switch {
		case key.Matches(msg, Keys.SwitchMode):
			if m.AuthMode == AuthModeRegister {
				m.setAuthMode(AuthModeLogin)
			} else {
				m.setAuthMode(AuthModeRegister)
			}
			return m, nil
		case key.Matches(msg, Keys.ResetMode):
			m.setAuthMode(AuthModeReset)
			return m, nil
		case key.Matches(msg, Keys.Escape):
			if m.AuthMode != AuthModeLogin {
				m.setAuthMode(AuthModeLogin)
				return m, nil
			}
			if m.Snapshot.State == domain.SyncError {
				m.SessionSvc.ClearError()
			}
			form.SetError("")
			return m, nil
		}
	}

	updated, cmd, submitted := form.Update(msg)
	*form = updated
	if !submitted {
		return m, cmd
	}
	return m, m.submitAuth()
}

// setAuthMode switches the auth form, carrying the typed email across
func (m *Model) setAuthMode(mode AuthMode) {
	email := m.authEmail()
	m.AuthMode = mode
	m.AuthForms[mode].Reset()
	switch mode {
	case AuthModeLogin, AuthModeReset:
		m.AuthForms[mode].SetValue(0, email)
	case AuthModeRegister:
		m.AuthForms[mode].SetValue(1, email)
	}
}

func (m Model) authEmail() string {
	if m.AuthMode == AuthModeRegister {
		return m.AuthForms[AuthModeRegister].Value(1)
	}
	return m.AuthForms[m.AuthMode].Value(0)
}

// submitAuth validates the active form and starts the request
func (m *Model) submitAuth() tea.Cmd {
	form := &m.AuthForms[m.AuthMode]

	switch m.AuthMode {
	case AuthModeLogin:
		email, password := form.Value(0), form.Value(1)
		if email == "" || password == "" {
			form.SetError("Please fill in all fields.")
			return nil
		}
		form.SetBusy(true)
		return LoginCmd(m.SessionSvc, email, password)

	case AuthModeRegister:
		name, email := form.Value(0), form.Value(1)
		password, confirm := form.Value(2), form.Value(3)
		switch {
		case email == "" || password == "":
			form.SetError("Please fill in all fields.")
			return nil
		case password != confirm:
			form.SetError("Passwords do not match.")
			return nil
		}
		form.SetBusy(true)
		return RegisterCmd(m.SessionSvc, email, password, name)

	case AuthModeReset:
		email := form.Value(0)
		if !strings.Contains(email, "@") {
			form.SetError("Please enter your email address.")
			return nil
		}
		form.SetBusy(true)
		return PasswordResetCmd(m.SessionSvc, email)
	}
	return nil
}

// handleAuthResult shows the outcome of a login, register or reset request
func (m Model) handleAuthResult(msg AuthResultMsg) (tea.Model, tea.Cmd) {
	form := &m.AuthForms[msg.Mode]
	form.SetBusy(false)

	if domain.IsOperationNotice(msg.Err) {
		// Signed in anyway; the notice rides on the snapshot's error
		m.logger.Warn("auth request completed with provider error", "mode", msg.Mode.String(), "error", msg.Err)
		return m, nil
	}
	if msg.Err != nil {
		m.logger.Info("auth request failed", "mode", msg.Mode.String(), "error", msg.Err)
		form.SetError(errorMessage(msg.Err))
		return m, nil
	}

	if msg.Mode == AuthModeReset {
		form.SetNotice("Password reset email sent. Check your inbox.")
	}
	// Login and register success arrive as a session snapshot
	return m, nil
}

func (m Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Route to the finder overlay if open
	if m.GlobalSearch.IsVisible() {
		return m.handleGlobalSearchKey(msg)
	}

	// Drill-down pages
	if m.Pages.Len() > 0 {
		switch {
		case key.Matches(msg, Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, Keys.Back):
			m.popPage()
			return m, nil
		case key.Matches(msg, Keys.Enter):
			return m, m.followLink()
		case key.Matches(msg, Keys.Help):
			m.State = StateHelp
			return m, nil
		}
		var cmd tea.Cmd
		m.PageView, cmd = m.PageView.Update(msg)
		return m, cmd
	}

	// Text entry owns the keyboard
	if m.SearchInput.Focused() {
		return m.handleSearchInputKey(msg)
	}
	if m.List.IsFilterTyping() {
		cmd := m.List.Update(msg)
		m.Preview.SetItem(m.List.Selected())
		return m, cmd
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.NextTab):
		return m, m.switchTab(m.Tab + 1)

	case key.Matches(msg, Keys.PrevTab):
		return m, m.switchTab(m.Tab - 1)

	case key.Matches(msg, Keys.Logout):
		m.State = StateConfirmLogout
		return m, nil

	case key.Matches(msg, Keys.GlobalSearch):
		m.GlobalSearch.Show()
		m.GlobalSearch.SetSize(m.Width, m.Height)
		return m, m.GlobalSearch.Init()
	}

	if m.Tab == TabProfile {
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.NextCategory):
		if m.Tab == TabSearch {
			return m, m.toggleSearchKind()
		}
		return m, m.shiftCategory(1)

	case key.Matches(msg, Keys.PrevCategory):
		if m.Tab == TabSearch {
			return m, m.toggleSearchKind()
		}
		return m, m.shiftCategory(-1)

	case key.Matches(msg, Keys.Filter):
		if m.Tab == TabSearch && !m.List.IsFiltering() {
			m.SearchInput.Focus()
			return m, nil
		}
		if !m.List.IsFiltering() {
			m.List.ToggleFilter()
			return m, nil
		}

	case key.Matches(msg, Keys.Refresh):
		return m, m.refresh()

	case key.Matches(msg, Keys.LoadMore):
		m.syncList()
		return m, m.fetchNext(m.currentKey())

	case key.Matches(msg, Keys.Enter):
		if item := m.List.Selected(); item != nil {
			return m, m.openDetails(*item)
		}
		return m, nil
	}

	cmd := m.List.Update(msg)
	m.Preview.SetItem(m.List.Selected())
	if m.List.WantsMore() {
		return m, tea.Batch(cmd, m.fetchNext(m.currentKey()))
	}
	return m, cmd
}

func (m Model) handleSearchInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.SearchInput.Blur()
		return m, nil
	case "enter":
		m.SearchInput.Blur()
		m.searchSeq++
		return m, m.commitSearch()
	case "down", "tab":
		m.SearchInput.Blur()
		return m, nil
	}

	before := m.SearchInput.Value()
	var cmd tea.Cmd
	m.SearchInput, cmd = m.SearchInput.Update(msg)
	if m.SearchInput.Value() == before {
		return m, cmd
	}

	// Each search key is its own stream; wait for typing to pause before switching
	m.searchSeq++
	return m, tea.Batch(cmd, SearchDebounceCmd(m.searchSeq))
}

// toggleSearchKind flips the search tab between movies and TV
func (m *Model) toggleSearchKind() tea.Cmd {
	if m.SearchKind == domain.MediaKindMovie {
		m.SearchKind = domain.MediaKindTV
	} else {
		m.SearchKind = domain.MediaKindMovie
	}
	m.List.Reset(m.listTitle(), nil)
	return m.loadCurrent()
}

// errorMessage returns the user-facing text for a failed auth request
func errorMessage(err error) string {
	kind := domain.AuthErrorKindOf(err)
	return kind.Message()
}
