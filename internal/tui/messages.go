package tui

import (
	"github.com/mmcdole/marquee/internal/catalog"
	"github.com/mmcdole/marquee/internal/domain"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SessionChangedMsg carries a new synchronizer snapshot
type SessionChangedMsg struct {
	Snapshot domain.SessionSnapshot
}

// PageLoadedMsg signals that a page fetch for Key finished.
// The accumulated stream is read back from the cache; Err is for status only.
type PageLoadedMsg struct {
	Key  catalog.QueryKey
	Page *domain.CatalogPage
	Err  error
}

// DetailsLoadedMsg signals that a title's detail page is ready
type DetailsLoadedMsg struct {
	Kind    domain.MediaKind
	ID      int
	Details *domain.MediaDetails
	Similar []domain.MediaSummary
}

// PersonLoadedMsg signals that a cast member's page is ready
type PersonLoadedMsg struct {
	Person *domain.PersonDetails
}

// AuthMode selects the auth screen form
type AuthMode int

const (
	AuthModeLogin AuthMode = iota
	AuthModeRegister
	AuthModeReset
)

func (m AuthMode) String() string {
	switch m {
	case AuthModeRegister:
		return "Register"
	case AuthModeReset:
		return "Reset Password"
	default:
		return "Login"
	}
}

// AuthResultMsg signals that a login, register or reset request finished
type AuthResultMsg struct {
	Mode AuthMode
	Err  error
}

// LogoutCompleteMsg signals that sign-out finished
type LogoutCompleteMsg struct {
	Error error
}

// SearchDebounceMsg fires after typing pauses in the search tab
type SearchDebounceMsg struct {
	Seq int
}

// StatusMsg shows a transient footer message
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the footer message
type ClearStatusMsg struct{}

// TickMsg advances spinner animation
type TickMsg struct{}
