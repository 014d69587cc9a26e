package domain

// Session is an immutable snapshot of the signed-in user.
// A new value replaces the old one; it is never mutated in place.
type Session struct {
	ID          string  `json:"uid"`
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"photoURL"`
}

// Name returns the best available display label for the user
func (s Session) Name() string {
	if s.DisplayName != nil && *s.DisplayName != "" {
		return *s.DisplayName
	}
	if s.Email != nil && *s.Email != "" {
		return *s.Email
	}
	return s.ID
}

// Equal compares two sessions field by field (pointer contents, not identity)
func (s Session) Equal(o Session) bool {
	return s.ID == o.ID &&
		eqStr(s.Email, o.Email) &&
		eqStr(s.DisplayName, o.DisplayName) &&
		eqStr(s.AvatarURL, o.AvatarURL)
}

func eqStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SyncState is the session synchronizer's state machine value
type SyncState int

const (
	SyncInitializing SyncState = iota
	SyncRestoring
	SyncSynced
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncInitializing:
		return "initializing"
	case SyncRestoring:
		return "restoring"
	case SyncSynced:
		return "synced"
	case SyncError:
		return "error"
	default:
		return "unknown"
	}
}

// Resolved reports whether the state allows a gating decision.
// Error is resolved: it gates like Synced with no session.
func (s SyncState) Resolved() bool {
	return s == SyncSynced || s == SyncError
}

// SessionSnapshot is the reactive value published by the synchronizer
type SessionSnapshot struct {
	State     SyncState
	Session   *Session // nil when signed out or not yet synced
	Onboarded bool
	Err       error // Last surfaced error (Error state reason or failed operation)
}

// Authenticated reports whether a session is present
func (s SessionSnapshot) Authenticated() bool {
	return s.Session != nil
}

// SessionObserver receives every new synchronizer snapshot
type SessionObserver interface {
	OnSessionChange(snapshot SessionSnapshot)
}

// SessionObserverFunc adapts a function to SessionObserver
type SessionObserverFunc func(SessionSnapshot)

func (f SessionObserverFunc) OnSessionChange(s SessionSnapshot) { f(s) }

// Notification is one push from the identity provider's session stream.
// Err is set for transport/verification failures, which are distinct from "no session".
type Notification struct {
	Session *Session
	Err     error
}
