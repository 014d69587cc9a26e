// Package route decides which screen group may be active for a given
// session state, and redirects when the active group is not allowed.
package route

import (
	"log/slog"
	"sync"

	"github.com/mmcdole/marquee/internal/domain"
)

// Group is a set of screens that share an access rule
type Group string

const (
	GroupNone       Group = ""
	GroupOnboarding Group = "onboarding"
	GroupAuth       Group = "auth"
	GroupMain       Group = "main"
)

// Decision is the outcome of evaluating the gate
type Decision int

const (
	// Wait means the session is not resolved yet; show a loading indicator
	Wait Decision = iota
	Stay
	RedirectOnboarding
	RedirectAuth
	RedirectMain
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case Stay:
		return "stay"
	case RedirectOnboarding:
		return "redirect-onboarding"
	case RedirectAuth:
		return "redirect-auth"
	case RedirectMain:
		return "redirect-main"
	default:
		return "unknown"
	}
}

// Target returns the group a redirect leads to
func (d Decision) Target() (Group, bool) {
	switch d {
	case RedirectOnboarding:
		return GroupOnboarding, true
	case RedirectAuth:
		return GroupAuth, true
	case RedirectMain:
		return GroupMain, true
	}
	return GroupNone, false
}

// Decide applies the gating rules in order:
//  1. unresolved state (Initializing, Restoring or unknown): Wait
//  2. onboarding not completed: onboarding
//  3. no session outside the auth group: auth
//  4. session inside the auth group (or before any group is shown): main
//  5. otherwise: Stay
//
// Error gates like Synced with no session. A redirect to the group that is
// already active is reported as Stay.
func Decide(snap domain.SessionSnapshot, current Group) Decision {
	if !snap.State.Resolved() {
		return Wait
	}

	authenticated := snap.State == domain.SyncSynced && snap.Session != nil

	var d Decision
	switch {
	case !snap.Onboarded:
		d = RedirectOnboarding
	case !authenticated && current != GroupAuth:
		d = RedirectAuth
	case authenticated && (current == GroupAuth || current == GroupNone):
		d = RedirectMain
	default:
		d = Stay
	}

	if target, ok := d.Target(); ok && target == current {
		return Stay
	}
	return d
}

// Navigator is the navigation stack the gate drives
type Navigator interface {
	// Current returns the active screen group
	Current() Group
	// Replace resets navigation to the root of group
	Replace(group Group)
}

// Gate re-evaluates Decide whenever the session snapshot changes or
// navigation settles, and redirects through the Navigator.
type Gate struct {
	nav    Navigator
	logger *slog.Logger

	mu       sync.Mutex
	snap     domain.SessionSnapshot
	decision Decision
}

var _ domain.SessionObserver = (*Gate)(nil)

// NewGate creates a gate. Until the first snapshot arrives it waits.
func NewGate(nav Navigator, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		nav:    nav,
		logger: logger,
		snap:   domain.SessionSnapshot{State: domain.SyncInitializing},
	}
}

// OnSessionChange records snap and re-evaluates
func (g *Gate) OnSessionChange(snap domain.SessionSnapshot) {
	g.mu.Lock()
	g.snap = snap
	g.mu.Unlock()

	g.Settle()
}

// Settle re-evaluates against the active group. Call it after every navigation.
func (g *Gate) Settle() Decision {
	g.mu.Lock()
	snap := g.snap
	g.mu.Unlock()

	current := g.nav.Current()
	d := Decide(snap, current)

	g.mu.Lock()
	g.decision = d
	g.mu.Unlock()

	if target, ok := d.Target(); ok {
		g.logger.Debug("route gate redirect", "from", string(current), "to", string(target), "state", snap.State.String())
		g.nav.Replace(target)
	}
	return d
}

// Decision returns the result of the last evaluation
func (g *Gate) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

// Waiting reports whether the gate is holding navigation behind a loading indicator
func (g *Gate) Waiting() bool {
	return g.Decision() == Wait
}
