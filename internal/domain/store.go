package domain

// Keys owned by the session synchronizer in the local session store
const (
	KeySessionSnapshot = "session-snapshot"
	KeyOnboardingFlag  = "onboarding-flag"
)

// SessionStore is scoped key-value persistence of opaque strings.
// Get reports found=false for absent keys; errors are IO failures only.
type SessionStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}
