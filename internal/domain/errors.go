package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrNotSignedIn indicates an operation needs a live credential
	ErrNotSignedIn = errors.New("no user is currently signed in")

	// ErrQueryDisabled indicates a blank search query; no request is issued
	ErrQueryDisabled = errors.New("query is not enabled")

	// ErrInvalidKind indicates an unknown media kind
	ErrInvalidKind = errors.New("invalid media kind")

	// ErrClosed indicates the component was already torn down
	ErrClosed = errors.New("closed")
)

// AuthErrorKind classifies identity provider failures.
// Provider-native codes are mapped to these kinds before reaching callers.
type AuthErrorKind int

const (
	AuthUnknown AuthErrorKind = iota
	AuthInvalidCredentials
	AuthEmailAlreadyInUse
	AuthWeakPassword
	AuthUserNotFound
	AuthRateLimited
	AuthSessionExpired
	AuthNetworkUnavailable
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthInvalidCredentials:
		return "invalid_credentials"
	case AuthEmailAlreadyInUse:
		return "email_already_in_use"
	case AuthWeakPassword:
		return "weak_password"
	case AuthUserNotFound:
		return "user_not_found"
	case AuthRateLimited:
		return "rate_limited"
	case AuthSessionExpired:
		return "session_expired"
	case AuthNetworkUnavailable:
		return "network_unavailable"
	default:
		return "unknown"
	}
}

// Message returns the user-facing text for an error kind
func (k AuthErrorKind) Message() string {
	switch k {
	case AuthInvalidCredentials:
		return "Incorrect email or password. Please try again."
	case AuthEmailAlreadyInUse:
		return "This email is already registered. Please use a different email or login."
	case AuthWeakPassword:
		return "Password should be at least 6 characters long."
	case AuthUserNotFound:
		return "No account found with this email. Please register first."
	case AuthRateLimited:
		return "Too many attempts. Please try again later or reset your password."
	case AuthSessionExpired:
		return "Session expired. Please login again."
	case AuthNetworkUnavailable:
		return "Check your internet connection and try again."
	default:
		return "An unexpected authentication error occurred."
	}
}

// AuthError is the typed failure surfaced by sign-in, sign-up and sign-out
type AuthError struct {
	Kind AuthErrorKind
	Code string // Provider-native code, for logs only
	Err  error
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth %s (%s)", e.Kind, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Kind, e.Err)
	}
	return "auth " + e.Kind.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError builds an AuthError of the given kind
func NewAuthError(kind AuthErrorKind, code string, err error) *AuthError {
	return &AuthError{Kind: kind, Code: code, Err: err}
}

// AuthErrorKindOf extracts the AuthErrorKind from err, or AuthUnknown
func AuthErrorKindOf(err error) AuthErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return AuthUnknown
}

// CatalogErrorKind classifies catalog fetch failures
type CatalogErrorKind int

const (
	CatalogUnknown CatalogErrorKind = iota
	CatalogNotFound
	CatalogRateLimited
	CatalogNetworkUnavailable
)

func (k CatalogErrorKind) String() string {
	switch k {
	case CatalogNotFound:
		return "not_found"
	case CatalogRateLimited:
		return "rate_limited"
	case CatalogNetworkUnavailable:
		return "network_unavailable"
	default:
		return "unknown"
	}
}

// CatalogError is a fetch failure scoped to a single query key
type CatalogError struct {
	Kind   CatalogErrorKind
	Status int // HTTP status, 0 for transport failures
	Err    error
}

func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog %s: %v", e.Kind, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("catalog %s (status %d)", e.Kind, e.Status)
	}
	return "catalog " + e.Kind.String()
}

func (e *CatalogError) Unwrap() error { return e.Err }

// CatalogErrorKindOf extracts the CatalogErrorKind from err, or CatalogUnknown
func CatalogErrorKindOf(err error) CatalogErrorKind {
	var ce *CatalogError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return CatalogUnknown
}

// IOError wraps a local persistence failure. Always non-fatal.
type IOError struct {
	Op  string // "get", "set", "remove"
	Key string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("session store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// OperationNotice is returned alongside a successful Login, Register or
// Logout when the provider reported an error while the operation ran.
// The operation took effect; Err is what the provider said.
type OperationNotice struct {
	Op  string
	Err error
}

func (e *OperationNotice) Error() string {
	return fmt.Sprintf("%s completed with provider error: %v", e.Op, e.Err)
}

func (e *OperationNotice) Unwrap() error { return e.Err }

// IsOperationNotice reports whether err only carries a provider notice
// for an operation that succeeded
func IsOperationNotice(err error) bool {
	var n *OperationNotice
	return errors.As(err, &n)
}
