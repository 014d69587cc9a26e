package domain

import (
	"context"
)

// CatalogClient provides read-only access to the remote catalog API
type CatalogClient interface {
	// ListByCategory returns one page of a fixed category listing (popular, trending, ...)
	ListByCategory(ctx context.Context, kind MediaKind, category string, page int) (*CatalogPage, error)

	// Search returns one page of free-text search results
	Search(ctx context.Context, kind MediaKind, query string, page int) (*CatalogPage, error)

	// Details returns the full detail page, including cast and videos
	Details(ctx context.Context, kind MediaKind, id int) (*MediaDetails, error)

	// Similar returns the first page of titles similar to id
	Similar(ctx context.Context, kind MediaKind, id int) (*CatalogPage, error)

	// Videos returns trailers and clips for a title
	Videos(ctx context.Context, kind MediaKind, id int) ([]VideoRef, error)

	// PersonDetails returns a cast member's biography and combined credits
	PersonDetails(ctx context.Context, personID int) (*PersonDetails, error)
}

// IdentityProvider verifies credentials, issues and refreshes tokens,
// and pushes session notifications whenever the credential state changes.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUpWithPassword(ctx context.Context, email, password, displayName string) (*Session, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error

	// Subscribe registers fn for session notifications. fn is called once with the
	// current state, then on every change, in order. The returned func unsubscribes.
	Subscribe(fn func(Notification)) (unsubscribe func())
}
