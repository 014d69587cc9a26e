package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/marquee/internal/catalog"
	"github.com/mmcdole/marquee/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Command factories for async operations

const (
	catalogTimeout = 30 * time.Second
	authTimeout    = 30 * time.Second
	searchDebounce = 350 * time.Millisecond
)

// WaitForSessionCmd blocks until the next snapshot arrives on ch
func WaitForSessionCmd(ch <-chan domain.SessionSnapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SessionChangedMsg{Snapshot: snap}
	}
}

// FetchNextCmd loads the next page of key
func FetchNextCmd(svc CatalogService, key catalog.QueryKey) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()

		page, err := svc.FetchNext(ctx, key)
		return PageLoadedMsg{Key: key, Page: page, Err: err}
	}
}

// RefreshCmd re-fetches page 1 of key, keeping the loaded pages on failure
func RefreshCmd(svc CatalogService, key catalog.QueryKey) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()

		page, err := svc.Refresh(ctx, key)
		return PageLoadedMsg{Key: key, Page: page, Err: err}
	}
}

// LoadDetailsCmd loads a title's details, similar titles and videos concurrently
func LoadDetailsCmd(svc CatalogService, kind domain.MediaKind, id int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()

		var (
			details *domain.MediaDetails
			similar *domain.CatalogPage
			videos  []domain.VideoRef
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			details, err = svc.Details(gctx, kind, id)
			return err
		})
		g.Go(func() error {
			// Similar titles are optional
			page, err := svc.Similar(gctx, kind, id)
			if err == nil {
				similar = page
			}
			return nil
		})
		g.Go(func() error {
			// So are videos
			refs, err := svc.Videos(gctx, kind, id)
			if err == nil {
				videos = refs
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return ErrMsg{Err: err, Context: "loading details"}
		}

		// The cached details are shared; attach videos to a copy
		withVideos := *details
		withVideos.Videos = videos
		msg := DetailsLoadedMsg{Kind: kind, ID: id, Details: &withVideos}
		if similar != nil {
			msg.Similar = similar.Items
		}
		return msg
	}
}

// LoadPersonCmd loads a cast member's biography and credits
func LoadPersonCmd(svc CatalogService, personID int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()

		person, err := svc.Person(ctx, personID)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading person"}
		}
		return PersonLoadedMsg{Person: person}
	}
}

// LoginCmd signs in with email and password
func LoginCmd(svc SessionService, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()

		_, err := svc.Login(ctx, email, password)
		return AuthResultMsg{Mode: AuthModeLogin, Err: err}
	}
}

// RegisterCmd creates an account and signs in
func RegisterCmd(svc SessionService, email, password, displayName string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()

		_, err := svc.Register(ctx, email, password, displayName)
		return AuthResultMsg{Mode: AuthModeRegister, Err: err}
	}
}

// PasswordResetCmd requests a password reset email
func PasswordResetCmd(svc SessionService, email string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()

		err := svc.SendPasswordReset(ctx, email)
		return AuthResultMsg{Mode: AuthModeReset, Err: err}
	}
}

// LogoutCmd signs out; the session snapshot update drives navigation
func LogoutCmd(svc SessionService) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()

		return LogoutCompleteMsg{Error: svc.Logout(ctx)}
	}
}

// LaunchVideoCmd opens a trailer in the external player
func LaunchVideoCmd(player VideoLauncher, url string) tea.Cmd {
	return func() tea.Msg {
		if err := player.Launch(url); err != nil {
			return ErrMsg{Err: err, Context: "opening video"}
		}
		return nil
	}
}

// SearchDebounceCmd fires a SearchDebounceMsg once typing pauses
func SearchDebounceCmd(seq int) tea.Cmd {
	return tea.Tick(searchDebounce, func(t time.Time) tea.Msg {
		return SearchDebounceMsg{Seq: seq}
	})
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
