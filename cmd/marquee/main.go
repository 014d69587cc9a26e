package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/marquee/internal/catalog"
	"github.com/mmcdole/marquee/internal/catalog/tmdb"
	"github.com/mmcdole/marquee/internal/config"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/identity"
	"github.com/mmcdole/marquee/internal/log"
	"github.com/mmcdole/marquee/internal/player"
	"github.com/mmcdole/marquee/internal/search"
	"github.com/mmcdole/marquee/internal/session"
	"github.com/mmcdole/marquee/internal/store"
	"github.com/mmcdole/marquee/internal/tui"
	"github.com/mmcdole/marquee/internal/tui/styles"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

const loginTimeout = 30 * time.Second

func main() {
	var showVersion, headlessLogin bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&headlessLogin, "login", false, "sign in from the command line and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("marquee %s\n", Version)
		return
	}

	if err := run(headlessLogin); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(headlessLogin bool) error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config (%s): %w", config.ConfigPath(), err)
	}

	// Setup logger
	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting marquee", "version", Version)

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	provider, err := identity.NewProvider(cfg.Identity, st.Bucket(store.BucketCredentials), logger)
	if err != nil {
		return fmt.Errorf("failed to create identity provider: %w", err)
	}
	defer provider.Close()

	sync := session.New(provider, st.Bucket(store.BucketSession), logger)
	defer sync.Close()
	if err := sync.Start(); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	if headlessLogin {
		return runLoginFlow(sync)
	}

	client := tmdb.NewClient(cfg.TMDB.APIKey, tmdb.Options{
		BaseURL:           cfg.TMDB.BaseURL,
		Language:          cfg.TMDB.Language,
		Timeout:           cfg.TMDB.Timeout,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
	}, logger)
	cache := catalog.NewCache(client, cfg.Cache.MaxStreams, logger)
	searchSvc := search.NewService(cache, logger)

	launcher := player.NewLauncher(cfg.Player.Command, cfg.Player.Args, logger)

	model := tui.NewModel(sync, cache, searchSvc, launcher, logger)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// runLoginFlow signs in from the terminal and persists the session for the next TUI launch
func runLoginFlow(sync *session.Synchronizer) error {
	// The persisted copy only counts once the provider agrees
	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	snap, err := sync.WaitResolved(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("could not reach the identity provider: %w", err)
	}
	if s := snap.Session; s != nil {
		fmt.Printf("Already signed in as %s.\n", s.Name())
		return nil
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Email: ")
	input, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	email := strings.TrimSpace(input)
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	sess, err := loginWithSpinner(sync, email, string(raw))
	if sess == nil {
		return fmt.Errorf("%s", domain.AuthErrorKindOf(err).Message())
	}
	if err != nil {
		fmt.Printf("! %s\n", domain.AuthErrorKindOf(err).Message())
	}

	fmt.Printf("✓ Signed in as %s\n", sess.Name())
	fmt.Println("Run marquee to start browsing.")
	return nil
}

// loginWithSpinner runs the login request with a visual spinner
func loginWithSpinner(sync *session.Synchronizer, email, password string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	type result struct {
		session *domain.Session
		err     error
	}
	resultCh := make(chan result, 1)

	go func() {
		s, err := sync.Login(ctx, email, password)
		resultCh <- result{s, err}
	}()

	frame := 0
	fmt.Printf("\r%s Signing in...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res := <-resultCh:
			fmt.Print(clearSpinnerLine)
			return res.session, res.err

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Signing in...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])
		}
	}
}
