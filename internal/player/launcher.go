// Package player opens trailer and clip URLs outside the terminal
package player

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Launcher opens video URLs in the configured player or the system default handler
type Launcher struct {
	command string   // configured player command, empty for system default
	args    []string // additional arguments for the player
	goos    string
	logger  *slog.Logger

	lookPath func(file string) (string, error)
	start    func(cmd *exec.Cmd) error
}

// NewLauncher creates a new Launcher
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command:  command,
		args:     args,
		goos:     runtime.GOOS,
		logger:   logger,
		lookPath: exec.LookPath,
		start:    (*exec.Cmd).Start,
	}
}

// Launch opens url without waiting for the player to exit
func (l *Launcher) Launch(url string) error {
	if url == "" {
		return fmt.Errorf("no video URL")
	}

	name, args := l.commandFor(url)
	l.logger.Info("launching player", "command", name, "args", args, "url", url)

	if err := l.start(exec.Command(name, args...)); err != nil {
		return fmt.Errorf("failed to launch %s: %w", name, err)
	}
	return nil
}

// commandFor resolves the command line that opens url
func (l *Launcher) commandFor(url string) (string, []string) {
	if l.command == "" {
		return defaultCommand(l.goos, url)
	}

	args := append([]string{}, l.args...)

	// On macOS, GUI apps outside PATH are launched with 'open -a'
	if l.goos == "darwin" {
		if _, err := l.lookPath(l.command); err != nil {
			app := strings.TrimSuffix(filepath.Base(l.command), ".app")
			openArgs := []string{"-n", "-a", app}
			if len(args) > 0 {
				openArgs = append(openArgs, "--args")
				openArgs = append(openArgs, args...)
			}
			return "open", append(openArgs, url)
		}
	}

	return l.command, append(args, url)
}

// defaultCommand returns the system URL handler for goos
func defaultCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "cmd", []string{"/c", "start", "", url}
	default:
		// Linux and other Unix-like systems
		return "xdg-open", []string{url}
	}
}
