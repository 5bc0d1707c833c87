// Package platform implements the external collaborators the event router
// and startup path depend on: process spawning, clipboard writes, folder
// opening and application identity registration.
package platform

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// Launcher spawns callback commands through a shell. Spawn is fire-and-
// forget: it returns once the process started and never waits for the
// command to finish.
type Launcher struct {
	shell  string
	logger *slog.Logger
}

func NewLauncher(shell string, logger *slog.Logger) *Launcher {
	if shell == "" {
		if runtime.GOOS == "windows" {
			shell = "cmd /C"
		} else {
			shell = "sh -c"
		}
	}
	return &Launcher{shell: shell, logger: logger}
}

func (l *Launcher) Spawn(commandLine string) error {
	commandLine = strings.TrimSpace(commandLine)
	if commandLine == "" {
		return fmt.Errorf("empty command line")
	}

	parts := strings.Fields(l.shell)
	args := append(parts[1:], commandLine)
	cmd := exec.Command(parts[0], args...)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	// Reap in the background so finished commands don't linger as zombies.
	go func() {
		if err := cmd.Wait(); err != nil {
			l.logger.Debug("callback command exited with error", "command", commandLine, "err", err)
		}
	}()

	return nil
}
