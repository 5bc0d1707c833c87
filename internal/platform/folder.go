package platform

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
)

// FolderOpener reveals a directory in the desktop file manager.
type FolderOpener struct {
	logger *slog.Logger
}

func NewFolderOpener(logger *slog.Logger) *FolderOpener {
	return &FolderOpener{logger: logger}
}

func (f *FolderOpener) Open(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open folder %s: %w", path, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			f.logger.Debug("file manager exited with error", "path", path, "err", err)
		}
	}()
	return nil
}
