package platform

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// clipboard tools in probe order, per OS.
var clipboardTools = map[string][][]string{
	"linux": {
		{"wl-copy"},
		{"xclip", "-selection", "clipboard"},
		{"xsel", "--clipboard", "--input"},
	},
	"darwin":  {{"pbcopy"}},
	"windows": {{"clip"}},
}

// Clipboard writes text to the system clipboard by piping it through the
// first available clipboard tool. The probe result is cached after the
// first write.
type Clipboard struct {
	logger *slog.Logger

	once sync.Once
	tool []string
}

func NewClipboard(logger *slog.Logger) *Clipboard {
	return &Clipboard{logger: logger}
}

func (c *Clipboard) SetText(text string) error {
	c.once.Do(func() {
		for _, candidate := range clipboardTools[runtime.GOOS] {
			if _, err := exec.LookPath(candidate[0]); err == nil {
				c.tool = candidate
				c.logger.Debug("clipboard tool selected", "tool", candidate[0])
				return
			}
		}
	})
	if c.tool == nil {
		return fmt.Errorf("no clipboard tool available on %s", runtime.GOOS)
	}

	cmd := exec.Command(c.tool[0], c.tool[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w (%s)", c.tool[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
