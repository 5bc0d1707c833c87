package notifier

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
)

func TestLog_ShowWritesTag(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	l := NewLog(logger)
	if err := l.Show(context.Background(), "notification_abc", "<toast/>"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "notification_abc") {
		t.Errorf("log output missing tag: %s", buf.String())
	}
}

func TestTelegram_ShowBeforeRunFails(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tg := NewTelegram("token", 1, logger)

	// Concurrent Shows against a backend that never connected: each must
	// report the missing connection, and the bot handle read must be safe
	// alongside Subscribe.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tg.Show(context.Background(), "tag", "<toast/>"); err == nil {
				t.Error("expected error before the backend connected")
			}
		}()
	}
	tg.Subscribe(nil)
	wg.Wait()
}

func TestExtractText(t *testing.T) {
	markup := `<toast><visual><binding template="ToastGeneric">` +
		`<text>Build finished</text><text>All 42 tests passed</text>` +
		`</binding></visual></toast>`

	got := extractText(markup)
	want := "Build finished\nAll 42 tests passed"
	if got != want {
		t.Errorf("extractText = %q, want %q", got, want)
	}
}

func TestExtractText_NoTextFallsBackToMarkup(t *testing.T) {
	markup := `<toast><audio silent="true"/></toast>`
	if got := extractText(markup); got != markup {
		t.Errorf("expected raw markup fallback, got %q", got)
	}
}
