package notifier

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"notifyd/internal/domain"
)

const (
	telegramPollTimeout = 30

	activateCallbackPrefix = "act:"
	dismissCallbackPrefix  = "dis:"
)

// Telegram mirrors notifications to a Telegram chat. Each notification is a
// message with Activate/Dismiss buttons whose callback data carries the
// correlation tag, so a button press comes back as the matching event.
type Telegram struct {
	token  string
	chatID int64
	logger *slog.Logger

	// mu guards bot and sink: bot is written by the Run goroutine and read
	// from request-handling goroutines in Show.
	mu   sync.Mutex
	bot  *tgbotapi.BotAPI
	sink domain.EventSink
}

func NewTelegram(token string, chatID int64, logger *slog.Logger) *Telegram {
	return &Telegram{token: token, chatID: chatID, logger: logger}
}

func (t *Telegram) Subscribe(sink domain.EventSink) {
	t.mu.Lock()
	t.sink = sink
	t.mu.Unlock()
}

func (t *Telegram) Show(ctx context.Context, tag, markup string) error {
	t.mu.Lock()
	bot := t.bot
	t.mu.Unlock()
	if bot == nil {
		return fmt.Errorf("telegram backend not started")
	}

	msg := tgbotapi.NewMessage(t.chatID, extractText(markup))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Activate", activateCallbackPrefix+tag),
			tgbotapi.NewInlineKeyboardButtonData("Dismiss", dismissCallbackPrefix+tag),
		),
	)
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Run connects the bot and polls for button presses until the context is
// cancelled. Show fails until Run has connected.
func (t *Telegram) Run(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.mu.Lock()
	t.bot = bot
	t.mu.Unlock()
	t.logger.Info("telegram backend connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = telegramPollTimeout
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram backend stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.CallbackQuery != nil {
				t.handleCallback(update.CallbackQuery)
			}
		}
	}
}

func (t *Telegram) handleCallback(cq *tgbotapi.CallbackQuery) {
	t.mu.Lock()
	bot := t.bot
	sink := t.sink
	t.mu.Unlock()

	// Acknowledge first so the client stops its spinner even on bad data.
	_, _ = bot.Request(tgbotapi.NewCallback(cq.ID, ""))

	if sink == nil {
		return
	}

	switch {
	case strings.HasPrefix(cq.Data, activateCallbackPrefix):
		sink.Activated(strings.TrimPrefix(cq.Data, activateCallbackPrefix))
	case strings.HasPrefix(cq.Data, dismissCallbackPrefix):
		sink.Dismissed(strings.TrimPrefix(cq.Data, dismissCallbackPrefix), domain.DismissUserCanceled)
	default:
		t.logger.Warn("unrecognized callback data", "data", cq.Data)
	}
}

// extractText pulls the visible text lines out of toast markup. Markup that
// yields no text lines is sent as-is.
func extractText(markup string) string {
	decoder := xml.NewDecoder(strings.NewReader(markup))
	var lines []string
	depth := 0
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "text" {
				depth++
			}
		case xml.EndElement:
			if el.Name.Local == "text" {
				depth--
			}
		case xml.CharData:
			if depth > 0 {
				if s := strings.TrimSpace(string(el)); s != "" {
					lines = append(lines, s)
				}
			}
		}
	}
	if len(lines) == 0 {
		return markup
	}
	return strings.Join(lines, "\n")
}
