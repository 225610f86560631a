// Package notify delivers short organizer notifications. Delivery is best
// effort: callers log failures and carry on.
package notify

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends a text message to an organizer's chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// Telegram sends notifications through a bot account.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

// NewTelegram authenticates the bot token against the Bot API.
func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Printf("[notify] authorized on telegram account %s", bot.Self.UserName)
	return &Telegram{bot: bot}, nil
}

func (t *Telegram) Notify(ctx context.Context, chatID int64, text string) error {
	if chatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(msg)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	}
}

// Log writes notifications to the process log; used when no bot is
// configured.
type Log struct{}

func (Log) Notify(_ context.Context, chatID int64, text string) error {
	log.Printf("[notify] chat=%d %s", chatID, text)
	return nil
}

var (
	_ Notifier = (*Telegram)(nil)
	_ Notifier = Log{}
)
