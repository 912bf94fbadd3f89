package telegram

import (
	"context"
	"fmt"

	gobot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"trend-trader/internal/domain"
)

type sender interface {
	Send(c gobot.Chattable) (gobot.Message, error)
}

// Notifier posts notifications to a single Telegram chat.
type Notifier struct {
	bot    sender
	chatID int64
}

// NewNotifier connects the bot. An empty token disables it and returns nil.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	if token == "" {
		log.Warn().Msg("TG token empty: telegram notifications disabled")
		return nil, nil
	}
	bot, err := gobot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	bot.Debug = false
	log.Info().Str("@", bot.Self.UserName).Msg("Telegram connected")
	return &Notifier{bot: bot, chatID: chatID}, nil
}

func (n *Notifier) Notify(_ context.Context, note domain.Notification) error {
	msg := gobot.NewMessage(n.chatID, format(note))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send tg msg: %w", err)
	}
	return nil
}

func format(note domain.Notification) string {
	if note.Body == "" {
		return note.Title
	}
	return note.Title + "\n" + note.Body
}

var _ domain.Notifier = (*Notifier)(nil)
