// Package telegram delivers announcements through the Telegram Bot API and
// serves the bot's onboarding and admin commands.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-announcer-go/internal/delivery"
)

// Sender is the part of *bot.Bot used to send messages.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Messenger sends announcement text to channels and classifies failures.
type Messenger struct {
	sender Sender
	logger *zap.Logger
}

// NewMessenger creates a Messenger.
func NewMessenger(sender Sender, logger *zap.Logger) *Messenger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Messenger{sender: sender, logger: logger}
}

// SendText posts HTML-formatted text to target, which is either an @username
// or a numeric chat id. Errors are wrapped as delivery.PermanentError when
// retrying can never succeed and as delivery.RetryableError otherwise.
func (m *Messenger) SendText(ctx context.Context, target, text string) error {
	msg, err := m.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    ChatID(target),
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return ClassifyError(err)
	}

	if msg != nil {
		m.logger.Debug("message sent", zap.String("target", target), zap.Int("message_id", msg.ID))
	}
	return nil
}

// ChatID converts a channel key into the chat id form the Bot API expects.
func ChatID(target string) any {
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		return id
	}
	return target
}

// Bad request descriptions that mean the bot can never post to the chat.
var permanentBadRequests = []string{
	"chat not found",
	"bot was kicked",
	"not enough rights",
	"need administrator rights",
	"chat_write_forbidden",
	"have no rights to send",
}

// ClassifyError maps a Bot API error onto the delivery outcomes. Rate limits,
// transport failures, server errors and unrecognised bad requests are
// retryable.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var migrate *bot.MigrateError
	switch {
	case errors.Is(err, bot.ErrorForbidden), errors.As(err, &migrate):
		return delivery.PermanentError(err)
	case errors.Is(err, bot.ErrorBadRequest):
		desc := strings.ToLower(err.Error())
		for _, p := range permanentBadRequests {
			if strings.Contains(desc, p) {
				return delivery.PermanentError(err)
			}
		}
	}

	return delivery.RetryableError(err)
}
