// Package dispatch delivers rendered notifications to external channels.
// Delivery is best effort: a failed send never blocks notification
// persistence or the refresh cycle.
package dispatch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
)

// Dispatcher sends one rendered message to a recipient. The boolean reports
// whether a delivery was actually attempted for this recipient; a recipient
// the channel cannot address is skipped without error.
type Dispatcher interface {
	Send(ctx context.Context, recipient, subject, body string) (bool, error)
}

// TelegramSender is the subset of the bot client used for delivery. Narrowed
// for testability.
type TelegramSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramDispatcher delivers messages over a Telegram bot. Recipients are
// expected to be numeric chat identifiers; anything else is skipped.
type TelegramDispatcher struct {
	bot    TelegramSender
	logger *logrus.Logger
}

func NewTelegramDispatcher(sender TelegramSender, logger *logrus.Logger) *TelegramDispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &TelegramDispatcher{bot: sender, logger: logger}
}

func (d *TelegramDispatcher) Send(ctx context.Context, recipient, subject, body string) (bool, error) {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		d.logger.WithFields(logrus.Fields{"recipient": recipient}).
			Debug("Recipient is not a Telegram chat ID, skipping delivery")
		return false, nil
	}

	text := body
	if subject != "" {
		text = fmt.Sprintf("*%s*\n\n%s", bot.EscapeMarkdown(subject), body)
	}

	_, err = d.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		return true, fmt.Errorf("telegram send to chat %d: %w", chatID, err)
	}
	return true, nil
}

// LogDispatcher writes deliveries to the log. Used when no delivery channel
// is configured, so the rest of the pipeline behaves identically in
// development.
type LogDispatcher struct {
	logger *logrus.Logger
}

func NewLogDispatcher(logger *logrus.Logger) *LogDispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(_ context.Context, recipient, subject, body string) (bool, error) {
	d.logger.WithFields(logrus.Fields{
		"recipient": recipient,
		"subject":   subject,
	}).Infof("Notification: %s", body)
	return true, nil
}
