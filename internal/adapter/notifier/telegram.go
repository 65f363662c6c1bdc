// Package notifier reports pipeline outcomes to operators.
package notifier

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/phylax-agent/internal/domain"
)

type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(botToken, chatID string) (*TelegramNotifier, error) {
	return newTelegram(botToken, chatID, tgbotapi.APIEndpoint)
}

func newTelegram(botToken, chatID, endpoint string) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(botToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{bot: bot, chatID: id}, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, report domain.RunReport) error {
	msg := tgbotapi.NewMessage(t.chatID, Format(report))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

// Format renders a report as a chat message.
func Format(report domain.RunReport) string {
	if report.Succeeded() {
		return fmt.Sprintf(
			"✅ %s completed\n\n"+
				"🗄 Job: %s\n"+
				"📁 File: %s\n"+
				"🕐 Took: %s",
			title(report.Operation), report.Job, report.Object, report.Duration.Round(time.Millisecond),
		)
	}
	return fmt.Sprintf(
		"❌ %s failed\n\n"+
			"🗄 Job: %s\n"+
			"🔧 Stage: %s\n"+
			"⚠️ Error: %v",
		title(report.Operation), report.Job, report.Stage, report.Err,
	)
}

func title(op domain.Operation) string {
	switch op {
	case domain.OperationRestore:
		return "Restore"
	default:
		return "Backup"
	}
}

// Nop drops every report.
type Nop struct{}

func (Nop) Notify(context.Context, domain.RunReport) error { return nil }
