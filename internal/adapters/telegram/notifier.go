package telegram

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
)

// Notifier pushes operator alerts to a Telegram chat. It is optional:
// NewNotifier with an empty token returns a disabled notifier whose
// methods are no-ops, so callers never need to nil-check.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewNotifier(botToken string, chatID int64) (*Notifier, error) {
	if botToken == "" {
		return &Notifier{}, nil
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
	)

	return &Notifier{api: bot, chatID: chatID}, nil
}

// Enabled reports whether alerts will actually be delivered.
func (n *Notifier) Enabled() bool {
	return n.api != nil
}

// AlertSyncFailure reports a failed market refresh cycle.
func (n *Notifier) AlertSyncFailure(jobName string, err error) {
	n.send(fmt.Sprintf("⚠️ *%s failed*\n`%v`\n%s", jobName, err, time.Now().UTC().Format(time.RFC3339)))
}

// AlertPartialSync reports a refresh cycle that saved data but dropped
// some assets on the way.
func (n *Notifier) AlertPartialSync(jobName string, failed int) {
	n.send(fmt.Sprintf("⚠️ *%s degraded*: %d items failed\n%s", jobName, failed, time.Now().UTC().Format(time.RFC3339)))
}

func (n *Notifier) send(text string) {
	if n.api == nil {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.api.Send(msg); err != nil {
		logger.Warn("failed to send telegram alert", zap.Error(err))
	}
}
