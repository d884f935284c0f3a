package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/politifan/school-peaky-minds/internal/application/services"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

// ErrNotDelivered is returned when no whitelisted chat received a notification.
var ErrNotDelivered = errors.New("notification not delivered to any chat")

// Notifier pushes new records to every whitelisted chat.
type Notifier struct {
	access    *services.AccessService
	messenger Messenger
	baseURL   string
	clock     clock.Clock
	logger    *logging.ChanneledLogger
}

var _ services.Notifier = (*Notifier)(nil)

func NewNotifier(access *services.AccessService, messenger Messenger, baseURL string, clk clock.Clock, logger *logging.ChanneledLogger) *Notifier {
	return &Notifier{access: access, messenger: messenger, baseURL: baseURL, clock: clk, logger: logger}
}

// LeadCreated sends the lead card with its status keyboard.
func (n *Notifier) LeadCreated(ctx context.Context, doc records.Document) error {
	now := n.clock.Now()
	status := records.LeadStatuses.Derive(doc, now)
	text := LeadCard(doc, now)
	keyboard := StatusKeyboard(doc.File(), status, AdminURL(n.baseURL, doc))
	return n.broadcast(ctx, "lead", func(chatID int64) tgbotapi.Chattable {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		msg.ReplyMarkup = keyboard
		return msg
	})
}

// AgreementCreated sends the enrollment summary.
func (n *Notifier) AgreementCreated(ctx context.Context, doc records.Document) error {
	text := AgreementText(doc)
	return n.broadcast(ctx, "agreement", func(chatID int64) tgbotapi.Chattable {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		return msg
	})
}

func (n *Notifier) broadcast(ctx context.Context, kind string, build func(chatID int64) tgbotapi.Chattable) error {
	list, err := n.access.Whitelist(ctx)
	if err != nil {
		return err
	}
	sent := 0
	for _, chatID := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.messenger.Send(build(chatID)); err != nil {
			n.logger.Bot().Error("Failed to deliver notification", "kind", kind, "chatId", chatID, "error", err.Error())
			continue
		}
		sent++
	}
	n.logger.Bot().Info("Notification delivered", "kind", kind, "chats", sent)
	if sent == 0 {
		return fmt.Errorf("%s: %w", kind, ErrNotDelivered)
	}
	return nil
}
