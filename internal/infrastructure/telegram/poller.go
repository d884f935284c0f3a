package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler processes one update.
type Handler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Poll long-polls for updates and hands each to h until ctx is cancelled.
func (c *Client) Poll(ctx context.Context, timeoutSeconds int, h Handler) error {
	api, err := c.API()
	if err != nil {
		return err
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = timeoutSeconds
	cfg.AllowedUpdates = []string{"message", "callback_query"}
	updates := api.GetUpdatesChan(cfg)

	c.logger.Bot().Info("Bot polling started", "timeout", timeoutSeconds)
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			c.logger.Bot().Info("Bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.HandleUpdate(ctx, update)
		}
	}
}
