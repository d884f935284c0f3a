// Package telegram wraps the Bot API client used for notifications, contract
// delivery and the admin bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
)

// ErrNotConfigured is returned when no bot token is set.
var ErrNotConfigured = errors.New("telegram bot token not configured")

// Client builds the Bot API handle on first use and reuses it.
type Client struct {
	token  string
	logger *logging.ChanneledLogger

	mu  sync.Mutex
	api *tgbotapi.BotAPI

	// newAPI is swapped in tests.
	newAPI func(token string) (*tgbotapi.BotAPI, error)
}

// NewClient creates a client for token. No network call is made until first use.
func NewClient(token string, logger *logging.ChanneledLogger) *Client {
	return &Client{token: token, logger: logger, newAPI: tgbotapi.NewBotAPI}
}

// Configured reports whether a token is set.
func (c *Client) Configured() bool {
	return c.token != ""
}

// API returns the shared handle, constructing it under the lock on first call.
// A failed construction is retried on the next call.
func (c *Client) API() (*tgbotapi.BotAPI, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}
	api, err := c.newAPI(c.token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}
	c.logger.Bot().Info("Telegram client ready", "username", api.Self.UserName)
	c.api = api
	return api, nil
}

// Send delivers any outgoing Bot API request that produces a message.
func (c *Client) Send(msg tgbotapi.Chattable) error {
	api, err := c.API()
	if err != nil {
		return err
	}
	if _, err := api.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// Request delivers requests with no message result, such as callback answers.
func (c *Client) Request(req tgbotapi.Chattable) error {
	api, err := c.API()
	if err != nil {
		return err
	}
	if _, err := api.Request(req); err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	return nil
}

// SendText sends a plain message with link previews disabled.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	return c.Send(msg)
}
