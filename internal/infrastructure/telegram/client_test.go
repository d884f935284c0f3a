package telegram

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
)

func TestClientNotConfigured(t *testing.T) {
	t.Parallel()

	c := NewClient("", logging.NewDiscardLogger())
	assert.False(t, c.Configured())

	_, err := c.API()
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.SendText(context.Background(), 1, "hi"), ErrNotConfigured)
}

func TestClientBuildsHandleOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := NewClient("token", logging.NewDiscardLogger())
	c.newAPI = func(string) (*tgbotapi.BotAPI, error) {
		calls.Add(1)
		return &tgbotapi.BotAPI{Self: tgbotapi.User{UserName: "peaky_bot"}}, nil
	}

	var wg sync.WaitGroup
	handles := make([]*tgbotapi.BotAPI, 8)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			api, err := c.API()
			assert.NoError(t, err)
			handles[i] = api
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
}

func TestClientRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	fail := true
	c := NewClient("token", logging.NewDiscardLogger())
	c.newAPI = func(string) (*tgbotapi.BotAPI, error) {
		if fail {
			return nil, errors.New("network down")
		}
		return &tgbotapi.BotAPI{}, nil
	}

	_, err := c.API()
	require.Error(t, err)

	fail = false
	api, err := c.API()
	require.NoError(t, err)
	assert.NotNil(t, api)
}
