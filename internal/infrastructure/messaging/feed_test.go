package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
)

func startHub(t *testing.T, interval time.Duration) (*Hub, *httptest.Server, context.CancelFunc, chan error) {
	t.Helper()

	hub := NewHub(interval, logging.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn)
	}))
	return hub, srv, cancel, done
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHubDeliversEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, srv, cancel, done := startHub(t, time.Hour)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(Event{Type: "lead", ID: "lead_1_ab.json", Course: "Python", Timestamp: 1})

	var got Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, Event{Type: "lead", ID: "lead_1_ab.json", Course: "Python", Timestamp: 1}, got)

	cancel()
	require.NoError(t, <-done)

	// The hub closes the socket on shutdown.
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Count())
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, srv, cancel, done := startHub(t, time.Hour)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestPublishAfterStopDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(time.Hour, logging.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	for i := 0; i < 200; i++ {
		hub.Publish(Event{Type: "lead", ID: "x"})
	}
}
