package web

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(hub)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := dialHub(t, hub)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, time.Millisecond)

	hub.Broadcast([]byte(`{"gate":{"condition":"BUTTON","met":1}}`))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.JSONEq(t, `{"gate":{"condition":"BUTTON","met":1}}`, string(msg))
}

func TestHubClientDisconnect(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, time.Millisecond)
}

func TestHubClose(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	id, ch := hub.Subscribe()
	assert.Equal(t, -1, id)
	assert.Nil(t, ch)
}

func TestHubSlowClientDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	_, ch := hub.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3*liveClientBuffer; i++ {
			hub.Broadcast([]byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full client")
	}
	assert.Len(t, ch, liveClientBuffer)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(nil)
	id, ch := hub.Subscribe()
	hub.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)
	hub.Unsubscribe(id) // second call is a no-op
}
