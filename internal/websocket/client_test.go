package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverClient dials a test server and returns the server side as a Client
// whose loops have not been started
func serverClient(t *testing.T, hub *Hub, sub Subscriber) *Client {
	t.Helper()
	clients := make(chan *Client, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		clients <- NewClient(conn, sub, hub)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case c := <-clients:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("server never upgraded")
		return nil
	}
}

func TestClient_SlowDashboardIsDisconnected(t *testing.T) {
	hub := NewHub()
	sub := Subscriber{MemberID: uuid.New(), GroupID: uuid.New(), Active: true}
	c := serverClient(t, hub, sub)

	// Nothing drains the queue, so it fills up
	for i := 0; i < queueSize; i++ {
		require.NoError(t, c.Send([]byte(`{}`)))
	}
	assert.ErrorIs(t, c.Send([]byte(`{}`)), ErrClientSlow)
	assert.True(t, c.IsClosed())
	assert.ErrorIs(t, c.Send([]byte(`{}`)), ErrClientClosed)
}

func TestClient_StartRegistersUnderMember(t *testing.T) {
	hub := NewHub()
	sub := Subscriber{MemberID: uuid.New(), GroupID: uuid.New(), Admin: true, Active: true}
	c := serverClient(t, hub, sub)

	c.Start()
	assert.Equal(t, sub, c.Subscriber())
	assert.Equal(t, 1, hub.ClientCount(sub.MemberID))

	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())
	require.Eventually(t, func() bool {
		return hub.ClientCount(sub.MemberID) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
