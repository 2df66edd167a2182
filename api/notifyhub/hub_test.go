package notifyhub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayato-h/albumdrop/types"
)

func setupWSServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/notify-ws", HandleNotifyWS(hub))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/notify-ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, want, hub.ClientCount())
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := New()
	srv := setupWSServer(t, hub)

	c1 := dialWS(t, srv)
	c2 := dialWS(t, srv)
	waitForClients(t, hub, 2)

	hub.Broadcast(&types.Notification{Action: "add", ImageURL: "https://img.example/photo.jpg"})

	for _, conn := range []*websocket.Conn{c1, c2} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var got types.Notification
		require.NoError(t, sonic.Unmarshal(payload, &got))
		assert.Equal(t, "add", got.Action)
		assert.Equal(t, "https://img.example/photo.jpg", got.ImageURL)
	}
}

func TestBroadcastSkipsClosedClients(t *testing.T) {
	hub := New()
	srv := setupWSServer(t, hub)

	c1 := dialWS(t, srv)
	c2 := dialWS(t, srv)
	waitForClients(t, hub, 2)

	require.NoError(t, c2.Close())
	waitForClients(t, hub, 1)

	// Must not error or block with one client gone.
	hub.Broadcast(&types.Notification{Action: "add", ImageURL: "https://img.example/p.png"})

	require.NoError(t, c1.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c1.ReadMessage()
	assert.NoError(t, err)
}

func TestBroadcastNilAndEmptyHub(t *testing.T) {
	hub := New()
	hub.Broadcast(nil)
	hub.Broadcast(&types.Notification{Action: "add", ImageURL: "x"})
	assert.Zero(t, hub.ClientCount())
}

func TestDisconnectUpdatesMembership(t *testing.T) {
	hub := New()
	srv := setupWSServer(t, hub)

	conn := dialWS(t, srv)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)

	// Broadcast to the empty set is a no-op.
	hub.Broadcast(&types.Notification{Action: "add", ImageURL: "y"})

	t.Run("http request without upgrade is rejected", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/notify-ws")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.NotEqual(t, http.StatusSwitchingProtocols, resp.StatusCode)
	})
}
