package chat

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lanchat/internal/app/account"
	"lanchat/internal/app/protocol"
	"lanchat/internal/configs"
	"lanchat/internal/pkg/errs"
	"lanchat/internal/pkg/metrics"
)

const readWait = 3 * time.Second

func testConfig() *configs.AppConfig {
	return &configs.AppConfig{
		DefaultGroupName: configs.DefaultGroupName,
		MaxContentBytes:  1024,
		MaxFileBytes:     1 << 20,
		SendQueueSize:    64,
	}
}

func newTestServer(t *testing.T, cfg *configs.AppConfig) (*Manager, *metrics.Metrics, string) {
	t.Helper()

	m := metrics.New()
	accounts := account.NewStore(account.NewMemoryRepository(), bcrypt.MinCost)
	manager := NewManager(cfg, accounts, m)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		manager.Serve(conn)
	}))

	t.Cleanup(func() {
		manager.Shutdown(readWait)
		srv.Close()
	})

	return manager, m, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, env protocol.Envelope) {
	t.Helper()

	frame, err := protocol.Encode(env)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// readUntil reads envelopes until one of kind arrives.
func readUntil(t *testing.T, conn *websocket.Conn, kind protocol.Kind) protocol.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readWait)))
	for {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", kind)

		env, err := protocol.Decode(frame)
		require.NoError(t, err)
		if env.Kind == kind {
			return env
		}
	}
}

func login(t *testing.T, url, accountID string) *websocket.Conn {
	t.Helper()

	conn := dial(t, url)
	write(t, conn, protocol.Envelope{Kind: protocol.KindRegister, Sender: accountID, Password: "pw"})
	require.Equal(t, errs.OK, readUntil(t, conn, protocol.KindRegisterResponse).Code)

	write(t, conn, protocol.Envelope{Kind: protocol.KindLogin, Sender: accountID, Password: "pw"})
	require.Equal(t, errs.OK, readUntil(t, conn, protocol.KindLogin).Code)
	return conn
}

func TestManager_EndToEnd(t *testing.T) {
	manager, m, url := newTestServer(t, testConfig())

	alice := login(t, url, "alice")
	bob := login(t, url, "bob")

	online := readUntil(t, alice, protocol.KindOnlineUsers)
	for len(online.OnlineUsers) < 2 {
		online = readUntil(t, alice, protocol.KindOnlineUsers)
	}
	require.Equal(t, []string{"alice", "bob"}, online.OnlineUsers)
	require.Equal(t, 2, manager.OnlineCount())
	require.Equal(t, float64(2), testutil.ToFloat64(m.OnlineSessions))

	t.Run("should relay a private message", func(t *testing.T) {
		write(t, alice, protocol.Envelope{Kind: protocol.KindPrivateChat, Receiver: "bob", Content: "hi bob"})

		got := readUntil(t, bob, protocol.KindPrivateChat)
		require.Equal(t, "alice", got.Sender)
		require.Equal(t, "hi bob", got.Content)
	})

	t.Run("should relay a file larger than one write chunk", func(t *testing.T) {
		data := bytes.Repeat([]byte{0xab, 0x00, 0x7f}, 40000)
		write(t, alice, protocol.Envelope{
			Kind:     protocol.KindFilePrivate,
			Receiver: "bob",
			FileName: "blob.bin",
			FileSize: int64(len(data)),
			FileData: data,
		})

		got := readUntil(t, bob, protocol.KindFilePrivate)
		require.Equal(t, "blob.bin", got.FileName)
		require.Equal(t, data, got.FileData)
	})

	t.Run("should answer a malformed frame and keep the session", func(t *testing.T) {
		require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("{not json")))

		reply := readUntil(t, alice, protocol.KindPrivateChat)
		require.Equal(t, errs.ErrInvalidEnvelope, reply.Code)

		write(t, alice, protocol.Envelope{Kind: protocol.KindGetOnlineUsers})
		require.Len(t, readUntil(t, alice, protocol.KindOnlineUsers).OnlineUsers, 2)
	})

	t.Run("should announce a disconnect to the remaining users", func(t *testing.T) {
		require.NoError(t, alice.Close())

		notice := readUntil(t, bob, protocol.KindOfflineNotify)
		require.Contains(t, notice.Content, "alice")
		require.Equal(t, []string{"bob"}, readUntil(t, bob, protocol.KindOnlineUsers).OnlineUsers)

		groups := readUntil(t, bob, protocol.KindGroupList)
		require.Equal(t, []string{"bob"}, groups.GroupList[0].Members)
		require.Equal(t, 1, manager.OnlineCount())
	})

	t.Run("should let the account log in again", func(t *testing.T) {
		again := dial(t, url)
		write(t, again, protocol.Envelope{Kind: protocol.KindLogin, Sender: "alice", Password: "pw"})
		require.Equal(t, errs.OK, readUntil(t, again, protocol.KindLogin).Code)
	})
}

func TestManager_Shutdown(t *testing.T) {
	manager, m, url := newTestServer(t, testConfig())

	alice := login(t, url, "alice")
	require.Equal(t, float64(1), testutil.ToFloat64(m.Connections))

	require.True(t, manager.Shutdown(readWait))

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(readWait)))
	for {
		if _, _, err := alice.ReadMessage(); err != nil {
			break
		}
	}

	require.Equal(t, 0, manager.OnlineCount())
	require.Equal(t, float64(0), testutil.ToFloat64(m.Connections))

	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer late.Close()

	require.NoError(t, late.SetReadDeadline(time.Now().Add(readWait)))
	_, _, err = late.ReadMessage()
	require.Error(t, err)
}

func TestClient_FullQueueClosesConnection(t *testing.T) {
	clients := make(chan *Client, 1)
	router := newFixture(t).router

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		clients <- NewClient(conn, router, ClientConfig{SendQueueSize: 1, MaxFrameBytes: 1024}, nil)
	}))
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	client := <-clients

	req := require.New(t)
	req.NoError(client.Enqueue([]byte(`{"kind":"SHAKE"}`)))
	req.ErrorIs(client.Enqueue([]byte(`{"kind":"SHAKE"}`)), ErrSendQueueFull)

	select {
	case <-client.Done():
	case <-time.After(readWait):
		t.Fatal("client was not closed")
	}
	req.ErrorIs(client.Enqueue([]byte(`{"kind":"SHAKE"}`)), ErrClientClosed)

	req.NoError(conn.SetReadDeadline(time.Now().Add(readWait)))
	_, _, err := conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
