package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"lanchat/internal/app/account"
	"lanchat/internal/app/chat"
	"lanchat/internal/app/protocol"
	"lanchat/internal/configs"
	"lanchat/internal/pkg/errs"
	"lanchat/internal/pkg/limiter"
	"lanchat/internal/pkg/metrics"
	"lanchat/internal/pkg/resp"
)

func newServer(t *testing.T, environment string, burst int) *httptest.Server {
	t.Helper()

	cfg := &configs.AppConfig{
		Environment:       environment,
		AllowedOriginsRaw: "https://chat.lan",
		DefaultGroupName:  configs.DefaultGroupName,
		MaxContentBytes:   1024,
		MaxFileBytes:      1 << 16,
		SendQueueSize:     16,
	}

	m := metrics.New()
	manager := chat.NewManager(cfg, account.NewStore(account.NewMemoryRepository(), bcrypt.MinCost), m)
	connectLimiter := limiter.NewIPRateLimiter(rate.Every(time.Hour), burst)

	srv := httptest.NewServer(Router(&AppDeps{
		Manager:        manager,
		Config:         cfg,
		Metrics:        m,
		ConnectLimiter: connectLimiter,
	}))

	t.Cleanup(func() {
		manager.Shutdown(time.Second)
		srv.Close()
		connectLimiter.Stop()
	})
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func getJSON(t *testing.T, url string) (int, resp.JSONResponse) {
	t.Helper()

	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()

	var body resp.JSONResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return res.StatusCode, body
}

func TestRouter_Health(t *testing.T) {
	srv := newServer(t, "development", 5)

	status, body := getJSON(t, srv.URL+"/health")

	require.Equal(t, http.StatusOK, status)
	require.Equal(t, errs.OK, body.Code)

	data := body.Data.(map[string]any)
	require.Equal(t, "ok", data["status"])
	require.Equal(t, float64(0), data["online"])
}

func TestRouter_PresenceSnapshot(t *testing.T) {
	srv := newServer(t, "development", 5)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, env := range []protocol.Envelope{
		{Kind: protocol.KindRegister, Sender: "alice", Password: "pw"},
		{Kind: protocol.KindLogin, Sender: "alice", Password: "pw"},
	} {
		require.NoError(t, conn.WriteJSON(env))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var env protocol.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Kind == protocol.KindLogin {
			require.Equal(t, errs.OK, env.Code)
			break
		}
	}

	_, body := getJSON(t, srv.URL+"/api/presence")
	data := body.Data.(map[string]any)
	require.Equal(t, []any{"alice"}, data["onlineUsers"])

	groups := data["groups"].([]any)
	require.Len(t, groups, 1)
	require.Equal(t, configs.DefaultGroupName, groups[0].(map[string]any)["name"])
}

func TestRouter_Metrics(t *testing.T) {
	srv := newServer(t, "development", 5)

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "lanchat_connections_active")
	require.Contains(t, string(body), "lanchat_sessions_online")
}

func TestRouter_WebSocketRateLimit(t *testing.T) {
	srv := newServer(t, "development", 1)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, res, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusTooManyRequests, res.StatusCode)
}

func TestRouter_WebSocketOrigin(t *testing.T) {
	srv := newServer(t, "production", 5)

	t.Run("should reject an unknown origin", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://evil.example"}}
		_, res, err := websocket.DefaultDialer.Dial(wsURL(srv), header)

		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("should accept an allowed origin", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://chat.lan"}}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)

		require.NoError(t, err)
		require.NoError(t, conn.Close())
	})
}
