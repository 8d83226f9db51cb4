/*
Package chat contains the session core of the chat server.

This file defines the Manager struct, the central owner of the chat system. It builds the
stores, router and broadcaster from the configuration, runs one Client per accepted
connection and closes them all on shutdown.
*/
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"lanchat/internal/app/account"
	"lanchat/internal/app/group"
	"lanchat/internal/app/presence"
	"lanchat/internal/app/protocol"
	"lanchat/internal/configs"
	"lanchat/internal/pkg/logx"
	"lanchat/internal/pkg/metrics"
)

// Snapshot is a point-in-time view of who is online and which groups exist.
type Snapshot struct {
	OnlineUsers []string             `json:"onlineUsers"`
	Groups      []protocol.GroupInfo `json:"groups"`
}

// Manager coordinates every live session.
type Manager struct {
	presence    *presence.Registry
	groups      *group.Store
	broadcaster *Broadcaster
	router      *Router
	metrics     *metrics.Metrics
	clientCfg   ClientConfig

	// ctx is handed to every ReadPump and cancelled by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	// mu protects clients and closed.
	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool

	// wg counts running sessions.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewManager builds the chat core over an account store.
func NewManager(cfg *configs.AppConfig, accounts *account.Store, m *metrics.Metrics) *Manager {
	reg := presence.NewRegistry()
	groups := group.NewStore(cfg.DefaultGroupName)
	broadcaster := NewBroadcaster(reg, groups, m)

	router := NewRouter(accounts, reg, groups, broadcaster, Limits{
		MaxContentBytes: cfg.MaxContentBytes,
		MaxFileBytes:    cfg.MaxFileBytes,
	}, m)

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		presence:    reg,
		groups:      groups,
		broadcaster: broadcaster,
		router:      router,
		metrics:     m,
		clientCfg: ClientConfig{
			SendQueueSize: cfg.SendQueueSize,
			MaxFrameBytes: MaxFrameBytesFor(cfg.MaxFileBytes),
			PingInterval:  cfg.PingInterval,
		},
		ctx:     ctx,
		cancel:  cancel,
		clients: make(map[*Client]struct{}),
		logger:  logx.Component("manager"),
	}
}

// Serve runs a session on conn and blocks until it ends.
func (m *Manager) Serve(conn *websocket.Conn) {
	client := NewClient(conn, m.router, m.clientCfg, m.unregister)

	if !m.register(client) {
		m.logger.Warn().Msg("Connection refused: manager is shutting down.")
		client.Close()
		return
	}
	defer m.wg.Done()

	go client.WritePump()

	m.logger.Debug().Str("session_id", client.ID()).Msg("Session started.")
	client.ReadPump(m.ctx)
}

func (m *Manager) register(c *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.clients[c] = struct{}{}
	m.wg.Add(1)
	m.metrics.Connections.Inc()
	return true
}

func (m *Manager) unregister(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[c]; ok {
		delete(m.clients, c)
		m.metrics.Connections.Dec()
	}
}

// Snapshot returns the online users and groups.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		OnlineUsers: m.presence.OnlineAccountIDs(),
		Groups:      m.groups.Infos(),
	}
}

// OnlineCount returns the number of logged-in users.
func (m *Manager) OnlineCount() int {
	return m.presence.Count()
}

// Shutdown closes every connection and waits up to timeout for the sessions to end.
// It reports whether all sessions finished in time.
func (m *Manager) Shutdown(timeout time.Duration) bool {
	m.logger.Info().Msg("Shutting down sessions...")

	m.mu.Lock()
	m.closed = true
	clients := lo.Keys(m.clients)
	m.mu.Unlock()

	m.cancel()
	for _, c := range clients {
		c.Close()
	}

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.logger.Info().Int("sessions", len(clients)).Msg("Manager shutdown complete.")
		return true
	case <-time.After(timeout):
		m.logger.Warn().Dur("timeout", timeout).Msg("Manager shutdown timed out.")
		return false
	}
}
