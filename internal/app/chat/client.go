/*
Package chat contains the session core of the chat server.

This file defines the Client struct, representing one WebSocket connection. It owns the
connection lifecycle: ReadPump decodes and dispatches inbound envelopes in order,
WritePump is the only writer of the connection and drains a bounded send queue.
*/
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lanchat/internal/app/protocol"
	"lanchat/internal/pkg/errs"
	"lanchat/internal/pkg/logx"
	"lanchat/internal/pkg/randx"
)

const (
	// timeout for writing one chunk to the WebSocket connection.
	writeWait = 10 * time.Second

	// size of the pieces a frame is written in; each piece renews the write deadline.
	writeChunkSize = 32 * 1024

	// room left in the read limit for the JSON around a base64 file payload.
	frameOverhead = 64 * 1024
)

var (
	// ErrSendQueueFull is returned by Enqueue when the connection cannot keep up.
	// The connection is closed when it happens.
	ErrSendQueueFull = errors.New("client send queue full")

	// ErrClientClosed is returned by Enqueue once the connection is shutting down.
	ErrClientClosed = errors.New("client closed")
)

// ClientConfig sizes a Client.
type ClientConfig struct {
	// SendQueueSize bounds the frames waiting for the writer.
	SendQueueSize int

	// MaxFrameBytes is the read limit of one inbound frame.
	MaxFrameBytes int64

	// PingInterval enables WebSocket pings when positive. Pongs then extend the read deadline.
	PingInterval time.Duration
}

// MaxFrameBytesFor returns a read limit that fits a file payload of maxFileBytes once
// base64 encoded inside an envelope.
func MaxFrameBytesFor(maxFileBytes int64) int64 {
	return (maxFileBytes+2)/3*4 + frameOverhead
}

// Client is one live connection. It implements Peer.
type Client struct {
	id     string
	conn   *websocket.Conn
	router *Router
	cfg    ClientConfig

	// send is never closed; done tells producers and the writer to stop.
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	teardownOnce sync.Once
	onTeardown   func(*Client)

	mu        sync.RWMutex
	accountID string

	logger zerolog.Logger
}

// NewClient wraps conn. onTeardown, when non-nil, runs once after the session is torn down.
func NewClient(conn *websocket.Conn, router *Router, cfg ClientConfig, onTeardown func(*Client)) *Client {
	id := randx.SessionID(time.Now())

	return &Client{
		id:         id,
		conn:       conn,
		router:     router,
		cfg:        cfg,
		send:       make(chan []byte, cfg.SendQueueSize),
		done:       make(chan struct{}),
		onTeardown: onTeardown,
		logger: logx.Logger().With().
			Str("component", "client").
			Str("session_id", id).
			Str("remote_ip", logx.AnonymizeIP(conn.RemoteAddr().String())).
			Logger(),
	}
}

// ID returns the session id.
func (c *Client) ID() string {
	return c.id
}

// AccountID returns the logged-in account, empty before login.
func (c *Client) AccountID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.accountID
}

// Bind records the logged-in account.
func (c *Client) Bind(accountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accountID = accountID
}

// Enqueue queues one frame for the writer without blocking. A full queue closes the
// connection.
func (c *Client) Enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Send queue full, closing connection.")
		// Close may wait on the writer; the producer is another session's goroutine.
		go c.Close()
		return ErrSendQueueFull
	}
}

// Done is closed once the client starts shutting down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close stops the writer and closes the connection. It is safe to call many times
// from any goroutine. ReadPump notices the closed connection and tears the session down.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)

		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug().Err(err).Msg("Close frame not sent.")
		}

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	})
}

// ReadPump reads frames until the connection fails, dispatching each decoded envelope
// before reading the next. It tears the session down on return.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.teardown()

	c.conn.SetReadLimit(c.cfg.MaxFrameBytes)

	if c.cfg.PingInterval > 0 {
		pongWait := c.cfg.PingInterval * 10 / 9
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error().Err(err).Msg("Failed to set read deadline")
			return
		}
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			return
		}

		c.processFrame(ctx, frame)
	}
}

func (c *Client) processFrame(ctx context.Context, frame []byte) {
	env, err := protocol.Decode(frame)
	if err != nil {
		c.logger.Warn().Err(err).Int("frame_bytes", len(frame)).Msg("Client sent a malformed frame")

		cErr := errs.NewError(errs.ErrInvalidEnvelope)
		reply, encErr := protocol.Encode(protocol.Notice(protocol.KindPrivateChat, c.AccountID(), cErr.Message, cErr.Code))
		if encErr == nil {
			_ = c.Enqueue(reply)
		}
		return
	}

	c.router.Dispatch(ctx, c, env)
}

func (c *Client) teardown() {
	c.teardownOnce.Do(func() {
		c.router.Disconnect(c)
		c.Close()

		if c.onTeardown != nil {
			c.onTeardown(c)
		}
		c.logger.Info().Str("account_id", c.AccountID()).Msg("Session closed.")
	})
}

// WritePump writes queued frames to the connection until the client closes or a
// write fails. It is the only goroutine writing data frames.
func (c *Client) WritePump() {
	var tick <-chan time.Time
	if c.cfg.PingInterval > 0 {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case frame := <-c.send:
			if err := c.writeFrame(frame); err != nil {
				c.logger.Warn().Err(err).Msg("Error writing message")
				c.Close()
				return
			}

		case <-tick:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Warn().Err(err).Msg("Error writing ping")
				c.Close()
				return
			}

		case <-c.done:
			return
		}
	}
}

// writeFrame writes frame, already whole in memory, as one text message in
// writeChunkSize pieces. The write deadline is renewed after each piece.
func (c *Client) writeFrame(frame []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	for len(frame) > 0 {
		n := min(len(frame), writeChunkSize)
		if _, err := w.Write(frame[:n]); err != nil {
			_ = w.Close()
			return err
		}
		frame = frame[n:]

		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			_ = w.Close()
			return err
		}
	}

	return w.Close()
}
