/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

This file contains HandleWebSocket, which upgrades the HTTP connection and hands it to the
chat Manager for the lifetime of the session. Rate limiting runs as middleware in front.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"lanchat/internal/app/chat"
	"lanchat/internal/pkg/logx"
)

// HandleWebSocket creates an HTTP HandlerFunc that upgrades the connection and serves the
// session until it ends.
func HandleWebSocket(manager *chat.Manager, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error response.
			logx.Warn("Failed to upgrade connection to WebSocket", "remote_ip", logx.AnonymizeIP(r.RemoteAddr), "error", err.Error())
			return
		}

		logx.Debug("WebSocket connection established", "remote_ip", logx.AnonymizeIP(r.RemoteAddr))

		manager.Serve(conn)
	}
}

// NewUpgrader builds the upgrader. Development accepts every origin; otherwise the
// Origin header must be in allowedOrigins.
func NewUpgrader(isDevelopment bool, allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if isDevelopment {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}
}
