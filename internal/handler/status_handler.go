package handler

import (
	"net/http"

	"lanchat/internal/app/chat"
	"lanchat/internal/pkg/resp"
)

// HandleHealth reports liveness and the number of logged-in users.
func HandleHealth(manager *chat.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":  "ok",
			"service": "LAN Chat Server",
			"online":  manager.OnlineCount(),
		})
	}
}

// HandlePresence returns the online users and the group list.
func HandlePresence(manager *chat.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, manager.Snapshot())
	}
}
