package handler

import (
	"lanchat/internal/app/chat"
	"lanchat/internal/configs"
	"lanchat/internal/pkg/limiter"
	"lanchat/internal/pkg/metrics"
)

// AppDeps carries what the HTTP layer needs from main.
type AppDeps struct {
	Manager *chat.Manager
	Config  *configs.AppConfig
	Metrics *metrics.Metrics

	// ConnectLimiter throttles WebSocket upgrades per client IP.
	ConnectLimiter *limiter.IPRateLimiter
}
