/*
Package limiter provides connection admission control based on client IP addresses.

It uses the token bucket algorithm (rate.Limiter) per IP and a background sweeper that
removes buckets which have refilled completely, so idle addresses do not pin memory.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lanchat/internal/pkg/errs"
	"lanchat/internal/pkg/logx"
	"lanchat/internal/pkg/resp"
)

const sweepInterval = 3 * time.Minute

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	// mu protects the limits map.
	mu sync.RWMutex

	// limits maps a client IP to its bucket.
	limits map[string]*rate.Limiter

	r rate.Limit
	b int

	stop chan struct{}
	once sync.Once
}

// NewIPRateLimiter creates an IPRateLimiter with rate r and burst b and starts its sweeper.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		stop:   make(chan struct{}),
	}

	go i.sweep()

	return i
}

// GetLimiter returns the bucket for ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if exists {
		return limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists = i.limits[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.limits[ip] = limiter
	}
	return limiter
}

// Allow reports whether a request from remoteAddr may proceed now.
func (i *IPRateLimiter) Allow(remoteAddr string) bool {
	return i.GetLimiter(ClientIP(remoteAddr)).Allow()
}

// Len returns the number of tracked addresses.
func (i *IPRateLimiter) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.limits)
}

// Stop ends the background sweeper.
func (i *IPRateLimiter) Stop() {
	i.once.Do(func() { close(i.stop) })
}

func (i *IPRateLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.stop:
			return
		case now := <-ticker.C:
			removed, remaining := i.removeIdle(now)
			logx.Debug("Rate limiter sweep finished", "removed", removed, "remaining", remaining)
		}
	}
}

// removeIdle drops every bucket that is full at now.
func (i *IPRateLimiter) removeIdle(now time.Time) (int, int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for ip, limiter := range i.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(i.limits, ip)
			removed++
		}
	}
	return removed, len(i.limits)
}

// Middleware rejects requests over the limit with ErrRateLimitExceeded (HTTP 429).
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !i.Allow(r.RemoteAddr) {
			logx.Warn("Connection rejected: rate limit exceeded.", "ip", logx.AnonymizeIP(r.RemoteAddr))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP strips the port from remoteAddr.
func ClientIP(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		ip = remoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}
	return ip
}
