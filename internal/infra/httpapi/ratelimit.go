package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig bounds admission to the evaluation endpoints. Zero rates
// disable the matching limiter.
type RateLimitConfig struct {
	GlobalRPS  float64
	PerIPRPS   float64
	PerIPBurst int
	// IdleTTL drops per-client limiters unused for this long.
	IdleTTL time.Duration
}

// RateLimiter admits requests through a global and a per-client token bucket.
type RateLimiter struct {
	global   *rate.Limiter
	ipRate   rate.Limit
	ipBurst  int
	idleTTL  time.Duration
	onReject func()
	now      func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter. onReject, when set, is called for
// every rejected request.
func NewRateLimiter(cfg RateLimitConfig, onReject func()) *RateLimiter {
	rl := &RateLimiter{
		ipRate:   rate.Limit(cfg.PerIPRPS),
		ipBurst:  cfg.PerIPBurst,
		idleTTL:  cfg.IdleTTL,
		onReject: onReject,
		now:      time.Now,
		clients:  make(map[string]*clientLimiter),
	}
	if cfg.GlobalRPS > 0 {
		burst := int(cfg.GlobalRPS * 2)
		if burst < 1 {
			burst = 1
		}
		rl.global = rate.NewLimiter(rate.Limit(cfg.GlobalRPS), burst)
	}
	if rl.ipBurst <= 0 {
		rl.ipBurst = 1
	}
	if rl.idleTTL <= 0 {
		rl.idleTTL = 5 * time.Minute
	}
	return rl
}

// Allow reports whether a request from client may proceed.
func (rl *RateLimiter) Allow(client string) bool {
	if rl.global != nil && !rl.global.Allow() {
		return false
	}
	if rl.ipRate <= 0 {
		return true
	}
	return rl.clientLimiter(client).Allow()
}

func (rl *RateLimiter) clientLimiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.clients[client]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.ipRate, rl.ipBurst)}
		rl.clients[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Prune drops client limiters idle for longer than the configured TTL and
// returns how many were removed.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	removed := 0
	for client, entry := range rl.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.clients, client)
			removed++
		}
	}
	return removed
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			if rl.onReject != nil {
				rl.onReject()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}
