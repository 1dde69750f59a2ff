package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bookhub/backend/internal/constants"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP. A bucket refills
// maxRequest tokens over window and idle buckets are dropped after idleTTL.
type RateLimiter struct {
	mu         sync.Mutex
	visitors   map[string]*visitor
	limit      rate.Limit
	burst      int
	idleTTL    time.Duration
	lastSweep  time.Time
	maxRequest int
	now        func() time.Time
}

func NewRateLimiter(maxRequest int, window time.Duration) *RateLimiter {
	if maxRequest <= 0 {
		maxRequest = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		visitors:   make(map[string]*visitor),
		limit:      rate.Every(window / time.Duration(maxRequest)),
		burst:      maxRequest,
		idleTTL:    3 * window,
		maxRequest: maxRequest,
		now:        time.Now,
	}
}

// Allow reports whether ip may proceed and how many tokens it has left.
func (rl *RateLimiter) Allow(ip string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.idleTTL {
		rl.sweep(now)
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	return allowed, int(v.limiter.TokensAt(now))
}

func (rl *RateLimiter) sweep(now time.Time) {
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, ip)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		allowed, remaining := rl.Allow(ip)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", rl.maxRequest))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", max(remaining, 0)))

		if !allowed {
			logger.GetLogger().Warn("Rate limit exceeded",
				zap.String("client_ip", ip),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("max_requests", rl.maxRequest),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				constants.BuildErrorResponse(constants.MsgRateLimited, nil))
			return
		}

		c.Next()
	}
}

func RateLimit(maxRequest int, window time.Duration) gin.HandlerFunc {
	return NewRateLimiter(maxRequest, window).Middleware()
}
