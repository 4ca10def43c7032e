package middleware

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/use-agent/fraudlens/config"
	"github.com/use-agent/fraudlens/models"
)

// DailyLimit returns per-identity fixed-window scan limiting middleware.
//
// Each identity (API key when authenticated, otherwise client IP) may make
// cfg.MaxScans requests per window. The window opens on the identity's first
// request and its counter expires with it; go-cache's janitor reclaims stale
// counters.
func DailyLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.MaxScans <= 0 || cfg.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	counters := gocache.New(cfg.Window, sweepInterval(cfg.Window))

	return func(c *gin.Context) {
		identity := clientIdentity(c)

		count, resetAt, err := hit(counters, identity, cfg.Window)
		if err != nil {
			// Counting must never block scanning.
			slog.Warn("rate limit: count request", "identity", identity, "error", err)
			c.Next()
			return
		}

		remaining := max(cfg.MaxScans-count, 0)
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxScans))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > cfg.MaxScans {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(resetAt).Seconds())+1))
			abortWithKind(c, models.KindRateLimit,
				fmt.Sprintf("limit of %d scans per %s reached", cfg.MaxScans, cfg.Window))
			return
		}
		c.Next()
	}
}

// hit counts one request for identity and returns the running count and
// the end of the current window.
func hit(counters *gocache.Cache, identity string, window time.Duration) (int, time.Time, error) {
	if err := counters.Add(identity, 1, window); err == nil {
		return 1, time.Now().Add(window), nil
	}
	n, err := counters.IncrementInt(identity, 1)
	if err != nil {
		// The window expired between Add and IncrementInt: open a new one.
		counters.Set(identity, 1, window)
		return 1, time.Now().Add(window), nil
	}
	_, exp, _ := counters.GetWithExpiration(identity)
	return n, exp, nil
}

func sweepInterval(window time.Duration) time.Duration {
	return min(max(window/10, time.Second), 10*time.Minute)
}
