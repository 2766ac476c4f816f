package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/attack-monitor/iam-service/internal/core/port"
	"github.com/attack-monitor/iam-service/internal/infra/logger"
)

// RateLimitRule describes one sliding window applied to an endpoint.
type RateLimitRule struct {
	// Name scopes the attempt keys so endpoints do not share a window.
	Name string
	// Limit is the number of attempts allowed inside Window.
	Limit int
	// Window is the sliding window duration.
	Window time.Duration
	// Identifier extracts the client identity the window is keyed on.
	Identifier func(c *gin.Context) string
}

// ClientIPIdentifier keys the window on the caller's IP address.
func ClientIPIdentifier() func(c *gin.Context) string {
	return func(c *gin.Context) string {
		return c.ClientIP()
	}
}

// RateLimiter enforces sliding-window limits backed by a shared store.
// Store failures are logged and the request is allowed through, so a
// Redis outage degrades to no limiting instead of a hard outage.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

func NewRateLimiter(store port.RateLimitStore, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

// Limit returns a middleware enforcing the given rule.
func (rl *RateLimiter) Limit(rule RateLimitRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.store == nil || rule.Limit <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		identity := rule.Identifier(c)
		key := fmt.Sprintf("%s:%s", rule.Name, identity)
		now := rl.now()

		if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
			rl.logger.Warn("rate limit trim failed, allowing request",
				zap.String("rule", rule.Name),
				zap.String("client", logger.MaskString(identity)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
		if err != nil {
			rl.logger.Warn("rate limit count failed, allowing request",
				zap.String("rule", rule.Name),
				zap.String("client", logger.MaskString(identity)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if count >= rule.Limit {
			retryAfter := rule.Window
			if oldest, ok, err := rl.store.OldestAttempt(ctx, key, rule.Window, now); err == nil && ok {
				retryAfter = oldest.Add(rule.Window).Sub(now)
				if retryAfter < time.Second {
					retryAfter = time.Second
				}
			}

			rl.setHeaders(c, rule, 0, now.Add(retryAfter))
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, newErrorResponse(c, "too many attempts, retry later"))

			rl.logger.Warn("rate limit exceeded",
				zap.String("rule", rule.Name),
				zap.String("client", logger.MaskString(identity)),
				zap.Int("attempts", count),
			)
			return
		}

		if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
			rl.logger.Warn("rate limit record failed",
				zap.String("rule", rule.Name),
				zap.Error(err),
			)
		}

		rl.setHeaders(c, rule, rule.Limit-count-1, now.Add(rule.Window))
		c.Next()
	}
}

func (rl *RateLimiter) setHeaders(c *gin.Context, rule RateLimitRule, remaining int, reset time.Time) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}
