package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ndk123-web/backend-structure/internal/core/port"
	"github.com/ndk123-web/backend-structure/internal/infra/config"
	appLogger "github.com/ndk123-web/backend-structure/internal/infra/logger"
)

const rateLimitProblemType = "https://videotube.example.com/errors/rate-limit-exceeded"

// IdentifierFunc extracts the value a rule is scoped by, usually the client IP.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule allows Limit attempts per Identifier within Window.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces sliding-window rules backed by a RateLimitStore.
// Store failures fail open: credential endpoints stay reachable when Redis is down.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// ProblemDetails is the RFC 9457 body returned with 429 responses.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

type quota struct {
	limit     int
	remaining int
	reset     time.Time
	exceeded  bool
}

func (q quota) retryAfter(now time.Time) int {
	seconds := int(math.Ceil(q.reset.Sub(now).Seconds()))
	return max(seconds, 0)
}

// tighter reports whether q should be advertised over other.
func (q quota) tighter(other quota) bool {
	if q.exceeded != other.exceeded {
		return q.exceeded
	}
	if q.remaining != other.remaining {
		return q.remaining < other.remaining
	}
	return q.reset.Before(other.reset)
}

func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger.Named("rate_limit"), now: time.Now}
}

// WithClock replaces the limiter clock.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier scopes a rule by gin's resolved client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// AuthRateLimitRules builds the per-IP rules guarding the credential endpoints.
// Zero limits disable a rule.
func AuthRateLimitRules(cfg config.RateLimitSettings) (login, register, refresh RateLimitRule) {
	window := cfg.WindowDuration
	if window <= 0 {
		window = time.Minute
	}
	ip := ClientIPIdentifier()
	login = RateLimitRule{Name: "login", Limit: cfg.LoginMaxAttempts, Window: window, Identifier: ip}
	register = RateLimitRule{Name: "register", Limit: cfg.RegisterMaxAttempts, Window: window, Identifier: ip}
	refresh = RateLimitRule{Name: "refresh", Limit: cfg.RefreshMaxAttempts, Window: window, Identifier: ip}
	return login, register, refresh
}

// RateLimit returns a gin middleware enforcing rules. Rules without an
// identifier, limit or window are ignored.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if len(active) == 0 || rl.store == nil {
			c.Next()
			return
		}

		now := rl.now()
		var advertised *quota
		for _, rule := range active {
			id, ok := rule.Identifier(c)
			if !ok || id == "" {
				continue
			}

			q, err := rl.take(c.Request.Context(), rule, rule.Name+":"+id, now)
			if err != nil {
				rl.logger.Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("client", appLogger.MaskIP(id)),
					zap.Error(err),
				)
				continue
			}

			if q.exceeded {
				rl.logger.Info("rate limit exceeded",
					zap.String("rule", rule.Name),
					zap.String("client", appLogger.MaskIP(id)),
				)
				writeQuotaHeaders(c, q, now)
				rl.reject(c, q, now)
				return
			}
			if advertised == nil || q.tighter(*advertised) {
				advertised = &q
			}
		}

		if advertised != nil {
			writeQuotaHeaders(c, *advertised, now)
		}
		c.Next()
	}
}

// take counts the attempts in the window ending at now and records a new
// one when the rule still has room.
func (rl *RateLimiter) take(ctx context.Context, rule RateLimitRule, key string, now time.Time) (quota, error) {
	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return quota{}, err
	}
	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return quota{}, err
	}
	oldest, found, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return quota{}, err
	}

	q := quota{limit: rule.Limit, reset: now.Add(rule.Window)}
	if found {
		q.reset = oldest.Add(rule.Window)
	}
	if count >= rule.Limit {
		q.exceeded = true
		return q, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return quota{}, err
	}
	q.remaining = max(rule.Limit-count-1, 0)
	return q, nil
}

func writeQuotaHeaders(c *gin.Context, q quota, now time.Time) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(q.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(q.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(q.reset.Unix(), 10))
	if q.exceeded {
		h.Set("Retry-After", strconv.Itoa(q.retryAfter(now)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, q quota, now time.Time) {
	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}
	retry := q.retryAfter(now)

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      "Rate Limit Exceeded",
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", retry),
		Instance:   instance,
		RetryAfter: retry,
		TraceID:    GetTraceID(c),
	})
}
