package http

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/fieldconnect/internal/config"
	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterEntryTTL      = 10 * time.Minute
)

// RateLimiter throttles requests per client IP. It uses Redis when available
// and an in-process token bucket otherwise or when Redis fails.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	limit    redis_rate.Limit
	logger   *zap.Logger
}

// NewRateLimiter builds a limiter. A nil redis limiter selects the in-process bucket.
func NewRateLimiter(limiter *redis_rate.Limiter, cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		limiter:  limiter,
		fallback: newLocalLimiter(),
		limit:    PerMinute(cfg.RequestsPerMinute, cfg.Burst),
		logger:   logger,
	}
}

// PerMinute builds a limit of rate requests per minute.
func PerMinute(rate, burst int) redis_rate.Limit {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = rate
	}
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Minute}
}

// Handle is the fiber middleware.
func (rl *RateLimiter) Handle(c *fiber.Ctx) error {
	key := "ratelimit:ip:" + c.IP()
	res := rl.allow(c.UserContext(), key)

	c.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit.Rate))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if res.Allowed > 0 {
		return c.Next()
	}

	retryAfter := int(res.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
	return apperrors.NewRateLimited("too many requests", map[string]any{"retry_after_seconds": retryAfter})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) *redis_rate.Result {
	if rl.limiter != nil {
		res, err := rl.limiter.Allow(ctx, key, rl.limit)
		if err == nil {
			return res
		}
		rl.logger.Warn("redis rate limiter failed, using local bucket", zap.Error(err))
	}
	return rl.fallback.allow(key, rl.limit)
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type localLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{entries: map[string]*limiterEntry{}, lastSweep: time.Now()}
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	perSecond := float64(limit.Rate) / limit.Period.Seconds()
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(perSecond), limit.Burst)}
		l.entries[key] = entry
	}
	entry.lastAccess = now

	res := &redis_rate.Result{Limit: limit, RetryAfter: -1}
	if entry.limiter.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = time.Duration(float64(time.Second) / perSecond)
	}
	if remaining := int(entry.limiter.TokensAt(now)); remaining > 0 {
		res.Remaining = remaining
	}
	return res
}

func (l *localLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < limiterSweepInterval {
		return
	}
	for key, entry := range l.entries {
		if now.Sub(entry.lastAccess) > limiterEntryTTL {
			delete(l.entries, key)
		}
	}
	l.lastSweep = now
}
