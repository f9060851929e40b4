package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts requests per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RedisLimiter is a fixed-window limiter shared by every API instance.
type RedisLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
}

func NewRedisLimiter(redisClient *redis.Client, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{redis: redisClient, config: config}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	windowStart := now.Truncate(rl.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix())

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(incrCmd.Val())
	return Decision{
		Allowed:   count <= rl.config.Limit,
		Limit:     rl.config.Limit,
		Remaining: max(rl.config.Limit-count, 0),
		Reset:     windowStart.Add(rl.config.Window),
	}, nil
}

// LocalLimiter is an in-process token bucket per key, used when Redis is not
// configured. Limit requests may burst, refilling evenly over Window.
type LocalLimiter struct {
	mu       sync.Mutex
	config   RateLimitConfig
	limiters map[string]*localEntry
	now      func() time.Time
}

type localEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func NewLocalLimiter(config RateLimitConfig) *LocalLimiter {
	return &LocalLimiter{
		config:   config,
		limiters: make(map[string]*localEntry),
		now:      time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	entry, ok := l.limiters[key]
	if !ok {
		every := rate.Every(l.config.Window / time.Duration(l.config.Limit))
		entry = &localEntry{limiter: rate.NewLimiter(every, l.config.Limit)}
		l.limiters[key] = entry
	}
	entry.lastAccess = now

	allowed := entry.limiter.AllowN(now, 1)
	tokens := entry.limiter.TokensAt(now)
	missing := float64(l.config.Limit) - tokens
	refill := time.Duration(math.Ceil(missing / float64(entry.limiter.Limit()) * float64(time.Second)))
	return Decision{
		Allowed:   allowed,
		Limit:     l.config.Limit,
		Remaining: max(int(math.Floor(tokens)), 0),
		Reset:     now.Add(refill),
	}, nil
}

// sweep drops buckets idle for a full window; they would be full again anyway.
func (l *LocalLimiter) sweep(now time.Time) {
	for key, e := range l.limiters {
		if now.Sub(e.lastAccess) > l.config.Window {
			delete(l.limiters, key)
		}
	}
}

// RateLimit enforces limiter per authenticated user, or per client IP for
// anonymous requests. Limiter failures are logged and the request proceeds.
func RateLimit(limiter Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id, ok := UserID(c); ok {
			key = "user:" + id.String()
		}

		d, err := limiter.Allow(c.Request.Context(), scope+":"+key)
		if err != nil {
			logging.Warn().Err(err).Str("scope", scope).Msg("rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			metrics.RateLimitRejections.WithLabelValues(scope).Inc()
			retryAfter := int(math.Ceil(time.Until(d.Reset).Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(retryAfter, 1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error:   "rate_limited",
				Message: fmt.Sprintf("rate limit of %d requests exceeded, try again later", d.Limit),
			})
			return
		}
		c.Next()
	}
}
