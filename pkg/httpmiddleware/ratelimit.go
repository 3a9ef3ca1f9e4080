package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/xenking/sales-api/pkg/problem"
)

// RateLimitConfig configures the fixed window rate limiter.
type RateLimitConfig struct {
	// Max is the maximum number of requests allowed per window.
	Max int
	// Window is the duration of each window.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request.
	// If nil, the client IP address is used.
	KeyFunc func(*http.Request) string
	// Redis shares counters between instances. When nil or unreachable the
	// counters are kept in memory.
	Redis redis.UniversalClient
	// Prefix namespaces the Redis keys.
	Prefix string
}

type rateLimiter struct {
	cfg      RateLimitConfig
	primary  *limiter.Limiter
	fallback *limiter.Limiter
}

func newRateLimiter(ctx context.Context, cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = defaultKeyFunc
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "sales:ratelimit"
	}
	rate := limiter.Rate{Period: cfg.Window, Limit: int64(cfg.Max)}

	rl := &rateLimiter{
		cfg: cfg,
		fallback: limiter.New(memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          cfg.Prefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		}), rate),
	}
	rl.primary = rl.fallback

	if cfg.Redis != nil {
		store, err := sredis.NewStoreWithOptions(cfg.Redis, limiter.StoreOptions{
			Prefix:   cfg.Prefix,
			MaxRetry: 3,
		})
		if err != nil {
			zctx.From(ctx).Warn("Rate limit store unavailable, counting in memory", zap.Error(err))
		} else {
			rl.primary = limiter.New(store, rate)
		}
	}
	return rl
}

// get counts one request for key, switching to the in-memory counters when
// the shared store fails.
func (rl *rateLimiter) get(ctx context.Context, key string) (limiter.Context, error) {
	lc, err := rl.primary.Get(ctx, key)
	if err == nil || rl.primary == rl.fallback {
		return lc, err
	}
	zctx.From(ctx).Warn("Rate limit store failed, counting in memory", zap.Error(err))
	return rl.fallback.Get(ctx, key)
}

// RateLimit returns a middleware that enforces a per-key request limit. When
// the limit is exceeded it responds with a 429 problem document. Every
// response includes X-RateLimit-Limit, X-RateLimit-Remaining, and
// X-RateLimit-Reset headers.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(ctx, cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lc, err := rl.get(r.Context(), rl.cfg.KeyFunc(r))
			if err != nil {
				// Counting failed in both stores; serve the request.
				zctx.From(r.Context()).Error("Rate limit check failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))

			if lc.Reached {
				retryAfter := lc.Reset - time.Now().Unix()
				if retryAfter < 0 {
					retryAfter = 0
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				p := problem.New(http.StatusTooManyRequests, "Too many requests, please try again later").
					WithCode(problem.CodeRateLimited)
				p.RequestID = RequestIDFromContext(r.Context())
				problem.Write(w, r, p)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// defaultKeyFunc extracts the client IP from the request, checking
// X-Forwarded-For first, then X-Real-IP, then falling back to RemoteAddr.
func defaultKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For may contain a comma-separated list; use the first.
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
