package ratelimit

import (
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limiter is a fixed-window per-client limiter on Redis: INCR on the
// window key, EXPIRE on first hit. Counting is best-effort; if Redis is
// down requests pass through.
type Limiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

func New(rdb *redis.Client, max int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, max: max, window: window}
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.rdb == nil || l.max <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := "ratelimit:" + clientKey(r)
		ctx := r.Context()

		count, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.rdb.Expire(ctx, key, l.window)
		}
		if count > int64(l.max) {
			w.Header().Set("Retry-After", l.window.String())
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey prefers the individual voter id when the request carries one,
// so voters behind one NAT do not share a bucket; otherwise the client IP.
func clientKey(r *http.Request) string {
	if id := r.URL.Query().Get("voterId"); id != "" {
		return "voter:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
