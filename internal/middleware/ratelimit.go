// ratelimit.go implements a per-IP fixed-window rate limiter backed by
// Redis. Counters live in Redis so they survive process restarts and are
// shared across replicas. Designed for auth endpoints (login, register,
// refresh) where brute-force and credential stuffing are a concern.
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/soradyne/clipstream/internal/api"
)

// RateLimit returns middleware that limits requests per IP to maxRequests
// within the given window duration. Returns 429 when exceeded.
//
// The counter key is scoped by a name so different endpoints get independent
// windows (e.g. "login" and "register" don't share a budget). INCR + EXPIRE
// gives a fixed window: the first request in a window creates the key with a
// TTL, subsequent requests increment it until the key expires.
func RateLimit(rdb *redis.Client, name string, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := fmt.Sprintf("ratelimit:%s:%s", name, c.RealIP())

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				// Redis being down should not lock users out of auth
				// endpoints. Fail open and let the request through.
				return next(c)
			}

			if count == 1 {
				// First request in this window -- start the clock. If the
				// EXPIRE doesn't stick, the counter would never reset and
				// the IP would be locked out permanently once over the
				// limit; drop the key and fail open instead.
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					rdb.Del(ctx, key)
					return next(c)
				}
			}

			if count > int64(maxRequests) {
				return api.Respond(c, http.StatusTooManyRequests, nil,
					"Rate limit exceeded. Please try again later.")
			}

			return next(c)
		}
	}
}
