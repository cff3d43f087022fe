package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/payvia/payvia/internal/auth"
)

const rateLimitPrefix = "payvia:rl:"

// RateLimit caps requests per minute for one route group, counted per caller
// identity or, before authentication, per client IP. Without Redis it is a no-op.
func RateLimit(cache *redis.Client, scope string, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 60
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		who := auth.Caller(c)
		if who == "" {
			who = c.IP()
		}
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("%s%s:%s:%d", rateLimitPrefix, scope, who, window)

		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(http.StatusTooManyRequests, "rate limit exceeded, try again later")
		}
		return c.Next()
	}
}
