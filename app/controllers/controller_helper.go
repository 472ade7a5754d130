package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/MarcoHauser/LancerDesk/internal/pkg/ratelimit"
)

// applyRateLimit consults the limiter for one bucket and identity and writes
// the X-RateLimit-Remaining header. On deny it writes the 429 response with a
// Retry-After of the bucket window; a limiter persistence failure denies too.
// Returns true when the request may proceed.
func applyRateLimit(c *fiber.Ctx, limiter *ratelimit.Service, bucket ratelimit.Bucket, parts ...string) (bool, error) {
	res, err := limiter.Allow(c.Context(), bucket.Key(parts...), bucket.Window, bucket.Max)
	if err != nil {
		fiberlog.Errorf("rate limit check failed for bucket %s: %v", bucket.Name, err)
		return false, c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "rate_limit_unavailable",
			"message": "Please try again later",
		})
	}

	c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.Allowed {
		c.Set("Retry-After", strconv.Itoa(int(bucket.Window.Seconds())))
		return false, c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":   "rate_limited",
			"message": "Too many requests",
		})
	}
	return true, nil
}

func userIDKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
