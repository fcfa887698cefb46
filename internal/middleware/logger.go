package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Logger logs completed requests through zerolog. Fast successful requests
// are logged at debug so production output stays within log rate limits;
// errors and slow requests (>500ms) are always visible.
func Logger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		ev := log.Debug()
		if status >= 400 || latency > 500*time.Millisecond {
			ev = log.Info()
		}
		ev.Int("status", status).
			Dur("latency", latency).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Msg("request completed")

		return err
	}
}
