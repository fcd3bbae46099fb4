package middleware

import (
	"time"

	"mealcraft/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs one structured line per request.
func RequestLogger() fiber.Handler {
	log := observability.Component("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if uid, ok := c.Locals("userID").(string); ok && uid != "" {
			attrs = append(attrs, "user_id", uid)
		}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
			log.Error("request failed", attrs...)
			return err
		}
		log.Info("request", attrs...)
		return nil
	}
}
