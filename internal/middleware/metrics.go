package middleware

import (
	"strconv"

	"deedshare-backend/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics counts handled requests by method, route path and status code.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
		}
		metrics.HTTPRequests.WithLabelValues(c.Method(), c.Path(), strconv.Itoa(status)).Inc()
		return err
	}
}
