package health

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// DBPinger abstracts the database connection check.
type DBPinger interface {
	Ping() error
}

// Handlers holds dependencies for the health endpoint.
type Handlers struct {
	Rdb *redis.Client
	DB  DBPinger
}

// JSON GET /health — service status plus dependency checks.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deps := map[string]string{}

	if h.DB != nil {
		if err := h.DB.Ping(); err != nil {
			deps["database"] = "down"
		} else {
			deps["database"] = "up"
		}
	} else {
		deps["database"] = "unconfigured"
	}

	if h.Rdb != nil {
		if err := h.Rdb.Ping(ctx).Err(); err != nil {
			deps["redis"] = "down"
		} else {
			deps["redis"] = "up"
		}
	} else {
		deps["redis"] = "unconfigured"
	}

	status := "ok"
	for _, v := range deps {
		if v == "down" {
			status = "degraded"
		}
	}

	return c.JSON(fiber.Map{
		"service":      "deedshare-api",
		"status":       status,
		"time":         time.Now().UTC().Format(time.RFC3339),
		"dependencies": deps,
	})
}
