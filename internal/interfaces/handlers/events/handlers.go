package events

import (
	"strconv"

	evtsvc "deedshare-backend/internal/application/events"
	"deedshare-backend/internal/middleware"
	"deedshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *evtsvc.Service
}

// PropertyEvents GET /api/v1/events/properties/:property_id
func (h *Handlers) PropertyEvents(c *fiber.Ctx) error {
	propertyID, err := strconv.ParseUint(c.Params("property_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid property_id", 400, nil)
	}
	evts, err := h.Service.PropertyEvents(c.Context(), propertyID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Events fetched", evts, nil)
}

// MyEvents GET /api/v1/events/my-events — events the session user acted in.
func (h *Handlers) MyEvents(c *fiber.Ctx) error {
	u := middleware.GetUser(c)
	m, ok := u.(map[string]interface{})
	if !ok {
		return response.Error(c, "Unauthorized", 401, nil)
	}
	address, _ := m["address"].(string)
	if address == "" {
		return response.Error(c, "User has no wallet address", 403, nil)
	}
	evts, err := h.Service.ActorEvents(c.Context(), address)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Events fetched", evts, nil)
}

// Latest GET /api/v1/events/latest?limit=100
func (h *Handlers) Latest(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	evts, err := h.Service.Latest(c.Context(), limit)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Events fetched", evts, nil)
}
