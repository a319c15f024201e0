package properties

import (
	"errors"
	"strconv"

	"deedshare-backend/internal/application/ledger"
	propsvc "deedshare-backend/internal/application/properties"
	"deedshare-backend/internal/middleware"
	"deedshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *propsvc.Service
	Ledger  *ledger.Service
}

// ListProperties GET /api/v1/properties/all
func (h *Handlers) ListProperties(c *fiber.Ctx) error {
	props, err := h.Service.ListProperties(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Properties fetched", props, nil)
}

// GetProperty GET /api/v1/properties/:property_id
func (h *Handlers) GetProperty(c *fiber.Ctx) error {
	propertyID, err := strconv.ParseUint(c.Params("property_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid property_id", 400, nil)
	}
	prop, err := h.Service.GetProperty(c.Context(), propertyID)
	if err != nil {
		if errors.Is(err, propsvc.ErrPropertyNotFound) {
			return response.Error(c, err.Error(), 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Property fetched", prop, nil)
}

// Balance GET /api/v1/properties/:property_id/balance/:address
func (h *Handlers) Balance(c *fiber.Ctx) error {
	propertyID, err := strconv.ParseUint(c.Params("property_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid property_id", 400, nil)
	}
	address := c.Params("address")
	if address == "" {
		return response.Error(c, "Missing address", 400, nil)
	}
	bps, err := h.Ledger.BalanceOf(c.Context(), propertyID, address)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Balance fetched", fiber.Map{
		"property_id":  propertyID,
		"address":      ledger.Normalize(address),
		"basis_points": bps,
	}, nil)
}

// MyHoldings GET /api/v1/properties/my-holdings — portfolio of the session user.
func (h *Handlers) MyHoldings(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil || actor.Address == "" {
		return response.Error(c, "User has no wallet address", 403, nil)
	}
	stakes, err := h.Ledger.HoldingsOf(c.Context(), actor.Address)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Holdings fetched", stakes, nil)
}

type propertyActor struct {
	UserID  string
	Address string
}

func getActor(c *fiber.Ctx) *propertyActor {
	u := middleware.GetUser(c)
	if u == nil {
		return nil
	}
	m, ok := u.(map[string]interface{})
	if !ok {
		return nil
	}
	userID, _ := m["user_id"].(string)
	address, _ := m["address"].(string)
	return &propertyActor{UserID: userID, Address: address}
}
