package marketplace

import (
	"errors"
	"strconv"

	"deedshare-backend/internal/application/ledger"
	mktsvc "deedshare-backend/internal/application/marketplace"
	"deedshare-backend/internal/middleware"
	"deedshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *mktsvc.Service
}

// CreateListing POST /api/v1/marketplace/create-listing
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil || actor.Address == "" {
		return response.Error(c, "User has no wallet address", 403, nil)
	}

	var body struct {
		PropertyID    uint64 `json:"property_id"`
		Amount        int64  `json:"amount"`
		PricePerShare int64  `json:"price_per_share"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if body.PropertyID == 0 || body.Amount == 0 || body.PricePerShare == 0 {
		return response.Error(c, "Missing required fields", 400, nil)
	}

	listing, err := h.Service.CreateListing(c.Context(), body.PropertyID, actor.Address, body.Amount, body.PricePerShare)
	if err != nil {
		return respondMarketError(c, err)
	}
	return response.SuccessCreated(c, "Listing created", listing, nil)
}

// Buy POST /api/v1/marketplace/buy
func (h *Handlers) Buy(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil || actor.Address == "" {
		return response.Error(c, "User has no wallet address", 403, nil)
	}

	var body struct {
		ListingID uint64 `json:"listing_id"`
		Amount    int64  `json:"amount"`
		Payment   int64  `json:"payment"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if body.ListingID == 0 || body.Amount == 0 {
		return response.Error(c, "Missing required fields", 400, nil)
	}

	result, err := h.Service.Buy(c.Context(), body.ListingID, actor.Address, body.Amount, body.Payment)
	if err != nil {
		return respondMarketError(c, err)
	}
	return response.Success(c, "Shares purchased", result, nil)
}

// CancelListing POST /api/v1/marketplace/cancel-listing
func (h *Handlers) CancelListing(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil || actor.Address == "" {
		return response.Error(c, "User has no wallet address", 403, nil)
	}

	var body struct {
		ListingID uint64 `json:"listing_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.ListingID == 0 {
		return response.Error(c, "Missing required fields", 400, nil)
	}

	listing, err := h.Service.CancelListing(c.Context(), body.ListingID, actor.Address)
	if err != nil {
		return respondMarketError(c, err)
	}
	return response.Success(c, "Listing cancelled", listing, nil)
}

// GetActiveListings GET /api/v1/marketplace/active-listings
func (h *Handlers) GetActiveListings(c *fiber.Ctx) error {
	listings, err := h.Service.GetActiveListings(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Listings fetched", listings, nil)
}

// GetListing GET /api/v1/marketplace/listings/:listing_id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	listingID, err := strconv.ParseUint(c.Params("listing_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid listing_id", 400, nil)
	}
	listing, err := h.Service.GetListing(c.Context(), listingID)
	if err != nil {
		return respondMarketError(c, err)
	}
	return response.Success(c, "Listing fetched", listing, nil)
}

// MyListings GET /api/v1/marketplace/my-listings
func (h *Handlers) MyListings(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil || actor.Address == "" {
		return response.Error(c, "User has no wallet address", 403, nil)
	}
	listings, err := h.Service.GetSellerListings(c.Context(), actor.Address)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Listings fetched", listings, nil)
}

// PropertyListings GET /api/v1/marketplace/properties/:property_id/listings
func (h *Handlers) PropertyListings(c *fiber.Ctx) error {
	propertyID, err := strconv.ParseUint(c.Params("property_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid property_id", 400, nil)
	}
	listings, err := h.Service.GetPropertyListings(c.Context(), propertyID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Listings fetched", listings, nil)
}

func respondMarketError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, mktsvc.ErrListingNotFound):
		return response.Error(c, err.Error(), 404, nil)
	case errors.Is(err, mktsvc.ErrListingNotActive):
		return response.Error(c, err.Error(), 409, nil)
	case errors.Is(err, mktsvc.ErrUnauthorized):
		return response.Error(c, err.Error(), 403, nil)
	case errors.Is(err, mktsvc.ErrInsufficientPayment),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrSelfTransfer),
		errors.Is(err, ledger.ErrUnknownProperty):
		return response.Error(c, err.Error(), 400, nil)
	default:
		return response.Error(c, "Internal Server Error", 500, nil)
	}
}

type marketActor struct {
	UserID  string
	Address string
}

func getActor(c *fiber.Ctx) *marketActor {
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
	return &marketActor{UserID: userID, Address: address}
}
