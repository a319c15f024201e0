package requests

import (
	"errors"
	"strconv"

	"deedshare-backend/internal/application/ledger"
	reqsvc "deedshare-backend/internal/application/requests"
	"deedshare-backend/internal/domain"
	"deedshare-backend/internal/middleware"
	"deedshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *reqsvc.Service
}

type ownerBody struct {
	Address     string `json:"address"`
	BasisPoints int64  `json:"basis_points"`
}

// CreateRequest POST /api/v1/requests/create-request
func (h *Handlers) CreateRequest(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil || actor.Address == "" {
		return response.Error(c, "User has no wallet address", 403, nil)
	}

	var body struct {
		Name                    string      `json:"name"`
		PartnershipAgreementURL string      `json:"partnership_agreement_url"`
		MaintenanceAgreementURL string      `json:"maintenance_agreement_url"`
		RentAgreementURL        string      `json:"rent_agreement_url"`
		ImageURL                string      `json:"image_url"`
		Owners                  []ownerBody `json:"owners"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if body.Name == "" || len(body.Owners) == 0 {
		return response.Error(c, "Missing required fields", 400, nil)
	}

	owners := make(domain.OwnerSplit, len(body.Owners))
	for i, o := range body.Owners {
		owners[i] = domain.OwnerShare{Address: o.Address, BasisPoints: o.BasisPoints}
	}

	req, err := h.Service.CreateRequest(c.Context(), reqsvc.CreateRequestInput{
		Name:                    body.Name,
		PartnershipAgreementURL: body.PartnershipAgreementURL,
		MaintenanceAgreementURL: body.MaintenanceAgreementURL,
		RentAgreementURL:        body.RentAgreementURL,
		ImageURL:                body.ImageURL,
		Requester:               actor.Address,
		Owners:                  owners,
	})
	if err != nil {
		return respondRequestError(c, err)
	}
	return response.SuccessCreated(c, "Tokenization request submitted", req, nil)
}

// ApproveRequest POST /api/v1/requests/:request_id/approve — admin only.
func (h *Handlers) ApproveRequest(c *fiber.Ctx) error {
	requestID, err := strconv.ParseUint(c.Params("request_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid request_id", 400, nil)
	}
	actor := getActor(c)
	if actor == nil {
		return response.Error(c, "Unauthorized", 401, nil)
	}

	property, err := h.Service.ApproveRequest(c.Context(), requestID, actor.Address, actor.Role)
	if err != nil {
		return respondRequestError(c, err)
	}
	return response.Success(c, "Request approved and property minted", property, nil)
}

// RejectRequest POST /api/v1/requests/:request_id/reject — admin only.
func (h *Handlers) RejectRequest(c *fiber.Ctx) error {
	requestID, err := strconv.ParseUint(c.Params("request_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid request_id", 400, nil)
	}
	actor := getActor(c)
	if actor == nil {
		return response.Error(c, "Unauthorized", 401, nil)
	}

	req, err := h.Service.RejectRequest(c.Context(), requestID, actor.Address, actor.Role)
	if err != nil {
		return respondRequestError(c, err)
	}
	return response.Success(c, "Request rejected", req, nil)
}

// GetRequest GET /api/v1/requests/:request_id
func (h *Handlers) GetRequest(c *fiber.Ctx) error {
	requestID, err := strconv.ParseUint(c.Params("request_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid request_id", 400, nil)
	}
	req, err := h.Service.GetRequest(c.Context(), requestID)
	if err != nil {
		return respondRequestError(c, err)
	}
	return response.Success(c, "Request fetched", req, nil)
}

// ListRequests GET /api/v1/requests/all?status=pending — admin dashboards.
func (h *Handlers) ListRequests(c *fiber.Ctx) error {
	reqs, err := h.Service.ListRequests(c.Context(), c.Query("status"))
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Requests fetched", reqs, nil)
}

// MyRequests GET /api/v1/requests/my-requests
func (h *Handlers) MyRequests(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil || actor.Address == "" {
		return response.Error(c, "User has no wallet address", 403, nil)
	}
	reqs, err := h.Service.ListRequestsByRequester(c.Context(), actor.Address)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Requests fetched", reqs, nil)
}

func respondRequestError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, reqsvc.ErrUnknownRequest):
		return response.Error(c, err.Error(), 404, nil)
	case errors.Is(err, reqsvc.ErrNotPending):
		return response.Error(c, err.Error(), 409, nil)
	case errors.Is(err, reqsvc.ErrUnauthorized):
		return response.Error(c, err.Error(), 403, nil)
	case errors.Is(err, reqsvc.ErrNameRequired),
		errors.Is(err, ledger.ErrInvalidSplit),
		errors.Is(err, ledger.ErrEmptyOwners),
		errors.Is(err, ledger.ErrDuplicateOwner),
		errors.Is(err, ledger.ErrAlreadyMinted):
		return response.Error(c, err.Error(), 400, nil)
	default:
		return response.Error(c, "Internal Server Error", 500, nil)
	}
}

type requestActor struct {
	UserID  string
	Address string
	Role    string
}

func getActor(c *fiber.Ctx) *requestActor {
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
	role, _ := m["role"].(string)
	return &requestActor{UserID: userID, Address: address, Role: role}
}
