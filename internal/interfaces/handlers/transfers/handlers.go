package transfers

import (
	"context"
	"errors"
	"strconv"

	"deedshare-backend/internal/application/ledger"
	trsvc "deedshare-backend/internal/application/transfers"
	"deedshare-backend/internal/domain"
	"deedshare-backend/internal/middleware"
	"deedshare-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *trsvc.Service
}

// Propose POST /api/v1/transfers/propose
func (h *Handlers) Propose(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil || actor.Address == "" {
		return response.Error(c, "User has no wallet address", 403, nil)
	}

	var body struct {
		PropertyID uint64   `json:"property_id"`
		Mediator   string   `json:"mediator"`
		NextOwners []string `json:"next_owners"`
		NextShares []int64  `json:"next_shares"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if body.PropertyID == 0 || body.Mediator == "" || len(body.NextOwners) == 0 {
		return response.Error(c, "Missing required fields", 400, nil)
	}

	proposal, err := h.Service.Propose(c.Context(), body.PropertyID, actor.Address, body.Mediator, body.NextOwners, body.NextShares)
	if err != nil {
		return respondTransferError(c, err)
	}
	return response.SuccessCreated(c, "Transfer proposal submitted", proposalView(proposal), nil)
}

// Approve POST /api/v1/transfers/:property_id/approve — owner path.
func (h *Handlers) Approve(c *fiber.Ctx) error {
	return h.decide(c, h.Service.Approve, "Transfer approved")
}

// ApproveByMediator POST /api/v1/transfers/:property_id/approve-mediator
func (h *Handlers) ApproveByMediator(c *fiber.Ctx) error {
	return h.decide(c, h.Service.ApproveByMediator, "Transfer approved by mediator")
}

// Reject POST /api/v1/transfers/:property_id/reject
func (h *Handlers) Reject(c *fiber.Ctx) error {
	return h.decide(c, h.Service.Reject, "Transfer proposal rejected")
}

// Execute POST /api/v1/transfers/:property_id/execute
func (h *Handlers) Execute(c *fiber.Ctx) error {
	return h.decide(c, h.Service.Execute, "Transfer executed")
}

// Get GET /api/v1/transfers/:property_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	propertyID, err := strconv.ParseUint(c.Params("property_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid property_id", 400, nil)
	}
	proposal, err := h.Service.Get(c.Context(), propertyID)
	if err != nil {
		return respondTransferError(c, err)
	}
	return response.Success(c, "Proposal fetched", proposalView(proposal), nil)
}

// decide handles the shared parse-call-respond shape of the approval,
// rejection and execution endpoints.
func (h *Handlers) decide(c *fiber.Ctx, op func(context.Context, uint64, string) (*domain.TransferProposal, error), message string) error {
	actor := getActor(c)
	if actor == nil || actor.Address == "" {
		return response.Error(c, "User has no wallet address", 403, nil)
	}
	propertyID, err := strconv.ParseUint(c.Params("property_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid property_id", 400, nil)
	}

	proposal, err := op(c.Context(), propertyID, actor.Address)
	if err != nil {
		return respondTransferError(c, err)
	}
	return response.Success(c, message, proposalView(proposal), nil)
}

// proposalView attaches the derived status to the stored proposal fields.
func proposalView(p *domain.TransferProposal) fiber.Map {
	return fiber.Map{
		"proposal": p,
		"status":   p.Status(),
	}
}

func respondTransferError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, trsvc.ErrNoActiveProposal):
		return response.Error(c, err.Error(), 404, nil)
	case errors.Is(err, trsvc.ErrActiveProposalExists),
		errors.Is(err, trsvc.ErrAlreadyApproved),
		errors.Is(err, trsvc.ErrOwnersNotDone),
		errors.Is(err, trsvc.ErrNotReady),
		errors.Is(err, trsvc.ErrAlreadyExecuted),
		errors.Is(err, trsvc.ErrProposalExpired):
		return response.Error(c, err.Error(), 409, nil)
	case errors.Is(err, trsvc.ErrUnauthorized):
		return response.Error(c, err.Error(), 403, nil)
	case errors.Is(err, trsvc.ErrMediatorRequired),
		errors.Is(err, ledger.ErrInvalidSplit),
		errors.Is(err, ledger.ErrEmptyOwners),
		errors.Is(err, ledger.ErrDuplicateOwner),
		errors.Is(err, ledger.ErrUnknownProperty):
		return response.Error(c, err.Error(), 400, nil)
	default:
		return response.Error(c, "Internal Server Error", 500, nil)
	}
}

type transferActor struct {
	UserID  string
	Address string
}

func getActor(c *fiber.Ctx) *transferActor {
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
	return &transferActor{UserID: userID, Address: address}
}
