package requests

import (
	"context"
	"strings"

	"deedshare-backend/internal/application/events"
	"deedshare-backend/internal/application/ledger"
	"deedshare-backend/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service runs the tokenization request workflow: anyone may file a request,
// only an admin decides it, and approval is the single path that mints a
// property into the ledger.
type Service struct {
	DB       *gorm.DB
	Recorder *events.Recorder
}

// CreateRequestInput carries a new tokenization request.
type CreateRequestInput struct {
	Name                    string
	PartnershipAgreementURL string
	MaintenanceAgreementURL string
	RentAgreementURL        string
	ImageURL                string
	Requester               string
	Owners                  domain.OwnerSplit
}

// CreateRequest validates the proposed split up front and persists a pending
// request. The ledger is not touched until approval.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (*domain.TokenizationRequest, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrNameRequired
	}
	if err := ledger.ValidateSplit(in.Owners); err != nil {
		return nil, err
	}

	owners := make(domain.OwnerSplit, len(in.Owners))
	for i, o := range in.Owners {
		owners[i] = domain.OwnerShare{Address: ledger.Normalize(o.Address), BasisPoints: o.BasisPoints}
	}

	req := &domain.TokenizationRequest{
		Name:                    strings.TrimSpace(in.Name),
		PartnershipAgreementURL: in.PartnershipAgreementURL,
		MaintenanceAgreementURL: in.MaintenanceAgreementURL,
		RentAgreementURL:        in.RentAgreementURL,
		ImageURL:                in.ImageURL,
		Requester:               ledger.Normalize(in.Requester),
		Owners:                  owners,
		Status:                  domain.RequestPending,
	}

	var evt *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		evt = &domain.LedgerEvent{
			EventType: domain.EventRequestCreated,
			RequestID: &req.RequestID,
			Actor:     &req.Requester,
			EventData: events.Data(map[string]interface{}{
				"name":   req.Name,
				"owners": req.Owners,
			}),
		}
		return events.Append(tx, evt)
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Publish(ctx, evt)
	return req, nil
}

// ApproveRequest mints the requested property. Creating the property,
// minting the partition and flipping the request status commit together; a
// mint failure leaves the request pending.
func (s *Service) ApproveRequest(ctx context.Context, requestID uint64, approver string, approverRole string) (*domain.Property, error) {
	if approverRole != domain.RoleAdmin {
		return nil, ErrUnauthorized
	}
	approver = ledger.Normalize(approver)

	var property *domain.Property
	var evts []*domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req domain.TokenizationRequest
		// FOR UPDATE: two concurrent approvals must not both see pending
		// and mint twice.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("request_id = ?", requestID).First(&req).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrUnknownRequest
			}
			return err
		}
		if req.Status != domain.RequestPending {
			return ErrNotPending
		}

		property = &domain.Property{
			Name:                    req.Name,
			PartnershipAgreementURL: req.PartnershipAgreementURL,
			MaintenanceAgreementURL: req.MaintenanceAgreementURL,
			RentAgreementURL:        req.RentAgreementURL,
			ImageURL:                req.ImageURL,
		}
		if err := tx.Create(property).Error; err != nil {
			return err
		}
		if err := ledger.MintTx(tx, property.PropertyID, req.Owners); err != nil {
			return err
		}
		updates := map[string]interface{}{
			"status":      domain.RequestApproved,
			"property_id": property.PropertyID,
		}
		if err := tx.Model(&req).Updates(updates).Error; err != nil {
			return err
		}

		approvedEvt := &domain.LedgerEvent{
			EventType:  domain.EventRequestApproved,
			RequestID:  &req.RequestID,
			PropertyID: &property.PropertyID,
			Actor:      &approver,
			EventData: events.Data(map[string]interface{}{
				"name": req.Name,
			}),
		}
		mintedEvt := &domain.LedgerEvent{
			EventType:  domain.EventPropertyMinted,
			RequestID:  &req.RequestID,
			PropertyID: &property.PropertyID,
			Actor:      &approver,
			EventData: events.Data(map[string]interface{}{
				"owners": req.Owners,
			}),
		}
		for _, evt := range []*domain.LedgerEvent{approvedEvt, mintedEvt} {
			if err := events.Append(tx, evt); err != nil {
				return err
			}
		}
		evts = append(evts, approvedEvt, mintedEvt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Publish(ctx, evts...)
	return property, nil
}

// RejectRequest marks a pending request rejected. No ledger effect.
func (s *Service) RejectRequest(ctx context.Context, requestID uint64, approver string, approverRole string) (*domain.TokenizationRequest, error) {
	if approverRole != domain.RoleAdmin {
		return nil, ErrUnauthorized
	}
	approver = ledger.Normalize(approver)

	var req domain.TokenizationRequest
	var evt *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("request_id = ?", requestID).First(&req).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrUnknownRequest
			}
			return err
		}
		if req.Status != domain.RequestPending {
			return ErrNotPending
		}
		if err := tx.Model(&req).Update("status", domain.RequestRejected).Error; err != nil {
			return err
		}
		evt = &domain.LedgerEvent{
			EventType: domain.EventRequestRejected,
			RequestID: &req.RequestID,
			Actor:     &approver,
			EventData: events.Data(map[string]interface{}{
				"name": req.Name,
			}),
		}
		return events.Append(tx, evt)
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Publish(ctx, evt)
	return &req, nil
}

// GetRequest returns one request by id.
func (s *Service) GetRequest(ctx context.Context, requestID uint64) (*domain.TokenizationRequest, error) {
	var req domain.TokenizationRequest
	if err := s.DB.WithContext(ctx).Where("request_id = ?", requestID).First(&req).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUnknownRequest
		}
		return nil, err
	}
	return &req, nil
}

// ListRequests returns requests, optionally filtered by status, newest first.
func (s *Service) ListRequests(ctx context.Context, status string) ([]domain.TokenizationRequest, error) {
	q := s.DB.WithContext(ctx).Order(`"createdAt" DESC`)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reqs []domain.TokenizationRequest
	err := q.Find(&reqs).Error
	return reqs, err
}

// ListRequestsByRequester returns the caller's own requests, newest first.
func (s *Service) ListRequestsByRequester(ctx context.Context, requester string) ([]domain.TokenizationRequest, error) {
	var reqs []domain.TokenizationRequest
	err := s.DB.WithContext(ctx).Where("requester = ?", ledger.Normalize(requester)).Order(`"createdAt" DESC`).Find(&reqs).Error
	return reqs, err
}
