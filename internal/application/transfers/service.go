package transfers

import (
	"context"
	"time"

	"deedshare-backend/internal/application/events"
	"deedshare-backend/internal/application/ledger"
	"deedshare-backend/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultProposalTTL bounds how long a proposal can sit without a decision
// before a new one may displace it.
const DefaultProposalTTL = 72 * time.Hour

// Service coordinates mediated transfers: propose, collect an approval from
// every owner snapshotted at proposal time, then the mediator, then execute.
// Execution is the only caller of the ledger's partition replacement.
type Service struct {
	DB       *gorm.DB
	Recorder *events.Recorder
	TTL      time.Duration
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultProposalTTL
}

// Propose opens a proposal for a property. The current owner set is
// snapshotted as the required approver set; share movements after this
// point do not change who must approve. When nextShares is empty the next
// owners receive an equal split (remainder to the first owner).
func (s *Service) Propose(ctx context.Context, propertyID uint64, proposer, mediator string, nextOwners []string, nextShares []int64) (*domain.TransferProposal, error) {
	proposer = ledger.Normalize(proposer)
	mediator = ledger.Normalize(mediator)
	if mediator == "" {
		return nil, ErrMediatorRequired
	}

	var next domain.OwnerSplit
	if len(nextShares) > 0 {
		if len(nextShares) != len(nextOwners) {
			return nil, ledger.ErrInvalidSplit
		}
		next = make(domain.OwnerSplit, len(nextOwners))
		for i, addr := range nextOwners {
			next[i] = domain.OwnerShare{Address: ledger.Normalize(addr), BasisPoints: nextShares[i]}
		}
	} else {
		next = ledger.EqualSplit(nextOwners)
	}
	if err := ledger.ValidateSplit(next); err != nil {
		return nil, err
	}

	proposal := &domain.TransferProposal{
		PropertyID: propertyID,
		Proposer:   proposer,
		Mediator:   mediator,
		NextOwners: next,
		Approvals:  domain.StringList{},
		ExpiresAt:  time.Now().Add(s.ttl()),
	}
	var evts []*domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		partition, err := ledger.PartitionTx(tx, propertyID)
		if err != nil {
			return err
		}
		if len(partition) == 0 {
			return ledger.ErrUnknownProperty
		}
		owners := domain.StringList(partition.Addresses())
		if !owners.Contains(proposer) {
			return ErrUnauthorized
		}

		var existing domain.TransferProposal
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("property_id = ?", propertyID).First(&existing).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		if err == nil {
			if !existing.Terminal() && !existing.Expired(time.Now()) {
				return ErrActiveProposalExists
			}
			if existing.Expired(time.Now()) {
				expiredEvt := &domain.LedgerEvent{
					EventType:  domain.EventTransferRejected,
					PropertyID: &propertyID,
					EventData:  events.Data(map[string]interface{}{"reason": "expired"}),
				}
				if err := events.Append(tx, expiredEvt); err != nil {
					return err
				}
				evts = append(evts, expiredEvt)
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		}

		proposal.RequiredApprovers = owners
		if err := tx.Create(proposal).Error; err != nil {
			return err
		}
		proposedEvt := &domain.LedgerEvent{
			EventType:  domain.EventTransferProposed,
			PropertyID: &propertyID,
			Actor:      &proposer,
			EventData: events.Data(map[string]interface{}{
				"mediator":           mediator,
				"next_owners":        next,
				"required_approvers": owners,
			}),
		}
		if err := events.Append(tx, proposedEvt); err != nil {
			return err
		}
		evts = append(evts, proposedEvt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Publish(ctx, evts...)
	return proposal, nil
}

// loadActive fetches the live proposal inside tx under FOR UPDATE (the
// approvals list is appended to from the read value), rejecting terminal
// and expired slots.
func loadActive(tx *gorm.DB, propertyID uint64) (*domain.TransferProposal, error) {
	var p domain.TransferProposal
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("property_id = ?", propertyID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNoActiveProposal
		}
		return nil, err
	}
	if p.Terminal() {
		return nil, ErrNoActiveProposal
	}
	if p.Expired(time.Now()) {
		return nil, ErrProposalExpired
	}
	return &p, nil
}

// Approve records one snapshotted owner's approval.
func (s *Service) Approve(ctx context.Context, propertyID uint64, caller string) (*domain.TransferProposal, error) {
	caller = ledger.Normalize(caller)

	var proposal *domain.TransferProposal
	var evt *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadActive(tx, propertyID)
		if err != nil {
			return err
		}
		if !p.RequiredApprovers.Contains(caller) {
			return ErrUnauthorized
		}
		if p.Approvals.Contains(caller) {
			return ErrAlreadyApproved
		}
		p.Approvals = append(p.Approvals, caller)
		if err := tx.Model(p).Update("approvals", p.Approvals).Error; err != nil {
			return err
		}
		evt = &domain.LedgerEvent{
			EventType:  domain.EventTransferApproved,
			PropertyID: &propertyID,
			Actor:      &caller,
			EventData: events.Data(map[string]interface{}{
				"approvals": len(p.Approvals),
				"required":  len(p.RequiredApprovers),
			}),
		}
		if err := events.Append(tx, evt); err != nil {
			return err
		}
		proposal = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Publish(ctx, evt)
	return proposal, nil
}

// ApproveByMediator records the mediator's sign-off; only valid once every
// snapshotted owner has approved.
func (s *Service) ApproveByMediator(ctx context.Context, propertyID uint64, caller string) (*domain.TransferProposal, error) {
	caller = ledger.Normalize(caller)

	var proposal *domain.TransferProposal
	var evt *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadActive(tx, propertyID)
		if err != nil {
			return err
		}
		if p.Mediator != caller {
			return ErrUnauthorized
		}
		if !p.AllOwnersApproved() {
			return ErrOwnersNotDone
		}
		if p.MediatorApproved {
			return ErrAlreadyApproved
		}
		if err := tx.Model(p).Update("mediator_approved", true).Error; err != nil {
			return err
		}
		p.MediatorApproved = true
		evt = &domain.LedgerEvent{
			EventType:  domain.EventTransferMediatorApproved,
			PropertyID: &propertyID,
			Actor:      &caller,
			EventData:  events.Data(map[string]interface{}{"mediator": caller}),
		}
		if err := events.Append(tx, evt); err != nil {
			return err
		}
		proposal = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Publish(ctx, evt)
	return proposal, nil
}

// Reject discards the live proposal. Any snapshotted owner or the mediator
// may reject at any point before execution; the slot is freed for a fresh
// proposal.
func (s *Service) Reject(ctx context.Context, propertyID uint64, caller string) (*domain.TransferProposal, error) {
	caller = ledger.Normalize(caller)

	var proposal *domain.TransferProposal
	var evt *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.TransferProposal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("property_id = ?", propertyID).First(&p).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNoActiveProposal
			}
			return err
		}
		if p.Terminal() {
			return ErrNoActiveProposal
		}
		if !p.RequiredApprovers.Contains(caller) && p.Mediator != caller {
			return ErrUnauthorized
		}
		if err := tx.Model(&p).Update("rejected_by", caller).Error; err != nil {
			return err
		}
		p.RejectedBy = &caller
		evt = &domain.LedgerEvent{
			EventType:  domain.EventTransferRejected,
			PropertyID: &propertyID,
			Actor:      &caller,
			EventData:  events.Data(map[string]interface{}{"rejected_by": caller}),
		}
		if err := events.Append(tx, evt); err != nil {
			return err
		}
		proposal = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Publish(ctx, evt)
	return proposal, nil
}

// Execute replaces the property's partition with the proposal's next owners.
// Any party to the proposal may execute once every owner and the mediator
// have approved; a failed execute leaves all approvals intact.
func (s *Service) Execute(ctx context.Context, propertyID uint64, caller string) (*domain.TransferProposal, error) {
	caller = ledger.Normalize(caller)

	var proposal *domain.TransferProposal
	var evts []*domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.TransferProposal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("property_id = ?", propertyID).First(&p).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNoActiveProposal
			}
			return err
		}
		if p.Executed {
			return ErrAlreadyExecuted
		}
		if p.RejectedBy != nil {
			return ErrNoActiveProposal
		}
		if p.Expired(time.Now()) {
			return ErrProposalExpired
		}
		if !p.RequiredApprovers.Contains(caller) && p.Mediator != caller {
			return ErrUnauthorized
		}
		if !p.AllOwnersApproved() || !p.MediatorApproved {
			return ErrNotReady
		}

		if err := ledger.ReplacePartitionTx(tx, propertyID, p.NextOwners); err != nil {
			return err
		}
		if err := tx.Model(&p).Update("executed", true).Error; err != nil {
			return err
		}
		p.Executed = true

		replacedEvt := &domain.LedgerEvent{
			EventType:  domain.EventPartitionReplaced,
			PropertyID: &propertyID,
			Actor:      &caller,
			EventData:  events.Data(map[string]interface{}{"owners": p.NextOwners}),
		}
		executedEvt := &domain.LedgerEvent{
			EventType:  domain.EventTransferExecuted,
			PropertyID: &propertyID,
			Actor:      &caller,
			EventData: events.Data(map[string]interface{}{
				"mediator":    p.Mediator,
				"next_owners": p.NextOwners,
			}),
		}
		for _, evt := range []*domain.LedgerEvent{replacedEvt, executedEvt} {
			if err := events.Append(tx, evt); err != nil {
				return err
			}
		}
		evts = append(evts, replacedEvt, executedEvt)
		proposal = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Publish(ctx, evts...)
	return proposal, nil
}

// Get returns the property's current proposal slot (live or settled) with
// its derived status.
func (s *Service) Get(ctx context.Context, propertyID uint64) (*domain.TransferProposal, error) {
	var p domain.TransferProposal
	if err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNoActiveProposal
		}
		return nil, err
	}
	return &p, nil
}
