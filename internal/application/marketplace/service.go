package marketplace

import (
	"context"
	"math"

	"deedshare-backend/internal/application/events"
	"deedshare-backend/internal/application/ledger"
	"deedshare-backend/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service runs the partial-fill marketplace. Listings never debit the
// ledger up front; the share stays the seller's until a buy lands, so every
// buy re-checks the seller's balance inside its own transaction.
type Service struct {
	DB       *gorm.DB
	Recorder *events.Recorder
}

// CreateListing opens an active sell offer for amount basis points at
// pricePerShare per basis point.
func (s *Service) CreateListing(ctx context.Context, propertyID uint64, seller string, amount, pricePerShare int64) (*domain.Listing, error) {
	seller = ledger.Normalize(seller)
	if amount <= 0 || pricePerShare <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	// A fill is at most 10000 basis points, so this bound keeps every
	// amount*pricePerShare product inside int64.
	if pricePerShare > math.MaxInt64/ledger.TotalBasisPoints {
		return nil, ledger.ErrInvalidAmount
	}

	listing := &domain.Listing{
		PropertyID:    propertyID,
		Seller:        seller,
		Remaining:     amount,
		PricePerShare: pricePerShare,
		Status:        domain.ListingActive,
	}
	var evt *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := ledger.BalanceOfTx(tx, propertyID, seller)
		if err != nil {
			return err
		}
		if balance < amount {
			return ledger.ErrInsufficientBalance
		}
		if err := tx.Create(listing).Error; err != nil {
			return err
		}
		evt = &domain.LedgerEvent{
			EventType:  domain.EventListingCreated,
			PropertyID: &propertyID,
			ListingID:  &listing.ListingID,
			Actor:      &seller,
			EventData: events.Data(map[string]interface{}{
				"amount":          amount,
				"price_per_share": pricePerShare,
			}),
		}
		return events.Append(tx, evt)
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Publish(ctx, evt)
	return listing, nil
}

// BuyResult reports a settled fill.
type BuyResult struct {
	ListingID  uint64 `json:"listing_id"`
	PropertyID uint64 `json:"property_id"`
	Amount     int64  `json:"amount"`
	Cost       int64  `json:"cost"`
	Change     int64  `json:"change"`
	Remaining  int64  `json:"remaining"`
	Status     string `json:"status"`
}

// Buy fills part (or all) of an active listing: the ledger transfer, the
// remaining-amount decrement and the status flip commit together. Payment
// beyond the exact price is returned as change in the result.
func (s *Service) Buy(ctx context.Context, listingID uint64, buyer string, amount, payment int64) (*BuyResult, error) {
	buyer = ledger.Normalize(buyer)

	var result *BuyResult
	var evts []*domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing domain.Listing
		// FOR UPDATE: the remaining-amount decrement below is computed from
		// this read, so concurrent buys must queue on the row.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrListingNotFound
			}
			return err
		}
		if listing.Status != domain.ListingActive {
			return ErrListingNotActive
		}
		if amount <= 0 || amount > listing.Remaining {
			return ledger.ErrInvalidAmount
		}
		cost := amount * listing.PricePerShare
		if payment < cost {
			return ErrInsufficientPayment
		}

		// The seller may have moved shares since listing time; the ledger
		// transfer re-checks the balance under this transaction.
		if err := ledger.TransferTx(tx, listing.PropertyID, listing.Seller, buyer, amount); err != nil {
			return err
		}

		remaining := listing.Remaining - amount
		status := listing.Status
		if remaining == 0 {
			status = domain.ListingSold
		}
		updates := map[string]interface{}{"remaining": remaining, "status": status}
		if err := tx.Model(&listing).Updates(updates).Error; err != nil {
			return err
		}

		transferEvt := &domain.LedgerEvent{
			EventType:  domain.EventSharesTransferred,
			PropertyID: &listing.PropertyID,
			ListingID:  &listing.ListingID,
			Actor:      &buyer,
			EventData: events.Data(map[string]interface{}{
				"from":   listing.Seller,
				"to":     buyer,
				"amount": amount,
			}),
		}
		fillEvt := &domain.LedgerEvent{
			EventType:  domain.EventListingFilled,
			PropertyID: &listing.PropertyID,
			ListingID:  &listing.ListingID,
			Actor:      &buyer,
			EventData: events.Data(map[string]interface{}{
				"amount":    amount,
				"cost":      cost,
				"remaining": remaining,
			}),
		}
		evts = append(evts, transferEvt, fillEvt)
		if remaining == 0 {
			evts = append(evts, &domain.LedgerEvent{
				EventType:  domain.EventListingSold,
				PropertyID: &listing.PropertyID,
				ListingID:  &listing.ListingID,
				Actor:      &buyer,
				EventData:  events.Data(map[string]interface{}{"total_sold": amount}),
			})
		}
		for _, evt := range evts {
			if err := events.Append(tx, evt); err != nil {
				return err
			}
		}

		result = &BuyResult{
			ListingID:  listing.ListingID,
			PropertyID: listing.PropertyID,
			Amount:     amount,
			Cost:       cost,
			Change:     payment - cost,
			Remaining:  remaining,
			Status:     status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Publish(ctx, evts...)
	return result, nil
}

// CancelListing closes an active listing. No partial cancellation; the
// whole remaining amount simply stops being for sale.
func (s *Service) CancelListing(ctx context.Context, listingID uint64, caller string) (*domain.Listing, error) {
	caller = ledger.Normalize(caller)

	var listing domain.Listing
	var evt *domain.LedgerEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrListingNotFound
			}
			return err
		}
		if listing.Seller != caller {
			return ErrUnauthorized
		}
		if listing.Status != domain.ListingActive {
			return ErrListingNotActive
		}
		if err := tx.Model(&listing).Update("status", domain.ListingCancelled).Error; err != nil {
			return err
		}
		evt = &domain.LedgerEvent{
			EventType:  domain.EventListingCancelled,
			PropertyID: &listing.PropertyID,
			ListingID:  &listing.ListingID,
			Actor:      &caller,
			EventData:  events.Data(map[string]interface{}{"remaining": listing.Remaining}),
		}
		return events.Append(tx, evt)
	})
	if err != nil {
		return nil, err
	}
	s.Recorder.Publish(ctx, evt)
	listing.Status = domain.ListingCancelled
	return &listing, nil
}

// GetListing returns one listing by id.
func (s *Service) GetListing(ctx context.Context, listingID uint64) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// GetActiveListings returns all open offers, newest first.
func (s *Service) GetActiveListings(ctx context.Context) ([]domain.Listing, error) {
	var listings []domain.Listing
	err := s.DB.WithContext(ctx).Where("status = ?", domain.ListingActive).Order(`"createdAt" DESC`).Find(&listings).Error
	return listings, err
}

// GetSellerListings returns every listing an address has opened.
func (s *Service) GetSellerListings(ctx context.Context, seller string) ([]domain.Listing, error) {
	var listings []domain.Listing
	err := s.DB.WithContext(ctx).Where("seller = ?", ledger.Normalize(seller)).Order(`"createdAt" DESC`).Find(&listings).Error
	return listings, err
}

// GetPropertyListings returns a property's listings, newest first.
func (s *Service) GetPropertyListings(ctx context.Context, propertyID uint64) ([]domain.Listing, error) {
	var listings []domain.Listing
	err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).Order(`"createdAt" DESC`).Find(&listings).Error
	return listings, err
}
