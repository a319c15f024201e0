package properties

import (
	"context"
	"errors"

	"deedshare-backend/internal/application/ledger"
	"deedshare-backend/internal/domain"

	"gorm.io/gorm"
)

var ErrPropertyNotFound = errors.New("Property not found")

// Service serves read-only property views: the immutable record plus the
// live partition projection.
type Service struct {
	DB     *gorm.DB
	Ledger *ledger.Service
}

// PropertyView is a property with its current ownership partition.
type PropertyView struct {
	domain.Property
	Owners domain.OwnerSplit `json:"owners"`
}

// GetProperty returns one property with its partition.
func (s *Service) GetProperty(ctx context.Context, propertyID uint64) (*PropertyView, error) {
	var p domain.Property
	if err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	split, err := s.Ledger.PartitionOf(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return &PropertyView{Property: p, Owners: split}, nil
}

// ListProperties returns all minted properties with their partitions,
// newest first.
func (s *Service) ListProperties(ctx context.Context) ([]PropertyView, error) {
	var props []domain.Property
	if err := s.DB.WithContext(ctx).Order(`"createdAt" DESC`).Find(&props).Error; err != nil {
		return nil, err
	}
	out := make([]PropertyView, len(props))
	for i, p := range props {
		split, err := s.Ledger.PartitionOf(ctx, p.PropertyID)
		if err != nil {
			return nil, err
		}
		out[i] = PropertyView{Property: p, Owners: split}
	}
	return out, nil
}
