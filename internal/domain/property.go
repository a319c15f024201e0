package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnerShare is one entry of an ownership split: an address and its stake
// in basis points (1/100th of a percent, 10000 = 100%).
type OwnerShare struct {
	Address     string `json:"address"`
	BasisPoints int64  `json:"basis_points"`
}

// OwnerSplit stores an owners/shares list as a JSON column but exposes it as
// a typed slice (requests keep their proposed split, proposals keep their
// next-owner split).
type OwnerSplit []OwnerShare

// Scan implements sql.Scanner for reading from DB (json column).
func (s *OwnerSplit) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for OwnerSplit")
	}
}

// Value implements driver.Valuer for writing to DB.
func (s OwnerSplit) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Addresses returns the owner addresses in split order.
func (s OwnerSplit) Addresses() []string {
	out := make([]string, len(s))
	for i, o := range s {
		out[i] = o.Address
	}
	return out
}

// Property is a tokenized property. Immutable after mint except for its
// ownership partition (OwnershipStake rows).
type Property struct {
	PropertyID              uint64    `gorm:"column:property_id;primaryKey;autoIncrement" json:"property_id"`
	Name                    string    `gorm:"column:name;not null" json:"name"`
	PartnershipAgreementURL string    `gorm:"column:partnership_agreement_url" json:"partnership_agreement_url"`
	MaintenanceAgreementURL string    `gorm:"column:maintenance_agreement_url" json:"maintenance_agreement_url"`
	RentAgreementURL        string    `gorm:"column:rent_agreement_url" json:"rent_agreement_url"`
	ImageURL                string    `gorm:"column:image_url" json:"image_url"`
	CreatedAt               time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt               time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Property) TableName() string {
	return "Properties"
}

// OwnershipStake is one owner's slice of a property's partition.
// Invariant: per property, stakes sum to exactly 10000 basis points and no
// row holds zero or negative basis points (zero-balance rows are deleted).
type OwnershipStake struct {
	StakeID     uuid.UUID `gorm:"column:stake_id;type:uuid;primaryKey" json:"stake_id"`
	PropertyID  uint64    `gorm:"column:property_id;not null;uniqueIndex:idx_property_owner" json:"property_id"`
	Owner       string    `gorm:"column:owner;not null;uniqueIndex:idx_property_owner" json:"owner"`
	BasisPoints int64     `gorm:"column:basis_points;not null" json:"basis_points"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (OwnershipStake) TableName() string {
	return "OwnershipStakes"
}

// BeforeCreate sets stake_id if not already set (DBs without default uuid).
func (o *OwnershipStake) BeforeCreate(tx *gorm.DB) error {
	if o.StakeID == uuid.Nil {
		o.StakeID = uuid.New()
	}
	return nil
}
