package domain

import (
	"time"
)

// Listing statuses. Transitions are monotonic: active -> cancelled | sold.
const (
	ListingActive    = "active"
	ListingCancelled = "cancelled"
	ListingSold      = "sold"
)

// Listing is a partial-fill sell offer against a property's partition.
// Shares are not debited at listing time; buys re-check the seller's
// balance at execution.
type Listing struct {
	ListingID     uint64    `gorm:"column:listing_id;primaryKey;autoIncrement" json:"listing_id"`
	PropertyID    uint64    `gorm:"column:property_id;not null;index" json:"property_id"`
	Seller        string    `gorm:"column:seller;not null" json:"seller"`
	Remaining     int64     `gorm:"column:remaining;not null" json:"remaining"`
	PricePerShare int64     `gorm:"column:price_per_share;not null" json:"price_per_share"`
	Status        string    `gorm:"column:status;type:varchar(20);default:'active'" json:"status"`
	CreatedAt     time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "Listings"
}
