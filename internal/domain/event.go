package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ledger event types, appended in the same transaction as the mutation they
// describe. Replaying them in commit order reconstructs history; they have
// no authority beyond the ledger itself.
const (
	EventRequestCreated           = "REQUEST_CREATED"
	EventRequestApproved          = "REQUEST_APPROVED"
	EventRequestRejected          = "REQUEST_REJECTED"
	EventPropertyMinted           = "PROPERTY_MINTED"
	EventSharesTransferred        = "SHARES_TRANSFERRED"
	EventPartitionReplaced        = "PARTITION_REPLACED"
	EventListingCreated           = "LISTING_CREATED"
	EventListingFilled            = "LISTING_FILLED"
	EventListingSold              = "LISTING_SOLD"
	EventListingCancelled         = "LISTING_CANCELLED"
	EventTransferProposed         = "TRANSFER_PROPOSED"
	EventTransferApproved         = "TRANSFER_APPROVED"
	EventTransferMediatorApproved = "TRANSFER_MEDIATOR_APPROVED"
	EventTransferRejected         = "TRANSFER_REJECTED"
	EventTransferExecuted         = "TRANSFER_EXECUTED"
)

// LedgerEvent is one append-only entry of the event log.
type LedgerEvent struct {
	EventID    uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	EventType  string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	PropertyID *uint64        `gorm:"column:property_id;index" json:"property_id"`
	RequestID  *uint64        `gorm:"column:request_id" json:"request_id"`
	ListingID  *uint64        `gorm:"column:listing_id" json:"listing_id"`
	Actor      *string        `gorm:"column:actor" json:"actor"`
	EventData  datatypes.JSON `gorm:"column:event_data;type:json;not null" json:"event_data"`
	CreatedAt  time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (LedgerEvent) TableName() string {
	return "LedgerEvents"
}

// BeforeCreate sets event_id if not already set (DBs without default uuid).
func (e *LedgerEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
