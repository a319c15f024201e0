package domain

import (
	"time"
)

// Tokenization request statuses. Pending is the only non-terminal state.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// TokenizationRequest is a pending request to mint a new property with an
// initial owner split. Approval mints exactly one Property; rejection
// discards. Status never leaves approved/rejected once set.
type TokenizationRequest struct {
	RequestID               uint64     `gorm:"column:request_id;primaryKey;autoIncrement" json:"request_id"`
	Name                    string     `gorm:"column:name;not null" json:"name"`
	PartnershipAgreementURL string     `gorm:"column:partnership_agreement_url" json:"partnership_agreement_url"`
	MaintenanceAgreementURL string     `gorm:"column:maintenance_agreement_url" json:"maintenance_agreement_url"`
	RentAgreementURL        string     `gorm:"column:rent_agreement_url" json:"rent_agreement_url"`
	ImageURL                string     `gorm:"column:image_url" json:"image_url"`
	Requester               string     `gorm:"column:requester;not null" json:"requester"`
	Owners                  OwnerSplit `gorm:"column:owners;type:json;not null" json:"owners"`
	Status                  string     `gorm:"column:status;type:varchar(20);default:'pending'" json:"status"`
	PropertyID              *uint64    `gorm:"column:property_id" json:"property_id"`
	CreatedAt               time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt               time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (TokenizationRequest) TableName() string {
	return "TokenizationRequests"
}
