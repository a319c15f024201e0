package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Derived proposal statuses. Only executed and rejected are terminal.
const (
	ProposalPending         = "pending"
	ProposalMediatorPending = "mediator_pending"
	ProposalReady           = "ready"
	ProposalExecuted        = "executed"
	ProposalRejected        = "rejected"
)

// StringList stores a list of addresses as a JSON column.
type StringList []string

// Scan implements sql.Scanner for reading from DB (json column).
func (s *StringList) Scan(value interface{}) error {
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
		return errors.New("unsupported type for StringList")
	}
}

// Value implements driver.Valuer for writing to DB.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Contains reports whether addr is in the list (addresses are stored lowercased).
func (s StringList) Contains(addr string) bool {
	addr = strings.ToLower(addr)
	for _, a := range s {
		if a == addr {
			return true
		}
	}
	return false
}

// TransferProposal is the per-property mediated-transfer slot. One live
// proposal per property: the primary key is the property id, and a new
// proposal may only be created once the previous one is terminal or expired.
// RequiredApprovers is the owner set snapshotted at proposal time; later
// share movements do not change who must approve.
type TransferProposal struct {
	PropertyID        uint64     `gorm:"column:property_id;primaryKey" json:"property_id"`
	Proposer          string     `gorm:"column:proposer;not null" json:"proposer"`
	Mediator          string     `gorm:"column:mediator;not null" json:"mediator"`
	NextOwners        OwnerSplit `gorm:"column:next_owners;type:json;not null" json:"next_owners"`
	RequiredApprovers StringList `gorm:"column:required_approvers;type:json;not null" json:"required_approvers"`
	Approvals         StringList `gorm:"column:approvals;type:json;not null" json:"approvals"`
	MediatorApproved  bool       `gorm:"column:mediator_approved;not null;default:false" json:"mediator_approved"`
	Executed          bool       `gorm:"column:executed;not null;default:false" json:"executed"`
	RejectedBy        *string    `gorm:"column:rejected_by" json:"rejected_by"`
	ExpiresAt         time.Time  `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt         time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (TransferProposal) TableName() string {
	return "TransferProposals"
}

// AllOwnersApproved reports whether every snapshotted owner has approved.
func (p *TransferProposal) AllOwnersApproved() bool {
	for _, owner := range p.RequiredApprovers {
		if !p.Approvals.Contains(owner) {
			return false
		}
	}
	return true
}

// Terminal reports whether the proposal slot is free for a new proposal.
func (p *TransferProposal) Terminal() bool {
	return p.Executed || p.RejectedBy != nil
}

// Expired reports whether the proposal's TTL has elapsed (terminal
// proposals never count as expired; they are already settled).
func (p *TransferProposal) Expired(now time.Time) bool {
	return !p.Terminal() && now.After(p.ExpiresAt)
}

// Status derives the protocol state; it is never stored redundantly.
func (p *TransferProposal) Status() string {
	switch {
	case p.RejectedBy != nil:
		return ProposalRejected
	case p.Executed:
		return ProposalExecuted
	case p.AllOwnersApproved() && p.MediatorApproved:
		return ProposalReady
	case p.AllOwnersApproved():
		return ProposalMediatorPending
	default:
		return ProposalPending
	}
}
