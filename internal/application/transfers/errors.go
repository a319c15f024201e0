package transfers

import "errors"

var (
	ErrActiveProposalExists = errors.New("An active transfer proposal already exists for this property")
	ErrNoActiveProposal     = errors.New("No active transfer proposal for this property")
	ErrProposalExpired      = errors.New("Transfer proposal has expired")
	ErrUnauthorized         = errors.New("Caller is not a party to this proposal")
	ErrMediatorRequired     = errors.New("A mediator address is required")
	ErrAlreadyApproved      = errors.New("Already approved")
	ErrOwnersNotDone        = errors.New("Not all owners have approved yet")
	ErrNotReady             = errors.New("Proposal is missing owner or mediator approvals")
	ErrAlreadyExecuted      = errors.New("Proposal has already been executed")
)
