package ledger

import "errors"

var (
	ErrInvalidSplit        = errors.New("Shares must be positive and sum to exactly 10000 basis points")
	ErrEmptyOwners         = errors.New("Owner list must not be empty")
	ErrDuplicateOwner      = errors.New("Owner addresses must be unique")
	ErrAlreadyMinted       = errors.New("Property already has an ownership partition")
	ErrUnknownProperty     = errors.New("Property has no ownership partition")
	ErrSelfTransfer        = errors.New("Cannot transfer shares to yourself")
	ErrInvalidAmount       = errors.New("Amount must be a positive number of basis points")
	ErrInsufficientBalance = errors.New("Insufficient share balance")
)
