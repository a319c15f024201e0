package requests

import "errors"

var (
	ErrUnknownRequest = errors.New("Request not found")
	ErrNotPending     = errors.New("Request has already been decided")
	ErrUnauthorized   = errors.New("Only an admin can decide requests")
	ErrNameRequired   = errors.New("Property name is required")
)
