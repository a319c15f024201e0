package marketplace

import "errors"

var (
	ErrListingNotFound     = errors.New("Listing not found")
	ErrListingNotActive    = errors.New("Listing is not active")
	ErrInsufficientPayment = errors.New("Payment does not cover the purchase price")
	ErrUnauthorized        = errors.New("Only the seller can cancel a listing")
)
