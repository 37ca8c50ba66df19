package auctionerrors

import "errors"

// Not-found errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrEscrowNotFound  = errors.New("escrow account not found")
	ErrAccountNotFound = errors.New("credit card account not found")
	ErrOrderNotFound   = errors.New("order not found")
)

// Validation errors
var (
	ErrInvalidBid     = errors.New("invalid bid")
	ErrInvalidAuction = errors.New("invalid auction")
	ErrInvalidPayment = errors.New("invalid payment")
)

// State-conflict errors: no state change occurred, caller may retry with fresh data
var (
	ErrStaleBid          = errors.New("bid not above current high bid")
	ErrAuctionNotOpen    = errors.New("auction is not open for bidding")
	ErrSelfBid           = errors.New("seller cannot bid on own auction")
	ErrInvalidTransition = errors.New("invalid auction state transition")
	ErrAlreadyResolved   = errors.New("escrow already released or refunded")
)

// ErrInsufficientFunds is handled internally during settlement (next-bidder
// fallback) and surfaced only when no bidder can fund or a direct payment fails.
var ErrInsufficientFunds = errors.New("insufficient funds")
