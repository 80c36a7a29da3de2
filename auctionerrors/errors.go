package auctionerrors

import (
	"errors"
	"fmt"
)

// Repository-level errors
var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrCategoryNotFound = errors.New("category not found")
)

// Business logic errors
var (
	// ErrInvalidBid covers malformed amounts: negative, NaN or infinite.
	ErrInvalidBid = errors.New("invalid bid")
	// ErrBidTooLow rejects any amount not strictly greater than the standing price.
	ErrBidTooLow = errors.New("bid amount too low")
	// ErrBidConflict means another bid repointed the price between read and write.
	ErrBidConflict = errors.New("listing price changed concurrently")
	// ErrAuctionClosed rejects bids on a closed listing, regardless of amount.
	ErrAuctionClosed = errors.New("auction is closed")
	// ErrOwnerBid is returned only when policy forbids owners bidding on their own listing.
	ErrOwnerBid = errors.New("owner may not bid on own listing")
	// ErrNotOwner is returned only when policy restricts closing to the owner.
	ErrNotOwner = errors.New("only the owner may close this auction")
)

// Identity errors
var (
	ErrDuplicateUsername = errors.New("username already exists")
)

// BidTooLowError carries the standing price a rejected bid failed to beat, so
// callers can surface it to the bidder. Matches ErrBidTooLow under errors.Is.
type BidTooLowError struct {
	CurrentPrice float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("%s: current price is %.2f", ErrBidTooLow, e.CurrentPrice)
}

func (e *BidTooLowError) Unwrap() error { return ErrBidTooLow }
