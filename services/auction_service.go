// Package services holds the auction business logic: the bidding engine and
// the auction lifecycle controller. Both operate on a ListingStore so the
// rules can be exercised without a database.
package services

import (
	"fmt"
	"math"

	"github.com/gavelhub/gavel/auctionerrors"
	"github.com/gavelhub/gavel/models"
)

// ListingStore is the persistence surface the auction logic needs.
type ListingStore interface {
	// GetListing returns a listing with its current bid, owner and category
	// loaded, or auctionerrors.ErrListingNotFound.
	GetListing(id uint) (models.Listing, error)
	// ReplaceCurrentBid persists bid and repoints the listing's current price
	// to it, iff the listing's current bid id still equals prevBidID (nil for
	// a listing that has no bid yet). A lost race returns
	// auctionerrors.ErrBidConflict and leaves no observable writes.
	ReplaceCurrentBid(listingID uint, prevBidID *uint, bid *models.Bid) error
	// MarkClosed sets the listing inactive. Closing an already closed listing
	// must be a no-op.
	MarkClosed(listingID uint) error
	// AddWatcher and RemoveWatcher are idempotent set operations on the
	// listing's watcher set.
	AddWatcher(listingID, userID uint) error
	RemoveWatcher(listingID, userID uint) error
}

// Policy carries the configurable authorization switches. The original
// application enforced neither rule; both default to off.
type Policy struct {
	// DenyOwnerBid rejects bids from the listing owner when set.
	DenyOwnerBid bool
	// OwnerOnlyClose restricts closing to the listing owner when set.
	OwnerOnlyClose bool
}

// AuctionService validates and applies bids and lifecycle transitions.
type AuctionService struct {
	store  ListingStore
	policy Policy
}

// NewAuctionService creates an AuctionService over the given store.
func NewAuctionService(store ListingStore, policy Policy) *AuctionService {
	return &AuctionService{store: store, policy: policy}
}

// PlaceBid validates a proposed amount against the listing's standing price
// and, when accepted, records an immutable Bid row and atomically repoints
// the listing's current price to it. A tie is rejected; there is no
// minimum-increment rule beyond strict greater-than.
func (s *AuctionService) PlaceBid(listingID, bidderID uint, amount float64) (models.Listing, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return models.Listing{}, fmt.Errorf("service: %w - amount must be a non-negative number", auctionerrors.ErrInvalidBid)
	}

	listing, err := s.store.GetListing(listingID)
	if err != nil {
		return models.Listing{}, fmt.Errorf("service: place bid on listing %d: %w", listingID, err)
	}

	if !listing.Active {
		return models.Listing{}, fmt.Errorf("service: %w - listing %d no longer accepts bids", auctionerrors.ErrAuctionClosed, listingID)
	}
	if s.policy.DenyOwnerBid && listing.OwnerID == bidderID {
		return models.Listing{}, fmt.Errorf("service: %w", auctionerrors.ErrOwnerBid)
	}
	if listing.CurrentBid != nil && amount <= listing.CurrentBid.Amount {
		return models.Listing{}, fmt.Errorf("service: %w", &auctionerrors.BidTooLowError{CurrentPrice: listing.CurrentBid.Amount})
	}

	bid := &models.Bid{
		Amount: amount,
		UserID: bidderID,
	}
	if err := s.store.ReplaceCurrentBid(listing.ID, listing.CurrentBidID, bid); err != nil {
		return models.Listing{}, fmt.Errorf("service: record bid on listing %d: %w", listingID, err)
	}

	updated, err := s.store.GetListing(listingID)
	if err != nil {
		return models.Listing{}, fmt.Errorf("service: reload listing %d: %w", listingID, err)
	}
	return updated, nil
}

// CloseAuction transitions a listing from open to closed. The current price
// at the moment of closing is the permanent final price; the winning bidder
// is its Bid's bidder. Closing an already-closed listing is a no-op that
// returns the frozen state with transitioned=false. CLOSED is terminal,
// there is no reopen.
func (s *AuctionService) CloseAuction(listingID, requesterID uint) (models.Listing, bool, error) {
	listing, err := s.store.GetListing(listingID)
	if err != nil {
		return models.Listing{}, false, fmt.Errorf("service: close listing %d: %w", listingID, err)
	}

	if !listing.Active {
		return listing, false, nil
	}
	if s.policy.OwnerOnlyClose && listing.OwnerID != requesterID {
		return models.Listing{}, false, fmt.Errorf("service: %w", auctionerrors.ErrNotOwner)
	}

	if err := s.store.MarkClosed(listing.ID); err != nil {
		return models.Listing{}, false, fmt.Errorf("service: close listing %d: %w", listingID, err)
	}

	closed, err := s.store.GetListing(listingID)
	if err != nil {
		return models.Listing{}, false, fmt.Errorf("service: reload listing %d: %w", listingID, err)
	}
	return closed, true, nil
}

// Watch adds a user to the listing's watcher set. Re-adding is not an error.
func (s *AuctionService) Watch(listingID, userID uint) error {
	if _, err := s.store.GetListing(listingID); err != nil {
		return fmt.Errorf("service: watch listing %d: %w", listingID, err)
	}
	if err := s.store.AddWatcher(listingID, userID); err != nil {
		return fmt.Errorf("service: watch listing %d: %w", listingID, err)
	}
	return nil
}

// Unwatch removes a user from the listing's watcher set. Removing a
// non-member is not an error.
func (s *AuctionService) Unwatch(listingID, userID uint) error {
	if _, err := s.store.GetListing(listingID); err != nil {
		return fmt.Errorf("service: unwatch listing %d: %w", listingID, err)
	}
	if err := s.store.RemoveWatcher(listingID, userID); err != nil {
		return fmt.Errorf("service: unwatch listing %d: %w", listingID, err)
	}
	return nil
}
