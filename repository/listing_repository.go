package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gavelhub/gavel/auctionerrors"
	"github.com/gavelhub/gavel/models"
)

// ListingRepository is the gorm-backed ListingStore implementation.
type ListingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a ListingRepository.
func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// GetListing loads a listing with its current bid (and bidder), owner and category.
func (r *ListingRepository) GetListing(id uint) (models.Listing, error) {
	var listing models.Listing
	err := r.db.
		Preload("CurrentBid").
		Preload("CurrentBid.User").
		Preload("Owner").
		Preload("Category").
		First(&listing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Listing{}, fmt.Errorf("repository: listing %d: %w", id, auctionerrors.ErrListingNotFound)
		}
		return models.Listing{}, fmt.Errorf("repository: load listing %d: %w", id, err)
	}
	return listing, nil
}

// ReplaceCurrentBid inserts the bid row and repoints the listing's current
// price in one transaction, guarded by a compare-and-swap on the previous
// current bid id. Two racing bids can both read the same price; only the
// first swap wins, the loser rolls back and surfaces ErrBidConflict.
func (r *ListingRepository) ReplaceCurrentBid(listingID uint, prevBidID *uint, bid *models.Bid) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(bid).Error; err != nil {
			return fmt.Errorf("repository: create bid: %w", err)
		}

		q := tx.Model(&models.Listing{}).Where("id = ? AND active = ?", listingID, true)
		if prevBidID == nil {
			q = q.Where("current_bid_id IS NULL")
		} else {
			q = q.Where("current_bid_id = ?", *prevBidID)
		}
		res := q.Update("current_bid_id", bid.ID)
		if res.Error != nil {
			return fmt.Errorf("repository: repoint listing %d: %w", listingID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("repository: repoint listing %d: %w", listingID, auctionerrors.ErrBidConflict)
		}
		return nil
	})
}

// MarkClosed sets the listing inactive. Already-closed listings stay closed.
func (r *ListingRepository) MarkClosed(listingID uint) error {
	res := r.db.Model(&models.Listing{}).Where("id = ?", listingID).Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("repository: close listing %d: %w", listingID, res.Error)
	}
	return nil
}

// AddWatcher adds a user to the listing's watcher set. The join table insert
// is an upsert, so re-adding an existing watcher changes nothing.
func (r *ListingRepository) AddWatcher(listingID, userID uint) error {
	listing := models.Listing{ID: listingID}
	if err := r.db.Model(&listing).Association("Watchers").Append(&models.User{ID: userID}); err != nil {
		return fmt.Errorf("repository: add watcher %d to listing %d: %w", userID, listingID, err)
	}
	return nil
}

// RemoveWatcher removes a user from the watcher set. Removing a non-member
// deletes nothing and is not an error.
func (r *ListingRepository) RemoveWatcher(listingID, userID uint) error {
	listing := models.Listing{ID: listingID}
	if err := r.db.Model(&listing).Association("Watchers").Delete(&models.User{ID: userID}); err != nil {
		return fmt.Errorf("repository: remove watcher %d from listing %d: %w", userID, listingID, err)
	}
	return nil
}

// IsWatching reports whether the user currently watches the listing.
func (r *ListingRepository) IsWatching(listingID, userID uint) (bool, error) {
	var count int64
	err := r.db.Table("listing_watchers").
		Where("listing_id = ? AND user_id = ?", listingID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("repository: check watcher: %w", err)
	}
	return count > 0, nil
}
