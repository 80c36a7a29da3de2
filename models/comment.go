package models

import "time"

// Comment is an append-only remark on a listing. No edit or delete.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ListingID uint      `gorm:"index;not null" json:"listing_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Message   string    `gorm:"size:500;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
