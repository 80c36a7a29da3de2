package models

import "time"

// Bid is an immutable price record. Every accepted bid inserts a new row;
// a listing points at exactly one Bid as its current price and repoints on
// acceptance instead of mutating the old row.
type Bid struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Amount    float64   `gorm:"not null" json:"amount"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"bidder"`
}
