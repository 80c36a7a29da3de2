package models

import "time"

// Listing is an auction item. While Active, CurrentBid may only be replaced
// by a Bid with a strictly greater amount; once Active is false the price is
// frozen permanently and CurrentBid.User names the winner.
type Listing struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"size:100;not null" json:"title"`
	Description  string     `gorm:"size:1000" json:"description"`
	ImageURL     string     `gorm:"size:200" json:"image_url"`
	CurrentBidID *uint      `gorm:"index" json:"current_bid_id"`
	Active       bool       `gorm:"default:true" json:"active"`
	OwnerID      uint       `gorm:"index;not null" json:"owner_id"`
	CategoryID   *uint      `gorm:"index" json:"category_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CurrentBid   *Bid       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"current_bid"`
	Owner        User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"owner"`
	Category     *Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"category"`
	Watchers     []User     `gorm:"many2many:listing_watchers;" json:"-"`
	Comments     []Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}

// Price returns the standing amount, zero when no bid is attached yet.
func (l *Listing) Price() float64 {
	if l.CurrentBid == nil {
		return 0
	}
	return l.CurrentBid.Amount
}
