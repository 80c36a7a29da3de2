package models

// Category labels listings for browsing. Listings may exist without one.
type Category struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Name     string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Listings []Listing `json:"-"`
}
