package models

import "time"

// Offer is a discount coupon. Immutable once created except for deletion.
// Codes are stored uppercase; validity is checked at day granularity, so an
// offer remains valid through the entirety of its expiry day.
type Offer struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Code            string     `gorm:"uniqueIndex;not null" json:"code"`
	DiscountPercent int        `gorm:"not null" json:"discount_percent"` // 1-100
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TableName specifies the table name for the Offer model
func (Offer) TableName() string {
	return "offers"
}
