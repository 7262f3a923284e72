package models

import "time"

// Message is an append-only chat entry scoped to an order. It shares the
// order's access-control boundary: only the order's client and staff may
// read or write. Delivery is best-effort persisted, no receipts.
type Message struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       uint      `gorm:"not null;index" json:"order_id"`
	Order         Order     `gorm:"foreignKey:OrderID" json:"-"` // don't include full order in JSON
	SenderID      uint      `gorm:"not null;index" json:"sender_id"`
	Sender        User      `gorm:"foreignKey:SenderID" json:"sender"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	AttachmentURL *string   `json:"attachment_url,omitempty"` // object-storage URL
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}
