package models

import "time"

// Payment purposes
const (
	PaymentPurposeFull    = "full"
	PaymentPurposeDeposit = "deposit"
	PaymentPurposeBalance = "balance"
)

// Payment is an append-only ledger entry recording one successful gateway
// charge. Rows are never updated or deleted; the sum of an order's payments
// must equal that order's amount_paid.
type Payment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OrderID          uint      `gorm:"not null;index" json:"order_id"`
	Amount           int64     `gorm:"not null" json:"amount"` // cents, base currency
	Purpose          string    `gorm:"not null" json:"purpose"`
	GatewayOrderID   string    `gorm:"not null" json:"gateway_order_id"`
	GatewayPaymentID string    `gorm:"uniqueIndex;not null" json:"gateway_payment_id"` // one ledger row per gateway charge
	Receipt          string    `gorm:"not null" json:"receipt"` // per-attempt idempotency receipt
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}
