package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Order types
const (
	OrderTypeService = "service"
	OrderTypeProject = "project"
)

// Order statuses. completed and cancelled are terminal; everything else may
// be moved freely by staff. Payment gating derives from status, never from a
// separate transition table, so a staff-set status immediately changes what
// payments are permitted.
const (
	StatusPending     = "pending"
	StatusAccepted    = "accepted"
	StatusInProgress  = "in_progress"
	StatusMockupReady = "mockup_ready"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
)

// ValidStatus reports whether s is a known order status
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress, StatusMockupReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// TerminalStatus reports whether s permits no further status changes
func TerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ServiceRequirements is the client brief for a custom service order
type ServiceRequirements struct {
	Summary  string `json:"summary"`
	Details  string `json:"details,omitempty"`
	Deadline string `json:"deadline,omitempty"`
}

// ProjectRequirements carries the purchase details for a marketplace project
type ProjectRequirements struct {
	License string `json:"license,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Requirements is a tagged union keyed by the order type: exactly one variant
// is populated, matching Order.Type.
type Requirements struct {
	Service *ServiceRequirements `json:"service,omitempty"`
	Project *ProjectRequirements `json:"project,omitempty"`
}

// Validate checks that the populated variant matches the order type
func (r Requirements) Validate(orderType string) error {
	switch orderType {
	case OrderTypeService:
		if r.Service == nil || r.Project != nil {
			return errors.New("service order requires the service requirements variant")
		}
		if r.Service.Summary == "" {
			return errors.New("service requirements need a summary")
		}
	case OrderTypeProject:
		if r.Project == nil || r.Service != nil {
			return errors.New("project order requires the project requirements variant")
		}
	default:
		return fmt.Errorf("unknown order type %q", orderType)
	}
	return nil
}

// Value implements driver.Valuer so requirements persist as a JSON column
func (r Requirements) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (r *Requirements) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = Requirements{}
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	}
	return fmt.Errorf("cannot scan %T into Requirements", src)
}

// URLList is an ordered list of uploaded file URLs stored as a JSON column
type URLList []string

// Value implements driver.Valuer
func (l URLList) Value() (driver.Value, error) {
	if l == nil {
		l = URLList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *URLList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = URLList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("cannot scan %T into URLList", src)
}

// Order is the central entity of the platform. All money columns hold cents
// of the base currency (USD). amount_paid is the aggregate over the payments
// ledger and must never decrease; reconciliation recomputes it from the
// ledger when the two drift apart.
type Order struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	Type             string       `gorm:"not null" json:"type"` // service or project
	ServiceID        *uint        `gorm:"index" json:"service_id,omitempty"`
	ProjectID        *uint        `gorm:"index" json:"project_id,omitempty"`
	Status           string       `gorm:"not null;default:'pending'" json:"status"`
	TotalAmount      int64        `gorm:"not null;default:0" json:"total_amount"`    // quoted price, 0 until set
	DepositAmount    int64        `gorm:"not null;default:0" json:"deposit_amount"`  // required before work begins
	AmountPaid       int64        `gorm:"not null;default:0" json:"amount_paid"`     // cumulative successful payments
	DiscountAmount   int64        `gorm:"not null;default:0" json:"discount_amount"` // already subtracted from total
	AppliedOfferCode *string      `json:"applied_offer_code,omitempty"`
	Requirements     Requirements `gorm:"type:text" json:"requirements"`
	Deliverables     URLList      `gorm:"type:text" json:"deliverables"`
	Rating           int          `gorm:"not null;default:0" json:"rating"` // 1-5, 0 means not yet rated
	Review           *string      `json:"review,omitempty"`
	ClientID         uint         `gorm:"not null;index" json:"client_id"`
	Client           User         `gorm:"foreignKey:ClientID" json:"client"`
	CreatedAt        time.Time    `json:"created_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}
