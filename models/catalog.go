package models

import (
	"time"

	"gorm.io/gorm"
)

// Service is a custom software service offered by the studio. Services carry
// no listed price: staff quote each order individually after reviewing the
// client's requirements.
type Service struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Active      bool           `gorm:"not null" json:"active"` // no column default: false must persist as false
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Service model
func (Service) TableName() string {
	return "services"
}

// Project is a pre-built marketplace listing fulfilled instantly on purchase.
// Price is in cents of the base currency; 0 means a free download. Listings
// are hard-deletable only while nothing has been purchased.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Price       int64     `gorm:"not null;default:0" json:"price"`
	FileURL     string    `gorm:"not null" json:"file_url"` // delivered on purchase
	Purchases   int       `gorm:"not null;default:0" json:"purchases"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Project model
func (Project) TableName() string {
	return "projects"
}
