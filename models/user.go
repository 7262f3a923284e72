package models

import (
	"time"

	"gorm.io/gorm"
)

// Role values. Admins and developers together form the staff side of the
// platform; clients place orders and never mutate them directly.
const (
	RoleClient    = "client"
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
)

// User represents a platform user (client, admin or developer)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"not null;default:'client'" json:"role"` // client, admin or developer
	Country   string         `gorm:"size:2" json:"country"`                 // ISO country code for price display
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsStaff reports whether the user holds a staff role
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleDeveloper
}
