package models

import (
	"time"
)

// User is a back office account. Users authenticate with email and password
// and receive the permissions of their single role.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Email is the unique login name.
	Email string `gorm:"unique;size:255;not null" json:"email"`
	// Password is the one-way credential hash. It is never serialized.
	Password string `gorm:"size:255;not null" json:"-"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100" json:"firstName"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100" json:"lastName"`
	// Avatar is an optional image URL.
	Avatar string `gorm:"size:500" json:"avatar"`
	// RoleID is the ID of the role assigned to this user.
	RoleID uint `gorm:"column:role_id;not null;index" json:"roleId"`
	// Role is the associated role (enforced with a foreign key constraint).
	Role Role `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE" json:"role"`
	// IsActive disables login when false, regardless of the credential.
	IsActive bool `gorm:"not null" json:"isActive"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}
