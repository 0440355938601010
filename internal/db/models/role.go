package models

import "time"

// Role is a named bucket of permissions. Every user has exactly one role.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the unique name of the role (e.g., "Admin", "Writer").
	Name string `gorm:"unique;size:100;not null" json:"name"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255" json:"description"`
	// IsSystem marks roles created by the seeder that cannot be deleted.
	IsSystem bool `gorm:"default:false" json:"isSystem"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
