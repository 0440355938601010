package models

import "time"

// Permission is a grantable capability such as "articles.delete".
// Permissions are seeded from the catalog at startup and assigned to roles.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the unique identifier in module.action format (e.g., "articles.create").
	Name string `gorm:"unique;size:100;not null" json:"name"`
	// Module groups permissions for display (e.g., "articles", "media").
	Module string `gorm:"size:50;not null;index" json:"module"`
	// Description is a human-readable label.
	Description string `gorm:"size:255" json:"description"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time `json:"-"`
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time `json:"-"`
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}
