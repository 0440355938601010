// Package models holds the gorm models of the access control store.
package models

// All returns every model in migration order.
func All() []any {
	return []any{
		&Permission{},
		&Role{},
		&RolePermission{},
		&User{},
	}
}
