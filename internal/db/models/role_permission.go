package models

// RolePermission is a grant: role RoleID holds permission PermissionID.
// The composite primary key makes duplicate grants impossible.
type RolePermission struct {
	RoleID       uint       `gorm:"primaryKey;column:role_id;autoIncrement:false"`
	PermissionID uint       `gorm:"primaryKey;column:permission_id;autoIncrement:false;index"`
	Role         Role       `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	Permission   Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the RolePermission model.
func (RolePermission) TableName() string {
	return "role_permissions"
}
