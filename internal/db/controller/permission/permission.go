// Package permission provides storage operations for the permissions table.
package permission

import (
	"errors"

	"gorm.io/gorm"

	"github.com/newsdesk-cms/newsdesk/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"
	orderModuleName  = "module ASC, name ASC"
)

var (
	// ErrPermissionNotFound is returned when a permission is not found.
	ErrPermissionNotFound = errors.New("permission not found")
	// ErrPermissionNameEmpty is returned when a permission name is empty.
	ErrPermissionNameEmpty = errors.New("permission name cannot be empty")
	// ErrPermissionModuleEmpty is returned when a permission module is empty.
	ErrPermissionModuleEmpty = errors.New("permission module cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a permission by its name.
func Get(db *gorm.DB, name string) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrPermissionNameEmpty
	}

	var p models.Permission

	result := db.Where(nameQueryPattern, name).First(&p)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}

		return nil, result.Error
	}

	return &p, nil
}

// GetByID retrieves a permission by its ID.
func GetByID(db *gorm.DB, id uint) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var p models.Permission

	result := db.First(&p, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}

		return nil, result.Error
	}

	return &p, nil
}

// GetAll retrieves all permissions ordered by module, then name.
func GetAll(db *gorm.DB) ([]models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var permissions []models.Permission
	if err := db.Order(orderModuleName).Find(&permissions).Error; err != nil {
		return nil, err
	}

	return permissions, nil
}

// CountExisting returns how many of the given ids exist. ids must be free of duplicates.
func CountExisting(db *gorm.DB, ids []uint) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	if len(ids) == 0 {
		return 0, nil
	}

	var count int64
	if err := db.Model(&models.Permission{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// Set creates or updates a permission by name (upsert operation).
// An existing permission keeps its ID; module and description are overwritten.
func Set(db *gorm.DB, name, module, description string) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrPermissionNameEmpty
	}

	if module == "" {
		return nil, ErrPermissionModuleEmpty
	}

	var p models.Permission

	result := db.Where(nameQueryPattern, name).First(&p)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		p = models.Permission{Name: name, Module: module, Description: description}
		if err := db.Create(&p).Error; err != nil {
			return nil, err
		}

		return &p, nil
	}

	if result.Error != nil {
		return nil, result.Error
	}

	if p.Module == module && p.Description == description {
		return &p, nil
	}

	p.Module = module
	p.Description = description

	if err := db.Save(&p).Error; err != nil {
		return nil, err
	}

	return &p, nil
}

// Delete removes a permission and every grant of it.
// Callers pass a transaction so that both deletes commit together.
func Delete(db *gorm.DB, id uint) error {
	if db == nil {
		return ErrDBNil
	}

	if err := db.Where("permission_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
		return err
	}

	result := db.Delete(&models.Permission{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrPermissionNotFound
	}

	return nil
}
