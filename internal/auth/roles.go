package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	permctl "github.com/newsdesk-cms/newsdesk/internal/db/controller/permission"
	"github.com/newsdesk-cms/newsdesk/internal/db/models"
)

// Invalidator is notified after grant changes commit.
type Invalidator interface {
	Invalidate(ctx context.Context, roleID uint) error
	Purge(ctx context.Context) error
}

// RoleWithPermissions is a role together with its granted permissions.
type RoleWithPermissions struct {
	models.Role
	Permissions []models.Permission `json:"permissions"`
}

// RoleUpdate carries the fields of a partial role update. nil fields are left unchanged.
type RoleUpdate struct {
	Name        *string
	Description *string
}

// RoleStore is the only writer of roles and grants.
type RoleStore struct {
	db          *gorm.DB
	invalidator Invalidator
	locks       roleLocks
}

// NewRoleStore creates a role store. inv may be nil when no cache sits in front of the store.
func NewRoleStore(db *gorm.DB, inv Invalidator) *RoleStore {
	return &RoleStore{db: db, invalidator: inv}
}

const whereRoleID = "role_id = ?"

// CreateRole inserts a role and its grants in one transaction.
func (s *RoleStore) CreateRole(
	ctx context.Context,
	name, description string,
	permissionIDs ...uint,
) (*RoleWithPermissions, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidRoleName
	}

	ids := dedupeIDs(permissionIDs)
	role := models.Role{Name: name, Description: description}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNameFree(tx, name, 0); err != nil {
			return err
		}

		if err := ensurePermissionsExist(tx, ids); err != nil {
			return err
		}

		if err := tx.Create(&role).Error; err != nil {
			return mapDuplicate(err)
		}

		return insertGrants(tx, role.ID, ids)
	})
	if err != nil {
		return nil, storeFailure("create role", err)
	}

	if err := s.invalidate(ctx, role.ID); err != nil {
		return nil, err
	}

	return s.GetRole(ctx, role.ID)
}

// EnsureRole returns the role called name, creating it when absent.
// created reports whether the role was inserted.
func (s *RoleStore) EnsureRole(
	ctx context.Context,
	name, description string,
	system bool,
) (role *models.Role, created bool, err error) {
	db := s.db.WithContext(ctx)
	role = &models.Role{}

	err = db.Where("name = ?", name).First(role).Error
	if err == nil {
		return role, false, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, storeFailure("ensure role", err)
	}

	role = &models.Role{Name: name, Description: description, IsSystem: system}
	if err := db.Create(role).Error; err != nil {
		return nil, false, storeFailure("ensure role", mapDuplicate(err))
	}

	return role, true, nil
}

// GetRole returns a role with its permissions ordered by module, then name.
func (s *RoleStore) GetRole(ctx context.Context, id uint) (*RoleWithPermissions, error) {
	db := s.db.WithContext(ctx)

	var role models.Role
	if err := db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: role %d", ErrNotFound, id)
		}

		return nil, storeFailure("get role", err)
	}

	perms := []models.Permission{}

	err := db.Model(&models.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", id).
		Order("permissions.module ASC, permissions.name ASC").
		Find(&perms).Error
	if err != nil {
		return nil, storeFailure("get role permissions", err)
	}

	return &RoleWithPermissions{Role: role, Permissions: perms}, nil
}

type grantRow struct {
	RoleID       uint
	PermissionID uint
	Name         string
	Module       string
	Description  string
}

// ListRoles returns every role ordered by name, each with its permissions.
func (s *RoleStore) ListRoles(ctx context.Context) ([]RoleWithPermissions, error) {
	db := s.db.WithContext(ctx)

	var roles []models.Role
	if err := db.Order("name ASC").Find(&roles).Error; err != nil {
		return nil, storeFailure("list roles", err)
	}

	var rows []grantRow

	err := db.Table("role_permissions").
		Select("role_permissions.role_id, role_permissions.permission_id, " +
			"permissions.name, permissions.module, permissions.description").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Order("permissions.module ASC, permissions.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, storeFailure("list grants", err)
	}

	byRole := make(map[uint][]models.Permission, len(roles))
	for _, r := range rows {
		byRole[r.RoleID] = append(byRole[r.RoleID], models.Permission{
			ID:          r.PermissionID,
			Name:        r.Name,
			Module:      r.Module,
			Description: r.Description,
		})
	}

	out := make([]RoleWithPermissions, 0, len(roles))

	for _, role := range roles {
		perms := byRole[role.ID]
		if perms == nil {
			perms = []models.Permission{}
		}

		out = append(out, RoleWithPermissions{Role: role, Permissions: perms})
	}

	return out, nil
}

// UpdateRole renames or re-describes a role.
func (s *RoleStore) UpdateRole(ctx context.Context, id uint, upd RoleUpdate) (*RoleWithPermissions, error) {
	return s.Update(ctx, id, upd, nil)
}

// Update applies upd and, when permissionIDs is non-nil, replaces the role's grants
// in the same transaction. Either every change is stored or none is.
func (s *RoleStore) Update(
	ctx context.Context, id uint, upd RoleUpdate, permissionIDs *[]uint,
) (*RoleWithPermissions, error) {
	var ids []uint
	if permissionIDs != nil {
		ids = dedupeIDs(*permissionIDs)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRole(tx, id); err != nil {
			return err
		}

		var role models.Role
		if err := tx.First(&role, id).Error; err != nil {
			return err
		}

		updates := map[string]any{}

		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return ErrInvalidRoleName
			}

			if name != role.Name {
				if err := ensureNameFree(tx, name, id); err != nil {
					return err
				}

				updates["name"] = name
			}
		}

		if upd.Description != nil {
			updates["description"] = *upd.Description
		}

		if permissionIDs != nil {
			if err := ensurePermissionsExist(tx, ids); err != nil {
				return err
			}
		}

		if len(updates) > 0 {
			if err := mapDuplicate(tx.Model(&role).Updates(updates).Error); err != nil {
				return err
			}
		}

		if permissionIDs == nil {
			return nil
		}

		if err := tx.Where(whereRoleID, id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		return insertGrants(tx, id, ids)
	})
	if err != nil {
		return nil, storeFailure("update role", err)
	}

	if permissionIDs != nil {
		log.Info().Uint("role_id", id).Int("permissions", len(ids)).Msg("role permissions replaced")

		if err := s.invalidate(ctx, id); err != nil {
			return nil, err
		}
	}

	return s.GetRole(ctx, id)
}

// ReplacePermissions atomically replaces every grant of roleID with permissionIDs.
// Unknown ids fail with ErrInvalidReference before anything is deleted, and a failure
// at any later point leaves the previous grants in place.
func (s *RoleStore) ReplacePermissions(ctx context.Context, roleID uint, permissionIDs []uint) error {
	ids := dedupeIDs(permissionIDs)

	unlock := s.locks.lock(roleID)
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRole(tx, roleID); err != nil {
			return err
		}

		if err := ensurePermissionsExist(tx, ids); err != nil {
			return err
		}

		if err := tx.Where(whereRoleID, roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		return insertGrants(tx, roleID, ids)
	})
	if err != nil {
		return storeFailure("replace permissions", err)
	}

	log.Info().Uint("role_id", roleID).Int("permissions", len(ids)).Msg("role permissions replaced")

	return s.invalidate(ctx, roleID)
}

// DeleteRole removes a role and its grants.
// System roles and roles still assigned to users are rejected.
func (s *RoleStore) DeleteRole(ctx context.Context, id uint) error {
	unlock := s.locks.lock(id)
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRole(tx, id); err != nil {
			return err
		}

		var role models.Role
		if err := tx.First(&role, id).Error; err != nil {
			return err
		}

		if role.IsSystem {
			return ErrSystemRole
		}

		var users int64
		if err := tx.Model(&models.User{}).Where(whereRoleID, id).Count(&users).Error; err != nil {
			return err
		}

		if users > 0 {
			return fmt.Errorf("%w: %d users", ErrRoleInUse, users)
		}

		if err := tx.Where(whereRoleID, id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Role{}, id).Error
	})
	if err != nil {
		return storeFailure("delete role", err)
	}

	log.Info().Uint("role_id", id).Msg("role deleted")

	return s.invalidate(ctx, id)
}

// DeletePermission removes a permission and every grant of it.
func (s *RoleStore) DeletePermission(ctx context.Context, permissionID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := permctl.Delete(tx, permissionID)
		if errors.Is(err, permctl.ErrPermissionNotFound) {
			return fmt.Errorf("%w: permission %d", ErrNotFound, permissionID)
		}

		return err
	})
	if err != nil {
		return storeFailure("delete permission", err)
	}

	if s.invalidator == nil {
		return nil
	}

	if err := s.invalidator.Purge(ctx); err != nil {
		log.Error().Err(err).Uint("permission_id", permissionID).Msg("failed to purge permission cache")

		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	return nil
}

func (s *RoleStore) invalidate(ctx context.Context, roleID uint) error {
	if s.invalidator == nil {
		return nil
	}

	// the transaction is already committed, only the cache is behind
	if err := s.invalidator.Invalidate(context.WithoutCancel(ctx), roleID); err != nil {
		log.Error().Err(err).Uint("role_id", roleID).Msg("failed to invalidate permission cache")

		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	return nil
}

// lockRole checks that the role exists and, where the engine supports it, locks its row
// until the transaction ends.
func lockRole(tx *gorm.DB, roleID uint) error {
	q := tx.Select("id")
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}

	var role models.Role
	if err := q.First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: role %d", ErrNotFound, roleID)
		}

		return err
	}

	return nil
}

func ensureNameFree(tx *gorm.DB, name string, exceptID uint) error {
	var count int64

	q := tx.Model(&models.Role{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}

	if err := q.Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	return nil
}

func ensurePermissionsExist(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	count, err := permctl.CountExisting(tx, ids)
	if err != nil {
		return err
	}

	if count != int64(len(ids)) {
		return fmt.Errorf("%w: %d of %d permission ids are unknown", ErrInvalidReference, int64(len(ids))-count, len(ids))
	}

	return nil
}

func insertGrants(tx *gorm.DB, roleID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	grants := make([]models.RolePermission, 0, len(ids))
	for _, id := range ids {
		grants = append(grants, models.RolePermission{RoleID: roleID, PermissionID: id})
	}

	return tx.Omit(clause.Associations).CreateInBatches(&grants, 100).Error
}

func mapDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrDuplicateName, err)
	}

	return err
}

func dedupeIDs(ids []uint) []uint {
	out := slices.Clone(ids)
	slices.Sort(out)

	return slices.Compact(out)
}

// roleLocks serializes writers per role inside this process.
type roleLocks struct {
	mu    sync.Mutex
	locks map[uint]*roleLock
}

type roleLock struct {
	mu   sync.Mutex
	refs int
}

func (l *roleLocks) lock(roleID uint) func() {
	l.mu.Lock()

	if l.locks == nil {
		l.locks = make(map[uint]*roleLock)
	}

	rl, ok := l.locks[roleID]
	if !ok {
		rl = &roleLock{}
		l.locks[roleID] = rl
	}

	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--

		if rl.refs == 0 {
			delete(l.locks, roleID)
		}

		l.mu.Unlock()
	}
}
