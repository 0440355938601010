package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/newsdesk-cms/newsdesk/internal/db/models"
)

// LocalProvider handles accounts stored in the local database.
type LocalProvider struct {
	db       *gorm.DB
	verifier CredentialVerifier

	dummyOnce sync.Once
	dummyHash string
}

const whereID = "id = ?"

// NewUser describes an account to create.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Avatar    string
	RoleID    uint
	IsActive  bool
}

// UserUpdate carries the fields of a partial user update. nil fields are left unchanged.
type UserUpdate struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Avatar    *string
	RoleID    *uint
	IsActive  *bool
}

// ProfileUpdate carries the fields a user may change on their own account.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Avatar    *string
}

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB, verifier CredentialVerifier) *LocalProvider {
	return &LocalProvider{
		db:       db,
		verifier: verifier,
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks email and password.
// Unknown emails, wrong passwords and inactive accounts all fail with ErrInvalidCredentials,
// and every path runs one password verification.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User

	err := p.db.WithContext(ctx).Preload("Role").
		Where("email = ?", NormalizeEmail(email)).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		p.verifier.Verify(password, p.dummy())

		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, storeFailure("query user", err)
	}

	if !p.verifier.Verify(password, user.Password) || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// dummy returns the hash verified for unknown emails. It is never empty, so the
// unknown email path always pays for a full verification.
func (p *LocalProvider) dummy() string {
	p.dummyOnce.Do(func() {
		hash, err := p.verifier.Hash(uuid.NewString())
		if err == nil {
			p.dummyHash = hash

			return
		}

		log.Warn().Err(err).Msg("failed to hash dummy password, using fallback hash")

		if f, ok := p.verifier.(interface{ FallbackHash() string }); ok {
			p.dummyHash = f.FallbackHash()
		} else {
			p.dummyHash = encodeFallbackHash(argon2id.DefaultParams)
		}
	})

	return p.dummyHash
}

// CreateUser creates a new local user.
func (p *LocalProvider) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	hash, err := p.verifier.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:     NormalizeEmail(in.Email),
		Password:  hash,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Avatar:    in.Avatar,
		RoleID:    in.RoleID,
		IsActive:  in.IsActive,
	}

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureEmailFree(tx, user.Email, 0); err != nil {
			return err
		}

		if err := ensureRoleExists(tx, user.RoleID); err != nil {
			return err
		}

		if err := tx.Omit("Role").Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailExists
			}

			return err
		}

		return nil
	})
	if err != nil {
		return nil, storeFailure("create user", err)
	}

	return p.GetUser(ctx, user.ID)
}

// UpdateUser changes an existing user.
func (p *LocalProvider) UpdateUser(ctx context.Context, userID uint64, upd UserUpdate) (*models.User, error) {
	updates := map[string]any{}

	if upd.Password != nil {
		hash, err := p.verifier.Hash(*upd.Password)
		if err != nil {
			return nil, err
		}

		updates["password"] = hash
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUserExists(tx, userID); err != nil {
			return err
		}

		if upd.Email != nil {
			email := NormalizeEmail(*upd.Email)
			if err := ensureEmailFree(tx, email, userID); err != nil {
				return err
			}

			updates["email"] = email
		}

		if upd.RoleID != nil {
			if err := ensureRoleExists(tx, *upd.RoleID); err != nil {
				return err
			}

			updates["role_id"] = *upd.RoleID
		}

		setString(updates, "first_name", upd.FirstName)
		setString(updates, "last_name", upd.LastName)
		setString(updates, "avatar", upd.Avatar)

		if upd.IsActive != nil {
			updates["is_active"] = *upd.IsActive
		}

		if len(updates) == 0 {
			return nil
		}

		return tx.Model(&models.User{}).Where(whereID, userID).Updates(updates).Error
	})
	if err != nil {
		return nil, storeFailure("update user", err)
	}

	return p.GetUser(ctx, userID)
}

// UpdateProfile changes the personal fields of a user.
func (p *LocalProvider) UpdateProfile(ctx context.Context, userID uint64, upd ProfileUpdate) (*models.User, error) {
	return p.UpdateUser(ctx, userID, UserUpdate{
		FirstName: upd.FirstName,
		LastName:  upd.LastName,
		Avatar:    upd.Avatar,
	})
}

// ChangePassword changes a user's password after checking the current one.
func (p *LocalProvider) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := p.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if !p.verifier.Verify(oldPassword, user.Password) {
		return ErrInvalidOldPassword
	}

	hash, err := p.verifier.Hash(newPassword)
	if err != nil {
		return err
	}

	err = p.db.WithContext(ctx).Model(&models.User{}).
		Where(whereID, userID).
		Update("password", hash).Error

	return storeFailure("change password", err)
}

// DeleteUser removes a user.
func (p *LocalProvider) DeleteUser(ctx context.Context, userID uint64) error {
	result := p.db.WithContext(ctx).Delete(&models.User{}, userID)
	if result.Error != nil {
		return storeFailure("delete user", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}

	return nil
}

// GetUser retrieves a user with its role.
func (p *LocalProvider) GetUser(ctx context.Context, userID uint64) (*models.User, error) {
	var user models.User
	if err := p.db.WithContext(ctx).Preload("Role").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}

		return nil, storeFailure("get user", err)
	}

	return &user, nil
}

// ListUsers lists users ordered by email, optionally filtered by activity.
func (p *LocalProvider) ListUsers(
	ctx context.Context,
	active *bool,
	limit, offset int,
) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)

	query := p.db.WithContext(ctx).Model(&models.User{})

	if active != nil {
		query = query.Where("is_active = ?", *active)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeFailure("count users", err)
	}

	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	if err := query.Preload("Role").Order("email ASC").Find(&users).Error; err != nil {
		return nil, 0, storeFailure("list users", err)
	}

	return users, total, nil
}

func setString(updates map[string]any, column string, v *string) {
	if v != nil {
		updates[column] = *v
	}
}

func ensureUserExists(tx *gorm.DB, userID uint64) error {
	var count int64
	if err := tx.Model(&models.User{}).Where(whereID, userID).Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}

	return nil
}

func ensureEmailFree(tx *gorm.DB, email string, exceptID uint64) error {
	var count int64

	q := tx.Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}

	if err := q.Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return ErrEmailExists
	}

	return nil
}

func ensureRoleExists(tx *gorm.DB, roleID uint) error {
	var count int64
	if err := tx.Model(&models.Role{}).Where(whereID, roleID).Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		return fmt.Errorf("%w: role %d", ErrInvalidReference, roleID)
	}

	return nil
}
