package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/newsdesk-cms/newsdesk/internal/db/models"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// setupTestDB creates a throwaway SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")

	return db
}

// fastVerifier hashes with cheap parameters so tests stay quick.
func fastVerifier() *Argon2Verifier {
	return NewArgon2Verifier(&argon2id.Params{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
}

func newTestTokens(t *testing.T, opts ...TokenOption) *TokenIssuer {
	t.Helper()

	tokens, err := NewTokenIssuer(TokenConfig{Secret: testSecret, Issuer: "newsdesk-test"}, opts...)
	require.NoError(t, err)

	return tokens
}

func newTestService(t *testing.T, db *gorm.DB, opts ...Option) *Service {
	t.Helper()

	opts = append([]Option{WithVerifier(fastVerifier())}, opts...)
	svc := NewService(db, newTestTokens(t), opts...)
	require.NoError(t, svc.Catalog().Seed(context.Background(), db))

	return svc
}

// permissionIDs returns the stored ids of perms.
func permissionIDs(t *testing.T, svc *Service, perms ...Permission) []uint {
	t.Helper()

	ids, err := svc.Catalog().IDs(context.Background(), svc.db, perms...)
	require.NoError(t, err)

	return ids
}

func createRole(t *testing.T, svc *Service, name string, perms ...Permission) *RoleWithPermissions {
	t.Helper()

	role, err := svc.Roles().CreateRole(context.Background(), name, "", permissionIDs(t, svc, perms...)...)
	require.NoError(t, err)

	return role
}

func createUser(t *testing.T, svc *Service, email, password string, roleID uint, active bool) *models.User {
	t.Helper()

	user, err := svc.Local().CreateUser(context.Background(), NewUser{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
		RoleID:    roleID,
		IsActive:  active,
	})
	require.NoError(t, err)

	return user
}

func issueToken(t *testing.T, svc *Service, user *models.User) string {
	t.Helper()

	token, _, err := svc.Tokens().Issue(user.ID, user.Email, user.RoleID)
	require.NoError(t, err)

	return token
}

// fixedClock returns a clock that can be moved by the test.
func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start

	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}
