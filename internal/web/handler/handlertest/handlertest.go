// Package handlertest sets up an auth service on a throwaway database for handler tests.
package handlertest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
	"github.com/newsdesk-cms/newsdesk/internal/config"
	"github.com/newsdesk-cms/newsdesk/internal/db/models"
)

// Env is a seeded auth service with an Admin and a Writer account.
type Env struct {
	DB     *gorm.DB
	Auth   *auth.Service
	Config *config.Config

	AdminRole  *auth.RoleWithPermissions
	WriterRole *auth.RoleWithPermissions
	Admin      *models.User
	Writer     *models.User

	AdminToken  string
	WriterToken string
}

// Password is the password of every account created by New.
const Password = "secret-pass"

// New creates the environment.
func New(t *testing.T) *Env {
	t.Helper()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{Secret: []byte("handler-test-secret"), Issuer: "newsdesk"})
	require.NoError(t, err)

	svc := auth.NewService(db, tokens, auth.WithVerifier(auth.NewArgon2Verifier(&argon2id.Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})))
	require.NoError(t, svc.Catalog().Seed(ctx, db))

	env := &Env{
		DB:   db,
		Auth: svc,
		Config: &config.Config{
			Webserver: config.Webserver{URL: "http://localhost", Port: 3001},
		},
	}

	env.AdminRole = env.CreateRole(t, "Admin", svc.Catalog().All()...)
	env.WriterRole = env.CreateRole(t, "Writer", auth.WriterPermissions()...)
	env.Admin, env.AdminToken = env.CreateUser(t, "admin@newsdesk.local", env.AdminRole.ID, true)
	env.Writer, env.WriterToken = env.CreateUser(t, "writer@newsdesk.local", env.WriterRole.ID, true)

	return env
}

// PermissionIDs returns the stored ids of perms.
func (e *Env) PermissionIDs(t *testing.T, perms ...auth.Permission) []uint {
	t.Helper()

	ids, err := e.Auth.Catalog().IDs(context.Background(), e.DB, perms...)
	require.NoError(t, err)

	return ids
}

// CreateRole creates a role holding perms.
func (e *Env) CreateRole(t *testing.T, name string, perms ...auth.Permission) *auth.RoleWithPermissions {
	t.Helper()

	role, err := e.Auth.Roles().CreateRole(context.Background(), name, name+" role", e.PermissionIDs(t, perms...)...)
	require.NoError(t, err)

	return role
}

// CreateUser creates an account with Password and returns it with a token.
func (e *Env) CreateUser(t *testing.T, email string, roleID uint, active bool) (*models.User, string) {
	t.Helper()

	user, err := e.Auth.Local().CreateUser(context.Background(), auth.NewUser{
		Email:     email,
		Password:  Password,
		FirstName: "Test",
		LastName:  "User",
		RoleID:    roleID,
		IsActive:  active,
	})
	require.NoError(t, err)

	token, _, err := e.Auth.Tokens().Issue(user.ID, user.Email, user.RoleID)
	require.NoError(t, err)

	return user, token
}

// Do sends a JSON request to app and decodes the JSON response into out when out is not nil.
func Do(t *testing.T, app *fiber.App, method, path, token string, body, out any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)

			raw = string(encoded)
		}

		reader = bytes.NewBufferString(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp
}
