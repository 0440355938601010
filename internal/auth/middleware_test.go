package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	testCases := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: "Bearer abc.def", want: "abc.def"},
		{header: "bearer abc.def", want: "abc.def"},
		{header: "Basic dXNlcjpwdw==", want: ""},
		{header: "Bearer", want: ""},
		{header: "abc.def", want: ""},
	}

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(BearerToken(c)) })

	for _, tc := range testCases {
		t.Run(tc.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(body))
		})
	}
}

func TestPermissionMiddleware(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	writer := createRole(t, svc, "Writer", WriterPermissions()...)
	user := createUser(t, svc, "writer@newsdesk.local", "secret-pass", writer.ID, true)
	token := issueToken(t, svc, user)

	app := fiber.New()

	ok := func(c *fiber.Ctx) error {
		claims, found := ClaimsFromContext(c)
		if !found {
			return c.SendStatus(fiber.StatusTeapot)
		}

		set, _ := PermissionsFromContext(c)

		return c.JSON(fiber.Map{"user": claims.UserID, "permissions": set.Len()})
	}

	app.Get("/me", RequireAuthenticated(svc), ok)
	app.Get("/articles", RequirePermission(svc, ArticlesRead), ok)
	app.Delete("/articles", RequireAllPermissions(svc, ArticlesRead, ArticlesDelete), ok)
	app.Get("/settings", RequirePermission(svc, SettingsRead), ok)
	app.Get("/dashboard", RequireAnyPermission(svc, SettingsRead, MediaRead), ok)
	app.Get("/roles", RequireAnyPermission(svc, RolesRead, RolesUpdate), ok)

	testCases := []struct {
		name   string
		method string
		path   string
		auth   string
		status int
		body   string
	}{
		{name: "me", method: http.MethodGet, path: "/me", auth: "Bearer " + token, status: fiber.StatusOK},
		{name: "me without token", method: http.MethodGet, path: "/me", status: fiber.StatusUnauthorized, body: MsgUnauthorized},
		{name: "read allowed", method: http.MethodGet, path: "/articles", auth: "Bearer " + token, status: fiber.StatusOK},
		{name: "all allowed", method: http.MethodDelete, path: "/articles", auth: "Bearer " + token, status: fiber.StatusOK},
		{name: "forbidden", method: http.MethodGet, path: "/settings", auth: "Bearer " + token, status: fiber.StatusForbidden, body: MsgForbidden},
		{name: "any allowed", method: http.MethodGet, path: "/dashboard", auth: "Bearer " + token, status: fiber.StatusOK},
		{name: "any forbidden", method: http.MethodGet, path: "/roles", auth: "Bearer " + token, status: fiber.StatusForbidden, body: MsgForbidden},
		{name: "no token", method: http.MethodGet, path: "/articles", status: fiber.StatusUnauthorized, body: MsgUnauthorized},
		{name: "bad token", method: http.MethodGet, path: "/articles", auth: "Bearer nope", status: fiber.StatusUnauthorized, body: MsgUnauthorized},
		{name: "wrong scheme", method: http.MethodGet, path: "/articles", auth: "Token " + token, status: fiber.StatusUnauthorized, body: MsgUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.auth)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			if tc.body == "" {
				return
			}

			var out map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, tc.body, out["error"], "denials must not reveal what was missing")
		})
	}
}

func TestPermissionMiddlewareStoreFailure(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	role := createRole(t, svc, "Writer", ArticlesRead)
	token, _, err := svc.Tokens().Issue(1, "writer@newsdesk.local", role.ID)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	app := fiber.New()
	app.Get("/articles", RequirePermission(svc, ArticlesRead), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestPermissionMiddlewarePanicsWithoutPermissions(t *testing.T) {
	svc := &Service{}

	assert.Panics(t, func() { RequireAnyPermission(svc) })
	assert.Panics(t, func() { RequireAllPermissions(svc, ArticlesRead, Permission{}) })
}
