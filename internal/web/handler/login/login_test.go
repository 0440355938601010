package login

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler/handlertest"
)

func newTestApp(t *testing.T) (*fiber.App, *handlertest.Env) {
	t.Helper()

	env := handlertest.New(t)
	app := fiber.New()

	s := &Service{}
	require.NoError(t, s.Init(app, env.Config, env.Auth))

	return app, env
}

func TestInitRejectsNil(t *testing.T) {
	s := &Service{}
	require.ErrorIs(t, s.Init(nil, nil, nil), ErrNilDependencies)
}

func TestLogin(t *testing.T) {
	app, env := newTestApp(t)

	var res auth.LoginResult

	resp := handlertest.Do(t, app, http.MethodPost, Path, "",
		Request{Email: " Writer@newsdesk.local", Password: handlertest.Password}, &res)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, env.Writer.ID, res.User.ID)
	assert.Equal(t, "writer@newsdesk.local", res.User.Email)
	assert.Equal(t, "Writer", res.User.Role.Name)
	assert.Contains(t, res.User.Permissions, "articles.create")
	assert.NotContains(t, res.User.Permissions, "roles.read")

	claims, err := env.Auth.Authenticate(t.Context(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, env.Writer.ID, claims.UserID)
}

func TestLoginFailures(t *testing.T) {
	app, env := newTestApp(t)
	env.CreateUser(t, "off@newsdesk.local", env.WriterRole.ID, false)

	testCases := []struct {
		name   string
		body   any
		status int
		msg    string
	}{
		{
			name:   "wrong password",
			body:   Request{Email: "writer@newsdesk.local", Password: "not-the-password"},
			status: fiber.StatusUnauthorized,
			msg:    handler.MsgInvalidCredentials,
		},
		{
			name:   "unknown email",
			body:   Request{Email: "nobody@newsdesk.local", Password: handlertest.Password},
			status: fiber.StatusUnauthorized,
			msg:    handler.MsgInvalidCredentials,
		},
		{
			name:   "inactive account",
			body:   Request{Email: "off@newsdesk.local", Password: handlertest.Password},
			status: fiber.StatusUnauthorized,
			msg:    handler.MsgInvalidCredentials,
		},
		{
			name:   "short password",
			body:   Request{Email: "writer@newsdesk.local", Password: "123"},
			status: fiber.StatusBadRequest,
			msg:    handler.MsgValidationFailed,
		},
		{
			name:   "not an email",
			body:   Request{Email: "writer", Password: handlertest.Password},
			status: fiber.StatusBadRequest,
			msg:    handler.MsgValidationFailed,
		},
		{
			name:   "broken json",
			body:   `{"email":`,
			status: fiber.StatusBadRequest,
			msg:    handler.MsgInvalidBody,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out handler.ErrorResponse

			resp := handlertest.Do(t, app, http.MethodPost, Path, "", tc.body, &out)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.msg, out.Error)
		})
	}
}
