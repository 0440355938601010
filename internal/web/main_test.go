package web

import (
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler/admin/role"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler/handlertest"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler/login"
)

func newTestService(t *testing.T) (*Service, *handlertest.Env) {
	t.Helper()

	env := handlertest.New(t)

	s, err := New(env.Config, env.Auth)
	require.NoError(t, err)

	return s, env
}

func TestNewRejectsNil(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
}

func TestCheckAlive(t *testing.T) {
	s, _ := newTestService(t)

	resp := handlertest.Do(t, s.App, http.MethodGet, CheckAlivePath, "", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, s.Alive())

	s.alive.Store(false)

	resp = handlertest.Do(t, s.App, http.MethodGet, CheckAlivePath, "", nil, nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsExposeDecisions(t *testing.T) {
	s, env := newTestService(t)

	resp := handlertest.Do(t, s.App, http.MethodGet, role.Path, env.WriterToken, nil, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = handlertest.Do(t, s.App, http.MethodGet, MetricsPath, "", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "newsdesk_access_decisions_total")
}

func TestLoginThenUseToken(t *testing.T) {
	s, env := newTestService(t)

	var res auth.LoginResult

	resp := handlertest.Do(t, s.App, http.MethodPost, login.Path, "",
		login.Request{Email: env.Admin.Email, Password: handlertest.Password}, &res)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = handlertest.Do(t, s.App, http.MethodGet, role.Path, res.Token, nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	s, _ := newTestService(t)

	var out handler.ErrorResponse

	resp := handlertest.Do(t, s.App, http.MethodGet, "/api/nope", "", nil, &out)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, out.Error)
}
