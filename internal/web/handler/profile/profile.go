// Package profile serves the signed in user's own account.
package profile

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
	"github.com/newsdesk-cms/newsdesk/internal/config"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler"
)

const (
	// MePath returns the current user snapshot. The snapshot is read from the store, so it
	// shows the user's current role, while permission checks use the role id carried in
	// the token until the user signs in again.
	MePath = handler.APIPath + "/auth/me"

	// Path updates the current user's profile.
	Path = handler.APIPath + "/auth/profile"
)

// ErrNilDependencies is returned by Init when app, config or auth service is missing.
var ErrNilDependencies = errors.New(handler.ErrNilACDFatalLogMsg)

// Request is the profile update body. The password is only changed when NewPassword is set.
type Request struct {
	FirstName       *string `json:"firstName"       validate:"omitempty,max=100"`
	LastName        *string `json:"lastName"        validate:"omitempty,max=100"`
	Avatar          *string `json:"avatar"          validate:"omitempty,max=500"`
	CurrentPassword string  `json:"currentPassword" validate:"required_with=NewPassword"`
	NewPassword     string  `json:"newPassword"     validate:"omitempty,min=6,max=128"`
}

// Service is the profile handler service.
type Service struct {
	handler.Service
	cfg         *config.Config
	authService *auth.Service
}

// Handler is the profile handler.
var Handler = Service{}

// Init registers the profile routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authService *auth.Service) error {
	if app == nil || cfg == nil || authService == nil {
		return ErrNilDependencies
	}

	s.cfg = cfg
	s.authService = authService

	app.Get(MePath, auth.RequireAuthenticated(authService), s.Get)
	app.Put(Path, auth.RequireAuthenticated(authService), s.Put)

	return nil
}

// Get returns the current user with the resolved permissions of their current role.
// After an administrator changes the user's role the snapshot reports the new role,
// but requests made with the existing token are still authorized against the old one.
func (s *Service) Get(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return handler.SendError(c, auth.ErrUnauthorized)
	}

	snap, err := s.authService.Snapshot(c.UserContext(), claims.UserID)
	if err != nil {
		return handler.SendError(c, err)
	}

	return c.JSON(snap)
}

// Put updates names and avatar, changes the password when asked and returns the new snapshot.
func (s *Service) Put(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return handler.SendError(c, auth.ErrUnauthorized)
	}

	req := new(Request)
	if ok, err := handler.ParseBody(c, req); !ok {
		return err
	}

	ctx := c.UserContext()
	local := s.authService.Local()

	if req.NewPassword != "" {
		if err := local.ChangePassword(ctx, claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
			return handler.SendError(c, err)
		}
	}

	_, err := local.UpdateProfile(ctx, claims.UserID, auth.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
	})
	if err != nil {
		return handler.SendError(c, err)
	}

	snap, err := s.authService.Snapshot(ctx, claims.UserID)
	if err != nil {
		return handler.SendError(c, err)
	}

	return c.JSON(snap)
}
