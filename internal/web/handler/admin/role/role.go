// Package role provides the JSON API for managing roles and their grants.
package role

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
	"github.com/newsdesk-cms/newsdesk/internal/config"
	"github.com/newsdesk-cms/newsdesk/internal/db/models"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler"
)

const (
	// Path is the base path for role management.
	Path = handler.APIPath + "/roles"

	// PermissionsPath lists the permission catalog for the role editor.
	PermissionsPath = Path + "/permissions"
)

// ErrNilDependencies is returned by Init when app, config or auth service is missing.
var ErrNilDependencies = errors.New(handler.ErrNilACDFatalLogMsg)

type (
	// CreateRequest is the body of a role creation.
	CreateRequest struct {
		Name          string `json:"name"          validate:"required,max=100"`
		Description   string `json:"description"   validate:"max=255"`
		PermissionIDs []uint `json:"permissionIds" validate:"dive,gt=0"`
	}

	// UpdateRequest is the body of a partial role update.
	// A present permissionIds replaces every grant of the role, an empty list revokes all.
	UpdateRequest struct {
		Name          *string `json:"name"          validate:"omitempty,max=100"`
		Description   *string `json:"description"   validate:"omitempty,max=255"`
		PermissionIDs *[]uint `json:"permissionIds"`
	}

	// ListResponse is the body of the role list.
	ListResponse struct {
		Roles []auth.RoleWithPermissions `json:"roles"`
	}

	// PermissionsResponse lists every permission, flat and grouped by module.
	PermissionsResponse struct {
		Permissions []models.Permission            `json:"permissions"`
		Modules     map[string][]models.Permission `json:"modules"`
	}
)

// Service provides CRUD operations for roles.
type Service struct {
	handler.Service
	cfg         *config.Config
	authService *auth.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authService *auth.Service) error {
	if app == nil || cfg == nil || authService == nil {
		return ErrNilDependencies
	}

	s.cfg = cfg
	s.authService = authService

	app.Get(Path, auth.RequirePermission(authService, auth.RolesRead), s.List)
	app.Get(PermissionsPath, auth.RequirePermission(authService, auth.RolesRead), s.Permissions)
	app.Get(Path+"/:id", auth.RequirePermission(authService, auth.RolesRead), s.Get)
	app.Post(Path, auth.RequirePermission(authService, auth.RolesCreate), s.Create)
	app.Put(Path+"/:id", auth.RequirePermission(authService, auth.RolesUpdate), s.Update)
	app.Delete(Path+"/:id", auth.RequirePermission(authService, auth.RolesDelete), s.Delete)

	return nil
}

// List returns every role with its permissions.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := s.authService.Roles().ListRoles(c.UserContext())
	if err != nil {
		return handler.SendError(c, err)
	}

	return c.JSON(ListResponse{Roles: roles})
}

// Permissions returns the stored permission catalog.
func (s *Service) Permissions(c *fiber.Ctx) error {
	perms, err := s.authService.Permissions(c.UserContext())
	if err != nil {
		return handler.SendError(c, err)
	}

	modules := make(map[string][]models.Permission)
	for _, p := range perms {
		modules[p.Module] = append(modules[p.Module], p)
	}

	return c.JSON(PermissionsResponse{Permissions: perms, Modules: modules})
}

// Get returns one role.
func (s *Service) Get(c *fiber.Ctx) error {
	id, ok, err := handler.ParseID(c, "id")
	if !ok {
		return err
	}

	role, err := s.authService.Roles().GetRole(c.UserContext(), uint(id))
	if err != nil {
		return handler.SendError(c, err)
	}

	return c.JSON(role)
}

// Create inserts a role with its grants.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(CreateRequest)
	if ok, err := handler.ParseBody(c, req); !ok {
		return err
	}

	role, err := s.authService.Roles().CreateRole(c.UserContext(), req.Name, req.Description, req.PermissionIDs...)
	if err != nil {
		return handler.SendError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(role)
}

// Update changes name and description and, when given, replaces the grants.
func (s *Service) Update(c *fiber.Ctx) error {
	id, ok, err := handler.ParseID(c, "id")
	if !ok {
		return err
	}

	req := new(UpdateRequest)
	if ok, err := handler.ParseBody(c, req); !ok {
		return err
	}

	role, err := s.authService.Roles().Update(
		c.UserContext(),
		uint(id),
		auth.RoleUpdate{Name: req.Name, Description: req.Description},
		req.PermissionIDs,
	)
	if err != nil {
		return handler.SendError(c, err)
	}

	return c.JSON(role)
}

// Delete removes a role that is neither a system role nor assigned to a user.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, ok, err := handler.ParseID(c, "id")
	if !ok {
		return err
	}

	if err := s.authService.Roles().DeleteRole(c.UserContext(), uint(id)); err != nil {
		return handler.SendError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
