// Package user provides handlers for managing users (CRUD) in admin area.
package user

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
	"github.com/newsdesk-cms/newsdesk/internal/config"
	"github.com/newsdesk-cms/newsdesk/internal/db/models"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler"
)

const (
	// Path is the base path for user management.
	Path = handler.APIPath + "/users"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25

	// MaxPageSize caps the pageSize query parameter.
	MaxPageSize = 100

	// MsgDeleteSelf is returned when a user tries to delete their own account.
	MsgDeleteSelf = "you can not delete your own account"
)

// ErrNilDependencies is returned by Init when app, config or auth service is missing.
var ErrNilDependencies = errors.New(handler.ErrNilACDFatalLogMsg)

type (
	// CreateRequest is the body of a user creation.
	CreateRequest struct {
		Email     string `json:"email"     validate:"required,email,max=255"`
		Password  string `json:"password"  validate:"required,min=6,max=128"`
		FirstName string `json:"firstName" validate:"max=100"`
		LastName  string `json:"lastName"  validate:"max=100"`
		Avatar    string `json:"avatar"    validate:"omitempty,url,max=500"`
		RoleID    uint   `json:"roleId"    validate:"required"`
		IsActive  *bool  `json:"isActive"`
	}

	// UpdateRequest is the body of a partial user update.
	UpdateRequest struct {
		Email     *string `json:"email"     validate:"omitempty,email,max=255"`
		Password  *string `json:"password"  validate:"omitempty,min=6,max=128"`
		FirstName *string `json:"firstName" validate:"omitempty,max=100"`
		LastName  *string `json:"lastName"  validate:"omitempty,max=100"`
		Avatar    *string `json:"avatar"    validate:"omitempty,max=500"`
		RoleID    *uint   `json:"roleId"    validate:"omitempty,gt=0"`
		IsActive  *bool   `json:"isActive"`
	}

	// ListResponse is one page of users.
	ListResponse struct {
		Users      []models.User `json:"users"`
		Page       int           `json:"page"`
		PageSize   int           `json:"pageSize"`
		TotalItems int64         `json:"totalItems"`
		TotalPages int           `json:"totalPages"`
	}
)

// Service provides CRUD operations for users.
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

	app.Get(Path, auth.RequirePermission(authService, auth.UsersRead), s.List)
	app.Get(Path+"/:id", auth.RequirePermission(authService, auth.UsersRead), s.Get)
	app.Post(Path, auth.RequirePermission(authService, auth.UsersCreate), s.Create)
	app.Put(Path+"/:id", auth.RequirePermission(authService, auth.UsersUpdate), s.Update)
	app.Delete(Path+"/:id", auth.RequirePermission(authService, auth.UsersDelete), s.Delete)

	return nil
}

// List returns users ordered by email with simple pagination.
// The active query parameter filters by account state.
func (s *Service) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	var active *bool

	if c.Query("active") != "" {
		v := c.QueryBool("active")
		active = &v
	}

	users, total, err := s.authService.Local().ListUsers(c.UserContext(), active, pageSize, (page-1)*pageSize)
	if err != nil {
		return handler.SendError(c, err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}

	return c.JSON(ListResponse{
		Users:      users,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// Get returns one user.
func (s *Service) Get(c *fiber.Ctx) error {
	id, ok, err := handler.ParseID(c, "id")
	if !ok {
		return err
	}

	user, err := s.authService.Local().GetUser(c.UserContext(), id)
	if err != nil {
		return handler.SendError(c, err)
	}

	return c.JSON(user)
}

// Create adds a local account. New accounts are active unless isActive is false.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(CreateRequest)
	if ok, err := handler.ParseBody(c, req); !ok {
		return err
	}

	active := req.IsActive == nil || *req.IsActive

	user, err := s.authService.Local().CreateUser(c.UserContext(), auth.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
		RoleID:    req.RoleID,
		IsActive:  active,
	})
	if err != nil {
		return handler.SendError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// Update changes the given fields of a user.
func (s *Service) Update(c *fiber.Ctx) error {
	id, ok, err := handler.ParseID(c, "id")
	if !ok {
		return err
	}

	req := new(UpdateRequest)
	if ok, err := handler.ParseBody(c, req); !ok {
		return err
	}

	user, err := s.authService.Local().UpdateUser(c.UserContext(), id, auth.UserUpdate{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
		RoleID:    req.RoleID,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return handler.SendError(c, err)
	}

	return c.JSON(user)
}

// Delete removes a user other than the caller.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, ok, err := handler.ParseID(c, "id")
	if !ok {
		return err
	}

	if claims, found := auth.ClaimsFromContext(c); found && claims.UserID == id {
		return c.Status(fiber.StatusBadRequest).JSON(handler.ErrorResponse{Error: MsgDeleteSelf})
	}

	if err := s.authService.Local().DeleteUser(c.UserContext(), id); err != nil {
		return handler.SendError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
