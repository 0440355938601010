package login

import (
	"github.com/gofiber/fiber/v2"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
	"github.com/newsdesk-cms/newsdesk/internal/config"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler"
)

const (
	// Path is the path of the login endpoint.
	Path = handler.APIPath + "/auth/login"
)

// Request is the login body.
type Request struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg         *config.Config
	authService *auth.Service
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authService *auth.Service) error {
	if app == nil || cfg == nil || authService == nil {
		return ErrNilDependencies
	}

	s.cfg = cfg
	s.authService = authService

	app.Post(Path, s.Post)

	return nil
}

// Post checks the credentials and answers with a token and a snapshot of the user.
func (s *Service) Post(c *fiber.Ctx) error {
	req := new(Request)

	if ok, err := handler.ParseBody(c, req); !ok {
		return err
	}

	res, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return handler.SendError(c, err)
	}

	return c.JSON(res)
}
