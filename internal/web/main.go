package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
	"github.com/newsdesk-cms/newsdesk/internal/config"
	fiberlogger "github.com/newsdesk-cms/newsdesk/internal/logger/adapter/fiber"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler/admin/role"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler/admin/user"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler/login"
	"github.com/newsdesk-cms/newsdesk/internal/web/handler/profile"
)

const (
	// CheckAlivePath answers 200 while the service accepts traffic and 503 while it drains.
	CheckAlivePath = "/checkalive"

	// MetricsPath exposes the prometheus metrics.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	authService  *auth.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for a signal and shuts the http server down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown drains and stops the http server.
func (s *Service) Shutdown() {
	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether checkalive answers 200.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, authService *auth.Service) (*Service, error) {
	if cfg == nil || authService == nil {
		return nil, errors.New(handler.ErrNilACDFatalLogMsg)
	}

	title := cfg.Title
	if title == "" {
		title = "newsdesk"
	}

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			ErrorHandler:   errorHandler,
		},
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode,
		authService:  authService,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:   cfg.Log,
		Enrich:   enrichAccessLog,
		SkipURIs: []string{CheckAlivePath, MetricsPath},
	}))

	app.Get(CheckAlivePath, service.checkAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	// init handlers (they register their own routes with permission checks)
	for name, h := range map[string]handler.Service{
		"login":   &login.Handler,
		"profile": &profile.Handler,
		"role":    &role.Handler,
		"user":    &user.Handler,
	} {
		if err := h.Init(app, cfg, authService); err != nil {
			return nil, errors.Join(errors.New("init "+name+" handler"), err)
		}
	}

	return service, nil
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

// enrichAccessLog adds the authenticated identity to the access log entry.
func enrichAccessLog(c *fiber.Ctx, e *zerolog.Event) {
	if claims, ok := auth.ClaimsFromContext(c); ok {
		e.Uint64("user_id", claims.UserID).Uint("role_id", claims.RoleID)
	}
}

// errorHandler answers errors that escaped the handlers with the JSON error body.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(handler.ErrorResponse{Error: fe.Message})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")

	return c.Status(fiber.StatusInternalServerError).JSON(handler.ErrorResponse{Error: auth.MsgInternal})
}
