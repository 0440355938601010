package daemon

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
	"github.com/newsdesk-cms/newsdesk/internal/config"
	"github.com/newsdesk-cms/newsdesk/internal/web"
)

// ErrNilConfig is returned by New without a configuration.
var ErrNilConfig = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	webService  *web.Service
	closeCache  func() error
}

// New connects the database, migrates and seeds it, and builds the web service.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	svc, closeCache, err := NewAuthService(ctx, cfg, db)
	if err != nil {
		return nil, err
	}

	if err := Seed(ctx, cfg.Seed, svc); err != nil {
		_ = closeCache()

		return nil, fmt.Errorf("seed: %w", err)
	}

	webService, err := web.New(cfg, svc)
	if err != nil {
		_ = closeCache()

		return nil, err
	}

	return &Daemon{
		cfg:         cfg,
		db:          db,
		authService: svc,
		webService:  webService,
		closeCache:  closeCache,
	}, nil
}

// NewAuthService builds the token issuer, the permission cache and the auth service on db.
func NewAuthService(ctx context.Context, cfg *config.Config, db *gorm.DB) (*auth.Service, func() error, error) {
	tokens, err := NewTokenIssuer(cfg)
	if err != nil {
		return nil, nil, err
	}

	cache, closeCache, err := NewPermissionCache(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	opts := []auth.Option{auth.WithDecisionTimeout(cfg.Auth.DecisionTimeout)}
	if cache != nil {
		opts = append(opts, auth.WithCache(cache))
	}

	if cfg.Auth.CheckActive {
		opts = append(opts, auth.WithActiveCheck())
	}

	return auth.NewService(db, tokens, opts...), closeCache, nil
}

// NewTokenIssuer creates the token issuer. In dev mode an empty secret is replaced by
// a random one, so tokens do not survive a restart.
func NewTokenIssuer(cfg *config.Config) (*auth.TokenIssuer, error) {
	secret := []byte(cfg.Auth.TokenSecret)

	if len(secret) == 0 && cfg.DevMode {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}

		log.Warn().Msg("dev mode: using a random token secret")
	}

	return auth.NewTokenIssuer(auth.TokenConfig{
		Secret: secret,
		TTL:    cfg.Auth.TokenTTL,
		Leeway: cfg.Auth.ClockSkew,
		Issuer: cfg.Auth.Issuer,
	})
}

// Web returns the web service.
func (d *Daemon) Web() *web.Service { return d.webService }

// Start serves until a shutdown signal arrives.
func (d *Daemon) Start() error {
	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)

	go func() {
		if err := d.webService.Start(addr); err != nil {
			log.Error().Err(err).Msg("web service stopped")
		}
	}()

	log.Info().Str("addr", addr).Msg("newsdesk started")

	d.webService.WaitShutdown()

	return d.Close()
}

// Close releases the cache and database connections.
func (d *Daemon) Close() error {
	var errs []error

	if d.closeCache != nil {
		errs = append(errs, d.closeCache())
	}

	if sqlDB, err := d.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}

	return errors.Join(errs...)
}

// RunSeed migrates and seeds the database without starting the web service.
func RunSeed(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return ErrNilConfig
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return err
	}

	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := Migrate(db); err != nil {
		return err
	}

	svc, closeCache, err := NewAuthService(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeCache() //nolint:errcheck

	return Seed(ctx, cfg.Seed, svc)
}
