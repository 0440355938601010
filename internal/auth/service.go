package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/newsdesk-cms/newsdesk/internal/db/models"
)

// Service answers authentication and authorization questions.
// It is built once at startup and shared by every request.
type Service struct {
	db       *gorm.DB
	catalog  *Catalog
	tokens   *TokenIssuer
	resolver *Resolver
	roles    *RoleStore
	local    *LocalProvider
	timeout  time.Duration
	active   bool

	cache    PermissionCache
	verifier CredentialVerifier
}

// Option customizes a Service.
type Option func(*Service)

// WithCache puts cache in front of permission resolution.
func WithCache(cache PermissionCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithDecisionTimeout bounds how long an authorization may take. Zero disables the bound.
func WithDecisionTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithActiveCheck makes every authentication confirm that the token's user still
// exists and is active, so deactivation takes effect before the token expires.
func WithActiveCheck() Option {
	return func(s *Service) { s.active = true }
}

// WithVerifier replaces the Argon2id credential verifier.
func WithVerifier(v CredentialVerifier) Option {
	return func(s *Service) { s.verifier = v }
}

// WithCatalog replaces the default catalog.
func WithCatalog(c *Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// NewService wires the auth components on top of db.
func NewService(db *gorm.DB, tokens *TokenIssuer, opts ...Option) *Service {
	s := &Service{
		db:     db,
		tokens: tokens,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.catalog == nil {
		s.catalog = DefaultCatalog()
	}

	if s.verifier == nil {
		s.verifier = NewArgon2Verifier(nil)
	}

	s.resolver = NewResolver(db, s.cache)
	s.roles = NewRoleStore(db, s.resolver)
	s.local = NewLocalProvider(db, s.verifier)

	return s
}

// Catalog returns the permission catalog.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Roles returns the role store.
func (s *Service) Roles() *RoleStore { return s.roles }

// Resolver returns the permission resolver.
func (s *Service) Resolver() *Resolver { return s.resolver }

// Tokens returns the token issuer.
func (s *Service) Tokens() *TokenIssuer { return s.tokens }

// Local returns the local account provider.
func (s *Service) Local() *LocalProvider { return s.local }

// Permissions returns the stored permissions ordered by module, then name.
func (s *Service) Permissions(ctx context.Context) ([]models.Permission, error) {
	return s.catalog.ListAll(ctx, s.db)
}

// PermissionIDs returns the stored ids of perms.
func (s *Service) PermissionIDs(ctx context.Context, perms ...Permission) ([]uint, error) {
	return s.catalog.IDs(ctx, s.db, perms...)
}

// SeedCatalog stores the catalog permissions.
func (s *Service) SeedCatalog(ctx context.Context) error {
	return s.catalog.Seed(ctx, s.db)
}

// RoleRef names a role in a UserSnapshot.
type RoleRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// UserSnapshot is the user as shown to the client, with the resolved permissions
// for UI gating. The server never trusts it for enforcement.
type UserSnapshot struct {
	ID          uint64   `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Avatar      string   `json:"avatar"`
	Role        RoleRef  `json:"role"`
	Permissions []string `json:"permissions"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserSnapshot `json:"user"`
}

// Login authenticates email and password and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.local.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, user.RoleID)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx, user)
	if err != nil {
		return nil, err
	}

	log.Info().Uint64("user_id", user.ID).Uint("role_id", user.RoleID).Msg("user logged in")

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: *snap}, nil
}

// Snapshot returns the current view of an active user.
func (s *Service) Snapshot(ctx context.Context, userID uint64) (*UserSnapshot, error) {
	user, err := s.local.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}

	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUnauthorized
	}

	return s.snapshot(ctx, user)
}

func (s *Service) snapshot(ctx context.Context, user *models.User) (*UserSnapshot, error) {
	set, err := s.resolver.Resolve(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	return &UserSnapshot{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Avatar:      user.Avatar,
		Role:        RoleRef{ID: user.Role.ID, Name: user.Role.Name},
		Permissions: set.Names(),
	}, nil
}

// Authenticate verifies token and returns its claims.
// With WithActiveCheck it also rejects tokens of deactivated or deleted users.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	if ctx.Err() != nil {
		return nil, ErrUnauthorized
	}

	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	if s.active {
		if err := s.ensureActive(ctx, claims.UserID); err != nil {
			return nil, err
		}
	}

	return claims, nil
}

func (s *Service) ensureActive(ctx context.Context, userID uint64) error {
	var active []bool

	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Limit(1).
		Pluck("is_active", &active).Error
	if err != nil {
		if ctx.Err() != nil {
			return ErrUnauthorized
		}

		return storeFailure("check user active", err)
	}

	if len(active) == 0 || !active[0] {
		log.Debug().Uint64("user_id", userID).Msg("token of inactive user rejected")

		return ErrInactiveUser
	}

	return nil
}

// Decision is the outcome of an authorization: who asked and what they hold.
type Decision struct {
	Claims      *Claims
	Permissions PermissionSet
}

// Authorize authenticates token and checks the resolved permissions of its role against perms.
//
// It returns an ErrUnauthorized family error when the identity is unknown, ErrForbidden
// when the role lacks the permissions, has vanished, or the decision timed out, and
// ErrStoreFailure when the store could not answer. Whenever authentication succeeded
// the returned Decision is non-nil, also on denial.
func (s *Service) Authorize(ctx context.Context, token string, mode Mode, perms ...Permission) (*Decision, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			decisionsTotal.WithLabelValues(mode.String(), "unauthorized").Inc()
		} else {
			decisionsTotal.WithLabelValues(mode.String(), resultError).Inc()
		}

		return nil, err
	}

	decision := &Decision{Claims: claims, Permissions: PermissionSet{}}

	set, err := s.resolver.Resolve(ctx, claims.RoleID)
	if err != nil {
		if ctx.Err() != nil {
			decisionsTotal.WithLabelValues(mode.String(), resultForbidden).Inc()
			log.Warn().Err(err).Uint64("user_id", claims.UserID).Msg("permission resolution timed out")

			return decision, ErrForbidden
		}

		decisionsTotal.WithLabelValues(mode.String(), resultError).Inc()

		return decision, storeFailure("authorize", err)
	}

	decision.Permissions = set

	if err := Check(mode, set, perms...); err != nil {
		decisionsTotal.WithLabelValues(mode.String(), resultForbidden).Inc()

		return decision, err
	}

	decisionsTotal.WithLabelValues(mode.String(), resultAllowed).Inc()

	return decision, nil
}

// RequireAll authorizes token when its role holds every permission in perms.
func (s *Service) RequireAll(ctx context.Context, token string, perms ...Permission) (*Decision, error) {
	return s.Authorize(ctx, token, ModeAll, perms...)
}

// RequireAny authorizes token when its role holds at least one permission in perms.
func (s *Service) RequireAny(ctx context.Context, token string, perms ...Permission) (*Decision, error) {
	return s.Authorize(ctx, token, ModeAny, perms...)
}
