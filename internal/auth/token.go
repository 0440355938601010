package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL is the lifetime of an identity token when none is configured.
	DefaultTokenTTL = 7 * 24 * time.Hour
	// DefaultLeeway is the tolerated clock skew when checking token times.
	DefaultLeeway = 30 * time.Second
)

// Claims is the identity carried by a token. The role id is informational:
// permissions are always resolved from the store at decision time.
type Claims struct {
	UserID uint64 `json:"userId"`
	Email  string `json:"email"`
	RoleID uint   `json:"roleId"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Leeway time.Duration
	Issuer string
}

// TokenIssuer signs and verifies HS256 identity tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption customizes a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock replaces the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) { t.now = now }
}

// NewTokenIssuer creates an issuer. Zero TTL and leeway fall back to the defaults.
func NewTokenIssuer(cfg TokenConfig, opts ...TokenOption) (*TokenIssuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrEmptySecret
	}

	t := &TokenIssuer{
		secret: append([]byte(nil), cfg.Secret...),
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		issuer: cfg.Issuer,
		now:    time.Now,
	}

	if t.ttl <= 0 {
		t.ttl = DefaultTokenTTL
	}

	if t.leeway <= 0 {
		t.leeway = DefaultLeeway
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// TTL returns the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue signs a token for the user. It returns the token and its expiry.
func (t *TokenIssuer) Issue(userID uint64, email string, roleID uint) (string, time.Time, error) {
	now := t.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(t.ttl)

	claims := Claims{
		UserID: userID,
		Email:  email,
		RoleID: roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify checks signature, algorithm, issuer and validity window of token.
// It returns ErrExpiredToken for expired tokens and ErrInvalidToken for anything else.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(t.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	}

	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	claims := &Claims{}

	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	case claims.UserID == 0 || claims.RoleID == 0:
		return nil, ErrInvalidToken
	}

	return claims, nil
}
