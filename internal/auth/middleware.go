package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	localsClaims      = "auth.claims"
	localsPermissions = "auth.permissions"

	// MsgUnauthorized is the error body of 401 responses.
	MsgUnauthorized = "not authorized"
	// MsgForbidden is the error body of 403 responses.
	MsgForbidden = "forbidden"
	// MsgInternal is the error body of 500 responses.
	MsgInternal = "internal server error"
)

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// ClaimsFromContext returns the claims stored by the auth middleware.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(localsClaims).(*Claims)

	return claims, ok && claims != nil
}

// PermissionsFromContext returns the permission set stored by a permission middleware.
func PermissionsFromContext(c *fiber.Ctx) (PermissionSet, bool) {
	set, ok := c.Locals(localsPermissions).(PermissionSet)

	return set, ok
}

// RequireAuthenticated only lets requests with a valid bearer token through.
func RequireAuthenticated(authService *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := authService.Authenticate(c.UserContext(), BearerToken(c))
		if err != nil {
			if !errors.Is(err, ErrUnauthorized) {
				log.Error().Err(err).Str("path", c.Path()).Msg("failed to authenticate")

				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": MsgInternal})
			}

			log.Debug().Err(err).Str("path", c.Path()).Msg("authentication failed")

			return unauthorized(c)
		}

		c.Locals(localsClaims, claims)

		return c.Next()
	}
}

// RequirePermission requires one specific permission.
func RequirePermission(authService *Service, permission Permission) fiber.Handler {
	return RequireAllPermissions(authService, permission)
}

// RequireAllPermissions requires every given permission.
func RequireAllPermissions(authService *Service, permissions ...Permission) fiber.Handler {
	return requirePermissions(authService, ModeAll, permissions)
}

// RequireAnyPermission requires at least one of the given permissions.
func RequireAnyPermission(authService *Service, permissions ...Permission) fiber.Handler {
	return requirePermissions(authService, ModeAny, permissions)
}

func requirePermissions(authService *Service, mode Mode, permissions []Permission) fiber.Handler {
	if len(permissions) == 0 {
		panic("auth: permission middleware without permissions")
	}

	names := make([]string, 0, len(permissions))

	for _, p := range permissions {
		if p.IsZero() {
			panic("auth: permission middleware with zero permission")
		}

		names = append(names, p.Name())
	}

	return func(c *fiber.Ctx) error {
		decision, err := authService.Authorize(c.UserContext(), BearerToken(c), mode, permissions...)
		if decision != nil {
			c.Locals(localsClaims, decision.Claims)
			c.Locals(localsPermissions, decision.Permissions)
		}

		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, ErrUnauthorized):
			log.Debug().Err(err).Str("path", c.Path()).Msg("authentication failed")

			return unauthorized(c)
		case errors.Is(err, ErrForbidden):
			log.Warn().Uint64("user_id", decision.Claims.UserID).Str("mode", mode.String()).
				Strs("permissions", names).Msg("user lacks required permission")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": MsgForbidden})
		default:
			log.Error().Err(err).Strs("permissions", names).Msg("failed to check permissions")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": MsgInternal})
		}
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": MsgUnauthorized})
}
