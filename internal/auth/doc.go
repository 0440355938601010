// Package auth provides authentication and authorization for the newsdesk back office.
//
// The package implements role-based access control on top of gorm:
//   - Users log in with email and password, verified with Argon2id
//   - A successful login yields a signed HS256 bearer token carrying user and role id
//   - Every user has exactly one role, and roles hold permissions
//   - Permissions are module.action identifiers defined in this package
//
// # Permissions
//
// Permission values can only be taken from the package level definitions
// (ArticlesRead, RolesUpdate, ...) or looked up by name in a Catalog, so a
// misspelled permission is a compile error or an explicit ErrUnknownPermission.
// Catalog.Seed stores the catalog at startup.
//
// # Decisions
//
// Each request is decided on permissions resolved from the store at that
// moment, never on what the token or the client claims. A role that was
// deleted after the token was issued resolves to the empty set, so the
// request is denied rather than failing.
//
// RequireAll and RequireAny are the pure decision functions. Service.Authorize
// composes token verification, resolution and decision, bounded by the
// decision timeout, and fails closed on timeout.
//
// # Role store
//
// RoleStore is the only writer of roles and grants. ReplacePermissions swaps a
// role's grants inside one transaction and is serialized per role, then
// invalidates the role in the permission cache.
//
// # Middleware
//
// Fiber middleware functions are provided for route protection:
//   - RequireAuthenticated: Require a valid bearer token
//   - RequirePermission: Protect routes requiring a specific permission
//   - RequireAnyPermission: Protect routes requiring any of several permissions
//   - RequireAllPermissions: Protect routes requiring all of several permissions
//
// Example usage:
//
//	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{Secret: secret})
//	authService := auth.NewService(db, tokens, auth.WithCache(auth.NewMemoryCache(1024, 5*time.Minute)))
//
//	app.Delete("/api/articles/:id",
//	    auth.RequirePermission(authService, auth.ArticlesDelete),
//	    handler,
//	)
package auth
