package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is the root of every "identity unknown" failure: missing, malformed,
	// badly signed or expired tokens and failed logins all match it with errors.Is.
	ErrUnauthorized = errors.New("not authorized")

	// ErrForbidden is returned when the identity is known but lacks the required permission.
	ErrForbidden = errors.New("forbidden")

	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = fmt.Errorf("%w: missing bearer token", ErrUnauthorized)

	// ErrInvalidToken is returned when a token is malformed, badly signed or carries invalid claims.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthorized)

	// ErrExpiredToken is returned when a correctly signed token is past its expiry.
	ErrExpiredToken = fmt.Errorf("%w: token expired", ErrUnauthorized)

	// ErrInvalidCredentials is returned for unknown emails, wrong passwords and inactive accounts alike.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)

	// ErrInactiveUser is returned when a valid token belongs to a deactivated or deleted user.
	ErrInactiveUser = fmt.Errorf("%w: user is not active", ErrUnauthorized)

	// ErrNotFound is returned when a referenced role, permission or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a role name is already taken.
	ErrDuplicateName = errors.New("name already exists")

	// ErrInvalidReference is returned when a permission or role id given as input does not exist.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrRoleInUse is returned when deleting a role that users are still assigned to.
	ErrRoleInUse = errors.New("role is assigned to users")

	// ErrSystemRole is returned when deleting a role created by the seeder.
	ErrSystemRole = errors.New("system role cannot be deleted")

	// ErrInvalidRoleName is returned when a role name is empty after trimming.
	ErrInvalidRoleName = errors.New("role name cannot be empty")

	// ErrUnknownPermission is returned when a permission name is not part of the catalog.
	ErrUnknownPermission = errors.New("unknown permission")

	// ErrInvalidPermission is returned when building a catalog from malformed definitions.
	ErrInvalidPermission = errors.New("invalid permission definition")

	// ErrEmailExists is returned when creating or renaming a user to an email already in use.
	ErrEmailExists = errors.New("email already in use")

	// ErrInvalidOldPassword is returned when the current password given for a change does not match.
	ErrInvalidOldPassword = errors.New("invalid current password")

	// ErrEmptySecret is returned when a token issuer is built without a signing secret.
	ErrEmptySecret = errors.New("token secret cannot be empty")

	// ErrStoreFailure wraps infrastructure errors of the underlying database.
	ErrStoreFailure = errors.New("store failure")
)

// storeFailure wraps err as ErrStoreFailure unless it already is a classified error.
func storeFailure(op string, err error) error {
	if err == nil || isClassified(err) {
		return err
	}

	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}

func isClassified(err error) bool {
	for _, target := range []error{
		ErrStoreFailure,
		ErrUnauthorized,
		ErrForbidden,
		ErrNotFound,
		ErrDuplicateName,
		ErrInvalidReference,
		ErrRoleInUse,
		ErrSystemRole,
		ErrInvalidRoleName,
		ErrUnknownPermission,
		ErrEmailExists,
		ErrInvalidOldPassword,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
