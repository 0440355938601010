package auth

import "fmt"

// Mode selects how a list of required permissions is combined.
type Mode int

const (
	// ModeAll requires every listed permission.
	ModeAll Mode = iota
	// ModeAny requires at least one listed permission.
	ModeAny
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeAny:
		return "any"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// RequireAll returns nil when set holds every permission in perms, ErrForbidden otherwise.
// An empty requirement list is denied.
func RequireAll(set PermissionSet, perms ...Permission) error {
	if len(perms) == 0 {
		return ErrForbidden
	}

	for _, p := range perms {
		if !set.Has(p) {
			return fmt.Errorf("%w: missing %s", ErrForbidden, p.name)
		}
	}

	return nil
}

// RequireAny returns nil when set holds at least one permission in perms, ErrForbidden otherwise.
// An empty requirement list is denied.
func RequireAny(set PermissionSet, perms ...Permission) error {
	for _, p := range perms {
		if set.Has(p) {
			return nil
		}
	}

	return ErrForbidden
}

// Check applies mode to set and perms.
func Check(mode Mode, set PermissionSet, perms ...Permission) error {
	switch mode {
	case ModeAll:
		return RequireAll(set, perms...)
	case ModeAny:
		return RequireAny(set, perms...)
	default:
		return fmt.Errorf("%w: unknown mode %s", ErrForbidden, mode)
	}
}
