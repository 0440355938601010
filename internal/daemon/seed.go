package daemon

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
	"github.com/newsdesk-cms/newsdesk/internal/config"
)

// Names of the seeded roles.
const (
	RoleAdmin     = "Admin"
	RoleWriter    = "Writer"
	RoleAssistant = "Assistant"

	defaultAdminEmail = "admin@newsdesk.local"
)

type seedRole struct {
	name        string
	description string
	system      bool
	perms       func(*auth.Catalog) []auth.Permission
	// resync replaces the grants on every run, otherwise only a new role is granted.
	resync bool
}

func seedRoles() []seedRole {
	return []seedRole{
		{
			name:        RoleAdmin,
			description: "Full access to the back office",
			system:      true,
			perms:       (*auth.Catalog).All,
			resync:      true,
		},
		{
			name:        RoleWriter,
			description: "Writes articles and uploads media",
			perms:       func(*auth.Catalog) []auth.Permission { return auth.WriterPermissions() },
		},
		{
			name:        RoleAssistant,
			description: "Read only access to content",
			perms:       func(*auth.Catalog) []auth.Permission { return auth.AssistantPermissions() },
		},
	}
}

// Seed stores the permission catalog, the default roles and the initial administrator.
// Running it again keeps existing data and only brings the Admin role up to date.
func Seed(ctx context.Context, cfg config.Seed, svc *auth.Service) error {
	if err := svc.SeedCatalog(ctx); err != nil {
		return err
	}

	var adminRoleID uint

	for _, r := range seedRoles() {
		role, created, err := svc.Roles().EnsureRole(ctx, r.name, r.description, r.system)
		if err != nil {
			return err
		}

		if r.name == RoleAdmin {
			adminRoleID = role.ID
		}

		if !created && !r.resync {
			continue
		}

		ids, err := svc.PermissionIDs(ctx, r.perms(svc.Catalog())...)
		if err != nil {
			return err
		}

		if err := svc.Roles().ReplacePermissions(ctx, role.ID, ids); err != nil {
			return err
		}

		log.Info().Str("role", role.Name).Bool("created", created).Int("permissions", len(ids)).Msg("role seeded")
	}

	return seedAdmin(ctx, cfg, svc, adminRoleID)
}

func seedAdmin(ctx context.Context, cfg config.Seed, svc *auth.Service, roleID uint) error {
	email := cfg.AdminEmail
	if email == "" {
		email = defaultAdminEmail
	}

	password := cfg.AdminPassword
	generated := password == ""

	if generated {
		password = uuid.NewString()
	}

	user, err := svc.Local().CreateUser(ctx, auth.NewUser{
		Email:     email,
		Password:  password,
		FirstName: cfg.AdminFirstName,
		LastName:  cfg.AdminLastName,
		RoleID:    roleID,
		IsActive:  true,
	})
	if errors.Is(err, auth.ErrEmailExists) {
		return nil
	}

	if err != nil {
		return err
	}

	event := log.Warn().Uint64("user_id", user.ID).Str("email", user.Email)
	if generated {
		event = event.Str("password", password)
	}

	event.Msg("initial administrator created, change the password after the first login")

	return nil
}
