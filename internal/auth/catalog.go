package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"

	permctl "github.com/newsdesk-cms/newsdesk/internal/db/controller/permission"
	"github.com/newsdesk-cms/newsdesk/internal/db/models"
)

// Catalog is an immutable set of known permissions, indexed by name.
type Catalog struct {
	byName  map[string]Permission
	ordered []Permission
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := NewCatalog(builtinPermissions()...)
	if err != nil {
		panic(err)
	}

	return c
})

// DefaultCatalog returns the catalog of every CMS permission.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}

// NewCatalog builds a catalog. Malformed or duplicate permissions are rejected with ErrInvalidPermission.
func NewCatalog(perms ...Permission) (*Catalog, error) {
	c := &Catalog{
		byName:  make(map[string]Permission, len(perms)),
		ordered: make([]Permission, 0, len(perms)),
	}

	for _, p := range perms {
		if !p.valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPermission, p.name)
		}

		if _, dup := c.byName[p.name]; dup {
			return nil, fmt.Errorf("%w: duplicate %q", ErrInvalidPermission, p.name)
		}

		c.byName[p.name] = p
		c.ordered = append(c.ordered, p)
	}

	sort.Slice(c.ordered, func(i, j int) bool {
		if c.ordered[i].module != c.ordered[j].module {
			return c.ordered[i].module < c.ordered[j].module
		}

		return c.ordered[i].name < c.ordered[j].name
	})

	return c, nil
}

// Lookup returns the permission called name.
func (c *Catalog) Lookup(name string) (Permission, error) {
	p, ok := c.byName[name]
	if !ok {
		return Permission{}, fmt.Errorf("%w: %q", ErrUnknownPermission, name)
	}

	return p, nil
}

// MustLookup is like Lookup but panics on unknown names.
func (c *Catalog) MustLookup(name string) Permission {
	p, err := c.Lookup(name)
	if err != nil {
		panic(err)
	}

	return p
}

// Contains reports whether p belongs to the catalog.
func (c *Catalog) Contains(p Permission) bool {
	known, ok := c.byName[p.name]

	return ok && known == p
}

// Len returns the number of permissions.
func (c *Catalog) Len() int { return len(c.ordered) }

// All returns a copy of every permission ordered by module, then name.
func (c *Catalog) All() []Permission {
	out := make([]Permission, len(c.ordered))
	copy(out, c.ordered)

	return out
}

// Modules groups the permissions by module.
func (c *Catalog) Modules() map[string][]Permission {
	out := make(map[string][]Permission)
	for _, p := range c.ordered {
		out[p.module] = append(out[p.module], p)
	}

	return out
}

// Seed stores every catalog permission, creating missing rows and updating changed ones.
// Running it again is a no-op.
func (c *Catalog) Seed(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range c.ordered {
			if _, err := permctl.Set(tx, p.name, p.module, p.description); err != nil {
				return fmt.Errorf("seed %s: %w", p.name, err)
			}
		}

		return nil
	})

	return storeFailure("seed permissions", err)
}

// ListAll returns the stored permissions ordered by module, then name.
func (c *Catalog) ListAll(ctx context.Context, db *gorm.DB) ([]models.Permission, error) {
	perms, err := permctl.GetAll(db.WithContext(ctx))
	if err != nil {
		return nil, storeFailure("list permissions", err)
	}

	return perms, nil
}

// IDs maps permissions to their stored ids. A permission that is not stored yields ErrNotFound.
func (c *Catalog) IDs(ctx context.Context, db *gorm.DB, perms ...Permission) ([]uint, error) {
	if len(perms) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.name)
	}

	var rows []models.Permission
	if err := db.WithContext(ctx).Where("name IN ?", names).Find(&rows).Error; err != nil {
		return nil, storeFailure("lookup permission ids", err)
	}

	byName := make(map[string]uint, len(rows))
	for _, r := range rows {
		byName[r.Name] = r.ID
	}

	ids := make([]uint, 0, len(perms))

	for _, p := range perms {
		id, ok := byName[p.name]
		if !ok {
			return nil, fmt.Errorf("%w: permission %q", ErrNotFound, p.name)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// PermissionSet is the set of permission names a role holds.
// Sets returned by a Resolver are shared and must not be modified.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from names. Duplicates collapse.
func NewPermissionSet(names ...string) PermissionSet {
	s := make(PermissionSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}

	return s
}

// Has reports whether p is in the set. The zero permission is never held.
func (s PermissionSet) Has(p Permission) bool {
	if p.IsZero() {
		return false
	}

	return s.HasName(p.name)
}

// HasName reports whether the name is in the set.
func (s PermissionSet) HasName(name string) bool {
	_, ok := s[name]

	return ok
}

// Len returns the number of permissions.
func (s PermissionSet) Len() int { return len(s) }

// Names returns the sorted permission names.
func (s PermissionSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}

	sort.Strings(out)

	return out
}
