package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Resolver turns a role id into the set of permission names it holds.
// It always answers from the store or from a cache entry that is invalidated
// by every grant change, so the result is never older than the last commit.
type Resolver struct {
	db    *gorm.DB
	cache PermissionCache
	group singleflight.Group
}

// NewResolver creates a resolver. cache may be nil to always read the store.
func NewResolver(db *gorm.DB, cache PermissionCache) *Resolver {
	return &Resolver{db: db, cache: cache}
}

// Resolve returns the permission set of roleID.
// An unknown role or a role without grants yields an empty set.
func (r *Resolver) Resolve(ctx context.Context, roleID uint) (PermissionSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	if r.cache == nil {
		resolutionsTotal.WithLabelValues(sourceStore).Inc()

		return r.load(ctx, roleID)
	}

	stamp, err := r.cache.Stamp(ctx, roleID)
	if err != nil {
		log.Warn().Err(err).Uint("role_id", roleID).Msg("permission cache unavailable, reading store")
		resolutionsTotal.WithLabelValues(sourceStore).Inc()

		return r.load(ctx, roleID)
	}

	set, ok, err := r.cache.Get(ctx, roleID, stamp)
	if err != nil {
		log.Warn().Err(err).Uint("role_id", roleID).Msg("permission cache read failed")
	}

	if ok {
		resolutionsTotal.WithLabelValues(sourceCache).Inc()

		return set, nil
	}

	ch := r.group.DoChan(fmt.Sprintf("%d@%s", roleID, stamp), func() (any, error) {
		// detached so that one caller giving up does not fail the others
		loadCtx := context.WithoutCancel(ctx)

		loaded, err := r.load(loadCtx, roleID)
		if err != nil {
			return nil, err
		}

		if err := r.cache.Set(loadCtx, roleID, stamp, loaded); err != nil {
			log.Warn().Err(err).Uint("role_id", roleID).Msg("permission cache write failed")
		}

		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err() //nolint:wrapcheck
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		if res.Shared {
			resolutionsTotal.WithLabelValues(sourceShared).Inc()
		} else {
			resolutionsTotal.WithLabelValues(sourceStore).Inc()
		}

		return res.Val.(PermissionSet), nil //nolint:forcetypeassert
	}
}

func (r *Resolver) load(ctx context.Context, roleID uint) (PermissionSet, error) {
	var names []string

	err := r.db.WithContext(ctx).Table("permissions").
		Select("DISTINCT permissions.name").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, storeFailure("resolve permissions", err)
	}

	return NewPermissionSet(names...), nil
}

// Invalidate drops the cached set of roleID.
func (r *Resolver) Invalidate(ctx context.Context, roleID uint) error {
	if r.cache == nil {
		return nil
	}

	if err := r.cache.Invalidate(ctx, roleID); err != nil {
		return fmt.Errorf("invalidate role %d: %w", roleID, err)
	}

	return nil
}

// Purge drops every cached set.
func (r *Resolver) Purge(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}

	if err := r.cache.Purge(ctx); err != nil {
		return fmt.Errorf("purge permission cache: %w", err)
	}

	return nil
}
