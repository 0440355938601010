package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriterGainsCreate walks a role from read-only to read-write and checks that the
// same token is denied before and allowed after the grant change.
func TestWriterGainsCreate(t *testing.T) {
	for _, cached := range []bool{false, true} {
		t.Run(map[bool]string{false: "store", true: "cached"}[cached], func(t *testing.T) {
			db := setupTestDB(t)

			catalog, err := NewCatalog(ArticlesRead, ArticlesCreate)
			require.NoError(t, err)

			opts := []Option{WithCatalog(catalog)}
			if cached {
				opts = append(opts, WithCache(NewMemoryCache(16, time.Hour)))
			}

			svc := newTestService(t, db, opts...)
			ctx := context.Background()

			writer := createRole(t, svc, "Writer", ArticlesRead)

			set, err := svc.Resolver().Resolve(ctx, writer.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"articles.read"}, set.Names())

			user := createUser(t, svc, "writer@newsdesk.local", "secret-pass", writer.ID, true)
			token := issueToken(t, svc, user)

			decision, err := svc.RequireAll(ctx, token, ArticlesCreate)
			require.ErrorIs(t, err, ErrForbidden)
			require.NotNil(t, decision)
			assert.Equal(t, user.ID, decision.Claims.UserID)

			require.NoError(t, svc.Roles().ReplacePermissions(ctx, writer.ID,
				permissionIDs(t, svc, ArticlesRead, ArticlesCreate)))

			set, err = svc.Resolver().Resolve(ctx, writer.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"articles.create", "articles.read"}, set.Names())

			decision, err = svc.RequireAll(ctx, token, ArticlesCreate)
			require.NoError(t, err)
			assert.True(t, decision.Permissions.Has(ArticlesCreate))
		})
	}
}

// TestDeletedRoleDenies checks that a token outliving its role is denied, not an error.
func TestDeletedRoleDenies(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, WithCache(NewMemoryCache(16, time.Hour)))
	ctx := context.Background()

	role := createRole(t, svc, "Temp", ArticlesRead, MediaRead)
	token, _, err := svc.Tokens().Issue(77, "gone@newsdesk.local", role.ID)
	require.NoError(t, err)

	_, err = svc.RequireAny(ctx, token, ArticlesRead)
	require.NoError(t, err)

	require.NoError(t, svc.Roles().DeleteRole(ctx, role.ID))

	for _, check := range []func() (*Decision, error){
		func() (*Decision, error) { return svc.RequireAny(ctx, token, ArticlesRead, MediaRead) },
		func() (*Decision, error) { return svc.RequireAll(ctx, token, ArticlesRead) },
		func() (*Decision, error) { return svc.RequireAny(ctx, token, svc.Catalog().All()...) },
	} {
		decision, err := check()
		require.ErrorIs(t, err, ErrForbidden)
		require.NotErrorIs(t, err, ErrStoreFailure)
		require.NotNil(t, decision)
		assert.Equal(t, 0, decision.Permissions.Len())
	}
}

func TestAuthorizeUnauthorized(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	expired, err := NewTokenIssuer(TokenConfig{Secret: testSecret, Issuer: "newsdesk-test", TTL: time.Hour},
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	require.NoError(t, err)

	expiredToken, _, err := expired.Issue(1, "a@b.c", 1)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		token string
		want  error
	}{
		{name: "missing", token: "", want: ErrMissingToken},
		{name: "garbage", token: "abc.def.ghi", want: ErrInvalidToken},
		{name: "expired", token: expiredToken, want: ErrExpiredToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := svc.RequireAll(ctx, tc.token, ArticlesRead)
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, ErrUnauthorized)
			assert.Nil(t, decision)
		})
	}
}

// TestActiveCheck deactivates and deletes users holding valid tokens and checks that
// their next request is rejected only when the active check is enabled.
func TestActiveCheck(t *testing.T) {
	testCases := []struct {
		name    string
		check   bool
		disable func(t *testing.T, svc *Service, userID uint64)
		wantErr error
	}{
		{
			name:  "deactivated",
			check: true,
			disable: func(t *testing.T, svc *Service, userID uint64) {
				_, err := svc.Local().UpdateUser(context.Background(), userID, UserUpdate{IsActive: ptr(false)})
				require.NoError(t, err)
			},
			wantErr: ErrInactiveUser,
		},
		{
			name:  "deleted",
			check: true,
			disable: func(t *testing.T, svc *Service, userID uint64) {
				require.NoError(t, svc.Local().DeleteUser(context.Background(), userID))
			},
			wantErr: ErrInactiveUser,
		},
		{
			name:  "deactivated without check",
			check: false,
			disable: func(t *testing.T, svc *Service, userID uint64) {
				_, err := svc.Local().UpdateUser(context.Background(), userID, UserUpdate{IsActive: ptr(false)})
				require.NoError(t, err)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var opts []Option
			if tc.check {
				opts = append(opts, WithActiveCheck())
			}

			svc := newTestService(t, setupTestDB(t), opts...)
			ctx := context.Background()

			role := createRole(t, svc, "Writer", ArticlesRead)
			user := createUser(t, svc, "writer@newsdesk.local", "secret-pass", role.ID, true)
			token := issueToken(t, svc, user)

			_, err := svc.RequireAll(ctx, token, ArticlesRead)
			require.NoError(t, err)

			tc.disable(t, svc, user.ID)

			decision, err := svc.RequireAll(ctx, token, ArticlesRead)
			if tc.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tc.wantErr)
			require.ErrorIs(t, err, ErrUnauthorized)
			assert.Nil(t, decision)

			_, err = svc.Authenticate(ctx, token)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAuthorizeFailsClosedOnTimeout(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db,
		WithCache(&blockingCache{MemoryCache: NewMemoryCache(4, time.Minute)}),
		WithDecisionTimeout(30*time.Millisecond),
	)

	role := createRole(t, svc, "Admin", svc.Catalog().All()...)
	token, _, err := svc.Tokens().Issue(1, "admin@newsdesk.local", role.ID)
	require.NoError(t, err)

	decision, err := svc.RequireAll(context.Background(), token, ArticlesRead)
	require.ErrorIs(t, err, ErrForbidden)
	require.NotNil(t, decision)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.RequireAll(ctx, token, ArticlesRead)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthorizeEmptyRequirementDenies(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	role := createRole(t, svc, "Admin", svc.Catalog().All()...)
	token, _, err := svc.Tokens().Issue(1, "admin@newsdesk.local", role.ID)
	require.NoError(t, err)

	_, err = svc.RequireAll(context.Background(), token)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RequireAny(context.Background(), token)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	role := createRole(t, svc, "Writer", WriterPermissions()...)
	user := createUser(t, svc, "writer@newsdesk.local", "secret-pass", role.ID, true)
	createUser(t, svc, "off@newsdesk.local", "secret-pass", role.ID, false)

	res, err := svc.Login(ctx, "Writer@newsdesk.local", "secret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), res.ExpiresAt, time.Minute)
	assert.Equal(t, user.ID, res.User.ID)
	assert.Equal(t, "writer@newsdesk.local", res.User.Email)
	assert.Equal(t, RoleRef{ID: role.ID, Name: "Writer"}, res.User.Role)
	assert.Equal(t, permissionNames(WriterPermissions()), res.User.Permissions)

	claims, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, role.ID, claims.RoleID)

	_, err = svc.Login(ctx, "writer@newsdesk.local", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, errInactive := svc.Login(ctx, "off@newsdesk.local", "secret-pass")
	require.ErrorIs(t, errInactive, ErrUnauthorized)
	assert.Equal(t, err.Error(), errInactive.Error())
}

func TestSnapshot(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	role := createRole(t, svc, "Assistant", AssistantPermissions()...)
	user := createUser(t, svc, "assistant@newsdesk.local", "secret-pass", role.ID, true)

	snap, err := svc.Snapshot(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, permissionNames(AssistantPermissions()), snap.Permissions)
	assert.Equal(t, "Assistant", snap.Role.Name)

	_, err = svc.Local().UpdateUser(ctx, user.ID, UserUpdate{IsActive: ptr(false)})
	require.NoError(t, err)

	_, err = svc.Snapshot(ctx, user.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Snapshot(ctx, 9999)
	require.ErrorIs(t, err, ErrUnauthorized)
}
