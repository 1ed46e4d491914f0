package users

import (
	"context"
	"database/sql"
	"testing"

	"github.com/nestlogapp/nestlog/pkg/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestServiceRegister(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterOptions{
		Identity:    "auth0|abc123",
		DisplayName: "Sam",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "Sam", user.DisplayName)
}

func TestServiceRegisterIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterOptions{Identity: "auth0|abc123", DisplayName: "Sam"})
	require.NoError(t, err)

	// registering again refreshes the display name but keeps the record
	second, err := svc.Register(ctx, RegisterOptions{Identity: "auth0|abc123", DisplayName: "Samantha"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Samantha", second.DisplayName)
}

func TestServiceResolveByIdentity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	created, err := svc.Register(ctx, RegisterOptions{Identity: "auth0|abc123", DisplayName: "Sam"})
	require.NoError(t, err)

	resolved, err := svc.ResolveByIdentity(ctx, "auth0|abc123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)

	_, err = svc.ResolveByIdentity(ctx, "auth0|nobody")
	require.EqualError(t, err, "User not found")
}
