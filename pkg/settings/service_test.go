package settings

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tankobonapp/tankobon/pkg/database"
	"github.com/tankobonapp/tankobon/pkg/migrations"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	database.RegisterModels(db)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestService_SetAndGet(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	value, ok, err := svc.Get(ctx, "backup_enabled")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)

	require.NoError(t, svc.Set(ctx, "backup_enabled", "true"))

	value, ok, err = svc.Get(ctx, "backup_enabled")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", value)
}

func TestService_SetOverwrites(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "backup_frequency_days", "7"))
	require.NoError(t, svc.Set(ctx, "backup_frequency_days", "14"))

	value, ok, err := svc.Get(ctx, "backup_frequency_days")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "14", value)
}

func TestService_GetInt(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	t.Run("returns the default when the key is missing", func(t *testing.T) {
		n, err := svc.GetInt(ctx, "last_backup_timestamp", 0)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})

	t.Run("parses a stored integer", func(t *testing.T) {
		require.NoError(t, svc.SetInt(ctx, "last_backup_timestamp", 1700000000))

		n, err := svc.GetInt(ctx, "last_backup_timestamp", 0)
		require.NoError(t, err)
		assert.EqualValues(t, 1700000000, n)
	})

	t.Run("falls back to the default on a non-numeric value", func(t *testing.T) {
		require.NoError(t, svc.Set(ctx, "bad_number", "soon"))

		n, err := svc.GetInt(ctx, "bad_number", 42)
		require.NoError(t, err)
		assert.EqualValues(t, 42, n)
	})
}

func TestService_GetBool(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	b, err := svc.GetBool(ctx, "backup_enabled", true)
	require.NoError(t, err)
	assert.True(t, b)

	require.NoError(t, svc.Set(ctx, "backup_enabled", "false"))

	b, err = svc.GetBool(ctx, "backup_enabled", true)
	require.NoError(t, err)
	assert.False(t, b)
}
