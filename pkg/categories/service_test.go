package categories

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tankobonapp/tankobon/pkg/database"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/migrations"
	"github.com/tankobonapp/tankobon/pkg/models"
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

func TestService_FindOrCreateCategory(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	first, err := svc.FindOrCreateCategory(ctx, "Doujinshi")
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	second, err := svc.FindOrCreateCategory(ctx, "Doujinshi")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestService_DeleteCategory(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	category, err := svc.FindOrCreateCategory(ctx, "Manga")
	require.NoError(t, err)

	gallery := &models.Gallery{
		Filename:   "a.cbz",
		Filepath:   "/library/a.cbz",
		Title:      "A",
		Artist:     "Unknown",
		Status:     models.GalleryStatusNew,
		CategoryID: &category.ID,
	}
	_, err = db.NewInsert().Model(gallery).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, category.ID))

	_, err = svc.RetrieveCategory(ctx, RetrieveCategoryOptions{ID: &category.ID})
	assert.True(t, errors.Is(err, errcodes.NotFound("Category")))

	// The gallery survives with its category reference cleared.
	reloaded := &models.Gallery{}
	err = db.NewSelect().Model(reloaded).Where("g.id = ?", gallery.ID).Scan(ctx)
	require.NoError(t, err)
	assert.Nil(t, reloaded.CategoryID)
}

func TestService_DeleteCategory_NotFound(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))

	err := svc.DeleteCategory(context.Background(), 999)
	assert.True(t, errors.Is(err, errcodes.NotFound("Category")))
}
