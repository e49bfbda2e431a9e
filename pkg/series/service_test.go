package series

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

func addGallery(t *testing.T, db *bun.DB, seriesID int, title, artist string, sortOrder int) *models.Gallery {
	t.Helper()

	gallery := &models.Gallery{
		Filename:  title + ".cbz",
		Filepath:  "/library/" + title + ".cbz",
		Title:     title,
		Artist:    artist,
		Status:    models.GalleryStatusNew,
		SortOrder: sortOrder,
		SeriesID:  &seriesID,
	}
	_, err := db.NewInsert().Model(gallery).Exec(context.Background())
	require.NoError(t, err)
	return gallery
}

func TestService_FindOrCreateSeries(t *testing.T) {
	t.Parallel()
	svc := NewService(newTestDB(t))
	ctx := context.Background()

	first, err := svc.FindOrCreateSeries(ctx, "Yokohama Shopping Log")
	require.NoError(t, err)

	second, err := svc.FindOrCreateSeries(ctx, "Yokohama Shopping Log")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestService_RetrieveSeries_MemberOrder(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	s, err := svc.FindOrCreateSeries(ctx, "Ordered")
	require.NoError(t, err)

	addGallery(t, db, s.ID, "c", "A", 2)
	addGallery(t, db, s.ID, "a", "A", 1)
	addGallery(t, db, s.ID, "b", "A", 1)

	loaded, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &s.ID})
	require.NoError(t, err)
	require.Len(t, loaded.Galleries, 3)

	// Sorted by (sort_order, id): the two order-1 rows tie-break on id.
	assert.Equal(t, "a", loaded.Galleries[0].Title)
	assert.Equal(t, "b", loaded.Galleries[1].Title)
	assert.Equal(t, "c", loaded.Galleries[2].Title)
}

func TestService_ReorderGalleries(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	s, err := svc.FindOrCreateSeries(ctx, "Reordered")
	require.NoError(t, err)

	g1 := addGallery(t, db, s.ID, "one", "A", 1)
	g2 := addGallery(t, db, s.ID, "two", "A", 2)
	g3 := addGallery(t, db, s.ID, "three", "A", 3)

	t.Run("assigns dense 1-based orders", func(t *testing.T) {
		require.NoError(t, svc.ReorderGalleries(ctx, s.ID, []int{g3.ID, g1.ID, g2.ID}))

		loaded, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &s.ID})
		require.NoError(t, err)
		assert.Equal(t, "three", loaded.Galleries[0].Title)
		assert.Equal(t, 1, loaded.Galleries[0].SortOrder)
		assert.Equal(t, "one", loaded.Galleries[1].Title)
		assert.Equal(t, 2, loaded.Galleries[1].SortOrder)
		assert.Equal(t, "two", loaded.Galleries[2].Title)
		assert.Equal(t, 3, loaded.Galleries[2].SortOrder)
	})

	t.Run("rejects an incomplete ordering", func(t *testing.T) {
		err := svc.ReorderGalleries(ctx, s.ID, []int{g1.ID, g2.ID})
		assert.Error(t, err)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		err := svc.ReorderGalleries(ctx, s.ID, []int{g1.ID, g1.ID, g2.ID})
		assert.Error(t, err)
	})

	t.Run("rejects foreign galleries", func(t *testing.T) {
		other, err := svc.FindOrCreateSeries(ctx, "Other")
		require.NoError(t, err)
		foreign := addGallery(t, db, other.ID, "foreign", "B", 1)

		err = svc.ReorderGalleries(ctx, s.ID, []int{g1.ID, g2.ID, foreign.ID})
		assert.Error(t, err)
	})
}

func TestService_DeleteSeries_DetachesGalleries(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	s, err := svc.FindOrCreateSeries(ctx, "Doomed")
	require.NoError(t, err)
	gallery := addGallery(t, db, s.ID, "survivor", "A", 1)

	require.NoError(t, svc.DeleteSeries(ctx, s.ID))

	_, err = svc.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &s.ID})
	assert.True(t, errors.Is(err, errcodes.NotFound("Series")))

	reloaded := &models.Gallery{}
	require.NoError(t, db.NewSelect().Model(reloaded).Where("g.id = ?", gallery.ID).Scan(ctx))
	assert.Nil(t, reloaded.SeriesID)
}

func TestService_DeleteIfEmpty(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	t.Run("keeps a series that still has galleries", func(t *testing.T) {
		s, err := svc.FindOrCreateSeries(ctx, "Active")
		require.NoError(t, err)
		addGallery(t, db, s.ID, "member", "A", 1)

		removed, err := svc.DeleteIfEmpty(ctx, s.ID)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("removes a series with no galleries", func(t *testing.T) {
		s, err := svc.FindOrCreateSeries(ctx, "Empty")
		require.NoError(t, err)

		removed, err := svc.DeleteIfEmpty(ctx, s.ID)
		require.NoError(t, err)
		assert.True(t, removed)
	})
}

func TestService_ListSeries_Search(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	s1, err := svc.FindOrCreateSeries(ctx, "Emma")
	require.NoError(t, err)
	addGallery(t, db, s1.ID, "Volume 1", "Mori Kaoru", 1)

	s2, err := svc.FindOrCreateSeries(ctx, "Blame")
	require.NoError(t, err)
	addGallery(t, db, s2.ID, "Volume 1", "Nihei Tsutomu", 1)

	search := "kaoru"
	results, err := svc.ListSeries(ctx, ListSeriesOptions{Search: &search})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Emma", results[0].Name)
}
