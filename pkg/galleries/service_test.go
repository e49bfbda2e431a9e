package galleries

import (
	"archive/zip"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tankobonapp/tankobon/pkg/config"
	"github.com/tankobonapp/tankobon/pkg/database"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/migrations"
	"github.com/tankobonapp/tankobon/pkg/models"
)

func newTestService(t *testing.T) (*Service, *bun.DB, *config.Config) {
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

	cfg := &config.Config{
		DataDir:         t.TempDir(),
		ThumbnailHeight: 400,
	}

	return NewService(db, cfg), db, cfg
}

// writeArchive creates a zip file with the given entry names, each holding a
// small unique payload.
func writeArchive(t *testing.T, path string, entries ...string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, name := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("data:" + name))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func createGallery(t *testing.T, db *bun.DB, cfg *config.Config, artist, seriesName, filename string, pages ...string) *models.Gallery {
	t.Helper()
	ctx := context.Background()

	gallery := &models.Gallery{
		Filename: filename,
		Title:    filename,
		Artist:   artist,
		Status:   models.GalleryStatusNew,
	}

	if seriesName != "" {
		series := &models.Series{Name: seriesName}
		_, err := db.NewInsert().Model(series).On("CONFLICT (name) DO UPDATE").Set("name = EXCLUDED.name").Returning("*").Exec(ctx)
		require.NoError(t, err)
		gallery.SeriesID = &series.ID
	}

	seriesDir := seriesName
	gallery.Filepath = filepath.Join(cfg.LibraryDir(), artist, seriesDir, filename)
	gallery.PagesTotal = len(pages)

	writeArchive(t, gallery.Filepath, pages...)

	_, err := db.NewInsert().Model(gallery).Exec(ctx)
	require.NoError(t, err)

	return gallery
}

func TestService_ReadPage(t *testing.T) {
	t.Parallel()
	svc, db, cfg := newTestService(t)
	ctx := context.Background()

	pages := make([]string, 12)
	for i := range pages {
		pages[i] = fmt.Sprintf("p%02d.jpg", i+1)
	}
	gallery := createGallery(t, db, cfg, "Kaoru", "", "lost.cbz", pages...)

	t.Run("returns the first sorted entry for page 1", func(t *testing.T) {
		data, contentType, err := svc.ReadPage(ctx, gallery.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("data:p01.jpg"), data)
		assert.NotEmpty(t, contentType)
	})

	t.Run("page 0 is out of range", func(t *testing.T) {
		_, _, err := svc.ReadPage(ctx, gallery.ID, 0)
		assert.True(t, errors.Is(err, errcodes.PageOutOfRange(0, 12)))
	})

	t.Run("page 13 is out of range", func(t *testing.T) {
		_, _, err := svc.ReadPage(ctx, gallery.ID, 13)
		assert.True(t, errors.Is(err, errcodes.PageOutOfRange(13, 12)))
	})

	t.Run("missing gallery row", func(t *testing.T) {
		_, _, err := svc.ReadPage(ctx, 999, 1)
		assert.True(t, errors.Is(err, errcodes.NotFound("Gallery")))
	})

	t.Run("missing file on disk is a distinct signal", func(t *testing.T) {
		stale := createGallery(t, db, cfg, "Kaoru", "", "stale.cbz", "a.jpg")
		require.NoError(t, os.Remove(stale.Filepath))

		_, _, err := svc.ReadPage(ctx, stale.ID, 1)
		assert.True(t, errors.Is(err, errcodes.NotFound("Gallery file")))
		assert.False(t, errors.Is(err, errcodes.NotFound("Gallery")))
	})
}

func TestService_UpdateGalleryMetadata_Relocates(t *testing.T) {
	t.Parallel()
	svc, db, cfg := newTestService(t)
	ctx := context.Background()

	gallery := createGallery(t, db, cfg, "Old Artist", "", "work.cbz", "a.jpg")
	oldPath := gallery.Filepath

	updated, err := svc.UpdateGalleryMetadata(ctx, gallery.ID, UpdateGalleryOptions{
		Artist:     pointerutil.String("New Artist"),
		SeriesName: pointerutil.String("New Series"),
	})
	require.NoError(t, err)

	expected := filepath.Join(cfg.LibraryDir(), "New Artist", "New Series", "work.cbz")
	assert.Equal(t, expected, updated.Filepath)
	assert.FileExists(t, expected)
	assert.NoFileExists(t, oldPath)

	// The old artist directory was left empty and is cleaned up.
	assert.NoDirExists(t, filepath.Join(cfg.LibraryDir(), "Old Artist"))

	// Repeating the same edit is a no-op.
	again, err := svc.UpdateGalleryMetadata(ctx, gallery.ID, UpdateGalleryOptions{
		Artist:     pointerutil.String("New Artist"),
		SeriesName: pointerutil.String("New Series"),
	})
	require.NoError(t, err)
	assert.Equal(t, expected, again.Filepath)
	assert.FileExists(t, expected)
}

func TestService_UpdateGalleryMetadata_MoveFailureRollsBack(t *testing.T) {
	t.Parallel()
	svc, db, cfg := newTestService(t)
	ctx := context.Background()

	gallery := createGallery(t, db, cfg, "Artist", "", "work.cbz", "a.jpg")

	// A plain file where the target artist directory should go makes the
	// move fail.
	require.NoError(t, os.MkdirAll(cfg.LibraryDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.LibraryDir(), "Blocked"), []byte("x"), 0644))

	_, err := svc.UpdateGalleryMetadata(ctx, gallery.ID, UpdateGalleryOptions{
		Artist: pointerutil.String("Blocked"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcodes.IOFailure("move archive")))

	// Metadata rolled back along with the path.
	reloaded := &models.Gallery{}
	require.NoError(t, db.NewSelect().Model(reloaded).Where("g.id = ?", gallery.ID).Scan(ctx))
	assert.Equal(t, "Artist", reloaded.Artist)
	assert.Equal(t, gallery.Filepath, reloaded.Filepath)
	assert.FileExists(t, gallery.Filepath)
}

func TestService_UpdateGalleryMetadata_SkipsBlankTags(t *testing.T) {
	t.Parallel()
	svc, db, cfg := newTestService(t)
	ctx := context.Background()

	gallery := createGallery(t, db, cfg, "Artist", "", "work.cbz", "a.jpg")

	// Empty and whitespace-only tag strings are dropped instead of failing
	// the whole update as invalid names.
	updated, err := svc.UpdateGalleryMetadata(ctx, gallery.ID, UpdateGalleryOptions{
		Tags: &[]string{"Action", "", "  "},
	})
	require.NoError(t, err)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "Action", updated.Tags[0].Name)

	count, err := db.NewSelect().
		Model((*models.GalleryTag)(nil)).
		Where("gallery_id = ?", gallery.ID).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_UpdateGalleryMetadata_PathConflict(t *testing.T) {
	t.Parallel()
	svc, db, cfg := newTestService(t)
	ctx := context.Background()

	occupant := createGallery(t, db, cfg, "Shared", "", "work.cbz", "a.jpg")
	gallery := createGallery(t, db, cfg, "Other", "", "work.cbz", "b.jpg")

	// Editing the artist so both galleries resolve to the same path is
	// refused instead of silently overwriting the occupant's archive.
	_, err := svc.UpdateGalleryMetadata(ctx, gallery.ID, UpdateGalleryOptions{
		Artist: pointerutil.String("Shared"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcodes.PathConflict()))

	// Both archives and both rows survive untouched.
	assert.FileExists(t, occupant.Filepath)
	assert.FileExists(t, gallery.Filepath)

	reloaded := &models.Gallery{}
	require.NoError(t, db.NewSelect().Model(reloaded).Where("g.id = ?", gallery.ID).Scan(ctx))
	assert.Equal(t, "Other", reloaded.Artist)
	assert.Equal(t, gallery.Filepath, reloaded.Filepath)
}

func TestService_UpdateGalleryMetadata_DetachingSeriesRemovesOrphan(t *testing.T) {
	t.Parallel()
	svc, db, cfg := newTestService(t)
	ctx := context.Background()

	gallery := createGallery(t, db, cfg, "Artist", "Solo Series", "only.cbz", "a.jpg")
	seriesID := *gallery.SeriesID

	_, err := svc.UpdateGalleryMetadata(ctx, gallery.ID, UpdateGalleryOptions{
		SeriesName: pointerutil.String(""),
	})
	require.NoError(t, err)

	exists, err := db.NewSelect().
		Model((*models.Series)(nil)).
		Where("id = ?", seriesID).
		Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists, "a series stripped of its last gallery should be removed")
}

func TestService_UpdateProgress(t *testing.T) {
	t.Parallel()
	svc, db, cfg := newTestService(t)
	ctx := context.Background()

	gallery := createGallery(t, db, cfg, "Artist", "", "work.cbz", "a.jpg", "b.jpg", "c.jpg")

	updated, err := svc.UpdateProgress(ctx, gallery.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.PagesRead)
	assert.Equal(t, models.GalleryStatusReading, updated.Status)

	updated, err = svc.UpdateProgress(ctx, gallery.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.PagesRead, "pages read clamps to the total")
	assert.Equal(t, models.GalleryStatusCompleted, updated.Status)

	updated, err = svc.UpdateProgress(ctx, gallery.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.GalleryStatusNew, updated.Status)
}

func TestService_DeleteGallery(t *testing.T) {
	t.Parallel()
	svc, db, cfg := newTestService(t)
	ctx := context.Background()

	gallery := createGallery(t, db, cfg, "Artist", "Solo Series", "only.cbz", "a.jpg")
	seriesID := *gallery.SeriesID

	require.NoError(t, svc.DeleteGallery(ctx, gallery.ID))

	_, err := svc.RetrieveGallery(ctx, RetrieveGalleryOptions{ID: &gallery.ID})
	assert.True(t, errors.Is(err, errcodes.NotFound("Gallery")))

	assert.NoFileExists(t, gallery.Filepath)
	assert.NoDirExists(t, filepath.Dir(gallery.Filepath))

	exists, err := db.NewSelect().
		Model((*models.Series)(nil)).
		Where("id = ?", seriesID).
		Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestService_RelocateSeriesMembers(t *testing.T) {
	t.Parallel()
	svc, db, cfg := newTestService(t)
	ctx := context.Background()

	first := createGallery(t, db, cfg, "Artist", "Old Name", "v1.cbz", "a.jpg")
	second := createGallery(t, db, cfg, "Artist", "Old Name", "v2.cbz", "a.jpg")
	require.Equal(t, *first.SeriesID, *second.SeriesID)

	require.NoError(t, svc.RelocateSeriesMembers(ctx, *first.SeriesID, "New Name"))

	for _, filename := range []string{"v1.cbz", "v2.cbz"} {
		assert.FileExists(t, filepath.Join(cfg.LibraryDir(), "Artist", "New Name", filename))
		assert.NoFileExists(t, filepath.Join(cfg.LibraryDir(), "Artist", "Old Name", filename))
	}
	assert.NoDirExists(t, filepath.Join(cfg.LibraryDir(), "Artist", "Old Name"))
}

func TestService_RelocateSeriesMembers_ContinuesPastFailedMember(t *testing.T) {
	t.Parallel()
	svc, db, cfg := newTestService(t)
	ctx := context.Background()

	first := createGallery(t, db, cfg, "Blocked", "Old Name", "v1.cbz", "a.jpg")
	second := createGallery(t, db, cfg, "Clear", "Old Name", "v2.cbz", "a.jpg")
	require.Equal(t, *first.SeriesID, *second.SeriesID)

	// A plain file where the first member's new series directory should go
	// makes only that member's move fail.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.LibraryDir(), "Blocked", "New Name"), []byte("x"), 0644))

	err := svc.RelocateSeriesMembers(ctx, *first.SeriesID, "New Name")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcodes.IOFailure("move archive")))

	// The failed member stays put, but the rest of the batch still moved.
	assert.FileExists(t, filepath.Join(cfg.LibraryDir(), "Blocked", "Old Name", "v1.cbz"))
	assert.FileExists(t, filepath.Join(cfg.LibraryDir(), "Clear", "New Name", "v2.cbz"))
	assert.NoFileExists(t, filepath.Join(cfg.LibraryDir(), "Clear", "Old Name", "v2.cbz"))

	reloaded := &models.Gallery{}
	require.NoError(t, db.NewSelect().Model(reloaded).Where("g.id = ?", first.ID).Scan(ctx))
	assert.Equal(t, first.Filepath, reloaded.Filepath, "the failed member's row still points at its old path")
}
