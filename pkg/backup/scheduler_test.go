package backup

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tankobonapp/tankobon/pkg/config"
	"github.com/tankobonapp/tankobon/pkg/database"
	"github.com/tankobonapp/tankobon/pkg/migrations"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/tankobonapp/tankobon/pkg/settings"
)

func newTestScheduler(t *testing.T) (*Scheduler, *bun.DB, *config.Config) {
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
		DataDir:           t.TempDir(),
		SchedulerInterval: 10 * time.Millisecond,
	}

	return NewScheduler(cfg, db), db, cfg
}

func backupFiles(t *testing.T, cfg *config.Config) []string {
	t.Helper()

	entries, err := os.ReadDir(cfg.BackupDir())
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestScheduler_Wake(t *testing.T) {
	t.Parallel()
	s, db, cfg := newTestScheduler(t)
	ctx := context.Background()
	settingsService := settings.NewService(db)

	fakeNow := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fakeNow }

	t.Run("does nothing while disabled", func(t *testing.T) {
		s.wake(ctx)
		assert.Empty(t, backupFiles(t, cfg))
	})

	t.Run("exports when enabled and due", func(t *testing.T) {
		require.NoError(t, settingsService.Set(ctx, SettingEnabled, "true"))

		s.wake(ctx)

		files := backupFiles(t, cfg)
		require.Len(t, files, 1)
		assert.Contains(t, files[0], "autobackup_")

		last, err := settingsService.GetInt(ctx, SettingLastTimestamp, 0)
		require.NoError(t, err)
		assert.Equal(t, fakeNow.Unix(), last)
	})

	t.Run("does not export again before the frequency elapses", func(t *testing.T) {
		fakeNow = fakeNow.Add(24 * time.Hour)
		s.wake(ctx)
		assert.Len(t, backupFiles(t, cfg), 1)
	})

	t.Run("exports again once the frequency has elapsed", func(t *testing.T) {
		fakeNow = fakeNow.Add(7 * 24 * time.Hour)
		s.wake(ctx)
		assert.Len(t, backupFiles(t, cfg), 2)
	})

	t.Run("non-numeric settings fall back to defaults", func(t *testing.T) {
		require.NoError(t, settingsService.Set(ctx, SettingFrequencyDays, "soon"))
		require.NoError(t, settingsService.Set(ctx, SettingLastTimestamp, "yesterday"))

		s.wake(ctx)

		// last_backup_timestamp fell back to 0, so a backup is due.
		assert.Len(t, backupFiles(t, cfg), 3)
	})
}

func TestScheduler_StartAndShutdown(t *testing.T) {
	t.Parallel()
	s, db, cfg := newTestScheduler(t)
	ctx := context.Background()

	require.NoError(t, settings.NewService(db).Set(ctx, SettingEnabled, "true"))

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Shutdown()

	assert.NotEmpty(t, backupFiles(t, cfg), "the scheduler should have woken at least once")
}

func TestExporter_Export(t *testing.T) {
	t.Parallel()
	s, db, cfg := newTestScheduler(t)
	ctx := context.Background()

	gallery := &models.Gallery{
		Filename: "a.cbz",
		Filepath: "/library/a.cbz",
		Title:    "A",
		Artist:   "Kaoru",
		Status:   models.GalleryStatusNew,
	}
	_, err := db.NewInsert().Model(gallery).Exec(ctx)
	require.NoError(t, err)

	path, err := s.exporter.Export(ctx, time.Now())
	require.NoError(t, err)
	assert.Contains(t, path, cfg.BackupDir())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	doc := &Document{}
	require.NoError(t, json.Unmarshal(data, doc))
	require.Len(t, doc.Galleries, 1)
	assert.Equal(t, "A", doc.Galleries[0].Title)
}
