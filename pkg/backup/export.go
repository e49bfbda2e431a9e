package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"

	"github.com/tankobonapp/tankobon/pkg/config"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/tankobonapp/tankobon/pkg/version"
)

// Document is a full export of the library index. Archive files and
// thumbnails are not included; the document is enough to rebuild the
// relational state.
type Document struct {
	ExportedAt time.Time            `json:"exported_at"`
	Version    string               `json:"version"`
	Categories []*models.Category   `json:"categories"`
	Tags       []*models.Tag        `json:"tags"`
	Series     []*models.Series     `json:"series"`
	Galleries  []*models.Gallery    `json:"galleries"`
	Settings   []*models.Setting    `json:"settings"`
	SeriesTags []*models.SeriesTag  `json:"series_tags"`
	GalleryTag []*models.GalleryTag `json:"gallery_tags"`
}

type Exporter struct {
	db  *bun.DB
	cfg *config.Config
}

func NewExporter(db *bun.DB, cfg *config.Config) *Exporter {
	return &Exporter{db: db, cfg: cfg}
}

// Export writes a timestamped full-index backup into the backups directory
// and returns its path.
func (e *Exporter) Export(ctx context.Context, now time.Time) (string, error) {
	doc := &Document{
		ExportedAt: now,
		Version:    version.Version,
	}

	for _, dst := range []any{
		&doc.Categories,
		&doc.Tags,
		&doc.Series,
		&doc.Galleries,
		&doc.Settings,
		&doc.SeriesTags,
		&doc.GalleryTag,
	} {
		if err := e.db.NewSelect().Model(dst).Scan(ctx); err != nil {
			return "", errors.WithStack(err)
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", errors.WithStack(err)
	}

	if err := os.MkdirAll(e.cfg.BackupDir(), 0755); err != nil {
		return "", errors.WithStack(err)
	}

	path := filepath.Join(e.cfg.BackupDir(), fmt.Sprintf("autobackup_%d.json", now.Unix()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.WithStack(err)
	}

	return path, nil
}
