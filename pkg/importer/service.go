package importer

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"

	"github.com/tankobonapp/tankobon/pkg/cbz"
	"github.com/tankobonapp/tankobon/pkg/config"
	"github.com/tankobonapp/tankobon/pkg/database"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/fileutils"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/tankobonapp/tankobon/pkg/staging"
	"github.com/tankobonapp/tankobon/pkg/thumbnails"
)

// archiveReadTimeout bounds the post-import page count and thumbnail reads.
const archiveReadTimeout = 30 * time.Second

// Metadata is the user-confirmed metadata that promotes a staged file into
// the library.
type Metadata struct {
	Title            string
	Artist           string
	Description      *string
	ReadingDirection string
	SeriesName       *string
	CategoryName     *string
	Tags             []string
}

type Service struct {
	db             *bun.DB
	cfg            *config.Config
	stagingService *staging.Service
	thumbs         *thumbnails.Generator
	locks          *stagedLocks
}

func NewService(db *bun.DB, cfg *config.Config) *Service {
	return &Service{
		db:             db,
		cfg:            cfg,
		stagingService: staging.NewService(db, cfg),
		thumbs:         thumbnails.NewGenerator(cfg.ThumbnailDir(), cfg.ThumbnailHeight),
		locks:          &stagedLocks{},
	}
}

// Import promotes a staged file into a Gallery as one unit of work: resolve
// series/category/tags, persist the row, delete the staged row, and move the
// archive into the library as the final transactional step. If the move
// fails everything rolls back: no Gallery row survives and the StagedFile
// remains. Page counting and thumbnail generation run after commit and are
// best-effort; their failure leaves pagesTotal at 0 and no thumbnail but the
// gallery still exists.
func (svc *Service) Import(ctx context.Context, stagedID int, meta Metadata) (*models.Gallery, error) {
	unlock := svc.locks.lock(stagedID)
	defer unlock()

	staged, err := svc.stagingService.RetrieveStagedFile(ctx, stagedID)
	if err != nil {
		return nil, err
	}

	if meta.Title == "" {
		return nil, errcodes.ValidationError("Title is required.")
	}
	if meta.Artist == "" {
		return nil, errcodes.ValidationError("Artist is required.")
	}
	if meta.ReadingDirection == "" {
		meta.ReadingDirection = models.ReadingDirectionLTR
	}

	gallery := &models.Gallery{
		Filename:         staged.Filename,
		Title:            meta.Title,
		Artist:           meta.Artist,
		Description:      meta.Description,
		Status:           models.GalleryStatusNew,
		ReadingDirection: meta.ReadingDirection,
	}

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		seriesName := ""
		if meta.SeriesName != nil && *meta.SeriesName != "" {
			series, err := database.FindOrCreateByName(ctx, tx, *meta.SeriesName, func(name string) *models.Series {
				return &models.Series{Name: name}
			})
			if err != nil {
				return err
			}
			gallery.SeriesID = &series.ID
			seriesName = series.Name

			count, err := tx.NewSelect().
				Model((*models.Gallery)(nil)).
				Where("series_id = ?", series.ID).
				Count(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			gallery.SortOrder = count + 1
		}

		if meta.CategoryName != nil && *meta.CategoryName != "" {
			category, err := database.FindOrCreateByName(ctx, tx, *meta.CategoryName, func(name string) *models.Category {
				return &models.Category{Name: name}
			})
			if err != nil {
				return err
			}
			gallery.CategoryID = &category.ID
		}

		gallery.Filepath = fileutils.CanonicalPath(svc.cfg.LibraryDir(), meta.Artist, seriesName, staged.Filename)

		_, err := tx.NewInsert().
			Model(gallery).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		for _, name := range meta.Tags {
			if strings.TrimSpace(name) == "" {
				continue
			}
			tag, err := database.FindOrCreateByName(ctx, tx, name, func(name string) *models.Tag {
				return &models.Tag{Name: name}
			})
			if err != nil {
				return err
			}
			_, err = tx.NewInsert().
				Model(&models.GalleryTag{GalleryID: gallery.ID, TagID: tag.ID}).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		_, err = tx.NewDelete().
			Model((*models.StagedFile)(nil)).
			Where("id = ?", stagedID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		// The physical move is the final step; its failure rolls the whole
		// unit back.
		if _, err := os.Stat(gallery.Filepath); err == nil {
			return errcodes.PathConflict()
		}
		if err := fileutils.MoveFile(staged.Filepath, gallery.Filepath); err != nil {
			return errcodes.IOFailure("move archive")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	svc.extractArchiveDetails(ctx, gallery)

	return gallery, nil
}

// extractArchiveDetails counts pages and renders the cover thumbnail. Both
// are best-effort; failures are logged and never fail the import.
func (svc *Service) extractArchiveDetails(ctx context.Context, gallery *models.Gallery) {
	log := logger.FromContext(ctx)

	readCtx, cancel := context.WithTimeout(ctx, archiveReadTimeout)
	defer cancel()

	count, err := cbz.CountPagesContext(readCtx, gallery.Filepath)
	if err != nil {
		log.Warn("failed to count archive pages", logger.Data{"gallery_id": gallery.ID, "error": err.Error()})
	} else {
		gallery.PagesTotal = count
		_, err = svc.db.NewUpdate().
			Model(gallery).
			Column("pages_total").
			WherePK().
			Exec(ctx)
		if err != nil {
			log.Warn("failed to persist page count", logger.Data{"gallery_id": gallery.ID, "error": err.Error()})
		}
	}

	cover, err := cbz.ReadFirstPageContext(readCtx, gallery.Filepath)
	if err != nil {
		log.Warn("failed to read cover page", logger.Data{"gallery_id": gallery.ID, "error": err.Error()})
		return
	}

	if _, err := svc.thumbs.Generate(gallery.ID, cover); err != nil {
		log.Warn("failed to generate thumbnail", logger.Data{"gallery_id": gallery.ID, "error": err.Error()})
	}
}
