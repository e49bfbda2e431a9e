package galleries

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"

	"github.com/tankobonapp/tankobon/pkg/cbz"
	"github.com/tankobonapp/tankobon/pkg/config"
	"github.com/tankobonapp/tankobon/pkg/database"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/fileutils"
	"github.com/tankobonapp/tankobon/pkg/models"
	"github.com/tankobonapp/tankobon/pkg/thumbnails"
)

// archiveReadTimeout bounds a single archive open/read so a corrupt or slow
// file cannot stall a worker indefinitely.
const archiveReadTimeout = 30 * time.Second

type RetrieveGalleryOptions struct {
	ID *int
}

type ListGalleriesOptions struct {
	Limit      *int
	Offset     *int
	SeriesID   *int
	CategoryID *int
	Status     *string
	Search     *string

	includeTotal bool
}

// UpdateGalleryOptions is a partial metadata payload. Nil fields are left
// untouched. SeriesName and CategoryName resolve by exact name, creating the
// row when absent; an empty string detaches.
type UpdateGalleryOptions struct {
	Title            *string
	Artist           *string
	Circle           *string
	Parody           *string
	Description      *string
	SourceURL        *string
	ReadingDirection *string
	SeriesName       *string
	CategoryName     *string
	Tags             *[]string
}

type Service struct {
	db     *bun.DB
	cfg    *config.Config
	thumbs *thumbnails.Generator
	locks  *entityLocks
}

func NewService(db *bun.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		cfg:    cfg,
		thumbs: thumbnails.NewGenerator(cfg.ThumbnailDir(), cfg.ThumbnailHeight),
		locks:  &entityLocks{},
	}
}

func (svc *Service) RetrieveGallery(ctx context.Context, opts RetrieveGalleryOptions) (*models.Gallery, error) {
	gallery := &models.Gallery{}

	q := svc.db.
		NewSelect().
		Model(gallery).
		Relation("Series").
		Relation("Category").
		Relation("Tags")

	if opts.ID != nil {
		q = q.Where("g.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Gallery")
		}
		return nil, errors.WithStack(err)
	}

	return gallery, nil
}

func (svc *Service) ListGalleries(ctx context.Context, opts ListGalleriesOptions) ([]*models.Gallery, error) {
	g, _, err := svc.listGalleriesWithTotal(ctx, opts)
	return g, errors.WithStack(err)
}

func (svc *Service) ListGalleriesWithTotal(ctx context.Context, opts ListGalleriesOptions) ([]*models.Gallery, int, error) {
	opts.includeTotal = true
	return svc.listGalleriesWithTotal(ctx, opts)
}

func (svc *Service) listGalleriesWithTotal(ctx context.Context, opts ListGalleriesOptions) ([]*models.Gallery, int, error) {
	var galleries []*models.Gallery
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&galleries).
		Relation("Series").
		Relation("Category").
		Relation("Tags").
		Order("g.title ASC", "g.id ASC")

	if opts.SeriesID != nil {
		q = q.Where("g.series_id = ?", *opts.SeriesID)
	}
	if opts.CategoryID != nil {
		q = q.Where("g.category_id = ?", *opts.CategoryID)
	}
	if opts.Status != nil {
		q = q.Where("g.status = ?", *opts.Status)
	}
	if opts.Search != nil && *opts.Search != "" {
		pattern := "%" + *opts.Search + "%"
		q = q.Where("(g.title LIKE ? OR g.artist LIKE ?)", pattern, pattern)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return galleries, total, nil
}

// UpdateGalleryMetadata applies a partial metadata edit. When the edit changes
// the artist or series, the backing archive is moved to its new canonical
// location as the final step of the transaction, so a failed move rolls the
// metadata back. Directory cleanup and orphaned-series removal run after
// commit and never fail the edit.
func (svc *Service) UpdateGalleryMetadata(ctx context.Context, galleryID int, opts UpdateGalleryOptions) (*models.Gallery, error) {
	unlock := svc.locks.lock(galleryID)
	defer unlock()

	gallery, err := svc.RetrieveGallery(ctx, RetrieveGalleryOptions{ID: &galleryID})
	if err != nil {
		return nil, err
	}

	oldPath := gallery.Filepath
	oldSeriesID := gallery.SeriesID

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		applyScalarFields(gallery, opts)

		if opts.SeriesName != nil {
			if *opts.SeriesName == "" {
				gallery.SeriesID = nil
				gallery.Series = nil
				gallery.SortOrder = 0
			} else {
				series, err := database.FindOrCreateByName(ctx, tx, *opts.SeriesName, func(name string) *models.Series {
					return &models.Series{Name: name}
				})
				if err != nil {
					return err
				}
				gallery.SeriesID = &series.ID
				gallery.Series = series
			}
		}

		if opts.CategoryName != nil {
			if *opts.CategoryName == "" {
				gallery.CategoryID = nil
				gallery.Category = nil
			} else {
				category, err := database.FindOrCreateByName(ctx, tx, *opts.CategoryName, func(name string) *models.Category {
					return &models.Category{Name: name}
				})
				if err != nil {
					return err
				}
				gallery.CategoryID = &category.ID
				gallery.Category = category
			}
		}

		if opts.Tags != nil {
			if err := svc.replaceTags(ctx, tx, gallery, *opts.Tags); err != nil {
				return err
			}
		}

		seriesName := ""
		if gallery.Series != nil {
			seriesName = gallery.Series.Name
		}
		target := fileutils.CanonicalPath(svc.cfg.LibraryDir(), gallery.Artist, seriesName, gallery.Filename)
		gallery.Filepath = target

		gallery.UpdatedAt = time.Now()
		_, err := tx.NewUpdate().
			Model(gallery).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		// The physical move is the last step. If it fails the transaction
		// rolls back and no row referencing the new path is visible.
		if !fileutils.SamePath(oldPath, target) {
			if _, err := os.Stat(target); err == nil {
				return errcodes.PathConflict()
			}
			if err := fileutils.MoveFile(oldPath, target); err != nil {
				return errcodes.IOFailure("move archive")
			}
		}

		return nil
	})
	if err != nil {
		gallery.Filepath = oldPath
		return nil, err
	}

	log := logger.FromContext(ctx)

	if !fileutils.SamePath(oldPath, gallery.Filepath) {
		if err := fileutils.CleanupEmptyDirs(filepath.Dir(oldPath), svc.cfg.DataDir); err != nil {
			log.Warn("failed to clean up empty directories", logger.Data{"gallery_id": galleryID, "error": err.Error()})
		}
	}

	if oldSeriesID != nil && (gallery.SeriesID == nil || *gallery.SeriesID != *oldSeriesID) {
		if err := svc.deleteSeriesIfEmpty(ctx, *oldSeriesID); err != nil {
			log.Warn("failed to remove orphaned series", logger.Data{"series_id": *oldSeriesID, "error": err.Error()})
		}
	}

	return svc.RetrieveGallery(ctx, RetrieveGalleryOptions{ID: &galleryID})
}

func applyScalarFields(gallery *models.Gallery, opts UpdateGalleryOptions) {
	if opts.Title != nil {
		gallery.Title = *opts.Title
	}
	if opts.Artist != nil {
		gallery.Artist = *opts.Artist
	}
	if opts.Circle != nil {
		gallery.Circle = opts.Circle
	}
	if opts.Parody != nil {
		gallery.Parody = opts.Parody
	}
	if opts.Description != nil {
		gallery.Description = opts.Description
	}
	if opts.SourceURL != nil {
		gallery.SourceURL = opts.SourceURL
	}
	if opts.ReadingDirection != nil {
		gallery.ReadingDirection = *opts.ReadingDirection
	}
}

func (svc *Service) replaceTags(ctx context.Context, tx bun.Tx, gallery *models.Gallery, names []string) error {
	_, err := tx.NewDelete().
		Model((*models.GalleryTag)(nil)).
		Where("gallery_id = ?", gallery.ID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	gallery.Tags = nil
	for _, name := range names {
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

		gallery.Tags = append(gallery.Tags, tag)
	}

	return nil
}

// UpdateProgress records how far the reader is through a gallery and derives
// the status from it.
func (svc *Service) UpdateProgress(ctx context.Context, galleryID, pagesRead int) (*models.Gallery, error) {
	gallery, err := svc.RetrieveGallery(ctx, RetrieveGalleryOptions{ID: &galleryID})
	if err != nil {
		return nil, err
	}

	if pagesRead < 0 {
		pagesRead = 0
	}
	if gallery.PagesTotal > 0 && pagesRead > gallery.PagesTotal {
		pagesRead = gallery.PagesTotal
	}

	gallery.PagesRead = pagesRead
	switch {
	case pagesRead == 0:
		gallery.Status = models.GalleryStatusNew
	case gallery.PagesTotal > 0 && pagesRead >= gallery.PagesTotal:
		gallery.Status = models.GalleryStatusCompleted
	default:
		gallery.Status = models.GalleryStatusReading
	}
	gallery.UpdatedAt = time.Now()

	_, err = svc.db.NewUpdate().
		Model(gallery).
		Column("pages_read", "status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return gallery, nil
}

// DeleteGallery removes the database row, then best-effort removes the
// archive file, its now-empty parent directories, and the generated
// thumbnail. An empty series left behind is removed too.
func (svc *Service) DeleteGallery(ctx context.Context, galleryID int) error {
	unlock := svc.locks.lock(galleryID)
	defer unlock()

	gallery, err := svc.RetrieveGallery(ctx, RetrieveGalleryOptions{ID: &galleryID})
	if err != nil {
		return err
	}

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.GalleryTag)(nil)).
			Where("gallery_id = ?", galleryID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Gallery)(nil)).
			Where("id = ?", galleryID).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)

	if err := os.Remove(gallery.Filepath); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove archive file", logger.Data{"gallery_id": galleryID, "error": err.Error()})
	}
	if err := fileutils.CleanupEmptyDirs(filepath.Dir(gallery.Filepath), svc.cfg.DataDir); err != nil {
		log.Warn("failed to clean up empty directories", logger.Data{"gallery_id": galleryID, "error": err.Error()})
	}
	if err := svc.thumbs.Remove(galleryID); err != nil {
		log.Warn("failed to remove thumbnail", logger.Data{"gallery_id": galleryID, "error": err.Error()})
	}

	if gallery.SeriesID != nil {
		if err := svc.deleteSeriesIfEmpty(ctx, *gallery.SeriesID); err != nil {
			log.Warn("failed to remove orphaned series", logger.Data{"series_id": *gallery.SeriesID, "error": err.Error()})
		}
	}

	return nil
}

func (svc *Service) deleteSeriesIfEmpty(ctx context.Context, seriesID int) error {
	count, err := svc.db.NewSelect().
		Model((*models.Gallery)(nil)).
		Where("series_id = ?", seriesID).
		Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if count > 0 {
		return nil
	}

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.SeriesTag)(nil)).
			Where("series_id = ?", seriesID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Series)(nil)).
			Where("id = ?", seriesID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// ReadPage returns the raw stored bytes of a page along with its detected
// content type. Pages are numbered from 1 in sorted entry order. A missing
// database row and a missing file on disk fail with distinct signals so
// callers can tell index staleness apart.
func (svc *Service) ReadPage(ctx context.Context, galleryID, page int) ([]byte, string, error) {
	gallery, err := svc.RetrieveGallery(ctx, RetrieveGalleryOptions{ID: &galleryID})
	if err != nil {
		return nil, "", err
	}

	if _, err := os.Stat(gallery.Filepath); err != nil {
		if os.IsNotExist(err) {
			return nil, "", errcodes.NotFound("Gallery file")
		}
		return nil, "", errors.WithStack(err)
	}

	readCtx, cancel := context.WithTimeout(ctx, archiveReadTimeout)
	defer cancel()

	total, err := cbz.CountPagesContext(readCtx, gallery.Filepath)
	if err != nil {
		return nil, "", errcodes.IOFailure("open archive")
	}

	if page < 1 || page > total {
		return nil, "", errcodes.PageOutOfRange(page, total)
	}

	data, err := cbz.ReadPageAtContext(readCtx, gallery.Filepath, page-1)
	if err != nil {
		return nil, "", errcodes.IOFailure("read archive page")
	}

	return data, mimetype.Detect(data).String(), nil
}

// ThumbnailPath returns the location of the gallery's generated thumbnail,
// failing NotFound when it was never generated.
func (svc *Service) ThumbnailPath(ctx context.Context, galleryID int) (string, error) {
	if _, err := svc.RetrieveGallery(ctx, RetrieveGalleryOptions{ID: &galleryID}); err != nil {
		return "", err
	}
	if !svc.thumbs.Exists(galleryID) {
		return "", errcodes.NotFound("Thumbnail")
	}
	return svc.thumbs.Path(galleryID), nil
}

// RelocateSeriesMembers moves every gallery in a series to the canonical path
// derived from the new series name. Used when a series is renamed. Each
// member is moved and persisted independently so one failure does not strand
// the rest.
func (svc *Service) RelocateSeriesMembers(ctx context.Context, seriesID int, newSeriesName string) error {
	var members []*models.Gallery
	err := svc.db.NewSelect().
		Model(&members).
		Where("g.series_id = ?", seriesID).
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	log := logger.FromContext(ctx)

	// A failed member is logged and skipped so the rest of the batch still
	// moves; the first error is reported once the pass completes. Retrying
	// the rename is safe since already-moved members no-op.
	var firstErr error
	for _, gallery := range members {
		if err := svc.relocateMember(ctx, gallery, newSeriesName); err != nil {
			log.Error("failed to relocate gallery for renamed series", logger.Data{
				"gallery_id": gallery.ID,
				"series_id":  seriesID,
				"error":      err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (svc *Service) relocateMember(ctx context.Context, gallery *models.Gallery, seriesName string) error {
	unlock := svc.locks.lock(gallery.ID)
	defer unlock()

	oldPath := gallery.Filepath
	target := fileutils.CanonicalPath(svc.cfg.LibraryDir(), gallery.Artist, seriesName, gallery.Filename)
	if fileutils.SamePath(oldPath, target) {
		return nil
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		gallery.Filepath = target
		gallery.UpdatedAt = time.Now()

		_, err := tx.NewUpdate().
			Model(gallery).
			Column("filepath", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if _, err := os.Stat(target); err == nil {
			return errcodes.PathConflict()
		}
		if err := fileutils.MoveFile(oldPath, target); err != nil {
			return errcodes.IOFailure("move archive")
		}
		return nil
	})
	if err != nil {
		gallery.Filepath = oldPath
		return err
	}

	if err := fileutils.CleanupEmptyDirs(filepath.Dir(oldPath), svc.cfg.DataDir); err != nil {
		logger.FromContext(ctx).Warn("failed to clean up empty directories", logger.Data{"gallery_id": gallery.ID, "error": err.Error()})
	}

	return nil
}
