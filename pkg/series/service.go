package series

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/tankobonapp/tankobon/pkg/database"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/models"
)

type RetrieveSeriesOptions struct {
	ID   *int
	Name *string
}

type ListSeriesOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdateSeriesOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// FindOrCreateSeries resolves a series name to a row, creating it when absent.
// Matching is an exact, case-sensitive comparison on the trimmed name.
func (svc *Service) FindOrCreateSeries(ctx context.Context, name string) (*models.Series, error) {
	return database.FindOrCreateByName(ctx, svc.db, name, func(name string) *models.Series {
		return &models.Series{Name: name}
	})
}

func (svc *Service) RetrieveSeries(ctx context.Context, opts RetrieveSeriesOptions) (*models.Series, error) {
	series := &models.Series{}

	q := svc.db.
		NewSelect().
		Model(series).
		Relation("Category").
		Relation("Tags").
		Relation("Galleries", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sort_order ASC", "id ASC")
		})

	if opts.ID != nil {
		q = q.Where("s.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		q = q.Where("s.name = ?", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Series")
		}
		return nil, errors.WithStack(err)
	}

	return series, nil
}

// ListSeries returns series with their members preloaded in reading order so
// callers can compute aggregates. Search filters on the derived search text,
// which is why filtering happens in memory after the scan.
func (svc *Service) ListSeries(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, error) {
	s, _, err := svc.listSeriesWithTotal(ctx, opts)
	return s, errors.WithStack(err)
}

func (svc *Service) ListSeriesWithTotal(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, int, error) {
	opts.includeTotal = true
	return svc.listSeriesWithTotal(ctx, opts)
}

func (svc *Service) listSeriesWithTotal(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, int, error) {
	var series []*models.Series

	q := svc.db.
		NewSelect().
		Model(&series).
		Relation("Category").
		Relation("Tags").
		Relation("Galleries", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sort_order ASC", "id ASC")
		}).
		Order("s.name ASC")

	err := q.Scan(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	if opts.Search != nil && *opts.Search != "" {
		series = FilterBySearch(series, *opts.Search)
	}

	total := len(series)

	if opts.Offset != nil && *opts.Offset > 0 {
		if *opts.Offset >= len(series) {
			series = nil
		} else {
			series = series[*opts.Offset:]
		}
	}
	if opts.Limit != nil && *opts.Limit < len(series) {
		series = series[:*opts.Limit]
	}

	return series, total, nil
}

func (svc *Service) UpdateSeries(ctx context.Context, series *models.Series, opts UpdateSeriesOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	series.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(series).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Series")
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeleteSeries removes a series and detaches its galleries. The galleries and
// their archive files survive; only the grouping is removed.
func (svc *Service) DeleteSeries(ctx context.Context, seriesID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*models.Gallery)(nil)).
			Set("series_id = NULL").
			Set("sort_order = 0").
			Where("series_id = ?", seriesID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.SeriesTag)(nil)).
			Where("series_id = ?", seriesID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Series)(nil)).
			Where("id = ?", seriesID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		if rows == 0 {
			return errcodes.NotFound("Series")
		}

		return nil
	})
}

// DeleteIfEmpty removes the series when it has no member galleries left. It
// is called after a gallery is detached or deleted so empty groupings do not
// accumulate. Returns whether the series was removed.
func (svc *Service) DeleteIfEmpty(ctx context.Context, seriesID int) (bool, error) {
	count, err := svc.db.NewSelect().
		Model((*models.Gallery)(nil)).
		Where("series_id = ?", seriesID).
		Count(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if count > 0 {
		return false, nil
	}

	err = svc.DeleteSeries(ctx, seriesID)
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Series")) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReorderGalleries reassigns sort_order for the series members to match the
// submitted ordering. Orders are dense and 1-based. The submitted set must be
// exactly the current member set.
func (svc *Service) ReorderGalleries(ctx context.Context, seriesID int, galleryIDs []int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var memberIDs []int
		err := tx.NewSelect().
			Model((*models.Gallery)(nil)).
			Column("id").
			Where("series_id = ?", seriesID).
			Scan(ctx, &memberIDs)
		if err != nil {
			return errors.WithStack(err)
		}

		if len(memberIDs) == 0 {
			return errcodes.NotFound("Series")
		}

		members := make(map[int]bool, len(memberIDs))
		for _, id := range memberIDs {
			members[id] = true
		}

		if len(galleryIDs) != len(memberIDs) {
			return errcodes.ValidationError("Ordering must include every gallery in the series exactly once.")
		}
		seen := make(map[int]bool, len(galleryIDs))
		for _, id := range galleryIDs {
			if !members[id] || seen[id] {
				return errcodes.ValidationError("Ordering must include every gallery in the series exactly once.")
			}
			seen[id] = true
		}

		for i, id := range galleryIDs {
			_, err := tx.NewUpdate().
				Model((*models.Gallery)(nil)).
				Set("sort_order = ?", i+1).
				Where("id = ?", id).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	})
}
