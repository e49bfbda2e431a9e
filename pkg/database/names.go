package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/uptrace/bun"
)

// FindOrCreateByName resolves a named entity by exact, case-sensitive name
// match, creating it when absent. Series, categories, and tags all share
// this so the lazy get-or-create logic lives in one place. build constructs
// a fresh model for the insert path; the name passed to it is trimmed, so
// names differing only in surrounding whitespace ("X" and "X ") resolve to
// the same row. Interior whitespace and case still distinguish.
func FindOrCreateByName[M any](ctx context.Context, db bun.IDB, name string, build func(name string) *M) (*M, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.ValidationError("Name can't be empty.")
	}

	m := new(M)
	err := db.NewSelect().Model(m).Where("name = ?", name).Scan(ctx)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithStack(err)
	}

	m = build(name)
	_, err = db.NewInsert().Model(m).Returning("*").Exec(ctx)
	if err != nil {
		// Race: another request created the same name between our select and
		// insert. The unique index rejects ours, so re-read theirs.
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			m = new(M)
			err = db.NewSelect().Model(m).Where("name = ?", name).Scan(ctx)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			return m, nil
		}
		return nil, errors.WithStack(err)
	}
	return m, nil
}
