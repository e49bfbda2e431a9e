package staging

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"

	"github.com/tankobonapp/tankobon/pkg/cbz"
	"github.com/tankobonapp/tankobon/pkg/config"
	"github.com/tankobonapp/tankobon/pkg/errcodes"
	"github.com/tankobonapp/tankobon/pkg/models"
)

// bracketPattern matches the "[Artist] Title" filename convention used by
// most release groups.
var bracketPattern = regexp.MustCompile(`^\[([^\]]+)\]\s*(.+)$`)

// ScanResult reports what a staging scan changed.
type ScanResult struct {
	Added       int `json:"added"`
	Removed     int `json:"removed"`
	TotalStaged int `json:"total_staged"`
}

type Service struct {
	db  *bun.DB
	cfg *config.Config
}

func NewService(db *bun.DB, cfg *config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

// Scan diffs the archives physically present in the input directory against
// the staged rows. The filesystem is the source of truth: new files gain a
// row with guessed metadata, rows whose file vanished are deleted. Running it
// twice without filesystem changes is a no-op.
func (svc *Service) Scan(ctx context.Context) (*ScanResult, error) {
	entries, err := os.ReadDir(svc.cfg.InputDir())
	if err != nil {
		if os.IsNotExist(err) {
			entries = nil
		} else {
			return nil, errors.WithStack(err)
		}
	}

	onDisk := map[string]bool{}
	for _, entry := range entries {
		if entry.IsDir() || !cbz.IsArchiveFile(entry.Name()) {
			continue
		}
		onDisk[entry.Name()] = true
	}

	var staged []*models.StagedFile
	err = svc.db.NewSelect().
		Model(&staged).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	known := map[string]bool{}
	result := &ScanResult{}

	for _, row := range staged {
		known[row.Filename] = true
		if onDisk[row.Filename] {
			continue
		}

		// The file was removed out-of-band; drop the row.
		_, err := svc.db.NewDelete().
			Model((*models.StagedFile)(nil)).
			Where("id = ?", row.ID).
			Exec(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		result.Removed++
	}

	for filename := range onDisk {
		if known[filename] {
			continue
		}

		title, artist := GuessMetadata(filename)
		row := &models.StagedFile{
			Filename:        filename,
			Filepath:        filepath.Join(svc.cfg.InputDir(), filename),
			SuggestedTitle:  title,
			SuggestedArtist: artist,
		}
		_, err := svc.db.NewInsert().
			Model(row).
			Exec(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		result.Added++
	}

	result.TotalStaged, err = svc.db.NewSelect().
		Model((*models.StagedFile)(nil)).
		Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return result, nil
}

// GuessMetadata derives a suggested title and artist from an archive
// filename. "[X] Y.zip" yields artist X and title Y; anything else yields the
// extension-stripped filename as title with no artist.
func GuessMetadata(filename string) (title string, artist *string) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))

	if m := bracketPattern.FindStringSubmatch(stem); m != nil {
		a := strings.TrimSpace(m[1])
		t := strings.TrimSpace(m[2])
		if a != "" && t != "" {
			return t, &a
		}
	}

	return strings.TrimSpace(stem), nil
}

func (svc *Service) RetrieveStagedFile(ctx context.Context, id int) (*models.StagedFile, error) {
	row := &models.StagedFile{}

	err := svc.db.NewSelect().
		Model(row).
		Where("sf.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Staged file")
		}
		return nil, errors.WithStack(err)
	}

	return row, nil
}

func (svc *Service) ListStagedFiles(ctx context.Context) ([]*models.StagedFile, error) {
	var rows []*models.StagedFile

	err := svc.db.NewSelect().
		Model(&rows).
		Order("sf.filename ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return rows, nil
}

// DeleteStagedFile removes the staged row and its file in the input
// directory. A file already gone out-of-band is not an error.
func (svc *Service) DeleteStagedFile(ctx context.Context, id int) error {
	row, err := svc.RetrieveStagedFile(ctx, id)
	if err != nil {
		return err
	}

	_, err = svc.db.NewDelete().
		Model((*models.StagedFile)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := os.Remove(row.Filepath); err != nil && !os.IsNotExist(err) {
		logger.FromContext(ctx).Warn("failed to remove staged file", logger.Data{"staged_file_id": id, "error": err.Error()})
	}

	return nil
}

// PeekCover returns the raw bytes of the staged archive's first sorted image
// entry, for preview before import.
func (svc *Service) PeekCover(ctx context.Context, id int) ([]byte, error) {
	row, err := svc.RetrieveStagedFile(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := cbz.ReadFirstPageContext(ctx, row.Filepath)
	if err != nil {
		if errors.Is(err, cbz.ErrNoPages) {
			return nil, errcodes.NotFound("Cover image")
		}
		return nil, errcodes.IOFailure("open archive")
	}

	return data, nil
}
