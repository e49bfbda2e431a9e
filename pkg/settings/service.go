package settings

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/tankobonapp/tankobon/pkg/models"
)

// Service stores application-wide key/value settings. Values are persisted as
// strings; typed accessors fall back to a caller-supplied default when the key
// is missing or the stored value does not parse.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Get(ctx context.Context, key string) (string, bool, error) {
	setting := &models.Setting{}

	err := s.db.NewSelect().
		Model(setting).
		Where("key = ?", key).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	} else if err != nil {
		return "", false, errors.WithStack(err)
	}

	return setting.Value, true, nil
}

func (s *Service) GetString(ctx context.Context, key, def string) (string, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return def, nil
	}
	return value, nil
}

func (s *Service) GetInt(ctx context.Context, key string, def int64) (int64, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def, nil
	}
	return n, nil
}

func (s *Service) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return def, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return def, nil
	}
	return b, nil
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	setting := &models.Setting{
		Key:   key,
		Value: value,
	}

	_, err := s.db.NewInsert().
		Model(setting).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (s *Service) SetInt(ctx context.Context, key string, value int64) error {
	return s.Set(ctx, key, strconv.FormatInt(value, 10))
}
