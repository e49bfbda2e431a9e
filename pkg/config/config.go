package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	DatabaseMaxRetries        int
	DataDir                   string
	Hostname                  string
	SchedulerInterval         time.Duration
	ServerHost                string
	ServerPort                int
	ThumbnailHeight           int
}

const environmentENV = "ENVIRONMENT"

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        3,
		Hostname:                  hostname,
		SchedulerInterval:         time.Hour,
		ServerPort:                7680,
		ThumbnailHeight:           400,
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	return cfg, nil
}

// InputDir is the staging drop zone scanned for new archives.
func (cfg *Config) InputDir() string {
	return filepath.Join(cfg.DataDir, "input")
}

// LibraryDir is the canonical resting place for imported archives.
func (cfg *Config) LibraryDir() string {
	return filepath.Join(cfg.DataDir, "library")
}

// ThumbnailDir holds the generated cover images, one per gallery.
func (cfg *Config) ThumbnailDir() string {
	return filepath.Join(cfg.DataDir, "thumbnails")
}

// BackupDir holds the periodic full-index exports.
func (cfg *Config) BackupDir() string {
	return filepath.Join(cfg.DataDir, "backups")
}

// PluginDir holds metadata-source plugin scripts.
func (cfg *Config) PluginDir() string {
	return filepath.Join(cfg.DataDir, "plugins")
}
