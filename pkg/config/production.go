package config

import (
	"os"
	"path/filepath"
	"strconv"
)

func loadProductionConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.DataDir = "/data"
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}

	cfg.DatabaseFilePath = filepath.Join(cfg.DataDir, "tankobon.sqlite")
	cfg.ServerHost = "0.0.0.0"
}
