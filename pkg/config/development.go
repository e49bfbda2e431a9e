package config

import (
	"os"
	"strconv"
)

func loadDevelopmentConfig(cfg *Config) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err == nil {
		cfg.ServerPort = port
	}

	cfg.DataDir = "./tmp/data"
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}

	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/data/tankobon.sqlite"
	cfg.ServerHost = "127.0.0.1"
}
