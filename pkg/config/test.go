package config

import "time"

func loadTestConfig(cfg *Config) {
	cfg.DataDir = "./tmp/test-data"
	cfg.DatabaseFilePath = ":memory:"
	cfg.SchedulerInterval = 10 * time.Millisecond
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
}
