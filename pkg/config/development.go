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

	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/data.sqlite"
	cfg.JWTSecret = "development-secret"
	cfg.ServerHost = "127.0.0.1"
}

func loadTestConfig(cfg *Config) {
	cfg.DatabaseFilePath = ":memory:"
	cfg.JWTSecret = "test-secret"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
}

func loadProductionConfig(cfg *Config) {
	cfg.DatabaseFilePath = "/data/nestlog.sqlite"
	cfg.ServerHost = "0.0.0.0"
}
