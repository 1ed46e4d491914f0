package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Config holds all runtime configuration. Values are layered: built-in
// defaults, then the optional yaml config file, then NESTLOG_* environment
// variables.
type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries"`
	Hostname                  string        `koanf:"-"`
	JWTSecret                 string        `koanf:"jwt_secret"`
	ServerHost                string        `koanf:"server_host"`
	ServerPort                int           `koanf:"server_port"`
}

const (
	environmentENV = "ENVIRONMENT"
	configFileENV  = "NESTLOG_CONFIG_FILE"
)

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
		Hostname:                  hostname,
		ServerPort:                4114,
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	k := koanf.New(".")

	if path := configFilePath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				return nil, errors.Wrapf(err, "failed to load config file %s", path)
			}
		}
	}

	err = k.Load(env.Provider("NESTLOG_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "NESTLOG_"))
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	return cfg, nil
}

func configFilePath() string {
	if path := os.Getenv(configFileENV); path != "" {
		return path
	}
	if _, err := os.Stat("nestlog.yaml"); err == nil {
		return "nestlog.yaml"
	}
	return ""
}
