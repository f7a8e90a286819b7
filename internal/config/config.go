// Package config resolves runtime settings from an optional YAML file and
// WIZARD_* environment variables, env taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Queue and store backend names accepted in config.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config carries everything the bot needs at startup.
type Config struct {
	PublicDir  string `yaml:"public_dir"`
	MediaDir   string `yaml:"media_dir"`
	QRCodePath string `yaml:"qr_code_path"`

	QueueBackend string `yaml:"queue_backend"`
	StoreBackend string `yaml:"store_backend"`

	SQLitePath  string `yaml:"sqlite_path"`
	RedisAddr   string `yaml:"redis_addr"`
	PostgresURL string `yaml:"postgres_url"`

	PollInterval    time.Duration `yaml:"poll_interval"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`

	YtDlpPath string `yaml:"ytdlp_path"`
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides and defaults. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.PublicDir = getEnv("WIZARD_PUBLIC_DIR", defaultStr(cfg.PublicDir, "./public"))
	cfg.MediaDir = getEnv("WIZARD_MEDIA_DIR", defaultStr(cfg.MediaDir, "./public/media"))
	cfg.QRCodePath = getEnv("WIZARD_QR_PATH", defaultStr(cfg.QRCodePath, filepath.Join(cfg.PublicDir, "qrcode.png")))

	cfg.QueueBackend = getEnv("WIZARD_QUEUE_BACKEND", defaultStr(cfg.QueueBackend, BackendMemory))
	cfg.StoreBackend = getEnv("WIZARD_STORE_BACKEND", defaultStr(cfg.StoreBackend, BackendSQLite))

	cfg.SQLitePath = getEnv("WIZARD_SQLITE_PATH", defaultStr(cfg.SQLitePath, "./data/wizard.db"))
	cfg.RedisAddr = getEnv("WIZARD_REDIS_ADDR", defaultStr(cfg.RedisAddr, "localhost:6379"))
	cfg.PostgresURL = getEnv("WIZARD_POSTGRES_URL", cfg.PostgresURL)

	cfg.PollInterval = getEnvDuration("WIZARD_POLL_INTERVAL", defaultDur(cfg.PollInterval, 5*time.Second))
	cfg.DownloadTimeout = getEnvDuration("WIZARD_DOWNLOAD_TIMEOUT", defaultDur(cfg.DownloadTimeout, 5*time.Minute))

	cfg.YtDlpPath = getEnv("WIZARD_YTDLP_PATH", defaultStr(cfg.YtDlpPath, "yt-dlp"))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.QueueBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown queue backend %q", c.QueueBackend)
	}
	switch c.StoreBackend {
	case BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.StoreBackend == BackendPostgres && c.PostgresURL == "" {
		return fmt.Errorf("postgres store selected but WIZARD_POSTGRES_URL is empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.DownloadTimeout < 0 {
		return fmt.Errorf("download timeout must not be negative, got %s", c.DownloadTimeout)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// plain integers mean seconds
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultDur(v, fallback time.Duration) time.Duration {
	if v == 0 {
		return fallback
	}
	return v
}
