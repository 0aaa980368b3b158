package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"onionsite/internal/models"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
	Site       SiteConfig       `yaml:"site"`
	Beacon     BeaconConfig     `yaml:"beacon"`
	Redirect   RedirectConfig   `yaml:"redirect"`
	Bot        BotConfig        `yaml:"bot"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment" env:"ONIONSITE_ENV"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" env:"ONIONSITE_BOT_TOKEN"`
	Debug    bool   `yaml:"debug"`
}

type StorageConfig struct {
	Driver     string `yaml:"driver" env:"ONIONSITE_STORAGE_DRIVER"`
	SQLitePath string `yaml:"sqlite_path" env:"ONIONSITE_SQLITE_PATH"`
}

type RedisConfig struct {
	Address  string        `yaml:"address" env:"ONIONSITE_REDIS_ADDR"`
	Password string        `yaml:"password" env:"ONIONSITE_REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	TTL      time.Duration `yaml:"ttl"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// APIConfig protects the client state endpoint. Empty APIKeys leaves it unregistered.
type APIConfig struct {
	HeaderAPIKey string   `yaml:"header_api_key"`
	APIKeys      []string `yaml:"api_keys" env:"ONIONSITE_API_KEYS" envSeparator:","`
}

type LoggingConfig struct {
	Level    string `yaml:"level" env:"ONIONSITE_LOG_LEVEL"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// SiteConfig describes the public website the gate protects.
type SiteConfig struct {
	URL         string        `yaml:"url" env:"ONIONSITE_SITE_URL"`
	RejectURL   string        `yaml:"reject_url"`
	BannerDelay time.Duration `yaml:"banner_delay"`
}

type BeaconConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Endpoint  string        `yaml:"endpoint" env:"ONIONSITE_BEACON_ENDPOINT"`
	Port      int           `yaml:"port"`
	LoadDelay time.Duration `yaml:"load_delay"`
	Timeout   time.Duration `yaml:"timeout"`
}

type RedirectConfig struct {
	BotUsername   string        `yaml:"bot_username"`
	ClickDelay    time.Duration `yaml:"click_delay"`
	FallbackDelay time.Duration `yaml:"fallback_delay"`
}

type BotConfig struct {
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks settings shared by every host. RequireBot adds the bot-only checks.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite:
	case StorageRedis:
		if c.Redis.Address == "" {
			return errors.New("redis address is required for storage.driver=redis")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Storage.Driver == StorageSQLite && c.Storage.SQLitePath == "" {
		return errors.New("storage.sqlite_path is required for storage.driver=sqlite")
	}

	if c.Site.URL != "" {
		u, err := url.Parse(c.Site.URL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("site.url %q is not an absolute URL", c.Site.URL)
		}
	}

	if strings.ContainsAny(c.Redirect.BotUsername, " /@") {
		return fmt.Errorf("redirect.bot_username %q must be a bare username", c.Redirect.BotUsername)
	}

	return nil
}

func (c *Config) RequireBot() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}
	if c.Redirect.BotUsername == "" {
		return errors.New("redirect.bot_username is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "onionsite"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageSQLite
	}
	if c.Storage.SQLitePath == "" && c.Storage.Driver == StorageSQLite {
		c.Storage.SQLitePath = "data/site.db"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Site.RejectURL == "" {
		c.Site.RejectURL = models.DefaultRejectURL
	}
	if c.Site.BannerDelay == 0 {
		c.Site.BannerDelay = models.DefaultBannerDelay
	}
	if c.Beacon.Port == 0 {
		c.Beacon.Port = models.DefaultBeaconPort
	}
	if c.Beacon.LoadDelay == 0 {
		c.Beacon.LoadDelay = models.DefaultBeaconLoadDelay
	}
	if c.Beacon.Timeout == 0 {
		c.Beacon.Timeout = models.DefaultBeaconTimeout
	}
	if c.Redirect.ClickDelay == 0 {
		c.Redirect.ClickDelay = models.DefaultRedirectClickDelay
	}
	if c.Redirect.FallbackDelay == 0 {
		c.Redirect.FallbackDelay = models.DefaultRedirectFallbackDelay
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}

	// Bot defaults
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
}

// Default returns a configuration with every default applied, for hosts running without a file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
