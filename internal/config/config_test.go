package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"onionsite/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
app:
  name: "onion-site"
telegram:
  bot_token: "${TEST_ONIONSITE_TOKEN}"
storage:
  driver: "memory"
site:
  url: "https://www.oaibot.net"
  banner_delay: "250ms"
redirect:
  bot_username: "goontech_aibot"
  fallback_delay: "3s"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))
	t.Setenv("TEST_ONIONSITE_TOKEN", "test_token")
	t.Setenv("ONIONSITE_LOG_LEVEL", "debug")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "test_token", cfg.Telegram.BotToken)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Site.BannerDelay)
	assert.Equal(t, 3*time.Second, cfg.Redirect.FallbackDelay)
	assert.Equal(t, models.DefaultRedirectClickDelay, cfg.Redirect.ClickDelay)
	assert.Equal(t, "debug", cfg.Logging.Level, "env overrides yaml")
	assert.NoError(t, cfg.RequireBot())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "memory store",
			cfg:     Config{Storage: StorageConfig{Driver: StorageMemory}},
			wantErr: false,
		},
		{
			name:    "sqlite without path",
			cfg:     Config{Storage: StorageConfig{Driver: StorageSQLite}},
			wantErr: true,
		},
		{
			name:    "redis without address",
			cfg:     Config{Storage: StorageConfig{Driver: StorageRedis}},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			cfg:     Config{Storage: StorageConfig{Driver: "etcd"}},
			wantErr: true,
		},
		{
			name: "relative site url",
			cfg: Config{
				Storage: StorageConfig{Driver: StorageMemory},
				Site:    SiteConfig{URL: "oaibot.net"},
			},
			wantErr: true,
		},
		{
			name: "username with at sign",
			cfg: Config{
				Storage:  StorageConfig{Driver: StorageMemory},
				Redirect: RedirectConfig{BotUsername: "@goontech_aibot"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireBot(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.RequireBot())

	cfg.Telegram.BotToken = "YOUR_BOT_TOKEN_HERE"
	cfg.Redirect.BotUsername = "goontech_aibot"
	assert.Error(t, cfg.RequireBot())

	cfg.Telegram.BotToken = "123:abc"
	assert.NoError(t, cfg.RequireBot())
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Storage.Driver != StorageSQLite {
		t.Errorf("expected default storage driver sqlite, got %s", cfg.Storage.Driver)
	}
	if cfg.Site.RejectURL != models.DefaultRejectURL {
		t.Errorf("expected default reject url %s, got %s", models.DefaultRejectURL, cfg.Site.RejectURL)
	}
	if cfg.Beacon.Port != 8080 {
		t.Errorf("expected default beacon port 8080, got %d", cfg.Beacon.Port)
	}
	if cfg.Bot.RateLimitMessages != models.RateLimitMessages {
		t.Errorf("expected default rate limit messages %d, got %d", models.RateLimitMessages, cfg.Bot.RateLimitMessages)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestExampleConfig(t *testing.T) {
	t.Setenv("ONIONSITE_BOT_TOKEN", "example_token")

	cfg, err := Load("../../configs/config.example.yaml")
	if err != nil {
		t.Fatalf("example config must load: %v", err)
	}
	if err := cfg.RequireBot(); err != nil {
		t.Errorf("example config must be enough for the bot: %v", err)
	}
	if cfg.Telegram.BotToken != "example_token" {
		t.Errorf("expected token from env, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Redirect.FallbackDelay != models.DefaultRedirectFallbackDelay {
		t.Errorf("expected fallback delay %s, got %s", models.DefaultRedirectFallbackDelay, cfg.Redirect.FallbackDelay)
	}
}
