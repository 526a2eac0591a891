package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T)
		check func(*testing.T, *Config)
	}{
		{
			name:  "load with defaults (no config file)",
			setup: func(t *testing.T) {},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 8080 {
					t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
				}
				if cfg.Database.Driver != DriverPostgres {
					t.Errorf("Database.Driver = %s, want postgres", cfg.Database.Driver)
				}
				if cfg.Scheduler.Interval != 5*time.Minute {
					t.Errorf("Scheduler.Interval = %s, want 5m", cfg.Scheduler.Interval)
				}
				if cfg.Scheduler.Workers != 1 {
					t.Errorf("Scheduler.Workers = %d, want 1", cfg.Scheduler.Workers)
				}
				if cfg.Dispatcher.MinSendInterval != time.Second {
					t.Errorf("Dispatcher.MinSendInterval = %s, want 1s", cfg.Dispatcher.MinSendInterval)
				}
				if cfg.YouTube.UploadsSource != UploadsFromAPI {
					t.Errorf("YouTube.UploadsSource = %s, want api", cfg.YouTube.UploadsSource)
				}
				if !cfg.YouTube.IncludeLive || !cfg.YouTube.IncludePremieres {
					t.Error("live and premiere streams should be enabled by default")
				}
				if cfg.Branding.Footer != DefaultFooter {
					t.Error("Branding.Footer should default to DefaultFooter")
				}
				if cfg.RabbitMQ.Enabled {
					t.Error("RabbitMQ.Enabled = true, want false")
				}
			},
		},
		{
			name: "load with environment variables",
			setup: func(t *testing.T) {
				t.Setenv("APP_TELEGRAM_TOKEN", "123:abc")
				t.Setenv("APP_YOUTUBE_APIKEY", "yt-key")
				t.Setenv("APP_TELEGRAM_ADMINIDS", "11,22")
				t.Setenv("APP_SCHEDULER_INTERVAL", "90s")
				t.Setenv("APP_DATABASE_DRIVER", "sqlite")
				t.Setenv("APP_ADMIN_APIKEYS", "k1,k2")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "123:abc", cfg.Telegram.Token)
				assert.Equal(t, "yt-key", cfg.YouTube.APIKey)
				assert.Equal(t, []int64{11, 22}, cfg.Telegram.AdminIDs)
				assert.Equal(t, 90*time.Second, cfg.Scheduler.Interval)
				assert.Equal(t, DriverSQLite, cfg.Database.Driver)
				assert.Equal(t, []string{"k1", "k2"}, cfg.Admin.APIKeys)
			},
		},
		{
			name: "load from config file",
			setup: func(t *testing.T) {
				dir := t.TempDir()
				content := []byte("telegram:\n  token: file-token\nscheduler:\n  workers: 4\nbranding:\n  footer: custom\n")
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))
				wd, err := os.Getwd()
				require.NoError(t, err)
				require.NoError(t, os.Chdir(dir))
				t.Cleanup(func() { _ = os.Chdir(wd) })
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "file-token", cfg.Telegram.Token)
				assert.Equal(t, 4, cfg.Scheduler.Workers)
				assert.Equal(t, "custom", cfg.Branding.Footer)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			tt.setup(t)

			cfg, err := Load()
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func validConfig() *Config {
	return &Config{
		Database:  DatabaseConfig{Driver: DriverPostgres},
		Telegram:  TelegramConfig{Token: "123:abc"},
		YouTube:   YouTubeConfig{APIKey: "key", UploadsSource: UploadsFromAPI, IncludeLive: true, IncludePremieres: true},
		Scheduler: SchedulerConfig{Interval: 5 * time.Minute, Workers: 1},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Telegram.Token = "" },
			wantErr: "telegram.token",
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.YouTube.APIKey = "" },
			wantErr: "youtube.apikey",
		},
		{
			name: "feed only needs no api key",
			mutate: func(c *Config) {
				c.YouTube.APIKey = ""
				c.YouTube.UploadsSource = UploadsFromFeed
				c.YouTube.IncludeLive = false
				c.YouTube.IncludePremieres = false
			},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "database.driver",
		},
		{
			name: "sqlite needs a path",
			mutate: func(c *Config) {
				c.Database.Driver = DriverSQLite
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
		{
			name:    "unknown uploads source",
			mutate:  func(c *Config) { c.YouTube.UploadsSource = "rss" },
			wantErr: "youtube.uploadssource",
		},
		{
			name:    "interval too small",
			mutate:  func(c *Config) { c.Scheduler.Interval = 10 * time.Millisecond },
			wantErr: "scheduler.interval",
		},
		{
			name:    "no workers",
			mutate:  func(c *Config) { c.Scheduler.Workers = 0 },
			wantErr: "scheduler.workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTelegramConfig_IsAdmin(t *testing.T) {
	cfg := TelegramConfig{AdminIDs: []int64{11, 22}}

	assert.True(t, cfg.IsAdmin(22))
	assert.False(t, cfg.IsAdmin(33))
	assert.False(t, TelegramConfig{}.IsAdmin(11))
}
