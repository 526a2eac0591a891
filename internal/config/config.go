// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Telegram   TelegramConfig
	YouTube    YouTubeConfig
	Scheduler  SchedulerConfig
	Dispatcher DispatcherConfig
	RabbitMQ   RabbitMQConfig
	Branding   BrandingConfig
	Admin      AdminConfig
	Logging    LoggingConfig
}

// ServerConfig contains the ops HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects and configures the storage backend.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Driver         string
	Path           string
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// TelegramConfig contains the bot credentials and command settings.
type TelegramConfig struct {
	Token    string
	APIURL   string
	AdminIDs []int64
	Commands bool
}

// YouTubeConfig contains YouTube Data API settings.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type YouTubeConfig struct {
	APIKey           string
	UploadsSource    string
	MaxResults       int64
	RequestTimeout   time.Duration
	IncludeLive      bool
	IncludePremieres bool
	DailyQuota       int
	QuotaThreshold   int
}

// SchedulerConfig controls the recurring sweep.
type SchedulerConfig struct {
	Interval       time.Duration
	Workers        int
	ChannelTimeout time.Duration
}

// DispatcherConfig controls announcement delivery pacing.
type DispatcherConfig struct {
	MinSendInterval time.Duration
	SendTimeout     time.Duration
}

// RabbitMQConfig contains the optional announcement event broker configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled    bool
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// BrandingConfig contains the text appended to free-plan announcements.
type BrandingConfig struct {
	Footer string
}

// AdminConfig contains the API keys that guard admin HTTP endpoints.
type AdminConfig struct {
	APIKeys []string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	UploadsFromAPI  = "api"
	UploadsFromFeed = "feed"
)

// DefaultFooter is the branding line appended to free-plan announcements.
const DefaultFooter = `⚡️ Powered by "For Humo: Humo TV"
🔹 For Humo TG kanal: https://t.me/forhumo
🔹 Humo TV TG kanal: https://t.me/ForHumoTV
🌐 Rasmiy sayt: https://forhumo.uz`

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about, so the
	// secrets without defaults are bound explicitly.
	for _, key := range []string{"telegram.token", "youtube.apikey", "admin.apikeys", "telegram.adminids"} {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports configuration that would prevent the announcer from running.
func (c *Config) Validate() error {
	var errs []error

	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}

	switch c.Database.Driver {
	case DriverPostgres:
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}

	switch c.YouTube.UploadsSource {
	case UploadsFromAPI, UploadsFromFeed:
	default:
		errs = append(errs, fmt.Errorf("unknown youtube.uploadssource %q", c.YouTube.UploadsSource))
	}

	if c.YouTube.APIKey == "" && c.YouTube.NeedsAPIKey() {
		errs = append(errs, errors.New("youtube.apikey is required unless uploads come from the feed and live/premieres are disabled"))
	}

	if c.Scheduler.Interval < time.Second {
		errs = append(errs, fmt.Errorf("scheduler.interval %s is below one second", c.Scheduler.Interval))
	}
	if c.Scheduler.Workers < 1 {
		errs = append(errs, errors.New("scheduler.workers must be at least 1"))
	}

	return errors.Join(errs...)
}

// NeedsAPIKey reports whether any configured stream calls the YouTube Data API.
func (y YouTubeConfig) NeedsAPIKey() bool {
	return y.UploadsSource == UploadsFromAPI || y.IncludeLive || y.IncludePremieres
}

// IsAdmin reports whether the Telegram user may run admin commands.
func (t TelegramConfig) IsAdmin(userID int64) bool {
	return lo.Contains(t.AdminIDs, userID)
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.driver", DriverPostgres)
	viper.SetDefault("database.path", "./data/announcer.db")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "announcer")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Telegram
	viper.SetDefault("telegram.apiurl", "https://api.telegram.org")
	viper.SetDefault("telegram.commands", true)

	// YouTube
	viper.SetDefault("youtube.uploadssource", UploadsFromAPI)
	viper.SetDefault("youtube.maxresults", 5)
	viper.SetDefault("youtube.requesttimeout", 15*time.Second)
	viper.SetDefault("youtube.includelive", true)
	viper.SetDefault("youtube.includepremieres", true)
	viper.SetDefault("youtube.dailyquota", 10000)
	viper.SetDefault("youtube.quotathreshold", 90)

	// Scheduler
	viper.SetDefault("scheduler.interval", 5*time.Minute)
	viper.SetDefault("scheduler.workers", 1)
	viper.SetDefault("scheduler.channeltimeout", 2*time.Minute)

	// Dispatcher
	viper.SetDefault("dispatcher.minsendinterval", time.Second)
	viper.SetDefault("dispatcher.sendtimeout", 15*time.Second)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "announcer.events")
	viper.SetDefault("rabbitmq.queue", "announcer.announcements")
	viper.SetDefault("rabbitmq.routingkey", "announcement.posted")

	// Branding
	viper.SetDefault("branding.footer", DefaultFooter)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
