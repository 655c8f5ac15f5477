// Package config provides configuration management for the gamealert bot.
// It loads settings from environment variables (and an optional .env file) with sensible defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix envconfig strips from every variable.
const EnvPrefix = "GAMEALERT"

// Config holds all configuration for the bot.
type Config struct {
	App       AppConfig
	Discord   DiscordConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Providers ProvidersConfig
	Quota     QuotaConfig
	Schedule  ScheduleConfig
	HTTP      HTTPConfig
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Env       string `envconfig:"GAMEALERT_APP_ENV" default:"production"`
	Debug     bool   `envconfig:"GAMEALERT_DEBUG" default:"false"` // Debug mode never prunes channels
	LogLevel  string `envconfig:"GAMEALERT_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"GAMEALERT_LOG_FORMAT" default:"json"` // json or console
}

// DiscordConfig holds the bot session and diagnostics channels.
type DiscordConfig struct {
	Token              string `envconfig:"GAMEALERT_DISCORD_TOKEN" required:"true"`
	ExceptionChannelID string `envconfig:"GAMEALERT_DISCORD_EXCEPTION_CHANNEL"`
	StreamChannelID    string `envconfig:"GAMEALERT_DISCORD_STREAM_CHANNEL"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver   string `envconfig:"GAMEALERT_DB_DRIVER" default:"postgres"` // mysql, postgres, sqlite3
	DSN      string `envconfig:"GAMEALERT_DB_DSN"`
	Host     string `envconfig:"GAMEALERT_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"GAMEALERT_DB_PORT" default:"5432"`
	User     string `envconfig:"GAMEALERT_DB_USER" default:"gamealert"`
	Password string `envconfig:"GAMEALERT_DB_PASSWORD"`
	Database string `envconfig:"GAMEALERT_DB_NAME" default:"gamealert"`
	Prefix   string `envconfig:"GAMEALERT_DB_PREFIX"`

	MaxOpenConns    int           `envconfig:"GAMEALERT_DB_MAX_OPEN_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GAMEALERT_DB_CONN_MAX_LIFETIME" default:"1h"`
}

// RedisConfig enables distributed job locks when URL is set.
type RedisConfig struct {
	URL     string        `envconfig:"GAMEALERT_REDIS_URL"`
	LockTTL time.Duration `envconfig:"GAMEALERT_REDIS_LOCK_TTL" default:"30m"`
}

// ProvidersConfig holds credentials of the external data providers.
type ProvidersConfig struct {
	ITADKey    string `envconfig:"GAMEALERT_ITAD_API_KEY" required:"true"`
	TopGGToken string `envconfig:"GAMEALERT_TOPGG_TOKEN" required:"true"`
	BotID      string `envconfig:"GAMEALERT_BOT_ID" default:"1028073862597967932"`
}

// QuotaConfig holds the per-server alert limits.
type QuotaConfig struct {
	SoftLimit int `envconfig:"GAMEALERT_QUOTA_SOFT" default:"5"`
	HardLimit int `envconfig:"GAMEALERT_QUOTA_HARD" default:"10"`
}

// ScheduleConfig holds job intervals.
type ScheduleConfig struct {
	Giveaway      time.Duration `envconfig:"GAMEALERT_SCHEDULE_GIVEAWAY" default:"30m"`
	FreeToPlay    time.Duration `envconfig:"GAMEALERT_SCHEDULE_FREETOPLAY" default:"30m"`
	GamePass      time.Duration `envconfig:"GAMEALERT_SCHEDULE_GAMEPASS" default:"30m"`
	LocalGiveaway time.Duration `envconfig:"GAMEALERT_SCHEDULE_LOCALGIVEAWAY" default:"30m"`
	Price         time.Duration `envconfig:"GAMEALERT_SCHEDULE_PRICE" default:"4h"`
	RewardDraw    time.Duration `envconfig:"GAMEALERT_SCHEDULE_REWARD_DRAW" default:"30m"`
	Heartbeat     time.Duration `envconfig:"GAMEALERT_SCHEDULE_HEARTBEAT" default:"30m"`
}

// HTTPConfig holds the admin API listener.
type HTTPConfig struct {
	Addr string `envconfig:"GAMEALERT_HTTP_ADDR" default:":8080"`
}

// Load reads an optional .env file and then the environment.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Database.GetDSN() == "" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Quota.SoftLimit <= 0 || cfg.Quota.SoftLimit >= cfg.Quota.HardLimit {
		return nil, fmt.Errorf("quota soft limit %d must be positive and below hard limit %d",
			cfg.Quota.SoftLimit, cfg.Quota.HardLimit)
	}
	return &cfg, nil
}

// GetDSN returns the database connection string based on driver.
// An explicit DSN wins over the individual parts.
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}
