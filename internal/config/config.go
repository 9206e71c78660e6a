package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "TRIALFEEDS_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	aactUserEnv       = "AACT_USER"
	aactPassEnv       = "AACT_PASS"
	publishDirEnv     = "PUBLISH_DIR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Publish       PublishConfig      `yaml:"publish"`
	Feeds         FeedConfig         `yaml:"feeds"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// Duration is a time.Duration that unmarshals from yaml strings like "30s".
type Duration time.Duration

// Std converts back to the standard library type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML parses the usual Go duration syntax.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// DatabaseConfig describes the read-only AACT Postgres endpoint.
// Credentials arrive via environment, never via the yaml file.
type DatabaseConfig struct {
	DSN            string   `yaml:"dsn"`
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Name           string   `yaml:"name"`
	User           string   `yaml:"-"`
	Password       string   `yaml:"-"`
	SSLMode        string   `yaml:"sslMode"`
	ConnectTimeout Duration `yaml:"connectTimeout"`
	QueryTimeout   Duration `yaml:"queryTimeout"`
}

// ConnString resolves the pgx connection string. An explicit DSN wins;
// otherwise the string is assembled from the discrete fields. The session is
// forced read-only either way.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&default_transaction_read_only=on",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
}

// PublishConfig locates the static-file publish target.
type PublishConfig struct {
	Dir string `yaml:"dir"`
}

// FeedConfig tunes the query catalog without changing query shape.
type FeedConfig struct {
	HorizonMonths      int  `yaml:"horizonMonths"`
	TopSponsors        int  `yaml:"topSponsors"`
	InterventionalOnly bool `yaml:"interventionalOnly"`
	TitleMaxLen        int  `yaml:"titleMaxLen"`
}

// SchedulerConfig defines when self-scheduled runs execute.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound operator channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send run reports.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig controls slog construction.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(aactUserEnv); v != "" {
		c.Database.User = v
	}

	if v := os.Getenv(aactPassEnv); v != "" {
		c.Database.Password = v
	}

	if v := os.Getenv(publishDirEnv); v != "" {
		c.Publish.Dir = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.Host != "" {
		base.Database.Host = override.Database.Host
	}
	if override.Database.Port != 0 {
		base.Database.Port = override.Database.Port
	}
	if override.Database.Name != "" {
		base.Database.Name = override.Database.Name
	}
	if override.Database.SSLMode != "" {
		base.Database.SSLMode = override.Database.SSLMode
	}
	if override.Database.ConnectTimeout != 0 {
		base.Database.ConnectTimeout = override.Database.ConnectTimeout
	}
	if override.Database.QueryTimeout != 0 {
		base.Database.QueryTimeout = override.Database.QueryTimeout
	}

	if override.Publish.Dir != "" {
		base.Publish.Dir = override.Publish.Dir
	}

	if override.Feeds.HorizonMonths != 0 {
		base.Feeds.HorizonMonths = override.Feeds.HorizonMonths
	}
	if override.Feeds.TopSponsors != 0 {
		base.Feeds.TopSponsors = override.Feeds.TopSponsors
	}
	if override.Feeds.InterventionalOnly {
		base.Feeds.InterventionalOnly = true
	}
	if override.Feeds.TitleMaxLen != 0 {
		base.Feeds.TitleMaxLen = override.Feeds.TitleMaxLen
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{
			Host:           "aact-db.ctti-clinicaltrials.org",
			Port:           5432,
			Name:           "aact",
			SSLMode:        "require",
			ConnectTimeout: Duration(30 * time.Second),
			QueryTimeout:   Duration(2 * time.Minute),
		},
		Publish: PublishConfig{Dir: "public"},
		Feeds: FeedConfig{
			HorizonMonths: 12,
			TopSponsors:   50,
			TitleMaxLen:   120,
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}
