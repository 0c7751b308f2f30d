package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Crunchyroll CrunchyrollConfig `mapstructure:"crunchyroll"`
	Matcher     MatcherConfig     `mapstructure:"matcher"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// CrunchyrollConfig holds remote catalog access configuration.
// Mode selects the client implementation: "api" talks to the content API,
// "scrape" parses the public website for deployments where the API is
// unreachable.
type CrunchyrollConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	AuthURL      string `mapstructure:"auth_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Locale       string `mapstructure:"locale"`
	Timeout      int    `mapstructure:"timeout"`
	Mode         string `mapstructure:"mode"`
}

// MatcherConfig holds the title resolution tunables. Sensitivity is the
// direct-match acceptance threshold (0-100); the remaining knobs shape the
// season cascade and rarely need changing.
type MatcherConfig struct {
	Sensitivity           int `mapstructure:"sensitivity"`
	SearchLimit           int `mapstructure:"search_limit"`
	MinCascadeScore       int `mapstructure:"min_cascade_score"`
	MaxCascadeCandidates  int `mapstructure:"max_cascade_candidates"`
	MaxFilmSeasonEpisodes int `mapstructure:"max_film_season_episodes"`
	DistinctiveBonusMax   int `mapstructure:"distinctive_bonus_max"`
	MinFuzzyLength        int `mapstructure:"min_fuzzy_length"`
}

// CacheConfig holds catalog response cache configuration.
type CacheConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"`
	MaxItems   int `mapstructure:"max_items"`
}

// SchedulerConfig holds background maintenance configuration.
type SchedulerConfig struct {
	PruneCron     string `mapstructure:"prune_cron"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Default returns a Config with default values.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.crunchyroll-jellyfin")
	}

	// Environment variable settings
	v.SetEnvPrefix("CRUNCHYROLL_JELLYFIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	// Unmarshal into struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges that viper cannot enforce.
func (c *Config) Validate() error {
	if c.Matcher.Sensitivity < 0 || c.Matcher.Sensitivity > 100 {
		return fmt.Errorf("matcher.sensitivity must be between 0 and 100, got %d", c.Matcher.Sensitivity)
	}
	switch c.Crunchyroll.Mode {
	case "api", "scrape":
	default:
		return fmt.Errorf("crunchyroll.mode must be %q or %q, got %q", "api", "scrape", c.Crunchyroll.Mode)
	}
	return nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8573)

	// Database defaults
	v.SetDefault("database.path", "./data/crunchyroll-jellyfin.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	// Crunchyroll defaults
	v.SetDefault("crunchyroll.base_url", "https://www.crunchyroll.com")
	v.SetDefault("crunchyroll.auth_url", "https://www.crunchyroll.com/auth/v1/token")
	v.SetDefault("crunchyroll.client_id", "")
	v.SetDefault("crunchyroll.client_secret", "")
	v.SetDefault("crunchyroll.locale", "en-US")
	v.SetDefault("crunchyroll.timeout", 15)
	v.SetDefault("crunchyroll.mode", "api")

	// Matcher defaults
	v.SetDefault("matcher.sensitivity", 70)
	v.SetDefault("matcher.search_limit", 10)
	v.SetDefault("matcher.min_cascade_score", 25)
	v.SetDefault("matcher.max_cascade_candidates", 10)
	v.SetDefault("matcher.max_film_season_episodes", 2)
	v.SetDefault("matcher.distinctive_bonus_max", 40)
	v.SetDefault("matcher.min_fuzzy_length", 3)

	// Cache defaults
	v.SetDefault("cache.ttl_minutes", 15)
	v.SetDefault("cache.max_items", 1000)

	// Scheduler defaults
	v.SetDefault("scheduler.prune_cron", "0 4 * * *")
	v.SetDefault("scheduler.retention_days", 90)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
