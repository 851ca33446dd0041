package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	TVDB    TVDBConfig    `mapstructure:"tvdb"`
	Plex    PlexConfig    `mapstructure:"plex"`
	Report  ReportConfig  `mapstructure:"report"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TVDBConfig holds TheTVDB API credentials.
type TVDBConfig struct {
	APIKey   string `mapstructure:"api_key"`
	UserKey  string `mapstructure:"user_key"`
	Username string `mapstructure:"username"`
	BaseURL  string `mapstructure:"base_url"`
}

// PlexConfig holds Plex account and server settings.
type PlexConfig struct {
	URL                string `mapstructure:"url"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	Token              string `mapstructure:"token"` // skips sign-in when set
	AccountURL         string `mapstructure:"account_url"`
	ClientID           string `mapstructure:"client_id"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// ReportConfig controls which episodes are reported and how.
type ReportConfig struct {
	Ignore      []string      `mapstructure:"ignore"`
	GraceWindow time.Duration `mapstructure:"grace_window"`
	Format      string        `mapstructure:"format"`
	Workers     int           `mapstructure:"workers"`
}

// HTTPConfig holds transport settings shared by both API clients.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
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

const (
	DefaultTVDBBaseURL    = "https://api.thetvdb.com"
	DefaultPlexURL        = "http://localhost:32400"
	DefaultPlexAccountURL = "https://plex.tv"
	DefaultGraceWindow    = 24 * time.Hour
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultHTTPRetries    = 3
	DefaultReportFormat   = "text"
	DefaultReportWorkers  = 1
	defaultEnvFile        = ".env"
	envPrefix             = "MISSINGTV"
)

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		TVDB: TVDBConfig{
			APIKey:  EmbeddedTVDBKey,
			BaseURL: DefaultTVDBBaseURL,
		},
		Plex: PlexConfig{
			URL:        DefaultPlexURL,
			AccountURL: DefaultPlexAccountURL,
			ClientID:   defaultClientID(),
		},
		Report: ReportConfig{
			Ignore:      []string{},
			GraceWindow: DefaultGraceWindow,
			Format:      DefaultReportFormat,
			Workers:     DefaultReportWorkers,
		},
		HTTP: HTTPConfig{
			Timeout: DefaultHTTPTimeout,
			Retries: DefaultHTTPRetries,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	// Values from .env never override variables already set in the environment.
	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", defaultEnvFile, err)
	}

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.missingtv")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Plex.ClientID == "" {
		cfg.Plex.ClientID = defaultClientID()
	}

	return cfg, nil
}

// defaultClientID derives the Plex client identifier from the hostname.
// plex.tv lists every new identifier as a separate device, so scheduled
// runs on one host must keep reusing the same value.
func defaultClientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte("missingtv."+host)).String()
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// TVDB defaults
	v.SetDefault("tvdb.api_key", EmbeddedTVDBKey)
	v.SetDefault("tvdb.user_key", "")
	v.SetDefault("tvdb.username", "")
	v.SetDefault("tvdb.base_url", DefaultTVDBBaseURL)

	// Plex defaults
	v.SetDefault("plex.url", DefaultPlexURL)
	v.SetDefault("plex.username", "")
	v.SetDefault("plex.password", "")
	v.SetDefault("plex.token", "")
	v.SetDefault("plex.account_url", DefaultPlexAccountURL)
	v.SetDefault("plex.client_id", "")
	v.SetDefault("plex.insecure_skip_verify", false)

	// Report defaults
	v.SetDefault("report.ignore", []string{})
	v.SetDefault("report.grace_window", DefaultGraceWindow)
	v.SetDefault("report.format", DefaultReportFormat)
	v.SetDefault("report.workers", DefaultReportWorkers)

	// HTTP defaults
	v.SetDefault("http.timeout", DefaultHTTPTimeout)
	v.SetDefault("http.retries", DefaultHTTPRetries)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

// HasPlexToken reports whether a Plex token was supplied directly.
func (c *PlexConfig) HasPlexToken() bool {
	return strings.TrimSpace(c.Token) != ""
}
