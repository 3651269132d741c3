package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for weatherlogd.
type Config struct {
	ListenAddr  string            `mapstructure:"listen_addr"`
	LogFormat   string            `mapstructure:"log_format"`
	Storage     StorageConfig     `mapstructure:"storage"`
	OpenWeather OpenWeatherConfig `mapstructure:"openweather"`
	YouTube     YouTubeConfig     `mapstructure:"youtube"`
}

// OpenWeatherConfig holds settings for the OpenWeatherMap upstream.
type OpenWeatherConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// YouTubeConfig holds settings for the related-videos upstream.
// An empty key disables the /videos endpoint.
type YouTubeConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// StorageConfig defines the database backend.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Load reads configuration from flag path, env vars, then default file paths.
// Precedence: flag → $WEATHERLOGD_CONFIG env → ~/.config/weatherlogd/config.yaml → /etc/weatherlogd/config.yaml
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_format", "json")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "weatherlogd.db")
	v.SetDefault("openweather.timeout", "10s")
	v.SetDefault("openweather.max_retries", 2)

	// Env var support
	v.SetEnvPrefix("WEATHERLOGD")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if envPath := os.Getenv("WEATHERLOGD_CONFIG"); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		// Try ~/.config/weatherlogd/config.yaml first
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "weatherlogd"))
		}
		// Fall back to /etc/weatherlogd/config.yaml
		v.AddConfigPath("/etc/weatherlogd")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		// Warn if config file is world-readable; it carries API keys.
		if cfgPath := v.ConfigFileUsed(); cfgPath != "" {
			if info, err := os.Stat(cfgPath); err == nil {
				perm := info.Mode().Perm()
				if perm&0004 != 0 {
					slog.Warn("config file is world-readable", "path", cfgPath, "permissions", fmt.Sprintf("%04o", perm))
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Inject API keys from env vars explicitly. Viper's AutomaticEnv
	// does not reach nested struct fields absent from the config file,
	// and secrets commonly arrive this way (K8s, .env).
	if key := os.Getenv("WEATHERLOGD_OPENWEATHER_API_KEY"); key != "" {
		cfg.OpenWeather.APIKey = key
	}
	if key := os.Getenv("WEATHERLOGD_YOUTUBE_API_KEY"); key != "" {
		cfg.YouTube.APIKey = key
	}
	// The original app's variable names still work for drop-in setups.
	if cfg.OpenWeather.APIKey == "" {
		cfg.OpenWeather.APIKey = os.Getenv("OPENWEATHER_API_KEY")
	}
	if cfg.YouTube.APIKey == "" {
		cfg.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is complete and correct.
func (c *Config) Validate() error {
	if c.OpenWeather.APIKey == "" {
		return fmt.Errorf("openweather.api_key is required")
	}
	if c.OpenWeather.Timeout <= 0 {
		return fmt.Errorf("openweather.timeout must be positive")
	}
	if c.OpenWeather.MaxRetries < 0 {
		return fmt.Errorf("openweather.max_retries must not be negative")
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for sqlite driver")
		}
		dir := filepath.Dir(c.Storage.SQLite.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("creating storage directory %q: %w", dir, err)
			}
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be 'sqlite' or 'postgres', got %q", c.Storage.Driver)
	}

	// Validate listen_addr.
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("listen_addr %q is not a valid address: %w", c.ListenAddr, err)
	}

	return nil
}

// DSN returns the appropriate DSN for the configured storage driver.
func (c *Config) DSN() string {
	switch c.Storage.Driver {
	case "sqlite":
		return c.Storage.SQLite.Path
	case "postgres":
		return c.Storage.Postgres.DSN
	default:
		return ""
	}
}
