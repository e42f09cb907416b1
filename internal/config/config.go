// Package config loads planr's process configuration from defaults, an
// optional planr.yaml, a .env file and PLANR_* environment variables.
// User preferences that the TUI edits live in the settings table instead.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix namespaces environment overrides, e.g. PLANR_SERVER_PORT.
const EnvPrefix = "PLANR"

type Config struct {
	DBPath string       `mapstructure:"db_path"`
	Server ServerConfig `mapstructure:"server"`
	Client ClientConfig `mapstructure:"client"`
	Logger LoggerConfig `mapstructure:"logger"`
}

type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
	MetricsEnabled     bool          `mapstructure:"metrics_enabled"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ClientConfig points the CLI at a running planr server instead of the
// local database when BaseURL is set.
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output is stderr, stdout or file.
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// Dir returns ~/.config/planr.
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "planr"), nil
}

// New returns a viper instance with defaults, env binding and the config
// search path set up. Callers may bind flags on it before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("planr")
	v.SetConfigType("yaml")
	if dir, err := Dir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	return v
}

func setDefaults(v *viper.Viper) {
	dbPath := "planr.db"
	logPath := "planr.log"
	if dir, err := Dir(); err == nil {
		dbPath = filepath.Join(dir, "planr.db")
		logPath = filepath.Join(dir, "planr.log")
	}
	v.SetDefault("db_path", dbPath)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.cors_allowed_origins", "*")
	v.SetDefault("server.rate_limit_requests", 50)
	v.SetDefault("server.rate_limit_window", "1m")
	v.SetDefault("server.metrics_enabled", true)

	v.SetDefault("client.base_url", "")
	v.SetDefault("client.timeout", "10s")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "file")
	v.SetDefault("logger.filename", logPath)
}

// Load reads the optional config file and unmarshals v. A missing file is
// not an error; a malformed one is.
func Load(v *viper.Viper) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("server.rate_limit_requests must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("logger.level: %w", err)
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format %q: want json or console", c.Logger.Format)
	}
	switch c.Logger.Output {
	case "stderr", "stdout":
	case "file":
		if c.Logger.Filename == "" {
			return errors.New("logger.filename is required when output is file")
		}
	default:
		return fmt.Errorf("logger.output %q: want stderr, stdout or file", c.Logger.Output)
	}
	return nil
}
