package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment represents the runtime environment
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Test        Environment = "test"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// DefaultCaptureCommand records the chosen output with wf-recorder
const DefaultCaptureCommand = "wf-recorder -o {output} -r {fps} -f {file}"

// Config holds the application configuration
type Config struct {
	// Environment
	Environment Environment `mapstructure:"DESKMIRROR_ENV"`

	// Logging
	LogLevel LogLevel `mapstructure:"LOG_LEVEL"`
	LogMode  string   `mapstructure:"LOG_MODE"`

	// Ambient geometry overrides, 0 means ask the compositor
	ScreenWidth    int `mapstructure:"SCREEN_WIDTH"`
	ScreenHeight   int `mapstructure:"SCREEN_HEIGHT"`
	ViewportWidth  int `mapstructure:"VIEWPORT_WIDTH"`
	ViewportHeight int `mapstructure:"VIEWPORT_HEIGHT"`

	// Capture
	CaptureCommand      string        `mapstructure:"CAPTURE_COMMAND"`
	CaptureDir          string        `mapstructure:"CAPTURE_DIR"`
	CaptureStartupGrace time.Duration `mapstructure:"CAPTURE_STARTUP_GRACE"`
	CaptureStopGrace    time.Duration `mapstructure:"CAPTURE_STOP_GRACE"`

	// Compositor queries
	CommandTimeout time.Duration `mapstructure:"COMMAND_TIMEOUT"`
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile reads configuration from path (dotenv format) and the environment
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no .env file, environment variables only
	}

	// Environment variables override .env file
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.LogLevel = LogLevel(strings.ToLower(string(cfg.LogLevel)))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when loading fails
func Default() *Config {
	return &Config{
		Environment:         Development,
		LogLevel:            LogLevelInfo,
		LogMode:             "cli",
		CaptureCommand:      DefaultCaptureCommand,
		CaptureDir:          os.TempDir(),
		CaptureStartupGrace: 500 * time.Millisecond,
		CaptureStopGrace:    3 * time.Second,
		CommandTimeout:      5 * time.Second,
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("DESKMIRROR_ENV", string(d.Environment))
	v.SetDefault("LOG_LEVEL", string(d.LogLevel))
	v.SetDefault("LOG_MODE", d.LogMode)
	v.SetDefault("SCREEN_WIDTH", 0)
	v.SetDefault("SCREEN_HEIGHT", 0)
	v.SetDefault("VIEWPORT_WIDTH", 0)
	v.SetDefault("VIEWPORT_HEIGHT", 0)
	v.SetDefault("CAPTURE_COMMAND", d.CaptureCommand)
	v.SetDefault("CAPTURE_DIR", d.CaptureDir)
	v.SetDefault("CAPTURE_STARTUP_GRACE", d.CaptureStartupGrace.String())
	v.SetDefault("CAPTURE_STOP_GRACE", d.CaptureStopGrace.String())
	v.SetDefault("COMMAND_TIMEOUT", d.CommandTimeout.String())
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Production, Test:
	default:
		return fmt.Errorf("invalid environment: %s (must be development, production, or test)", c.Environment)
	}

	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	switch c.LogMode {
	case "file", "cli", "silent":
	default:
		return fmt.Errorf("invalid log mode: %s (must be file, cli, or silent)", c.LogMode)
	}

	if c.ScreenWidth < 0 || c.ScreenHeight < 0 || c.ViewportWidth < 0 || c.ViewportHeight < 0 {
		return fmt.Errorf("geometry overrides must not be negative")
	}

	if strings.TrimSpace(c.CaptureCommand) == "" {
		return fmt.Errorf("capture command must not be empty")
	}

	if c.CaptureStartupGrace < 0 || c.CaptureStopGrace < 0 {
		return fmt.Errorf("capture grace periods must not be negative")
	}

	if c.CommandTimeout <= 0 {
		return fmt.Errorf("invalid command timeout: %s (must be positive)", c.CommandTimeout)
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// CaptureFile returns the path a capture of output is written to
func (c *Config) CaptureFile(output string, now time.Time) string {
	dir := c.CaptureDir
	if dir == "" {
		dir = os.TempDir()
	}
	safe := strings.NewReplacer("/", "_", " ", "_").Replace(output)
	return filepath.Join(dir, fmt.Sprintf("deskmirror-%s-%s.mkv", safe, now.Format("20060102-150405")))
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Environment=%s, LogLevel=%s, LogMode=%s, Screen=%dx%d, Viewport=%dx%d, Capture=%q}",
		c.Environment, c.LogLevel, c.LogMode, c.ScreenWidth, c.ScreenHeight, c.ViewportWidth, c.ViewportHeight, c.CaptureCommand)
}
