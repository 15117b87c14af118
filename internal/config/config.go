// Package config loads wrapper settings from a YAML file and
// MSMTP_RETRY_* environment variables. The wrapper has no flags: every
// command-line argument belongs to the mail command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/psantana5/msmtp-retry/internal/logging"
	"github.com/psantana5/msmtp-retry/internal/report"
	"github.com/psantana5/msmtp-retry/internal/supervisor"
)

const (
	// EnvPrefix prefixes every environment variable
	EnvPrefix = "MSMTP_RETRY"
	// EnvConfigFile points at an explicit config file
	EnvConfigFile = EnvPrefix + "_CONFIG"
)

// Config holds all wrapper settings
type Config struct {
	Command         string
	TTY             string
	LogLevel        string
	LogFormat       string
	LogFile         string
	MetricsTextfile string
	ReportFile      string
	HistorySize     int

	// ConfigFile is the file that was read, empty if none
	ConfigFile string
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Command:     supervisor.DefaultCommand,
		LogLevel:    "warn",
		LogFormat:   "text",
		HistorySize: report.DefaultHistorySize,
	}
}

func newViper() *viper.Viper {
	v := viper.New()

	d := Default()
	v.SetDefault("command", d.Command)
	v.SetDefault("tty", d.TTY)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("metrics_textfile", d.MetricsTextfile)
	v.SetDefault("report_file", d.ReportFile)
	v.SetDefault("history_size", d.HistorySize)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, then the environment.
//
// It always returns a usable Config. A non-nil error reports a config
// file that existed but could not be read, or values that were reset to
// defaults; the returned Config is still complete, because a broken
// config must not keep mail from being sent.
func Load() (*Config, error) {
	v := newViper()
	fileErr := readConfigFile(v)

	cfg, decodeErr := decode(v)
	if fileErr == nil {
		cfg.ConfigFile = v.ConfigFileUsed()
	}

	return cfg, errors.Join(fileErr, decodeErr, cfg.Validate())
}

// decode reads every key on its own, so one malformed value only
// resets that key.
func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Command:         v.GetString("command"),
		TTY:             v.GetString("tty"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		LogFile:         v.GetString("log_file"),
		MetricsTextfile: v.GetString("metrics_textfile"),
		ReportFile:      v.GetString("report_file"),
	}

	size, err := cast.ToIntE(v.Get("history_size"))
	if err != nil {
		cfg.HistorySize = report.DefaultHistorySize
		return cfg, fmt.Errorf("history_size: %w", err)
	}
	cfg.HistorySize = size
	return cfg, nil
}

func readConfigFile(v *viper.Viper) error {
	explicit := os.Getenv(EnvConfigFile)
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil // no home, nothing to read
		}
		v.AddConfigPath(filepath.Join(home, ".msmtp-retry"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	// The default location is optional, an explicit one is not.
	var notFound viper.ConfigFileNotFoundError
	if explicit == "" && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("ignoring config file: %w", err)
}

// Validate checks values and resets invalid ones to defaults.
// The returned error lists what was reset.
func (c *Config) Validate() error {
	d := Default()
	var problems []error

	c.Command = strings.TrimSpace(c.Command)
	if c.Command == "" {
		c.Command = d.Command
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Errorf("log_level: %w", err))
		c.LogLevel = d.LogLevel
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	switch c.LogFormat {
	case "text", "json":
	case "":
		c.LogFormat = d.LogFormat
	default:
		problems = append(problems, fmt.Errorf("log_format: unknown format %q", c.LogFormat))
		c.LogFormat = d.LogFormat
	}

	if c.HistorySize <= 0 {
		problems = append(problems, fmt.Errorf("history_size: must be positive, got %d", c.HistorySize))
		c.HistorySize = d.HistorySize
	}

	return errors.Join(problems...)
}

// Level returns the parsed log level
func (c *Config) Level() logging.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}

// JSONLogs reports whether logs are written as JSON lines
func (c *Config) JSONLogs() bool {
	return c.LogFormat == "json"
}

// NewLogger builds the logger described by the config
func (c *Config) NewLogger() (*logging.Logger, error) {
	if c.LogFile != "" {
		return logging.NewFileLogger(c.LogFile, c.Level(), c.JSONLogs())
	}
	return logging.NewLogger(c.Level(), c.JSONLogs()), nil
}
