// Package config provides configuration management for go-ulogview.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var AppVersion = "-unset-" // will be set at build time

const (
	DefaultListenAddr  = "0.0.0.0"
	DefaultListenPort  = 80
	DefaultLogFile     = "ulogd_sqlite3.log"
	DefaultLogLevel    = "warning"
	DefaultMaxFormSize = 10 << 20 // 10 MB of POST body
)

// ErrInvalidConfig is wrapped by every validation and decoding failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// MainConfig holds the main configuration for go-ulogview
type MainConfig struct {
	// Database settings
	Database DatabaseConfig `toml:"database"`

	// Web interface settings
	Web WebConfig `toml:"web"`

	// Log sink settings
	Log LogConfig `toml:"log"`

	// Address of the profiler web endpoint, empty disables it
	PprofAddr string `toml:"pprof_addr"`

	AppVersion string `toml:"-"` // Application version, set at build time
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	File string `toml:"file"` // Path to the ulogd sqlite3 database
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenAddr  string `toml:"listen_addr"`
	ListenPort  int    `toml:"listen_port"`
	MaxFormSize int64  `toml:"max_form_size"` // Upper bound for parsed POST bodies
	SSL         bool   `toml:"ssl"`
	CertFile    string `toml:"cert_file,omitempty"`
	KeyFile     string `toml:"key_file,omitempty"`
}

// LogConfig holds the log sink configuration
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	return &MainConfig{
		AppVersion: AppVersion,
		Web: WebConfig{
			ListenAddr:  DefaultListenAddr,
			ListenPort:  DefaultListenPort,
			MaxFormSize: DefaultMaxFormSize,
		},
		Log: LogConfig{
			File:  DefaultLogFile,
			Level: DefaultLogLevel,
		},
	}
}

// LoadFile decodes a TOML file over the current values.
// Keys missing from the file keep their previous value.
func (c *MainConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// Validate checks the configuration before anything is opened or bound
func (c *MainConfig) Validate() error {
	if c.Database.File == "" {
		return fmt.Errorf("%w: database file must be set", ErrInvalidConfig)
	}
	if c.Web.ListenPort < 1 || c.Web.ListenPort > 65535 {
		return fmt.Errorf("%w: invalid port number: %d (must be between 1 and 65535)", ErrInvalidConfig, c.Web.ListenPort)
	}
	if c.Web.MaxFormSize <= 0 {
		return fmt.Errorf("%w: max_form_size must be positive, got %d", ErrInvalidConfig, c.Web.MaxFormSize)
	}
	if c.Web.SSL && (c.Web.CertFile == "" || c.Web.KeyFile == "") {
		return fmt.Errorf("%w: SSL enabled but cert_file or key_file not specified", ErrInvalidConfig)
	}
	if c.Log.File == "" {
		return fmt.Errorf("%w: log file must be set", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps a level name to a slog level.
// "warning" is accepted next to slog's own names.
func ParseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "warning":
		return slog.LevelWarn, nil
	case "critical", "fatal":
		return slog.LevelError, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, name)
	}
	return level, nil
}
