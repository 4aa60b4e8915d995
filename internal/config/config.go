// Package config loads zaloga's YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/zaloga/internal/notify"
	"github.com/erazemk/zaloga/internal/transfer"
)

// Config is the complete configuration.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Log           LogConfig           `yaml:"log"`
	Transfers     TransfersConfig     `yaml:"transfers"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// DatabaseConfig configures the SQLite document store.
type DatabaseConfig struct {
	// Path is the SQLite file, or ":memory:".
	Path string `yaml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// File, when set, receives every record; records below ERROR then go
	// only to the file and errors also go to stderr.
	File string `yaml:"file"`
}

// TransfersConfig configures the transfer workflow.
type TransfersConfig struct {
	// ShipmentMode is "atomic" or "per_line".
	ShipmentMode string `yaml:"shipment_mode"`
}

// NotificationsConfig configures notification sinks.
type NotificationsConfig struct {
	// Store writes notifications into the document store.
	Store bool `yaml:"store"`
	// QueueSize buffers deliveries; zero delivers synchronously.
	QueueSize int `yaml:"queue_size"`
	// NATSURL enables the NATS sink when set.
	NATSURL string `yaml:"nats_url"`
	// SubjectPrefix prefixes NATS subjects.
	SubjectPrefix string `yaml:"subject_prefix"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// Textfile is written in node-exporter format after each command.
	Textfile string `yaml:"textfile"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database:  DatabaseConfig{Path: "zaloga.sqlite3"},
		Log:       LogConfig{Level: "info"},
		Transfers: TransfersConfig{ShipmentMode: string(transfer.ShipmentAtomic)},
		Notifications: NotificationsConfig{
			Store:         true,
			SubjectPrefix: notify.DefaultSubjectPrefix,
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if _, err := transfer.ParseShipmentMode(c.Transfers.ShipmentMode); err != nil {
		return fmt.Errorf("transfers.shipment_mode: %w", err)
	}
	if c.Notifications.QueueSize < 0 {
		return fmt.Errorf("notifications.queue_size must not be negative")
	}
	if strings.ContainsAny(c.Notifications.SubjectPrefix, " *>") {
		return fmt.Errorf("notifications.subject_prefix must not contain spaces or wildcards")
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return level, nil
}

// ShipmentMode returns the parsed transfer shipment mode.
func (c *Config) ShipmentMode() transfer.ShipmentMode {
	mode, err := transfer.ParseShipmentMode(c.Transfers.ShipmentMode)
	if err != nil {
		return transfer.ShipmentAtomic
	}
	return mode
}

// LoadFromFile reads a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Merge overlays the non-zero values of other. Store is a plain bool and is
// only ever turned off by a file, never by a merge.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Database.Path != "" {
		c.Database.Path = other.Database.Path
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.File != "" {
		c.Log.File = other.Log.File
	}
	if other.Transfers.ShipmentMode != "" {
		c.Transfers.ShipmentMode = other.Transfers.ShipmentMode
	}
	if other.Notifications.QueueSize != 0 {
		c.Notifications.QueueSize = other.Notifications.QueueSize
	}
	if other.Notifications.NATSURL != "" {
		c.Notifications.NATSURL = other.Notifications.NATSURL
	}
	if other.Notifications.SubjectPrefix != "" {
		c.Notifications.SubjectPrefix = other.Notifications.SubjectPrefix
	}
	if other.Metrics.Textfile != "" {
		c.Metrics.Textfile = other.Metrics.Textfile
	}
}

// Load returns the defaults overlaid with path, when path is set, and
// validates the result. A missing file at path is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
