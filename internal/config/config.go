// Package config defines the application configuration, its defaults, and
// the YAML loader with environment variable interpolation.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the mission runner.
type Config struct {
	Core     CoreConfig    `mapstructure:"core" yaml:"core" validate:"required"`
	Database DBConfig      `mapstructure:"database" yaml:"database" validate:"required"`
	Auction  AuctionConfig `mapstructure:"auction" yaml:"auction"`
	Gate     GateConfig    `mapstructure:"gate" yaml:"gate"`
	Server   ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging  LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Tracing  TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	HomeDir     string        `mapstructure:"home_dir" yaml:"home_dir"`
	DataDir     string        `mapstructure:"data_dir" yaml:"data_dir"`
	MaxParallel int           `mapstructure:"max_parallel" yaml:"max_parallel" validate:"min=1,max=64"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=1s"`
	Debug       bool          `mapstructure:"debug" yaml:"debug"`
}

// DBConfig contains SQLite configuration.
type DBConfig struct {
	Path        string        `mapstructure:"path" yaml:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout" validate:"min=100ms"`
	WALMode     bool          `mapstructure:"wal_mode" yaml:"wal_mode"`
}

// AuctionConfig tunes the specialist coordinator.
type AuctionConfig struct {
	// Timeout is the shared completion deadline for one auction.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=1s"`
}

// GateConfig tunes the quality gate and revision loop.
type GateConfig struct {
	// RiskThreshold is the risk score at or above which artifacts cannot be
	// auto-approved.
	RiskThreshold float64 `mapstructure:"risk_threshold" yaml:"risk_threshold" validate:"gt=0,lte=1"`

	// MaxRevisions bounds rejected-artifact resubmissions before escalation.
	MaxRevisions int `mapstructure:"max_revisions" yaml:"max_revisions" validate:"min=0,max=10"`
}

// ServerConfig contains the HTTP API listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Address returns the host:port listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}
