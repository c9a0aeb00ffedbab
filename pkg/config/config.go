// Package config loads tracebroker's static configuration: logging,
// telemetry/profiling of the broker process itself, server and session
// defaults, and metrics. Adapted from dittofs's pkg/config — viper layered
// over a YAML file and TRACEBROKER_-prefixed environment variables, decoded
// with mapstructure, and validated with struct tags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/tracebroker/internal/logger"
	"github.com/marmos91/tracebroker/internal/session"
	"github.com/marmos91/tracebroker/internal/telemetry"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is tracebroker's top-level configuration.
//
// Sources, in order of precedence:
//  1. Environment variables (TRACEBROKER_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	Logging   logger.Config              `mapstructure:"logging" yaml:"logging"`
	Telemetry telemetry.Config           `mapstructure:"telemetry" yaml:"telemetry"`
	Profiling telemetry.ProfilingConfig  `mapstructure:"profiling" yaml:"profiling"`
	Server    ServerConfig               `mapstructure:"server" yaml:"server"`
	Session   SessionDefaultsConfig      `mapstructure:"session" yaml:"session"`
	Metrics   MetricsConfig              `mapstructure:"metrics" yaml:"metrics"`
	DataDir   string                     `mapstructure:"data_dir" validate:"required" yaml:"data_dir"`
}

// ServerConfig controls the broker's command-loop behavior (spec.md §4.9,
// §4.10).
type ServerConfig struct {
	// ListenDefaultPort is the port for a `connect` address with no explicit
	// port. It is defaulted and validated here only: pkg/server does not read
	// it and appends its own DefaultPort constant ("4026").
	ListenDefaultPort int `mapstructure:"listen_default_port" validate:"omitempty,min=1,max=65535" yaml:"listen_default_port"`

	// CommandChannelCapacity is the bound for the operator-command channel
	// (spec.md §4.10). pkg/server does not read it; its channel is sized by
	// its own CommandChannelCapacity constant (4).
	CommandChannelCapacity int `mapstructure:"command_channel_capacity" validate:"omitempty,min=1" yaml:"command_channel_capacity"`

	// ShutdownTimeout is how long Stop waits for connected clients to drain.
	// pkg/server does not read it; its shutdown waits a fixed 30 seconds.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// SessionDefaultsConfig seeds session.Config for newly connected clients,
// and is broadcast to already-running ones by a `config` operator command
// (spec.md §9's config-propagation resolution).
type SessionDefaultsConfig struct {
	MaxFDCount int `mapstructure:"max_fd_count" validate:"omitempty,min=1" yaml:"max_fd_count"`

	// Inheritance is a tri-state pointer (nil = unset) the same way
	// dittofs's api.APIConfig.Enabled is, because its default (true) is
	// the opposite of bool's zero value: ApplyDefaults can't otherwise
	// tell "not in the config file" from "set to false".
	Inheritance *bool `mapstructure:"inheritance" yaml:"inheritance"`

	RefreshIntervalMS int64         `mapstructure:"refresh_interval_ms" validate:"omitempty,min=0" yaml:"refresh_interval_ms"`
	ConnectRetries    int           `mapstructure:"connect_retries" validate:"omitempty,min=0" yaml:"connect_retries"`
	ConnectBackoff    time.Duration `mapstructure:"connect_backoff" yaml:"connect_backoff"`
	EnableWALIndex    bool          `mapstructure:"enable_wal_index" yaml:"enable_wal_index"`
}

// ToSessionConfig converts the loaded defaults into the session.Config new
// clients (and `config`-broadcast running ones) receive.
func (c SessionDefaultsConfig) ToSessionConfig() session.Config {
	inheritance := true
	if c.Inheritance != nil {
		inheritance = *c.Inheritance
	}
	return session.Config{
		MaxFDCount:        c.MaxFDCount,
		Inheritance:       inheritance,
		RefreshIntervalMS: c.RefreshIntervalMS,
		EnableWALIndex:    c.EnableWALIndex,
		ConnectRetries:    c.ConnectRetries,
		ConnectBackoff:    c.ConnectBackoff,
	}
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load reads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := DefaultConfig()
		return &cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning an operator-friendly error if no
// config file exists at the default location and none was specified.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at %s\n\nrun `tracebroker init` first, or pass --config", GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("TRACEBROKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

// durationDecodeHook lets YAML/env express durations as "30s"/"5m" strings.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tracebroker")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "tracebroker")
}

// GetConfigDir returns the configuration directory (exposed for `init`).
func GetConfigDir() string {
	return getConfigDir()
}

// GetDefaultConfigPath returns the default config file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
