// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Navigation NavigationConfig `mapstructure:"navigation" yaml:"navigation"`
	Network    NetworkConfig    `mapstructure:"network" yaml:"network"`
	Bus        BusConfig        `mapstructure:"bus" yaml:"bus"`
	Visual     VisualConfig     `mapstructure:"visual" yaml:"visual"`
	Events     EventsConfig     `mapstructure:"events" yaml:"events"`
	Recording  RecordingConfig  `mapstructure:"recording" yaml:"recording"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig binds the remote API facade.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr returns the host:port bind address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NavigationConfig tunes URL parsing and per-tab history.
type NavigationConfig struct {
	// SearchEngine is the fallback template; it must contain the literal {}
	// placeholder for the encoded query.
	SearchEngine    string `mapstructure:"search_engine" yaml:"search_engine"`
	HistoryCapacity int    `mapstructure:"history_capacity" yaml:"history_capacity"`
}

// NetworkConfig tunes the network monitor.
type NetworkConfig struct {
	MaxHistory int `mapstructure:"max_history" yaml:"max_history"`
}

// BusConfig tunes the command/event broadcast channel.
type BusConfig struct {
	// SubscriberBuffer is the per-subscriber ring capacity; slower consumers
	// lose the oldest messages beyond it.
	SubscriberBuffer int `mapstructure:"subscriber_buffer" yaml:"subscriber_buffer"`
}

// VisualConfig locates the baseline store.
type VisualConfig struct {
	BaselineDir string `mapstructure:"baseline_dir" yaml:"baseline_dir"`
}

// EventsConfig configures the external MQTT publisher. TestMode short-circuits
// connect/publish so tests never touch the network.
type EventsConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	TestMode bool   `mapstructure:"test_mode" yaml:"test_mode"`
}

// RecordingConfig controls command-level session recording.
type RecordingConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	File    string `mapstructure:"file" yaml:"file"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "tinker")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3003)

	// -- Navigation --
	v.SetDefault("navigation.search_engine", "https://www.google.com/search?q={}")
	v.SetDefault("navigation.history_capacity", 100)

	// -- Network --
	v.SetDefault("network.max_history", 1000)

	// -- Bus --
	v.SetDefault("bus.subscriber_buffer", 128)

	// -- Visual --
	v.SetDefault("visual.baseline_dir", "screenshots")

	// -- Events --
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.host", "localhost")
	v.SetDefault("events.port", 1883)
	v.SetDefault("events.client_id", "tinker-browser")
	v.SetDefault("events.test_mode", false)

	// -- Recording --
	v.SetDefault("recording.enabled", false)
	v.SetDefault("recording.file", "")
}

// NewDefaultConfig creates a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults alone.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	applyEnvOverrides(&cfg)
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides honors the TINKER_* environment contract, which predates
// the config file and is what test harnesses set.
func applyEnvOverrides(cfg *Config) {
	if os.Getenv("TINKER_TEST_MODE") == "1" {
		cfg.Events.TestMode = true
	}
	if host := os.Getenv("TINKER_MQTT_HOST"); host != "" {
		cfg.Events.Host = host
	}
	if port := os.Getenv("TINKER_MQTT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Events.Port = p
		}
	}
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535")
	}
	if !strings.Contains(c.Navigation.SearchEngine, "{}") {
		return fmt.Errorf("navigation.search_engine must contain the {} placeholder")
	}
	if c.Navigation.HistoryCapacity <= 0 {
		return fmt.Errorf("navigation.history_capacity must be a positive integer")
	}
	if c.Network.MaxHistory <= 0 {
		return fmt.Errorf("network.max_history must be a positive integer")
	}
	if c.Bus.SubscriberBuffer <= 0 {
		return fmt.Errorf("bus.subscriber_buffer must be a positive integer")
	}
	if c.Visual.BaselineDir == "" {
		return fmt.Errorf("visual.baseline_dir is required")
	}
	if c.Recording.Enabled && c.Recording.File == "" {
		return fmt.Errorf("recording.file is required when recording is enabled")
	}
	return nil
}
