// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the gateway configuration, loaded via Viper from an
// optional file with BRIDGE_* environment overrides.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Card     CardConfig     `mapstructure:"card"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	ReadTimeoutSeconds     int    `mapstructure:"read_timeout_seconds"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// TemporalConfig locates the durable-execution engine.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// CardConfig fills the served agent card.
type CardConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	URL         string `mapstructure:"url"`
	Version     string `mapstructure:"version"`
}

// StreamConfig paces the push and fallback paths.
type StreamConfig struct {
	IdleTimeoutSeconds  int `mapstructure:"idle_timeout_seconds"`
	PollIntervalMs      int `mapstructure:"poll_interval_ms"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
}

// LoggingConfig controls the zap logger of the gateway binary.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IdleTimeout returns the session idle timeout as a duration.
func (c StreamConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// PollInterval returns the fallback poll interval as a duration.
func (c StreamConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// WriteTimeout returns the per-event SSE write deadline as a duration.
func (c StreamConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// Load builds a Config from an optional file path and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "agent-tasks")
	v.SetDefault("card.name", "Bridge Gateway")
	v.SetDefault("card.description", "Relays task progress as A2A wire events.")
	v.SetDefault("card.url", "http://localhost:8080")
	v.SetDefault("card.version", "0.1.0")
	v.SetDefault("stream.idle_timeout_seconds", 120)
	v.SetDefault("stream.poll_interval_ms", 500)
	v.SetDefault("stream.write_timeout_seconds", 10)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Temporal.HostPort == "" {
		return fmt.Errorf("temporal.host_port cannot be empty")
	}
	if c.Temporal.TaskQueue == "" {
		return fmt.Errorf("temporal.task_queue cannot be empty")
	}
	if c.Stream.PollIntervalMs <= 0 {
		return fmt.Errorf("stream.poll_interval_ms must be > 0")
	}
	if c.Stream.WriteTimeoutSeconds <= 0 {
		return fmt.Errorf("stream.write_timeout_seconds must be > 0")
	}
	return nil
}
