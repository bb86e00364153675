// Package config loads the probe configuration.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gosniff/core"
	"gosniff/protocol"
)

// ProbeConfig is the JSON configuration of a host-run probe.
// Durations are in milliseconds.
type ProbeConfig struct {
	Device string `json:"device"`
	Baud   int    `json:"baud"`

	PoolSize int `json:"pool_size"`

	DwellMS  int `json:"dwell_ms"`
	RescanMS int `json:"rescan_ms"`

	ReadTimeoutMS      int `json:"read_timeout_ms"`
	DelimiterTimeoutMS int `json:"delimiter_timeout_ms"`
	FrameTimeoutMS     int `json:"frame_timeout_ms"`
	ResponseTimeoutMS  int `json:"response_timeout_ms"`

	LogLevel        string `json:"log_level"`
	StatsIntervalMS int    `json:"stats_interval_ms"` // 0 disables periodic stats

	Sim SimConfig `json:"sim"`
}

// SimConfig configures the simulated radio
type SimConfig struct {
	FramesPerSecond int      `json:"frames_per_second"`
	SSIDs           []string `json:"ssids"`
	Seed            int64    `json:"seed"`
}

// LoadConfig parses a JSON configuration string and returns a ProbeConfig
func LoadConfig(jsonData []byte) (*ProbeConfig, error) {
	var config ProbeConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *ProbeConfig) {
	if config.Baud == 0 {
		config.Baud = 115200
	}
	if config.PoolSize == 0 {
		config.PoolSize = protocol.PoolSize
	}

	// Scan timing
	if config.DwellMS == 0 {
		config.DwellMS = int(core.DefaultDwell / time.Millisecond)
	}
	if config.RescanMS == 0 {
		config.RescanMS = int(core.DefaultRescan / time.Millisecond)
	}

	// Link timeouts
	if config.ReadTimeoutMS == 0 {
		config.ReadTimeoutMS = int(protocol.ReadTimeout / time.Millisecond)
	}
	if config.DelimiterTimeoutMS == 0 {
		config.DelimiterTimeoutMS = int(protocol.DelimiterTimeout / time.Millisecond)
	}
	if config.FrameTimeoutMS == 0 {
		config.FrameTimeoutMS = int(protocol.FrameTimeout / time.Millisecond)
	}
	if config.ResponseTimeoutMS == 0 {
		config.ResponseTimeoutMS = int(protocol.ResponseTimeout / time.Millisecond)
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	// Simulated radio
	if config.Sim.FramesPerSecond == 0 {
		config.Sim.FramesPerSecond = 50
	}
	if len(config.Sim.SSIDs) == 0 {
		config.Sim.SSIDs = []string{"HomeNet", "CoffeeShop-Guest", "flock-cam-2231"}
	}
}

// Validate checks values that have no sensible fallback
func (c *ProbeConfig) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("pool_size must be positive, got %d", c.PoolSize)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	for _, ssid := range c.Sim.SSIDs {
		if len(ssid) > 32 {
			return fmt.Errorf("sim ssid %q longer than 32 bytes", ssid)
		}
	}
	return nil
}

// Level returns the configured log level
func (c *ProbeConfig) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// CoreConfig converts the configuration into probe runtime settings
func (c *ProbeConfig) CoreConfig(log *zerolog.Logger) core.Config {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return core.Config{
		PoolSize:         c.PoolSize,
		Dwell:            ms(c.DwellMS),
		Rescan:           ms(c.RescanMS),
		ReadTimeout:      ms(c.ReadTimeoutMS),
		DelimiterTimeout: ms(c.DelimiterTimeoutMS),
		FrameTimeout:     ms(c.FrameTimeoutMS),
		ResponseTimeout:  ms(c.ResponseTimeoutMS),
		Logger:           log,
	}
}

// DefaultProbeConfig returns the configuration used when no file is given
func DefaultProbeConfig() *ProbeConfig {
	config := &ProbeConfig{}
	applyDefaults(config)
	return config
}
