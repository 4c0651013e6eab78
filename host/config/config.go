// Package config loads the host tool configuration: the link to the board,
// optional telemetry publishing, and named waveform profiles.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gopulse/core"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Device    DeviceConfig       `yaml:"device"`
	Telemetry TelemetryConfig    `yaml:"telemetry"`
	Profiles  map[string]Profile `yaml:"profiles"`
}

// DeviceConfig selects the serial link to the board.
type DeviceConfig struct {
	// Port is a device path or "tcp:host:port" for a simulator
	Port      string `yaml:"port"`
	Baud      int    `yaml:"baud"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// TelemetryConfig configures periodic readback publishing over MQTT.
// An empty broker disables telemetry.
type TelemetryConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	IntervalMs  int    `yaml:"interval_ms"`
}

// Profile is a named waveform setting applied as a unit.
type Profile struct {
	// FastUS is the pulse width in microseconds
	FastUS uint16 `yaml:"fast_us"`
	// SlowMS is the cycle period in milliseconds
	SlowMS uint16 `yaml:"slow_ms"`
	// Flags is stored with the periods and echoed by readback
	Flags uint8 `yaml:"flags"`
	// Cycles is the run target passed to START; zero runs until stopped
	Cycles uint16 `yaml:"cycles"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Port:      "/dev/ttyACM0",
			Baud:      115200,
			TimeoutMs: 100,
		},
		Telemetry: TelemetryConfig{
			TopicPrefix: "gopulse",
			IntervalMs:  1000,
		},
		Profiles: map[string]Profile{},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the firmware would silently clamp. The firmware
// accepts anything; validation here is so a typo in a profile fails loudly
// instead of quietly running at a clamped period.
func (c *Config) Validate() error {
	for name, p := range c.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

// Validate checks a profile against the firmware's accepted ranges.
func (p Profile) Validate() error {
	if p.FastUS < core.FastPeriodMinUS || p.FastUS > core.FastPeriodMaxUS {
		return fmt.Errorf("fast_us %d out of range [%d, %d]",
			p.FastUS, core.FastPeriodMinUS, core.FastPeriodMaxUS)
	}
	if p.SlowMS < core.SlowPeriodMinMS || p.SlowMS > core.SlowPeriodMaxMS {
		return fmt.Errorf("slow_ms %d out of range [%d, %d]",
			p.SlowMS, core.SlowPeriodMinMS, core.SlowPeriodMaxMS)
	}
	return nil
}
