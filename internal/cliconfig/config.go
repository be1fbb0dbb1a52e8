package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/faderlink/internal/domain"
)

// Supported log backends.
const (
	LogBackendZerolog = "zerolog"
	LogBackendZap     = "zap"
)

// Config holds CLI configuration for faderlink.
type Config struct {
	// Device is matched case-insensitively against MIDI port names.
	Device string

	PollInterval    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	ReconnectMin    time.Duration
	ReconnectMax    time.Duration

	LogLevel   string
	LogBackend string

	CaptureFile     string
	SysExBufferSize int
	Table           bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Device:          "kronos",
		PollInterval:    100 * time.Millisecond,
		RequestTimeout:  5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		ReconnectMin:    500 * time.Millisecond,
		ReconnectMax:    10 * time.Second,
		LogLevel:        "info",
		LogBackend:      LogBackendZerolog,
		SysExBufferSize: 2048,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("%w: device is required", domain.ErrInvalidConfig)
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"poll interval", c.PollInterval},
		{"request timeout", c.RequestTimeout},
		{"shutdown timeout", c.ShutdownTimeout},
		{"reconnect min", c.ReconnectMin},
		{"reconnect max", c.ReconnectMax},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidConfig, d.name)
		}
	}
	if c.ReconnectMax < c.ReconnectMin {
		return fmt.Errorf("%w: reconnect max below reconnect min", domain.ErrInvalidConfig)
	}

	switch c.LogBackend {
	case LogBackendZerolog, LogBackendZap:
	default:
		return fmt.Errorf("%w: unknown log backend %q", domain.ErrInvalidConfig, c.LogBackend)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", domain.ErrInvalidConfig, c.LogLevel)
	}

	if c.SysExBufferSize <= 0 {
		return fmt.Errorf("%w: sysex buffer size must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
