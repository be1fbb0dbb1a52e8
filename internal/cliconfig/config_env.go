package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (FADERLINK_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device", os.Getenv("FADERLINK_DEVICE"), &cfg.Device)
	s.setString("log-level", os.Getenv("FADERLINK_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-backend", os.Getenv("FADERLINK_LOG_BACKEND"), &cfg.LogBackend)
	s.setString("capture-file", os.Getenv("FADERLINK_CAPTURE_FILE"), &cfg.CaptureFile)

	if err := s.setDuration("poll", os.Getenv("FADERLINK_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("FADERLINK_REQUEST_TIMEOUT"), &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("FADERLINK_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-min", os.Getenv("FADERLINK_RECONNECT_MIN"), &cfg.ReconnectMin); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-max", os.Getenv("FADERLINK_RECONNECT_MAX"), &cfg.ReconnectMax); err != nil {
		return err
	}

	if err := s.setIntFromString("sysex-buffer", os.Getenv("FADERLINK_SYSEX_BUFFER_SIZE"), &cfg.SysExBufferSize); err != nil {
		return err
	}
	s.setBoolFromString("table", os.Getenv("FADERLINK_TABLE"), &cfg.Table)

	return nil
}
