// Package faderlink talks to a Korg Kronos over MIDI system exclusive
// messages: it tracks fader positions reported by the device, moves faders,
// and runs request/reply exchanges such as mode queries.
//
// Example usage:
//
//	cfg := faderlink.DefaultConfig()
//	logger, err := faderlink.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s, err := faderlink.Connect(ctx, cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Stop(cfg.ShutdownTimeout)
//	mode, err := s.Coordinator().GetMode(ctx)
package faderlink

import (
	"context"
	"fmt"

	"github.com/bft-labs/faderlink/internal/adapters/gomidi"
	"github.com/bft-labs/faderlink/internal/app"
	"github.com/bft-labs/faderlink/internal/cliconfig"
	"github.com/bft-labs/faderlink/internal/fader"
	"github.com/bft-labs/faderlink/internal/ports"
	"github.com/bft-labs/faderlink/pkg/lifecycle"
	"github.com/bft-labs/faderlink/pkg/log"
)

// Version is the faderlink release.
const Version = "0.3.0"

// Config holds the configuration for a device session.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// Session is a running listener and sender pair on one device.
type Session = app.Session

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// NewLogger builds the logger selected by cfg.LogBackend at cfg.LogLevel.
func NewLogger(cfg Config) (log.Logger, error) {
	switch cfg.LogBackend {
	case cliconfig.LogBackendZap:
		z, err := log.NewZapAdapter(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		return z, nil
	case cliconfig.LogBackendZerolog, "":
		return log.NewZerologAdapter().WithLevel(cfg.LogLevel), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", cfg.LogBackend)
	}
}

// Connect waits for a device whose port names contain cfg.Device, then
// starts a session on it with the default fader table. It blocks until the
// device appears or ctx is done.
func Connect(ctx context.Context, cfg Config, logger log.Logger, opts ...app.SessionOption) (*Session, error) {
	return ConnectWith(ctx, gomidi.NewOpener(logger, cfg.SysExBufferSize), cfg, logger, opts...)
}

// ConnectWith is Connect using an explicit device opener.
func ConnectWith(ctx context.Context, opener ports.DeviceOpener, cfg Config, logger log.Logger, opts ...app.SessionOption) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	rx, tx, err := app.WaitForDevice(ctx, opener, cfg.Device, cfg.PollInterval, logger)
	if err != nil {
		return nil, err
	}

	opts = append([]app.SessionOption{app.WithRequestTimeout(cfg.RequestTimeout)}, opts...)
	s := app.NewSession(rx, tx, fader.NewDefaultRegistry(), logger, opts...)
	if err := s.Start(ctx); err != nil {
		_ = s.Stop(cfg.ShutdownTimeout)
		return nil, err
	}
	return s, nil
}

// ModuleVersions returns the versions of the public sub-modules.
func ModuleVersions() map[string]string {
	return map[string]string{
		"faderlink": Version,
		"log":       log.Version,
		"lifecycle": lifecycle.Version,
	}
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"log":       {log.Version, log.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}

	return nil
}

// isVersionCompatible checks if version >= minVersion.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
