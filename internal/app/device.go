package app

import (
	"context"
	"errors"
	"time"

	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/internal/ports"
	"github.com/bft-labs/faderlink/pkg/log"
)

// WaitForDevice polls opener every poll interval until ports matching
// pattern can be opened or ctx is done.
func WaitForDevice(ctx context.Context, opener ports.DeviceOpener, pattern string, poll time.Duration, logger log.Logger) (ports.MessageReceiver, ports.MessageTransmitter, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	logged := false
	for {
		rx, tx, err := opener.Open(pattern)
		if err == nil {
			logger.Info("device connected", log.String("pattern", pattern))
			return rx, tx, nil
		}
		if !errors.Is(err, domain.ErrDeviceNotFound) {
			return nil, nil, err
		}
		if !logged {
			logger.Info("waiting for device", log.String("pattern", pattern), log.Duration("poll", poll))
			logged = true
		}

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(poll):
		}
	}
}
