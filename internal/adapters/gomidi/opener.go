package gomidi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/internal/ports"
	"github.com/bft-labs/faderlink/pkg/log"
)

// DefaultSysExBufferSize fits the largest Kronos parameter dumps we request.
const DefaultSysExBufferSize = 2048

// Opener implements ports.DeviceOpener using the registered gomidi driver.
type Opener struct {
	logger          log.Logger
	sysExBufferSize int
}

// NewOpener creates an opener. A non-positive buffer size selects
// DefaultSysExBufferSize.
func NewOpener(logger log.Logger, sysExBufferSize int) *Opener {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if sysExBufferSize <= 0 {
		sysExBufferSize = DefaultSysExBufferSize
	}
	return &Opener{logger: logger, sysExBufferSize: sysExBufferSize}
}

// ListPorts returns the available port names.
func (o *Opener) ListPorts() ([]string, []string, error) {
	var ins, outs []string
	for _, in := range midi.GetInPorts() {
		ins = append(ins, in.String())
	}
	for _, out := range midi.GetOutPorts() {
		outs = append(outs, out.String())
	}
	return ins, outs, nil
}

// Open opens the first input and output whose names contain pattern.
func (o *Opener) Open(pattern string) (ports.MessageReceiver, ports.MessageTransmitter, error) {
	var in drivers.In
	for _, p := range midi.GetInPorts() {
		if matches(p.String(), pattern) {
			in = p
			break
		}
	}
	var out drivers.Out
	for _, p := range midi.GetOutPorts() {
		if matches(p.String(), pattern) {
			out = p
			break
		}
	}
	if in == nil || out == nil {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrDeviceNotFound, pattern)
	}

	rx, err := NewReceiver(in, o.sysExBufferSize, o.logger)
	if err != nil {
		return nil, nil, err
	}
	tx, err := NewTransmitter(out)
	if err != nil {
		_ = rx.Close()
		return nil, nil, err
	}

	o.logger.Info("opened ports", log.String("in", in.String()), log.String("out", out.String()))
	return rx, tx, nil
}

// CloseDriver releases the gomidi driver. Call once at program exit.
func CloseDriver() {
	midi.CloseDriver()
}
