package gomidi

import (
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/bft-labs/faderlink/internal/domain"
)

// Transmitter implements ports.MessageTransmitter for a gomidi output port.
type Transmitter struct {
	out  drivers.Out
	send func(midi.Message) error

	mu     sync.Mutex
	closed bool
}

// NewTransmitter opens out for sending.
func NewTransmitter(out drivers.Out) (*Transmitter, error) {
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("send to %s: %w", out.String(), err)
	}
	return &Transmitter{out: out, send: send}, nil
}

// Transmit writes msg to the port.
func (t *Transmitter) Transmit(msg domain.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return domain.ErrTransportClosed
	}
	if err := t.send(toMIDI(msg)); err != nil {
		if !t.out.IsOpen() {
			return fmt.Errorf("%w: %v", domain.ErrTransportClosed, err)
		}
		return err
	}
	return nil
}

// Close closes the port.
func (t *Transmitter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.out.Close()
}
