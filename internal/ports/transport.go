package ports

import (
	"context"

	"github.com/bft-labs/faderlink/internal/domain"
)

// MessageReceiver delivers inbound messages in arrival order.
type MessageReceiver interface {
	// Receive blocks until a message arrives, ctx is done or the port
	// closes. A closed port is reported as domain.ErrTransportClosed.
	Receive(ctx context.Context) (domain.Message, error)

	// Close releases the port. Pending and later Receive calls return
	// domain.ErrTransportClosed. Close is safe to call more than once.
	Close() error
}

// MessageTransmitter writes messages to the device.
type MessageTransmitter interface {
	// Transmit sends one message. A closed port is reported as
	// domain.ErrTransportClosed.
	Transmit(msg domain.Message) error

	// Close releases the port. Close is safe to call more than once.
	Close() error
}

// DeviceOpener finds and opens the device's ports.
type DeviceOpener interface {
	// ListPorts returns the names of the available input and output ports.
	ListPorts() (ins, outs []string, err error)

	// Open opens the first input and output port whose name contains
	// pattern (case-insensitive). Returns domain.ErrDeviceNotFound when
	// either side is missing.
	Open(pattern string) (MessageReceiver, MessageTransmitter, error)
}
