package gomidi

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/pkg/log"
)

// Receiver implements ports.MessageReceiver for a gomidi input port.
type Receiver struct {
	in     drivers.In
	logger log.Logger
	stop   func()

	msgs   chan domain.Message
	closed chan struct{}

	signalOnce  sync.Once
	releaseOnce sync.Once

	mu  sync.Mutex
	err error
}

// NewReceiver opens in and starts listening with sysex enabled.
func NewReceiver(in drivers.In, sysExBufferSize int, logger log.Logger) (*Receiver, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	r := &Receiver{
		in:     in,
		logger: logger,
		msgs:   make(chan domain.Message, 256),
		closed: make(chan struct{}),
	}

	stop, err := midi.ListenTo(in, r.deliver,
		midi.UseSysEx(),
		midi.SysExBufferSize(uint32(sysExBufferSize)),
		midi.HandleError(r.fail),
	)
	if err != nil {
		return nil, fmt.Errorf("listen to %s: %w", in.String(), err)
	}
	r.stop = stop
	return r, nil
}

func (r *Receiver) deliver(msg midi.Message, _ int32) {
	m, err := fromMIDI(msg)
	if err != nil {
		r.logger.Debug("dropping unparsable input", log.Bytes("data", msg.Bytes()), log.Err(err))
		return
	}
	// Block rather than drop so ordering and completeness hold.
	select {
	case r.msgs <- m:
	case <-r.closed:
	}
}

func (r *Receiver) fail(err error) {
	r.logger.Error("midi input error", log.String("port", r.in.String()), log.Err(err))
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
	r.signalOnce.Do(func() { close(r.closed) })
}

// Receive returns the next inbound message.
func (r *Receiver) Receive(ctx context.Context) (domain.Message, error) {
	select {
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	case m := <-r.msgs:
		return m, nil
	case <-r.closed:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrTransportClosed, r.err)
	}
	return domain.Message{}, domain.ErrTransportClosed
}

// Close stops listening and closes the port.
func (r *Receiver) Close() error {
	r.signalOnce.Do(func() { close(r.closed) })

	var err error
	r.releaseOnce.Do(func() {
		if r.stop != nil {
			r.stop()
		}
		err = r.in.Close()
	})
	return err
}
