package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bft-labs/faderlink/internal/domain"
)

// Wait is a registered rendezvous for the first inbound sysex message whose
// payload starts with Tag. It is resolved exactly once.
type Wait struct {
	tag  []byte
	done chan struct{}

	// written once before done is closed
	result domain.Message
	err    error

	listener *Listener
}

func newWait(l *Listener, tag []byte) *Wait {
	return &Wait{
		tag:      append([]byte(nil), tag...),
		done:     make(chan struct{}),
		listener: l,
	}
}

// Tag returns the payload prefix being waited for.
func (w *Wait) Tag() []byte {
	return append([]byte(nil), w.tag...)
}

// Done is closed once the wait is resolved.
func (w *Wait) Done() <-chan struct{} {
	return w.done
}

// Result returns the outcome. It is only meaningful after Done is closed.
func (w *Wait) Result() (domain.Message, error) {
	return w.result, w.err
}

// Await blocks until the wait resolves or ctx is done. An expired deadline
// is reported as domain.ErrTimeout and a cancellation as domain.ErrAborted;
// in both cases the wait slot is released. A listener failure that resolved
// the wait first is returned unchanged.
func (w *Wait) Await(ctx context.Context) (domain.Message, error) {
	select {
	case <-w.done:
		return w.result, w.err
	case <-ctx.Done():
	}

	w.listener.Release(w)

	// The receive loop may have won the race.
	<-w.done
	if w.err == nil {
		return w.result, nil
	}
	if !errors.Is(w.err, domain.ErrAborted) {
		return domain.Message{}, w.err
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Message{}, fmt.Errorf("%w: tag % X", domain.ErrTimeout, w.tag)
	}
	return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrAborted, ctx.Err())
}

// resolve must be called with the listener's mutex held, after the wait was
// removed from the pending slot.
func (w *Wait) resolve(msg domain.Message, err error) {
	w.result = msg
	w.err = err
	close(w.done)
}
