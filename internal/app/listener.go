package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/faderlink/internal/codec"
	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/internal/fader"
	"github.com/bft-labs/faderlink/internal/ports"
	"github.com/bft-labs/faderlink/internal/protocol"
	"github.com/bft-labs/faderlink/pkg/lifecycle"
	"github.com/bft-labs/faderlink/pkg/log"
)

// Observer is notified of every message a worker receives or transmits.
// It runs on the worker goroutine and must not block.
type Observer func(msg domain.Message)

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithListenerEmitter registers a lifecycle event emitter.
func WithListenerEmitter(e lifecycle.EventEmitter) ListenerOption {
	return func(l *Listener) { l.emitter = e }
}

// WithReceiveObserver registers an observer for inbound messages.
func WithReceiveObserver(o Observer) ListenerOption {
	return func(l *Listener) { l.observers = append(l.observers, o) }
}

// DiffEntry is one payload position where recorded messages differ.
type DiffEntry struct {
	Index  int
	Values []byte
}

// Listener owns the inbound stream. It applies fader updates to the
// registry and resolves the pending Wait, if any.
type Listener struct {
	name      string
	rx        ports.MessageReceiver
	registry  *fader.Registry
	logger    log.Logger
	emitter   lifecycle.EventEmitter
	observers []Observer
	lc        *lifecycle.DefaultManager

	runMu   sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	mu            sync.Mutex
	pending       *Wait
	last          *domain.Message
	recorded      map[string]domain.Message
	controlAssign int
	err           error
}

// NewListener creates an idle listener reading from rx.
func NewListener(name string, rx ports.MessageReceiver, registry *fader.Registry, logger log.Logger, opts ...ListenerOption) *Listener {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	l := &Listener{
		name:          name,
		rx:            rx,
		registry:      registry,
		logger:        logger,
		done:          make(chan struct{}),
		recorded:      make(map[string]domain.Message),
		controlAssign: -1,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lc = lifecycle.NewManager(name, logger, l.emitter)
	return l
}

// Name returns the worker name.
func (l *Listener) Name() string { return l.name }

// State returns the lifecycle state.
func (l *Listener) State() lifecycle.State { return l.lc.State() }

// Done is closed when the receive loop has exited and the port is released.
func (l *Listener) Done() <-chan struct{} { return l.done }

// Err returns the error that crashed the listener, if any.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Start launches the receive loop.
func (l *Listener) Start(ctx context.Context) error {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	if err := l.lc.TransitionTo(lifecycle.StateRunning, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.started = true

	l.lc.AddWorker()
	go l.run(runCtx)
	return nil
}

// Stop ends the receive loop and aborts the pending wait. It returns false
// if the listener was already stopped.
func (l *Listener) Stop() bool {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	if err := l.lc.TransitionTo(lifecycle.StateStopped, "Stop() called"); err != nil {
		l.logger.Info("listener already stopped", log.String("worker", l.name))
		return false
	}

	l.abortPending(domain.ErrAborted)

	if l.started {
		l.cancel()
	} else {
		if err := l.rx.Close(); err != nil {
			l.logger.Warn("close input", log.String("worker", l.name), log.Err(err))
		}
		close(l.done)
	}
	return true
}

// Wait blocks until the receive loop has exited or timeout expires.
func (l *Listener) Wait(timeout time.Duration) error {
	return l.lc.WaitWithTimeout(timeout)
}

func (l *Listener) run(ctx context.Context) {
	defer l.lc.WorkerDone()
	defer close(l.done)
	defer func() {
		if err := l.rx.Close(); err != nil {
			l.logger.Warn("close input", log.String("worker", l.name), log.Err(err))
		}
	}()

	l.logger.Info("listener started", log.String("worker", l.name))

	for {
		msg, err := l.rx.Receive(ctx)
		if err != nil {
			l.finish(ctx, err)
			return
		}
		l.handle(msg)
	}
}

func (l *Listener) finish(ctx context.Context, err error) {
	if ctx.Err() != nil {
		// Stop() or parent cancellation.
		_ = l.lc.TransitionTo(lifecycle.StateStopped, "context done")
		l.abortPending(domain.ErrAborted)
		l.logger.Info("listener stopped", log.String("worker", l.name))
		return
	}

	if !errors.Is(err, domain.ErrTransportClosed) {
		err = fmt.Errorf("%w: %v", domain.ErrTransportClosed, err)
	}
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()

	l.logger.Error("listener input failed", log.String("worker", l.name), log.Err(err))
	// Transition first so no new wait can register on a dead loop.
	_ = l.lc.TransitionTo(lifecycle.StateCrashed, err.Error())
	l.abortPending(err)
}

func (l *Listener) handle(msg domain.Message) {
	if msg.Kind != domain.KindClock {
		l.logger.Debug("listener received",
			log.String("worker", l.name),
			log.String("kind", msg.Kind.String()),
			log.Bytes("data", msg.Data),
		)
		l.mu.Lock()
		l.last = &msg
		l.mu.Unlock()
	}

	for _, o := range l.observers {
		o(msg)
	}

	switch msg.Kind {
	case domain.KindSysEx:
		l.resolvePending(msg)
		switch {
		case msg.HasPrefix(protocol.ControlAssignPrefix):
			l.applyControlAssign(msg)
		case msg.HasPrefix(protocol.FaderPrefix):
			l.applyFaderUpdate(msg)
		}
	case domain.KindProgramChange:
		l.logger.Info("program changed", log.String("worker", l.name), log.Bytes("data", msg.Data))
	}
}

func (l *Listener) resolvePending(msg domain.Message) {
	l.mu.Lock()
	w := l.pending
	if w == nil || !bytes.HasPrefix(msg.Data, w.tag) {
		l.mu.Unlock()
		return
	}
	l.pending = nil
	w.resolve(msg, nil)
	l.mu.Unlock()

	l.logger.Debug("wait resolved", log.String("worker", l.name), log.Bytes("tag", w.tag))
}

func (l *Listener) applyControlAssign(msg domain.Message) {
	if len(msg.Data) <= protocol.ControlAssignValueIndex {
		l.logger.Debug("discarding short control assign", log.Bytes("data", msg.Data))
		return
	}
	v := int(msg.Data[protocol.ControlAssignValueIndex])

	l.mu.Lock()
	l.controlAssign = v
	l.mu.Unlock()

	l.logger.Info("changed to control assign", log.String("worker", l.name), log.Int("value", v))
}

func (l *Listener) applyFaderUpdate(msg domain.Message) {
	addr, value, err := decodeFaderUpdate(msg.Data)
	if err != nil {
		if errors.Is(err, domain.ErrDecode) {
			l.logger.Debug("discarding malformed fader update", log.Bytes("data", msg.Data), log.Err(err))
			return
		}
		l.logger.Error("fader update", log.Bytes("data", msg.Data), log.Err(err))
		return
	}

	if !l.registry.SetValue(addr, value) {
		l.logger.Debug("fader update for unknown address", log.Int("address", int(addr)))
		return
	}
	l.logger.Debug("fader updated", log.Int("address", int(addr)), log.Int("value", value))
}

// decodeFaderUpdate reads the address and value group of an update. A
// truncated update carrying only a two-byte group is still decoded.
func decodeFaderUpdate(data []byte) (byte, int, error) {
	if len(data) < protocol.UpdateValueStart+2 {
		return 0, 0, fmt.Errorf("%w: fader update of %d bytes", domain.ErrDecode, len(data))
	}
	value, err := codec.Decode(data[protocol.UpdateValueStart:min(protocol.UpdateValueEnd, len(data))])
	if err != nil {
		return 0, 0, err
	}
	return data[protocol.UpdateAddressIndex], value, nil
}

// WaitFor registers a wait for the next sysex message whose payload starts
// with tag. Only one wait may be pending; a second registration fails with
// domain.ErrWaitSlotBusy and leaves the first untouched.
func (l *Listener) WaitFor(tag []byte) (*Wait, error) {
	if len(tag) == 0 {
		return nil, fmt.Errorf("%w: empty wait tag", domain.ErrInvalidMessage)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.lc.State() {
	case lifecycle.StateStopped:
		return nil, lifecycle.ErrStopped
	case lifecycle.StateCrashed:
		return nil, l.err
	}

	if l.pending != nil {
		l.logger.Warn("already waiting",
			log.String("worker", l.name),
			log.Bytes("pending", l.pending.tag),
			log.Bytes("requested", tag),
		)
		return nil, fmt.Errorf("%w: waiting for % X", domain.ErrWaitSlotBusy, l.pending.tag)
	}

	w := newWait(l, tag)
	l.pending = w
	l.logger.Debug("now waiting", log.String("worker", l.name), log.Bytes("tag", tag))
	return w, nil
}

// Release cancels w if it is still pending. It reports whether w was pending.
func (l *Listener) Release(w *Wait) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending != w {
		return false
	}
	l.pending = nil
	w.resolve(domain.Message{}, domain.ErrAborted)
	return true
}

func (l *Listener) abortPending(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending == nil {
		return
	}
	w := l.pending
	l.pending = nil
	w.resolve(domain.Message{}, err)
}

// LastMessage returns the most recent non-clock message.
func (l *Listener) LastMessage() (domain.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return domain.Message{}, false
	}
	return *l.last, true
}

// Record stores the most recent non-clock message under name.
func (l *Listener) Record(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return domain.ErrNoMessage
	}
	l.recorded[name] = *l.last
	return nil
}

// Diff compares the payloads recorded under names position by position, up
// to the shortest payload, and returns the positions where they differ.
func (l *Listener) Diff(names ...string) ([]DiffEntry, error) {
	l.mu.Lock()
	msgs := make([]domain.Message, 0, len(names))
	for _, name := range names {
		m, ok := l.recorded[name]
		if !ok {
			l.mu.Unlock()
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRecording, name)
		}
		msgs = append(msgs, m)
	}
	l.mu.Unlock()

	if len(msgs) == 0 {
		return nil, nil
	}

	n := len(msgs[0].Data)
	for _, m := range msgs[1:] {
		if len(m.Data) < n {
			n = len(m.Data)
		}
	}

	var out []DiffEntry
	for i := 0; i < n; i++ {
		values := make([]byte, len(msgs))
		differs := false
		for j, m := range msgs {
			values[j] = m.Data[i]
			if values[j] != values[0] {
				differs = true
			}
		}
		if differs {
			out = append(out, DiffEntry{Index: i, Values: values})
		}
	}
	return out, nil
}

// ControlAssign returns the last control-assign value seen.
func (l *Listener) ControlAssign() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.controlAssign, l.controlAssign >= 0
}
