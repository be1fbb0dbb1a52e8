package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/internal/ports"
	"github.com/bft-labs/faderlink/pkg/lifecycle"
	"github.com/bft-labs/faderlink/pkg/log"
)

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithSenderEmitter registers a lifecycle event emitter.
func WithSenderEmitter(e lifecycle.EventEmitter) SenderOption {
	return func(s *Sender) { s.emitter = e }
}

// WithTransmitObserver registers an observer for transmitted messages.
func WithTransmitObserver(o Observer) SenderOption {
	return func(s *Sender) { s.observers = append(s.observers, o) }
}

// Sender owns the outbound FIFO and the goroutine draining it.
type Sender struct {
	name      string
	tx        ports.MessageTransmitter
	logger    log.Logger
	emitter   lifecycle.EventEmitter
	observers []Observer
	lc        *lifecycle.DefaultManager

	runMu   sync.Mutex
	started bool
	done    chan struct{}

	wake chan struct{}
	quit chan struct{}

	mu     sync.Mutex
	queue  []domain.Message
	closed bool
	err    error
}

// NewSender creates an idle sender writing to tx.
func NewSender(name string, tx ports.MessageTransmitter, logger log.Logger, opts ...SenderOption) *Sender {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	s := &Sender{
		name:   name,
		tx:     tx,
		logger: logger,
		done:   make(chan struct{}),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lc = lifecycle.NewManager(name, logger, s.emitter)
	return s
}

// Name returns the worker name.
func (s *Sender) Name() string { return s.name }

// State returns the lifecycle state.
func (s *Sender) State() lifecycle.State { return s.lc.State() }

// Done is closed when the worker has exited and the port is released.
func (s *Sender) Done() <-chan struct{} { return s.done }

// Err returns the error that crashed the sender, if any.
func (s *Sender) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pending returns the number of queued messages.
func (s *Sender) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Enqueue appends msgs to the queue and wakes the worker. Messages queued
// before Start are sent once the worker runs.
func (s *Sender) Enqueue(msgs ...domain.Message) error {
	s.mu.Lock()
	if s.closed {
		err := s.err
		s.mu.Unlock()
		if err != nil {
			return err
		}
		return lifecycle.ErrStopped
	}
	s.queue = append(s.queue, msgs...)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Start launches the worker.
func (s *Sender) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if err := s.lc.TransitionTo(lifecycle.StateRunning, "Start() called"); err != nil {
		return err
	}
	s.started = true

	s.lc.AddWorker()
	go s.run(ctx)
	return nil
}

// Stop ends the worker after the message in flight. Queued messages are
// discarded. It returns false if the sender was already stopped.
func (s *Sender) Stop() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if err := s.lc.TransitionTo(lifecycle.StateStopped, "Stop() called"); err != nil {
		s.logger.Info("sender already stopped", log.String("worker", s.name))
		return false
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.started {
		close(s.quit)
	} else {
		if err := s.tx.Close(); err != nil {
			s.logger.Warn("close output", log.String("worker", s.name), log.Err(err))
		}
		close(s.done)
	}
	return true
}

// Wait blocks until the worker has exited or timeout expires.
func (s *Sender) Wait(timeout time.Duration) error {
	return s.lc.WaitWithTimeout(timeout)
}

func (s *Sender) run(ctx context.Context) {
	defer s.lc.WorkerDone()
	defer close(s.done)
	defer func() {
		if err := s.tx.Close(); err != nil {
			s.logger.Warn("close output", log.String("worker", s.name), log.Err(err))
		}
	}()

	s.logger.Info("sender started", log.String("worker", s.name))

	for {
		select {
		case <-s.quit:
			s.exit()
			return
		case <-ctx.Done():
			_ = s.lc.TransitionTo(lifecycle.StateStopped, "context done")
			s.exit()
			return
		case <-s.wake:
		}

		if !s.drain() {
			return
		}
	}
}

// drain transmits queued messages in FIFO order until the queue is empty.
// It returns false when the worker must exit.
func (s *Sender) drain() bool {
	for {
		select {
		case <-s.quit:
			s.exit()
			return false
		default:
		}

		msg, ok := s.pop()
		if !ok {
			return true
		}

		if err := s.tx.Transmit(msg); err != nil {
			if errors.Is(err, domain.ErrTransportClosed) {
				s.crash(err)
				return false
			}
			s.logger.Error("transmit failed", log.String("worker", s.name), log.Bytes("data", msg.Data), log.Err(err))
			continue
		}

		s.logger.Debug("sender sent",
			log.String("worker", s.name),
			log.String("kind", msg.Kind.String()),
			log.Bytes("data", msg.Data),
		)
		for _, o := range s.observers {
			o(msg)
		}
	}
}

func (s *Sender) pop() (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return domain.Message{}, false
	}
	msg := s.queue[0]
	s.queue[0] = domain.Message{}
	s.queue = s.queue[1:]
	return msg, true
}

// exit discards whatever is still queued.
func (s *Sender) exit() {
	s.mu.Lock()
	s.closed = true
	dropped := len(s.queue)
	s.queue = nil
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Warn("discarding queued messages", log.String("worker", s.name), log.Int("count", dropped))
	}
	s.logger.Info("sender stopped", log.String("worker", s.name))
}

func (s *Sender) crash(err error) {
	s.mu.Lock()
	s.closed = true
	s.err = fmt.Errorf("%s: %w", s.name, err)
	s.queue = nil
	s.mu.Unlock()

	s.logger.Error("sender output failed", log.String("worker", s.name), log.Err(err))
	_ = s.lc.TransitionTo(lifecycle.StateCrashed, err.Error())
}
