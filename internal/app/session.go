package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/faderlink/internal/fader"
	"github.com/bft-labs/faderlink/internal/ports"
	"github.com/bft-labs/faderlink/pkg/lifecycle"
	"github.com/bft-labs/faderlink/pkg/log"
)

// Worker names used by Session.
const (
	ListenerName = "listener"
	SenderName   = "sender"
)

type sessionOptions struct {
	requestTimeout   time.Duration
	receiveObserver  []Observer
	transmitObserver []Observer
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

// WithRequestTimeout sets the coordinator's reply bound.
func WithRequestTimeout(d time.Duration) SessionOption {
	return func(o *sessionOptions) { o.requestTimeout = d }
}

// WithSessionReceiveObserver observes every inbound message.
func WithSessionReceiveObserver(obs Observer) SessionOption {
	return func(o *sessionOptions) { o.receiveObserver = append(o.receiveObserver, obs) }
}

// WithSessionTransmitObserver observes every transmitted message.
func WithSessionTransmitObserver(obs Observer) SessionOption {
	return func(o *sessionOptions) { o.transmitObserver = append(o.transmitObserver, obs) }
}

// Session runs a Listener and a Sender on one device. If either worker
// crashes the other is stopped and Crashed is closed.
type Session struct {
	listener    *Listener
	sender      *Sender
	coordinator *Coordinator
	registry    *fader.Registry
	logger      log.Logger

	crashOnce sync.Once
	crashed   chan struct{}
}

// NewSession wires a listener on rx and a sender on tx around registry.
func NewSession(rx ports.MessageReceiver, tx ports.MessageTransmitter, registry *fader.Registry, logger log.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		registry: registry,
		logger:   logger,
		crashed:  make(chan struct{}),
	}

	lopts := []ListenerOption{WithListenerEmitter(s.emitterFor(ListenerName))}
	for _, obs := range o.receiveObserver {
		lopts = append(lopts, WithReceiveObserver(obs))
	}
	sopts := []SenderOption{WithSenderEmitter(s.emitterFor(SenderName))}
	for _, obs := range o.transmitObserver {
		sopts = append(sopts, WithTransmitObserver(obs))
	}

	s.listener = NewListener(ListenerName, rx, registry, logger, lopts...)
	s.sender = NewSender(SenderName, tx, logger, sopts...)
	s.coordinator = NewCoordinator(s.listener, s.sender, logger, o.requestTimeout)
	return s
}

func (s *Session) emitterFor(name string) lifecycle.EventEmitter {
	return lifecycle.EmitterFunc(func(_, current lifecycle.State, reason string) {
		if current != lifecycle.StateCrashed {
			return
		}
		s.logger.Error("worker crashed, stopping session", log.String("worker", name), log.String("reason", reason))
		s.crashOnce.Do(func() { close(s.crashed) })
		if name == ListenerName {
			s.sender.Stop()
		} else {
			s.listener.Stop()
		}
	})
}

// Listener returns the session's listener.
func (s *Session) Listener() *Listener { return s.listener }

// Sender returns the session's sender.
func (s *Session) Sender() *Sender { return s.sender }

// Coordinator returns the session's request coordinator.
func (s *Session) Coordinator() *Coordinator { return s.coordinator }

// Registry returns the fader registry.
func (s *Session) Registry() *fader.Registry { return s.registry }

// Crashed is closed when either worker crashes.
func (s *Session) Crashed() <-chan struct{} { return s.crashed }

// Err returns the first worker error, if any.
func (s *Session) Err() error {
	if err := s.listener.Err(); err != nil {
		return err
	}
	return s.sender.Err()
}

// Start launches both workers.
func (s *Session) Start(ctx context.Context) error {
	if err := s.listener.Start(ctx); err != nil {
		return err
	}
	if err := s.sender.Start(ctx); err != nil {
		s.listener.Stop()
		return err
	}
	return nil
}

// Stop stops both workers and waits up to timeout for them to exit.
func (s *Session) Stop(timeout time.Duration) error {
	s.listener.Stop()
	s.sender.Stop()
	return errors.Join(s.listener.Wait(timeout), s.sender.Wait(timeout))
}

// SetFader stores value locally and queues the command moving the fader.
func (s *Session) SetFader(address byte, value int) error {
	cmd, err := s.registry.BuildCommand(address, value)
	if err != nil {
		return err
	}
	s.registry.SetValue(address, value)
	return s.sender.Enqueue(cmd)
}
