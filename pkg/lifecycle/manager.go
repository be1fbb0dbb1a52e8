package lifecycle

import (
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/faderlink/pkg/log"
)

// Common lifecycle errors.
var (
	ErrNotRunning      = errors.New("faderlink: not running")
	ErrAlreadyRunning  = errors.New("faderlink: already running")
	ErrStopped         = errors.New("faderlink: stopped")
	ErrShutdownTimeout = errors.New("faderlink: shutdown timeout")
)

// DefaultManager implements Manager with a state machine for lifecycle management.
type DefaultManager struct {
	name         string
	mu           sync.RWMutex
	state        State
	wg           sync.WaitGroup
	logger       log.Logger
	eventEmitter EventEmitter
}

// NewManager creates a new lifecycle manager in StateIdle.
// emitter may be nil.
func NewManager(name string, logger log.Logger, emitter EventEmitter) *DefaultManager {
	if logger == nil {
		logger = NoopLogger()
	}
	return &DefaultManager{
		name:         name,
		state:        StateIdle,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// Name returns the worker name.
func (l *DefaultManager) Name() string {
	return l.name
}

// State returns the current lifecycle state.
func (l *DefaultManager) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error if the transition is not valid.
func (l *DefaultManager) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	if err := validTransition(oldState, newState); err != nil {
		l.mu.Unlock()
		return err
	}

	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		log.String("worker", l.name),
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)

	return nil
}

func validTransition(from, to State) error {
	switch from {
	case StateIdle:
		if to != StateRunning && to != StateStopped {
			return ErrNotRunning
		}
	case StateRunning:
		if to != StateStopped && to != StateCrashed {
			return ErrAlreadyRunning
		}
	case StateCrashed:
		if to != StateStopped {
			return ErrNotRunning
		}
	case StateStopped:
		return ErrStopped
	}
	return nil
}

// AddWorker increments the worker count.
func (l *DefaultManager) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the worker count.
func (l *DefaultManager) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout waits for all workers to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *DefaultManager) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, abandoning worker",
			log.String("worker", l.name),
			log.Duration("timeout", timeout),
		)
		return ErrShutdownTimeout
	}
}

// NoopLogger returns a logger that discards everything.
func NoopLogger() log.Logger {
	return log.NewNoopLogger()
}
