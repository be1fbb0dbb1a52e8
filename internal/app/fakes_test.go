package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/pkg/log"
)

// fakeReceiver is an in-memory MessageReceiver.
type fakeReceiver struct {
	msgs       chan domain.Message
	closed     chan struct{}
	broken     chan struct{}
	closeOnce  sync.Once
	breakOnce  sync.Once
	closeCalls atomic.Int32
}

func newFakeReceiver() *fakeReceiver {
	return &fakeReceiver{
		msgs:   make(chan domain.Message, 64),
		closed: make(chan struct{}),
		broken: make(chan struct{}),
	}
}

func (r *fakeReceiver) Receive(ctx context.Context) (domain.Message, error) {
	select {
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	case <-r.closed:
		return domain.Message{}, domain.ErrTransportClosed
	case <-r.broken:
		return domain.Message{}, domain.ErrTransportClosed
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *fakeReceiver) Close() error {
	r.closeCalls.Add(1)
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

// Break simulates the device disappearing.
func (r *fakeReceiver) Break() {
	r.breakOnce.Do(func() { close(r.broken) })
}

func (r *fakeReceiver) Push(msgs ...domain.Message) {
	for _, m := range msgs {
		r.msgs <- m
	}
}

// fakeTransmitter records transmitted messages.
type fakeTransmitter struct {
	mu         sync.Mutex
	sent       []domain.Message
	err        error
	onTransmit func(domain.Message)
	closeCalls atomic.Int32
}

func (t *fakeTransmitter) Transmit(msg domain.Message) error {
	t.mu.Lock()
	err := t.err
	hook := t.onTransmit
	if err == nil {
		t.sent = append(t.sent, msg)
	}
	t.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(msg)
	}
	return nil
}

func (t *fakeTransmitter) Close() error {
	t.closeCalls.Add(1)
	return nil
}

func (t *fakeTransmitter) SetErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

func (t *fakeTransmitter) Sent() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.Message(nil), t.sent...)
}

// recordingLogger keeps messages logged at warn level and above.
type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
}

func (l *recordingLogger) Debug(msg string, fields ...log.Field) {}
func (l *recordingLogger) Info(msg string, fields ...log.Field)  {}

func (l *recordingLogger) Warn(msg string, fields ...log.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}

func (l *recordingLogger) Error(msg string, fields ...log.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnings...)
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitClosed(t *testing.T, what string, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// faderUpdate builds the message the device sends when a fader moves.
func faderUpdate(addr byte, group ...byte) domain.Message {
	payload := []byte{66, 48, 104, 109, 0, 0, 0, addr, 4}
	return domain.NewSysEx(append(payload, group...)...)
}
