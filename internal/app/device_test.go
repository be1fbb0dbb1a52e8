package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/internal/ports"
)

type fakeOpener struct {
	missing int
	err     error
	calls   int
}

func (o *fakeOpener) ListPorts() ([]string, []string, error) { return nil, nil, nil }

func (o *fakeOpener) Open(pattern string) (ports.MessageReceiver, ports.MessageTransmitter, error) {
	o.calls++
	if o.err != nil {
		return nil, nil, o.err
	}
	if o.calls <= o.missing {
		return nil, nil, domain.ErrDeviceNotFound
	}
	return newFakeReceiver(), &fakeTransmitter{}, nil
}

func TestWaitForDevice_PollsUntilFound(t *testing.T) {
	o := &fakeOpener{missing: 3}

	rx, tx, err := WaitForDevice(context.Background(), o, "kronos", time.Millisecond, nil)
	if err != nil {
		t.Fatalf("WaitForDevice() error = %v", err)
	}
	if rx == nil || tx == nil {
		t.Fatal("WaitForDevice() returned nil ports")
	}
	if o.calls != 4 {
		t.Errorf("Open called %d times, want 4", o.calls)
	}
}

func TestWaitForDevice_OtherErrorsReturn(t *testing.T) {
	boom := errors.New("driver failure")
	o := &fakeOpener{err: boom}

	if _, _, err := WaitForDevice(context.Background(), o, "kronos", time.Millisecond, nil); !errors.Is(err, boom) {
		t.Errorf("WaitForDevice() error = %v, want %v", err, boom)
	}
}

func TestWaitForDevice_ContextCanceled(t *testing.T) {
	o := &fakeOpener{missing: 1 << 30}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, _, err := WaitForDevice(ctx, o, "kronos", time.Millisecond, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForDevice() error = %v, want DeadlineExceeded", err)
	}
}
