package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/internal/fader"
	"github.com/bft-labs/faderlink/pkg/lifecycle"
)

func startListener(t *testing.T, opts ...ListenerOption) (*Listener, *fakeReceiver, *fader.Registry) {
	t.Helper()
	rx := newFakeReceiver()
	reg := fader.NewDefaultRegistry()
	l := NewListener("listener", rx, reg, nil, opts...)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { l.Stop() })
	return l, rx, reg
}

func TestListener_AppliesFaderUpdates(t *testing.T) {
	l, rx, reg := startListener(t)

	rx.Push(faderUpdate(56, 127, 127, 123), faderUpdate(12, 0, 0, 90))

	eventually(t, "master update", func() bool {
		v, _ := reg.Value(12)
		return v == 90
	})
	if v, _ := reg.Value(56); v != -5 {
		t.Errorf("Value(56) = %d, want -5", v)
	}
	if v, _ := reg.Value(57); v != 0 {
		t.Errorf("Value(57) = %d, want 0 (untouched)", v)
	}
	if l.State() != lifecycle.StateRunning {
		t.Errorf("State() = %v, want Running", l.State())
	}
}

func TestListener_ToleratesBadUpdates(t *testing.T) {
	l, rx, reg := startListener(t)

	rx.Push(
		faderUpdate(99, 0, 0, 5),     // unknown address
		faderUpdate(56, 5),           // short
		faderUpdate(56, 0, 0, 200),   // not 7-bit
		domain.NewSysEx(66, 48, 104), // prefix only
		faderUpdate(57, 0, 0, 33),    // valid
	)

	eventually(t, "valid update after bad ones", func() bool {
		v, _ := reg.Value(57)
		return v == 33
	})
	if v, _ := reg.Value(56); v != 0 {
		t.Errorf("Value(56) = %d, want 0", v)
	}
	if l.State() != lifecycle.StateRunning {
		t.Errorf("State() = %v, want Running", l.State())
	}
}

func TestListener_TwoByteValueGroup(t *testing.T) {
	_, rx, reg := startListener(t)

	rx.Push(faderUpdate(58, 127, 100), faderUpdate(59, 0, 40))

	eventually(t, "two-byte updates", func() bool {
		v, _ := reg.Value(59)
		return v == 40
	})
	if v, _ := reg.Value(58); v != -28 {
		t.Errorf("Value(58) = %d, want -28", v)
	}
}

func TestDecodeFaderUpdate(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantAddr byte
		want     int
		wantErr  bool
	}{
		{"three-byte group", faderUpdate(56, 127, 127, 123).Data, 56, -5, false},
		{"two-byte group", faderUpdate(12, 0, 90).Data, 12, 90, false},
		{"trailing bytes ignored", append(faderUpdate(57, 0, 0, 7).Data, 0x55), 57, 7, false},
		{"one value byte", faderUpdate(56, 5).Data, 0, 0, true},
		{"no value", faderUpdate(56).Data, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, v, err := decodeFaderUpdate(tt.data)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrDecode) {
					t.Errorf("decodeFaderUpdate() error = %v, want ErrDecode", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeFaderUpdate() error = %v", err)
			}
			if addr != tt.wantAddr || v != tt.want {
				t.Errorf("decodeFaderUpdate() = (%d, %d), want (%d, %d)", addr, v, tt.wantAddr, tt.want)
			}
		})
	}
}

func TestWait_AwaitKeepsTransportErrorAfterDeadline(t *testing.T) {
	l, rx, _ := startListener(t)

	w, err := l.WaitFor([]byte{0x42, 0x30, 0x68, 0x42})
	if err != nil {
		t.Fatalf("WaitFor() error = %v", err)
	}
	rx.Break()
	waitClosed(t, "wait resolved by crash", w.Done())

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	// Both select cases are ready; every pass must report the crash.
	for i := 0; i < 20; i++ {
		if _, err := w.Await(ctx); !errors.Is(err, domain.ErrTransportClosed) {
			t.Fatalf("Await() error = %v, want ErrTransportClosed", err)
		}
	}
}

func TestListener_ControlAssign(t *testing.T) {
	l, rx, reg := startListener(t)

	if _, ok := l.ControlAssign(); ok {
		t.Error("ControlAssign() reported a value before any message")
	}

	// Byte 7 would address fader 56 if this were treated as an update.
	rx.Push(domain.NewSysEx(66, 48, 104, 67, 26, 0, 0, 56, 0, 0, 0, 3))

	eventually(t, "control assign", func() bool {
		v, ok := l.ControlAssign()
		return ok && v == 3
	})
	if v, _ := reg.Value(56); v != 0 {
		t.Errorf("Value(56) = %d, control assign applied as fader update", v)
	}
}

func TestListener_WaitFor_MatchesPrefixExactly(t *testing.T) {
	l, rx, _ := startListener(t)

	w, err := l.WaitFor([]byte{66, 48, 104, 75})
	if err != nil {
		t.Fatalf("WaitFor() error = %v", err)
	}

	want := domain.NewSysEx(66, 48, 104, 75, 1, 2)
	rx.Push(
		domain.NewSysEx(66, 48, 104, 74, 1),
		domain.NewSysEx(66, 48, 104),
		domain.Message{Kind: domain.KindProgramChange, Data: []byte{0xC0, 66}},
		want,
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := w.Await(ctx)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if !bytes.Equal(got.Data, want.Data) {
		t.Errorf("Await() = % X, want % X", got.Data, want.Data)
	}

	// Slot is free again.
	if _, err := l.WaitFor([]byte{1}); err != nil {
		t.Errorf("WaitFor() after resolution error = %v", err)
	}
}

func TestListener_WaitFor_SingleSlot(t *testing.T) {
	logger := &recordingLogger{}
	rx := newFakeReceiver()
	l := NewListener("listener", rx, fader.NewDefaultRegistry(), logger)
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	first, err := l.WaitFor([]byte{66, 48, 104, 117})
	if err != nil {
		t.Fatalf("first WaitFor() error = %v", err)
	}
	if _, err := l.WaitFor([]byte{66, 48, 104, 115}); !errors.Is(err, domain.ErrWaitSlotBusy) {
		t.Fatalf("second WaitFor() error = %v, want ErrWaitSlotBusy", err)
	}
	if len(logger.Warnings()) != 1 {
		t.Errorf("warnings = %v, want one busy warning", logger.Warnings())
	}

	// The first wait was not overwritten.
	rx.Push(domain.NewSysEx(66, 48, 104, 117, 0))
	waitClosed(t, "first wait", first.Done())
	if _, err := first.Result(); err != nil {
		t.Errorf("first Result() error = %v", err)
	}
}

func TestListener_WaitFor_EmptyTag(t *testing.T) {
	l, _, _ := startListener(t)
	if _, err := l.WaitFor(nil); !errors.Is(err, domain.ErrInvalidMessage) {
		t.Errorf("WaitFor(nil) error = %v, want ErrInvalidMessage", err)
	}
}

func TestWait_AwaitTimeoutReleasesSlot(t *testing.T) {
	l, _, _ := startListener(t)

	w, err := l.WaitFor([]byte{9})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := w.Await(ctx); !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("Await() error = %v, want ErrTimeout", err)
	}

	if _, err := l.WaitFor([]byte{9}); err != nil {
		t.Errorf("WaitFor() after timeout error = %v", err)
	}
}

func TestWait_AwaitCanceled(t *testing.T) {
	l, _, _ := startListener(t)

	w, err := l.WaitFor([]byte{9})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := w.Await(ctx); !errors.Is(err, domain.ErrAborted) {
		t.Errorf("Await() error = %v, want ErrAborted", err)
	}
}

func TestListener_StopAbortsPendingWait(t *testing.T) {
	rx := newFakeReceiver()
	l := NewListener("listener", rx, fader.NewDefaultRegistry(), nil)
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	w, err := l.WaitFor([]byte{66})
	if err != nil {
		t.Fatal(err)
	}

	if !l.Stop() {
		t.Fatal("Stop() = false, want true")
	}
	waitClosed(t, "wait", w.Done())
	if _, err := w.Result(); !errors.Is(err, domain.ErrAborted) {
		t.Errorf("Result() error = %v, want ErrAborted", err)
	}

	waitClosed(t, "listener done", l.Done())
	if rx.closeCalls.Load() != 1 {
		t.Errorf("receiver closed %d times, want 1", rx.closeCalls.Load())
	}

	if l.Stop() {
		t.Error("second Stop() = true, want false")
	}
	if l.State() != lifecycle.StateStopped {
		t.Errorf("State() = %v, want Stopped", l.State())
	}
	if _, err := l.WaitFor([]byte{66}); !errors.Is(err, lifecycle.ErrStopped) {
		t.Errorf("WaitFor() after stop error = %v, want ErrStopped", err)
	}
	if err := l.Start(context.Background()); !errors.Is(err, lifecycle.ErrStopped) {
		t.Errorf("Start() after stop error = %v, want ErrStopped", err)
	}
}

func TestListener_StopBeforeStart(t *testing.T) {
	rx := newFakeReceiver()
	l := NewListener("listener", rx, fader.NewDefaultRegistry(), nil)

	if !l.Stop() {
		t.Fatal("Stop() = false, want true")
	}
	waitClosed(t, "listener done", l.Done())
	if rx.closeCalls.Load() != 1 {
		t.Errorf("receiver closed %d times, want 1", rx.closeCalls.Load())
	}
	if err := l.Wait(time.Second); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestListener_TransportClosed(t *testing.T) {
	l, rx, _ := startListener(t)

	w, err := l.WaitFor([]byte{66})
	if err != nil {
		t.Fatal(err)
	}

	rx.Break()

	waitClosed(t, "listener done", l.Done())
	if l.State() != lifecycle.StateCrashed {
		t.Errorf("State() = %v, want Crashed", l.State())
	}
	if !errors.Is(l.Err(), domain.ErrTransportClosed) {
		t.Errorf("Err() = %v, want ErrTransportClosed", l.Err())
	}
	if _, err := w.Result(); !errors.Is(err, domain.ErrTransportClosed) {
		t.Errorf("pending wait error = %v, want ErrTransportClosed", err)
	}
	if _, err := l.WaitFor([]byte{66}); !errors.Is(err, domain.ErrTransportClosed) {
		t.Errorf("WaitFor() after crash error = %v, want ErrTransportClosed", err)
	}
	if rx.closeCalls.Load() != 1 {
		t.Errorf("receiver closed %d times, want 1", rx.closeCalls.Load())
	}

	// Crashed workers can still be stopped.
	if !l.Stop() {
		t.Error("Stop() after crash = false, want true")
	}
}

func TestListener_RecordAndDiff(t *testing.T) {
	l, rx, _ := startListener(t)

	if err := l.Record("before"); !errors.Is(err, domain.ErrNoMessage) {
		t.Fatalf("Record() with no message error = %v, want ErrNoMessage", err)
	}

	a := domain.NewSysEx(66, 48, 104, 1, 2, 3)
	b := domain.NewSysEx(66, 48, 105, 1, 9, 3, 7)

	rx.Push(a)
	eventually(t, "first message", func() bool {
		m, ok := l.LastMessage()
		return ok && bytes.Equal(m.Data, a.Data)
	})
	if err := l.Record("a"); err != nil {
		t.Fatal(err)
	}

	rx.Push(b, domain.Message{Kind: domain.KindClock, Data: []byte{0xF8}})
	eventually(t, "second message", func() bool {
		m, ok := l.LastMessage()
		return ok && bytes.Equal(m.Data, b.Data)
	})
	// The clock pulse does not replace the last message.
	time.Sleep(5 * time.Millisecond)
	if err := l.Record("b"); err != nil {
		t.Fatal(err)
	}

	diff, err := l.Diff("a", "b")
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	want := []DiffEntry{
		{Index: 2, Values: []byte{104, 105}},
		{Index: 4, Values: []byte{2, 9}},
	}
	if len(diff) != len(want) {
		t.Fatalf("Diff() = %+v, want %+v", diff, want)
	}
	for i := range want {
		if diff[i].Index != want[i].Index || !bytes.Equal(diff[i].Values, want[i].Values) {
			t.Errorf("Diff()[%d] = %+v, want %+v", i, diff[i], want[i])
		}
	}

	if same, _ := l.Diff("a", "a"); len(same) != 0 {
		t.Errorf("Diff(a, a) = %+v, want none", same)
	}
	if _, err := l.Diff("a", "missing"); !errors.Is(err, domain.ErrUnknownRecording) {
		t.Errorf("Diff(missing) error = %v, want ErrUnknownRecording", err)
	}
}

func TestListener_Observer(t *testing.T) {
	seen := make(chan domain.Message, 4)
	_, rx, _ := startListener(t, WithReceiveObserver(func(m domain.Message) { seen <- m }))

	rx.Push(domain.NewSysEx(1, 2, 3))

	select {
	case m := <-seen:
		if !bytes.Equal(m.Data, []byte{1, 2, 3}) {
			t.Errorf("observer saw % X", m.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("observer not called")
	}
}

func TestListener_StartTwice(t *testing.T) {
	l, _, _ := startListener(t)
	if err := l.Start(context.Background()); !errors.Is(err, lifecycle.ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestListener_ParentContextCancel(t *testing.T) {
	rx := newFakeReceiver()
	l := NewListener("listener", rx, fader.NewDefaultRegistry(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}

	cancel()
	waitClosed(t, "listener done", l.Done())
	if l.State() != lifecycle.StateStopped {
		t.Errorf("State() = %v, want Stopped", l.State())
	}
	if l.Stop() {
		t.Error("Stop() after cancel = true, want false")
	}
}
