package reactor

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeWaitable is a Waitable fired by closing its channel.
type fakeWaitable struct {
	fire chan struct{}
	err  error
}

func newFakeWaitable() *fakeWaitable {
	return &fakeWaitable{fire: make(chan struct{})}
}

func (w *fakeWaitable) Wait(ctx context.Context) error {
	select {
	case <-w.fire:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestWatchSignal_Fires(t *testing.T) {
	w := newFakeWaitable()
	sig := WatchSignal(w)
	defer sig.Close()

	close(w.fire)

	select {
	case <-sig.Done():
	case <-time.After(time.Second):
		t.Fatal("signal never fired")
	}
	if err := sig.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestWatchSignal_WaitError(t *testing.T) {
	w := newFakeWaitable()
	w.err = errors.New("wait failed")
	sig := WatchSignal(w)
	defer sig.Close()

	close(w.fire)

	select {
	case <-sig.Done():
	case <-time.After(time.Second):
		t.Fatal("signal never fired")
	}
	if err := sig.Err(); err == nil || err.Error() != "wait failed" {
		t.Errorf("Err() = %v, want wait failed", err)
	}
}

func TestWatchSignal_CloseDeregisters(t *testing.T) {
	w := newFakeWaitable()
	sig := WatchSignal(w)

	sig.Close()
	// Idempotent.
	sig.Close()

	// Firing after deregistration must not close Done.
	close(w.fire)

	select {
	case <-sig.Done():
		t.Error("Done closed after deregistration")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCancelBySignal_TaskWins(t *testing.T) {
	sig := WatchSignal(newFakeWaitable())
	defer sig.Close()

	v, finished := CancelBySignal(context.Background(), func(_ context.Context) int {
		return 9
	}, sig)
	if !finished {
		t.Fatal("CancelBySignal() finished = false, task should win")
	}
	if v != 9 {
		t.Errorf("CancelBySignal() = %d, want 9", v)
	}
}

func TestCancelBySignal_SignalWins(t *testing.T) {
	w := newFakeWaitable()
	sig := WatchSignal(w)
	defer sig.Close()

	cancelled := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(w.fire)
	}()

	v, finished := CancelBySignal(context.Background(), func(ctx context.Context) int {
		<-ctx.Done()
		close(cancelled)
		return 9
	}, sig)
	if finished {
		t.Fatal("CancelBySignal() finished = true, signal should win")
	}
	if v != 0 {
		t.Errorf("CancelBySignal() = %d, want zero value", v)
	}

	// The abandoned task's context was cancelled.
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
}

func TestCancelBySignal_PanicPropagates(t *testing.T) {
	sig := WatchSignal(newFakeWaitable())
	defer sig.Close()

	defer func() {
		if recover() == nil {
			t.Error("panic inside the task did not propagate to the caller")
		}
	}()

	CancelBySignal(context.Background(), func(_ context.Context) int {
		panic("guarded task exploded")
	}, sig)
}
