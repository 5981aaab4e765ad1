package reactor

import (
	"context"
	"sync"
)

// Waitable is a foreign waitable primitive — the analogue of an OS event
// handle. Wait blocks until the primitive signals or ctx is cancelled, and
// returns ctx.Err() in the latter case.
type Waitable interface {
	Wait(ctx context.Context) error
}

// Signal adapts a Waitable into a channel-shaped one-shot. The underlying
// wait is registered exactly once, at construction, and deregistered
// exactly once, by Close — even if the signal never fires.
//
// Thread Safety: Done, Err and Close are safe for concurrent use.
type Signal struct {
	fired     chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// WatchSignal registers a one-shot wait on w and returns the adapter.
// Construction is the single registration point, so a double OS-level
// registration cannot happen.
func WatchSignal(w Waitable) *Signal {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Signal{
		fired:  make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		err := w.Wait(ctx)
		if ctx.Err() != nil {
			// Deregistered before firing; nothing to report.
			return
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.fired)
	}()

	return s
}

// Done returns a channel closed when the primitive signals.
func (s *Signal) Done() <-chan struct{} {
	return s.fired
}

// Err returns the error the underlying wait finished with, if any.
// Meaningful only after Done is closed.
func (s *Signal) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close deregisters the wait. Idempotent; safe to call whether or not the
// signal ever fired.
func (s *Signal) Close() {
	s.closeOnce.Do(s.cancel)
}

// CancelBySignal runs task to completion unless sig fires first.
//
// When the signal wins, the task's context is cancelled, its eventual
// result is discarded, and (zero, false) is returned. A panic inside task
// is re-raised on the calling goroutine so the surrounding containment
// (Spawn's recovery, or the caller's own) handles it.
//
// Parameters:
//   - ctx: parent context for the task
//   - task: the computation to guard
//   - sig: the externally supplied cancellation signal
//
// Returns:
//   - T: the task's result, valid only when the second value is true
//   - bool: true when the task finished, false when sig fired first
func CancelBySignal[T any](ctx context.Context, task func(ctx context.Context) T, sig *Signal) (T, bool) {
	type outcome struct {
		value    T
		panicVal any
		panicked bool
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan outcome, 1)
	go func() {
		var o outcome
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.panicked = true
					o.panicVal = r
				}
			}()
			o.value = task(taskCtx)
		}()
		out <- o
	}()

	select {
	case o := <-out:
		if o.panicked {
			panic(o.panicVal)
		}
		return o.value, true
	case <-sig.Done():
		cancel()
		var zero T
		return zero, false
	}
}
