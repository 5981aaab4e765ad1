package reactor

import (
	"sync"
	"sync/atomic"
)

// HandlerState holds the per-object bookkeeping every Handler embeds: the
// table of pending cancellation slots and the liveness token for the host
// object. Create one with NewHandlerState and call Close when the host
// object is destroyed.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type HandlerState struct {
	mu      sync.Mutex
	nextID  uint64
	pending []cancelSlot
	closed  bool
	alive   aliveState
}

// cancelSlot pairs a task id with its cancellation signal. The signal
// channel is closed to cancel; finished marks a slot whose task ended
// without delivery (panicked or observed cancellation late), making the
// storage reusable.
type cancelSlot struct {
	id       uint64
	signal   chan struct{}
	finished *atomic.Bool
}

// NewHandlerState creates an empty handler state.
func NewHandlerState() *HandlerState {
	return &HandlerState{}
}

// Watch returns the weak liveness view for this object.
func (s *HandlerState) Watch() AliveWatch {
	return s.alive.watch()
}

// Close marks the host object destroyed and cancels every pending task.
// Call it exactly when the host object is torn down; idempotent.
//
// After Close, in-flight tasks observe the cancellation signal, no
// completion is ever delivered, and Spawn on this state yields tasks that
// are cancelled from the start.
func (s *HandlerState) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	// Flip the liveness token before signalling so tasks that wake on the
	// cancel signal already see the object as dead.
	s.alive.close()
	for _, slot := range pending {
		close(slot.signal)
	}
}

// newCancelSlot registers a new cancellation slot and returns its handle,
// its signal channel and its finished flag.
//
// Ids increase monotonically, but storage is reclaimed: a slot whose task
// already finished without delivery is overwritten before the table grows.
// This bounds growth for long-lived objects spawning many short tasks.
func (s *HandlerState) newCancelSlot() (CancelHandle, <-chan struct{}, *atomic.Bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		// Object already torn down: hand back a slot that is cancelled
		// from the start so the task is abandoned without delivery.
		signal := make(chan struct{})
		close(signal)
		return CancelHandle{}, signal, new(atomic.Bool)
	}

	id := s.nextID
	s.nextID++
	slot := cancelSlot{
		id:       id,
		signal:   make(chan struct{}),
		finished: new(atomic.Bool),
	}

	reused := false
	for i := range s.pending {
		if s.pending[i].finished.Load() {
			s.pending[i] = slot
			reused = true
			break
		}
	}
	if !reused {
		s.pending = append(s.pending, slot)
	}

	return CancelHandle{id: id, state: s}, slot.signal, slot.finished
}

// cancel removes the slot for id and closes its signal channel.
// Returns false when the slot no longer exists (task finished, already
// cancelled, or state closed) — cancelling then is a no-op.
func (s *HandlerState) cancel(id uint64) bool {
	s.mu.Lock()
	for i := range s.pending {
		if s.pending[i].id == id {
			if s.pending[i].finished.Load() {
				// Task already ended without delivery (panicked or the
				// loop went away); the handle is stale.
				break
			}
			slot := s.pending[i]
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			s.mu.Unlock()
			close(slot.signal)
			return true
		}
	}
	s.mu.Unlock()
	return false
}

// removeCancelID removes the slot for id without signalling.
//
// This is the arbiter of the cancel/complete race: it runs on the owner
// goroutine immediately before a completion is invoked. Returning false
// means cancellation won — the slot was already removed — and the
// completion must not run.
func (s *HandlerState) removeCancelID(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pending {
		if s.pending[i].id == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// pendingCount returns the number of live cancellation slots. Test hook.
func (s *HandlerState) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.pending {
		if !s.pending[i].finished.Load() {
			n++
		}
	}
	return n
}

// CancelHandle identifies one spawned task so the owner can abandon it.
// The zero value is inert. Handles do not keep the host object alive.
type CancelHandle struct {
	id    uint64
	state *HandlerState
}

// Cancel abandons the task if it is still pending. The task's completion
// will never run. Idempotent: cancelling twice, or after the task already
// finished, is a no-op.
//
// Returns:
//   - true: the task was pending and is now cancelled
//   - false: the task already finished, was already cancelled, or the
//     owner object was destroyed
func (h CancelHandle) Cancel() bool {
	if h.state == nil {
		return false
	}
	if h.state.cancel(h.id) {
		reactorStats.cancelled.Add(1)
		return true
	}
	return false
}
