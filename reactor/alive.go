package reactor

import "sync/atomic"

// aliveState is the strong half of the liveness token pair. It is owned by
// a HandlerState and flipped dead exactly once when the host object tears
// down. It carries no payload and must never be used to keep anything
// alive, only to test existence.
type aliveState struct {
	dead atomic.Bool
}

// close marks the owner object as destroyed. Idempotent.
func (s *aliveState) close() {
	s.dead.Store(true)
}

// watch returns a weak view of this state.
func (s *aliveState) watch() AliveWatch {
	return AliveWatch{dead: &s.dead}
}

// AliveWatch is the weak half of the liveness token pair, handed to
// background tasks so they can test whether the object that requested the
// work still exists. The zero value reports dead.
//
// Thread Safety:
//   - Alive and Dead are safe for concurrent use from any goroutine.
type AliveWatch struct {
	dead *atomic.Bool
}

// Alive reports whether the owner object still exists.
func (w AliveWatch) Alive() bool {
	return w.dead != nil && !w.dead.Load()
}

// Dead reports whether the owner object has been destroyed.
func (w AliveWatch) Dead() bool {
	return !w.Alive()
}
