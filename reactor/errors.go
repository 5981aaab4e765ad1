package reactor

import "errors"

// Domain-specific errors for reactor operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTargetDead is returned when the object that requested the work was
	// destroyed before or during delivery. The pending work is discarded.
	ErrTargetDead = errors.New("reactor: target object is dead")

	// ErrPanicked is returned when an owner-thread completion closure
	// panicked. The panic is contained at the delivery boundary and
	// forwarded to the owner context's panic reporter.
	ErrPanicked = errors.New("reactor: handler panicked on owner thread")

	// ErrQueueFull is returned by EventLoop.Post when the loop's queue is
	// transiently out of space. The dispatcher retries with backoff; loop
	// implementations should return it rather than blocking.
	ErrQueueFull = errors.New("reactor: event loop queue is full")

	// ErrLoopClosed is returned by EventLoop.Post once the loop can no
	// longer deliver messages. Treated the same as a dead target.
	ErrLoopClosed = errors.New("reactor: event loop is closed")
)

// PanicError describes a panic captured inside a background task run via
// SpawnBlocking. Info contains the panic value and a backtrace.
type PanicError struct {
	Info string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return "reactor: background task panicked: " + e.Info
}
