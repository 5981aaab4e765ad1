package reactor

import (
	"sync"
	"sync/atomic"
)

// defaultLoopQueueSize is the queue capacity used when NewChannelLoop is
// given a non-positive size.
const defaultLoopQueueSize = 256

// Message is the opaque unit posted to an EventLoop. The loop returns it to
// the reactor by calling Deliver from the loop's own goroutine when it pumps
// the message. Deliver is safe to call at most once per message; extra calls
// are no-ops.
type Message interface {
	Deliver()
}

// EventLoop adapts a foreign, thread-bound event loop so the reactor can
// wake the owner goroutine. Implementations wrap whatever native message
// pump the host provides (GUI loop, actor mailbox, ChannelLoop).
//
// Implementations must be comparable (a pointer type satisfies this); Bind
// uses loop identity to guarantee one OwnerContext per loop.
//
// Thread Safety:
//   - Post and Alive must be safe for concurrent use from any goroutine.
type EventLoop interface {
	// Post enqueues msg for later delivery on the loop's goroutine.
	//
	// Returns:
	//   - nil: msg accepted; the loop will eventually call msg.Deliver()
	//   - ErrQueueFull: transiently out of space, caller should retry
	//   - ErrLoopClosed (or any other error): the loop is gone for good
	Post(msg Message) error

	// Alive reports whether the loop still exists and can pump messages.
	// Once Alive returns false it must never return true again.
	Alive() bool
}

// ChannelLoop is the reference EventLoop backed by a buffered channel.
//
// It serves hosts that have no native message pump of their own: the owner
// goroutine calls Run (blocking) or periodically calls Pump from inside its
// existing loop.
//
// Thread Safety:
//   - Post, Alive and Close are safe for concurrent use.
//   - Run and Pump must only be called from the owner goroutine.
type ChannelLoop struct {
	msgs      chan Message
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewChannelLoop creates a ChannelLoop with the given queue capacity.
// A non-positive queueSize selects the default (256).
func NewChannelLoop(queueSize int) *ChannelLoop {
	if queueSize <= 0 {
		queueSize = defaultLoopQueueSize
	}
	return &ChannelLoop{
		msgs: make(chan Message, queueSize),
		done: make(chan struct{}),
	}
}

// Post enqueues a message without blocking.
func (l *ChannelLoop) Post(msg Message) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	select {
	case l.msgs <- msg:
		return nil
	default:
		if l.closed.Load() {
			return ErrLoopClosed
		}
		return ErrQueueFull
	}
}

// Alive reports whether the loop can still accept and pump messages.
func (l *ChannelLoop) Alive() bool {
	return !l.closed.Load()
}

// Run pumps messages until Close is called. It blocks and must run on the
// owner goroutine; every completion delivered through this loop executes
// inside Run.
func (l *ChannelLoop) Run() {
	for {
		select {
		case msg := <-l.msgs:
			msg.Deliver()
		case <-l.done:
			return
		}
	}
}

// Pump delivers all currently queued messages without blocking, then
// returns. Use it to integrate with a host loop that cannot cede control
// to Run.
func (l *ChannelLoop) Pump() {
	for {
		select {
		case msg := <-l.msgs:
			msg.Deliver()
		default:
			return
		}
	}
}

// Close shuts the loop down. Idempotent. Messages still queued are never
// delivered; their senders detect the dead loop and release them.
func (l *ChannelLoop) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}
