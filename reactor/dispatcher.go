package reactor

import (
	"errors"
	"sync"
	"time"
)

const (
	// alivePollInterval is how often a waiting dispatch re-checks that the
	// target object and loop still exist, in case the receipt ack was lost
	// to a teardown race.
	alivePollInterval = 100 * time.Millisecond

	// postRetryInterval is the backoff between retries when the loop's
	// queue is transiently full.
	postRetryInterval = 100 * time.Millisecond
)

// Dispatcher marshals envelopes onto one owner context's event loop.
// Obtain it from OwnerContext.Dispatcher; the handle is shared and safe
// for concurrent use from any goroutine.
//
// Posts are serialized through an internal mutex: a sender holds it from
// post until receipt is acknowledged, which keeps a burst of background
// completions from overflowing the owner loop's queue.
type Dispatcher struct {
	ctx *OwnerContext
	mu  sync.Mutex
}

// dispatchInvoke posts a completion envelope and waits for the owner loop
// to acknowledge receipt (not processing).
//
// Returns true when the envelope was received: the completion will run
// exactly once on the owner goroutine, gated by a liveness check taken at
// execution time. Returns false when the target or its loop is gone; the
// envelope was then already consumed with alive=false, so the parameter
// and the completion's cleanup side are never leaked.
func (d *Dispatcher) dispatchInvoke(param any, complete func(param any, alive bool), watch AliveWatch) bool {
	return d.dispatch(&envelope{
		kind:     envelopeInvoke,
		param:    param,
		complete: complete,
		watch:    watch,
		ctx:      d.ctx,
		received: make(chan struct{}),
	})
}

// dispatchPanic forwards a background panic report to the owner thread's
// error path.
func (d *Dispatcher) dispatchPanic(info string) bool {
	return d.dispatch(&envelope{
		kind:     envelopePanic,
		info:     info,
		ctx:      d.ctx,
		received: make(chan struct{}),
	})
}

// dispatch posts env and waits for receipt. While waiting it re-polls
// target liveness every alivePollInterval: the ack can be lost when the
// target disappears mid-flight, and without the poll the sender would hang
// forever. After a dead poll it still does one final non-blocking ack
// check — the loop may have claimed the envelope between our check and its
// teardown — before releasing the envelope itself.
func (d *Dispatcher) dispatch(env *envelope) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.post(env) {
		return false
	}

	poll := time.NewTicker(alivePollInterval)
	defer poll.Stop()

	for {
		select {
		case <-env.received:
			return true
		case <-poll.C:
			if !env.targetGone() && d.ctx.loop.Alive() {
				continue
			}
			// Last chance: the ack may have landed while we polled.
			select {
			case <-env.received:
				return true
			default:
			}
			if !env.release() {
				// The loop claimed it after all; that is a delivery.
				return true
			}
			reactorStats.dispatchFailed.Add(1)
			d.ctx.log.Warn("owner event loop gone, envelope released undelivered")
			return false
		}
	}
}

// post enqueues env on the owner loop. A full queue is transient and
// retried with backoff for as long as the loop stays alive; any other
// failure means the target thread is gone, so the envelope is released on
// the spot.
func (d *Dispatcher) post(env *envelope) bool {
	for {
		err := d.ctx.loop.Post(env)
		if err == nil {
			return true
		}
		if errors.Is(err, ErrQueueFull) && d.ctx.loop.Alive() {
			reactorStats.queueRetries.Add(1)
			time.Sleep(postRetryInterval)
			continue
		}
		if !env.release() {
			return true
		}
		reactorStats.dispatchFailed.Add(1)
		d.ctx.log.Warn("post to owner event loop failed", "error", err)
		return false
	}
}
