// Package reactor provides cross-thread asynchronous invocation for
// single-threaded host objects.
//
// This package manages:
//   - A shared background runtime executing submitted tasks
//   - Marshalling task results back onto an owner thread's event loop
//   - Cancellation of in-flight tasks with slot reuse
//   - Liveness tracking so completions never run against dead objects
//   - Panic containment at both the executor and owner-thread boundaries
//
// # Architecture
//
// Host objects live on a single "owner" goroutine that runs a foreign
// event loop (any implementation of EventLoop). Background work runs on a
// process-wide runtime shared by all owner contexts. Results travel back
// as type-erased envelopes posted to the owner loop; the loop hands each
// envelope back to the reactor, which unboxes it exactly once and invokes
// the completion with a liveness check taken at execution time.
//
//	owner goroutine ── Spawn ──▶ background runtime
//	       ▲                            │
//	       └── EventLoop.Post ◀── Invoker.Invoke
//
// # Lifecycle
//
// The background runtime starts lazily on the first submitted task and
// stops when the last OwnerContext closes. Finalize is the process-wide
// teardown hook: after it returns, submitting work is a fatal usage error.
//
// # Usage
//
//	loop := reactor.NewChannelLoop(0)
//	ctx := reactor.Bind(loop)
//	defer ctx.Close()
//
//	type fetcher struct {
//	    state *reactor.HandlerState
//	    owner *reactor.OwnerContext
//	}
//
//	handle := reactor.Spawn(f, fetchBody, func(f *fetcher, body []byte) {
//	    // runs on the owner goroutine, only if f is still alive
//	})
//	// handle.Cancel() abandons the task without invoking the completion
//
//	go loop.Run() // or pump from the host's native loop
package reactor
