package reactor

import (
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/logging"
)

// Registry of live owner contexts, keyed by event loop identity. The
// context count drives the background runtime's lifecycle: the Close that
// empties the registry stops the runtime.
var (
	contextsMu sync.Mutex
	contexts   = make(map[EventLoop]*OwnerContext)
)

// OwnerContext represents one owner thread: the goroutine that hosts
// mutable, non-thread-safe objects and pumps the bound event loop.
// Exactly one context exists per event loop; Bind returns the existing
// context when called again with the same loop.
//
// Thread Safety:
//   - Dispatcher and Close are safe for concurrent use.
type OwnerContext struct {
	loop    EventLoop
	log     *logging.Logger
	onPanic func(info string)
	dsp     *Dispatcher
	closed  atomic.Bool
}

// ContextOption configures an OwnerContext at Bind time.
type ContextOption func(*OwnerContext)

// WithPanicReporter routes contained panics (from background tasks and
// owner-thread completions) to fn instead of the context's logger. The
// reporter may be called from any goroutine and must be safe for
// concurrent use.
func WithPanicReporter(fn func(info string)) ContextOption {
	return func(c *OwnerContext) {
		c.onPanic = fn
	}
}

// WithLogger sets the logger used for dispatch diagnostics and as the
// default panic report sink.
func WithLogger(log *logging.Logger) ContextOption {
	return func(c *OwnerContext) {
		c.log = log
	}
}

// Bind returns the owner context for loop, creating it on first use.
//
// The calling goroutine is expected to be the one pumping loop; the
// reactor itself never runs the loop. Options are applied only when the
// context is created.
//
// Returns:
//   - *OwnerContext: the context bound to loop
func Bind(loop EventLoop, opts ...ContextOption) *OwnerContext {
	contextsMu.Lock()
	defer contextsMu.Unlock()

	if ctx, ok := contexts[loop]; ok {
		return ctx
	}

	ctx := &OwnerContext{
		loop: loop,
		log:  logging.Default().With("component", "reactor"),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	ctx.dsp = &Dispatcher{ctx: ctx}
	contexts[loop] = ctx
	return ctx
}

// Dispatcher returns the handle used to marshal messages onto this
// context's event loop. The handle is shared; holding it does not keep
// the context alive.
func (c *OwnerContext) Dispatcher() *Dispatcher {
	return c.dsp
}

// Close releases the context. Idempotent. The Close that removes the last
// live context also stops the background runtime; a later Bind starts it
// again lazily. Close does not close the event loop — that belongs to the
// host.
func (c *OwnerContext) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	contextsMu.Lock()
	delete(contexts, c.loop)
	empty := len(contexts) == 0
	contextsMu.Unlock()

	if empty {
		shutdownRuntime()
	}
}

// reportPanic forwards a contained panic to the configured reporter, or
// logs it when none is set. Called from the owner goroutine for delivery
// panics and from background goroutines for undeliverable reports, so the
// sink must tolerate both.
func (c *OwnerContext) reportPanic(info string) {
	if c.onPanic != nil {
		c.onPanic(info)
		return
	}
	c.log.Error("panic contained by reactor", "panic", info)
}
