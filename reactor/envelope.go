package reactor

import "sync/atomic"

// envelopeKind discriminates the payload carried across the thread
// boundary.
type envelopeKind int

const (
	// envelopeInvoke carries a type-erased parameter and completion.
	envelopeInvoke envelopeKind = iota
	// envelopePanic carries a panic report for the owner's error path.
	envelopePanic
)

// envelope is the unit marshalled from the background runtime to an owner
// thread. It is boxed once on the sending side and consumed exactly once:
// either by the owner loop pumping it (Deliver) or by the sender releasing
// it after delivery failed (release). The claimed flag is the arbiter —
// whichever side wins the CompareAndSwap consumes the payload, the other
// side backs off.
type envelope struct {
	kind envelopeKind

	// invoke payload
	param    any
	complete func(param any, alive bool)
	watch    AliveWatch

	// panic payload
	info string

	ctx      *OwnerContext
	received chan struct{}
	claimed  atomic.Bool
}

// Deliver consumes the envelope on the owner goroutine. It acknowledges
// receipt first (the sender only waits for receipt, not processing), then
// invokes the completion with liveness re-checked at execution time.
// Panics from the completion are contained here and forwarded to the
// context's reporter; they never unwind into the foreign event loop.
func (e *envelope) Deliver() {
	if !e.claimed.CompareAndSwap(false, true) {
		return
	}
	close(e.received)

	switch e.kind {
	case envelopeInvoke:
		reactorStats.delivered.Add(1)
		e.run(e.watch.Alive())
	case envelopePanic:
		e.ctx.reportPanic(e.info)
	}
}

// run invokes the completion under panic containment.
func (e *envelope) run(alive bool) {
	defer func() {
		if r := recover(); r != nil {
			e.ctx.reportPanic(panicInfo(r))
		}
	}()
	e.complete(e.param, alive)
}

// release consumes an envelope whose delivery failed, on the sending side.
// The completion still runs — with alive=false — so its cleanup side
// executes and the parameter is never leaked.
//
// Returns false when the owner loop claimed the envelope first, meaning it
// was in fact delivered.
func (e *envelope) release() bool {
	if !e.claimed.CompareAndSwap(false, true) {
		return false
	}
	if e.kind == envelopeInvoke {
		e.run(false)
	}
	return true
}

// targetGone reports whether the object awaiting this envelope has been
// destroyed. Panic reports have no target object; only the loop's own
// liveness gates them.
func (e *envelope) targetGone() bool {
	return e.kind == envelopeInvoke && e.watch.Dead()
}
