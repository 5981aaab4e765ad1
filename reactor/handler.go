package reactor

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Handler is implemented by owner-thread objects that spawn cancellable
// background work. Both accessors must return the same values for the
// object's whole lifetime; call HandlerState().Close() when the object is
// destroyed.
type Handler interface {
	// HandlerState returns the object's cancellation registry and
	// liveness token.
	HandlerState() *HandlerState

	// OwnerContext returns the context of the thread hosting the object.
	OwnerContext() *OwnerContext
}

// Spawn runs task on the background runtime and, when it finishes,
// delivers its result to completion on the owner goroutine.
//
// The completion runs at most once, and only if the host object is still
// alive and the task was not cancelled; cancellation and completion are
// mutually exclusive outcomes. A panic inside task is contained, counted,
// and forwarded to the owner context's panic reporter instead of the
// completion.
//
// Parameters:
//   - h: the owner-thread object requesting the work
//   - task: the background computation; ctx is cancelled when the task is
//     cancelled or the object is destroyed, observe it in long operations
//   - completion: receives the task's result on the owner goroutine
//
// Returns:
//   - CancelHandle: cancels the task; destroying the object cancels all
//     pending tasks automatically
func Spawn[H Handler, T any](h H, task func(ctx context.Context) T, completion func(H, T)) CancelHandle {
	inv := NewInvoker(h)
	handle, cancelCh, finished := h.HandlerState().newCancelSlot()
	id := handle.id

	reactorStats.spawned.Add(1)

	submit(func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Bridge the cancellation slot's signal into the task context.
		watchDone := make(chan struct{})
		go func() {
			select {
			case <-cancelCh:
				cancel()
			case <-watchDone:
			}
		}()

		var result T
		var panicMsg string
		panicked := false
		func() {
			defer func() {
				if r := recover(); r != nil {
					panicked = true
					panicMsg = panicInfo(r)
				}
			}()
			result = task(ctx)
		}()
		close(watchDone)

		if panicked {
			// The slot stays registered but will never deliver; flag it
			// so the registry can reuse its storage.
			finished.Store(true)
			reactorStats.panicked.Add(1)
			inv.reportPanic(panicMsg)
			return
		}

		// Cancellation that raced the task's natural completion: the
		// slot is gone, abandon the result without delivery.
		select {
		case <-cancelCh:
			return
		default:
		}

		delivered, err := Invoke(inv, result, func(target H, value T) bool {
			// Removing the slot here, on the owner goroutine, is the
			// atomic arbiter of the cancel/complete race.
			if target.HandlerState().removeCancelID(id) {
				completion(target, value)
				return true
			}
			return false
		})
		if err != nil {
			// Delivery failed but the object may still be open (its loop
			// closed first, or the completion panicked). Flag the slot so
			// its storage can be reclaimed.
			finished.Store(true)
			return
		}
		if delivered {
			reactorStats.completed.Add(1)
		}
	})

	return handle
}

// SpawnBlocking runs task on the background runtime and blocks the calling
// goroutine until it finishes.
//
// Deadlock: never call this from inside a completion closure — the owner
// thread's loop cannot pump while blocked here, so a completion that
// blocks on another completion never finishes.
//
// Returns:
//   - T: the task's result
//   - error: *PanicError when the task panicked
func SpawnBlocking[T any](task func(ctx context.Context) T) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	out := make(chan outcome, 1)

	submit(func() {
		var o outcome
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.err = &PanicError{Info: panicInfo(r)}
				}
			}()
			o.value = task(context.Background())
		}()
		if o.err != nil {
			reactorStats.panicked.Add(1)
		}
		out <- o
	})

	o := <-out
	return o.value, o.err
}

// Invoker is a cloneable callback handle bound to one owner-thread object.
// Background tasks hold one to call back into the object mid-flight (for
// progress reporting) or at completion.
//
// Thread Safety: safe for concurrent use from any goroutine.
type Invoker[H Handler] struct {
	dsp    *Dispatcher
	target H
	watch  AliveWatch
}

// NewInvoker binds an invoker to target. The invoker holds the target
// pointer, but the completion only dereferences it inside the owner
// goroutine's delivery window, guarded by the liveness check.
func NewInvoker[H Handler](target H) *Invoker[H] {
	return &Invoker[H]{
		dsp:    target.OwnerContext().Dispatcher(),
		target: target,
		watch:  target.HandlerState().Watch(),
	}
}

// Clone returns an independent handle to the same target.
func (inv *Invoker[H]) Clone() *Invoker[H] {
	c := *inv
	return &c
}

// reportPanic forwards a contained background panic to the owner thread.
// When the owner loop is already gone the report falls back to the
// context's reporter directly — losing the report entirely would hide the
// failure.
func (inv *Invoker[H]) reportPanic(info string) {
	if !inv.dsp.dispatchPanic(info) {
		inv.dsp.ctx.reportPanic(info)
	}
}

// invokeResult carries one invocation outcome over the one-shot channel.
type invokeResult[R any] struct {
	value R
	err   error
}

// Invoke marshals param onto the owner goroutine and runs fn(target,
// param) there, returning fn's result to the calling goroutine.
//
// The parameter crosses the boundary type-erased and is recovered exactly
// once on the owner side. Liveness is re-checked at execution time, not at
// post time.
//
// Returns:
//   - R: fn's return value
//   - error: ErrTargetDead when the object or its loop was destroyed
//     before the call ran; ErrPanicked when fn itself panicked on the
//     owner thread (the panic is contained and reported there)
func Invoke[H Handler, P, R any](inv *Invoker[H], param P, fn func(H, P) R) (R, error) {
	var zero R
	if inv.watch.Dead() {
		return zero, ErrTargetDead
	}

	out := make(chan invokeResult[R], 1)
	target := inv.target
	erased := func(p any, alive bool) {
		if !alive {
			out <- invokeResult[R]{err: ErrTargetDead}
			return
		}
		defer func() {
			if r := recover(); r != nil {
				out <- invokeResult[R]{err: ErrPanicked}
				// Re-raise so the delivery boundary reports it.
				panic(r)
			}
		}()
		out <- invokeResult[R]{value: fn(target, p.(P))}
	}

	if !inv.dsp.dispatchInvoke(param, erased, inv.watch) {
		return zero, ErrTargetDead
	}

	res := <-out
	return res.value, res.err
}

// panicInfo renders a recovered panic value with a backtrace for the
// owner thread's error path.
func panicInfo(r any) string {
	var msg string
	switch v := r.(type) {
	case string:
		msg = v
	case error:
		msg = v.Error()
	default:
		msg = fmt.Sprintf("%v", v)
	}
	return msg + "\nbacktrace:\n" + string(debug.Stack())
}
