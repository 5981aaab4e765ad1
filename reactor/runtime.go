package reactor

import "sync"

// Process-wide background runtime. Created lazily on the first submitted
// task, detached and stopped when the last OwnerContext closes, and shut
// down for good by Finalize.
var (
	runtimeMu        sync.Mutex
	globalRuntime    *backgroundRuntime
	runtimeFinalized bool
)

// submit hands a task to the background runtime, starting it if needed.
//
// Called with work from Spawn, SpawnBlocking and collaborator clients.
// Panics if the process has been finalized: no owner context should exist
// by then, so a late submission is a usage error, not a recoverable
// condition.
func submit(task func()) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	if runtimeFinalized {
		panic("reactor: task submitted after Finalize")
	}
	if globalRuntime == nil {
		globalRuntime = startRuntime()
	}
	globalRuntime.push(task)
}

// shutdownRuntime detaches the current runtime and stops it. Invoked when
// the last OwnerContext closes. The runtime is detached under the lock but
// stopped outside it, so a task that races a submission during teardown
// lazily starts a fresh runtime instead of deadlocking against the drain.
func shutdownRuntime() {
	runtimeMu.Lock()
	rt := globalRuntime
	globalRuntime = nil
	runtimeMu.Unlock()
	if rt != nil {
		rt.stop()
	}
}

// Finalize is the process-wide teardown hook. The host calls it exactly
// once when it signals full shutdown: the background runtime is drained
// and stopped, and any subsequent task submission panics.
//
// Idempotent, so defensive double-calls during host teardown are harmless.
func Finalize() {
	runtimeMu.Lock()
	if runtimeFinalized {
		runtimeMu.Unlock()
		return
	}
	runtimeFinalized = true
	rt := globalRuntime
	globalRuntime = nil
	runtimeMu.Unlock()
	if rt != nil {
		rt.stop()
	}
}

// backgroundRuntime runs submitted tasks on goroutines coordinated by a
// single dispatch goroutine fed from an unbounded queue. The queue is
// unbounded so that submission never blocks an owner thread.
type backgroundRuntime struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	closing bool
	stopped chan struct{}
}

// startRuntime creates the runtime and starts its dispatch goroutine.
func startRuntime() *backgroundRuntime {
	rt := &backgroundRuntime{stopped: make(chan struct{})}
	rt.cond = sync.NewCond(&rt.mu)
	go rt.run()
	return rt
}

// push enqueues a task. Never blocks.
func (rt *backgroundRuntime) push(task func()) {
	rt.mu.Lock()
	rt.queue = append(rt.queue, task)
	rt.cond.Signal()
	rt.mu.Unlock()
}

// run is the dispatch loop. Each task runs on its own goroutine with panic
// containment, so one panicking task can never take down the runtime —
// subsequent submissions still execute. The loop drains the queue after
// closing is set, waits for running tasks, then signals stopped.
func (rt *backgroundRuntime) run() {
	var wg sync.WaitGroup
	for {
		rt.mu.Lock()
		for len(rt.queue) == 0 && !rt.closing {
			rt.cond.Wait()
		}
		if len(rt.queue) == 0 {
			rt.mu.Unlock()
			break
		}
		task := rt.queue[0]
		rt.queue = rt.queue[1:]
		rt.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					// Tasks submitted through Spawn carry their own
					// recovery and reporting; this is the backstop for
					// raw submissions.
					reactorStats.panicked.Add(1)
				}
			}()
			task()
		}()
	}
	wg.Wait()
	close(rt.stopped)
}

// stop closes the queue and waits for the dispatch goroutine to
// acknowledge exit. The caller may itself be inside process teardown, so
// this never joins a thread: it polls the stopped signal non-blockingly
// first, then waits on the explicit signal.
func (rt *backgroundRuntime) stop() {
	rt.mu.Lock()
	rt.closing = true
	rt.cond.Signal()
	rt.mu.Unlock()

	select {
	case <-rt.stopped:
		return
	default:
	}
	<-rt.stopped
}
