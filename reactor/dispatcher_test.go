package reactor

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatch_DeliversOnOwnerLoop(t *testing.T) {
	loop := NewChannelLoop(16)
	ctx := Bind(loop)
	defer ctx.Close()
	defer loop.Close()

	go loop.Run()

	state := NewHandlerState()
	defer state.Close()

	type outcome struct {
		param any
		alive bool
	}
	got := make(chan outcome, 1)

	ok := ctx.Dispatcher().dispatchInvoke("payload", func(param any, alive bool) {
		got <- outcome{param: param, alive: alive}
	}, state.Watch())
	if !ok {
		t.Fatal("dispatchInvoke() = false with live loop")
	}

	select {
	case o := <-got:
		if o.param != "payload" {
			t.Errorf("delivered param = %v, want %q", o.param, "payload")
		}
		if !o.alive {
			t.Error("delivered alive = false for live target")
		}
	case <-time.After(time.Second):
		t.Fatal("completion never ran")
	}
}

func TestDispatch_DeadTargetReleasesEnvelope(t *testing.T) {
	loop := NewChannelLoop(16)
	ctx := Bind(loop)
	defer ctx.Close()
	defer loop.Close()

	// Nobody pumps the loop; the target dies while the envelope is queued.
	state := NewHandlerState()
	watch := state.Watch()
	state.Close()

	var aliveAtRun atomic.Bool
	aliveAtRun.Store(true)
	ran := make(chan struct{})

	ok := ctx.Dispatcher().dispatchInvoke(nil, func(_ any, alive bool) {
		aliveAtRun.Store(alive)
		close(ran)
	}, watch)
	if ok {
		t.Fatal("dispatchInvoke() = true for dead target on unpumped loop")
	}

	// Release still ran the completion, with alive=false, so cleanup
	// happens exactly once.
	select {
	case <-ran:
	default:
		t.Fatal("released envelope did not run its completion")
	}
	if aliveAtRun.Load() {
		t.Error("released completion saw alive = true")
	}
}

func TestDispatch_ClosedLoopFailsFast(t *testing.T) {
	loop := NewChannelLoop(16)
	ctx := Bind(loop)
	defer ctx.Close()

	state := NewHandlerState()
	defer state.Close()

	loop.Close()

	ran := make(chan bool, 1)
	ok := ctx.Dispatcher().dispatchInvoke(nil, func(_ any, alive bool) {
		ran <- alive
	}, state.Watch())
	if ok {
		t.Fatal("dispatchInvoke() = true on closed loop")
	}

	select {
	case alive := <-ran:
		if alive {
			t.Error("completion on closed loop saw alive = true")
		}
	default:
		t.Fatal("completion cleanup did not run")
	}
}

func TestDispatch_QueueFullRetries(t *testing.T) {
	loop := NewChannelLoop(1)
	ctx := Bind(loop)
	defer ctx.Close()
	defer loop.Close()

	// Occupy the single queue slot so the dispatch has to retry.
	if err := loop.Post(newTestMsg()); err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	state := NewHandlerState()
	defer state.Close()

	retriesBefore := Snapshot().QueueRetries

	result := make(chan bool)
	go func() {
		result <- ctx.Dispatcher().dispatchInvoke(nil, func(any, bool) {}, state.Watch())
	}()

	// Let at least one retry happen, then start pumping.
	time.Sleep(150 * time.Millisecond)
	go loop.Run()

	select {
	case ok := <-result:
		if !ok {
			t.Error("dispatchInvoke() = false after queue drained")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch never completed")
	}

	if Snapshot().QueueRetries == retriesBefore {
		t.Error("queue-full retry was not counted")
	}
}

func TestDispatchPanic_ReachesReporter(t *testing.T) {
	loop := NewChannelLoop(16)

	reports := make(chan string, 1)
	ctx := Bind(loop, WithPanicReporter(func(info string) {
		reports <- info
	}))
	defer ctx.Close()
	defer loop.Close()

	go loop.Run()

	if !ctx.Dispatcher().dispatchPanic("task exploded") {
		t.Fatal("dispatchPanic() = false with live loop")
	}

	select {
	case info := <-reports:
		if info != "task exploded" {
			t.Errorf("reported info = %q, want %q", info, "task exploded")
		}
	case <-time.After(time.Second):
		t.Fatal("panic report never delivered")
	}
}
