package reactor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// testHost is a minimal owner-thread object for exercising Spawn and
// Invoke.
type testHost struct {
	state *HandlerState
	ctx   *OwnerContext

	// Owner-goroutine state, mutated only inside completions.
	results []int
}

func (h *testHost) HandlerState() *HandlerState { return h.state }
func (h *testHost) OwnerContext() *OwnerContext { return h.ctx }

// newTestHost binds a fresh loop, pumps it on a background goroutine and
// returns a host object whose completions run on that pump.
func newTestHost(t *testing.T, opts ...ContextOption) (*testHost, *ChannelLoop) {
	t.Helper()

	loop := NewChannelLoop(64)
	ctx := Bind(loop, opts...)
	t.Cleanup(func() {
		ctx.Close()
		loop.Close()
	})

	go loop.Run()

	return &testHost{
		state: NewHandlerState(),
		ctx:   ctx,
	}, loop
}

func TestSpawn_DeliversResult(t *testing.T) {
	host, _ := newTestHost(t)
	defer host.state.Close()

	got := make(chan int, 1)
	Spawn(host, func(_ context.Context) int {
		return 42
	}, func(h *testHost, value int) {
		h.results = append(h.results, value)
		got <- value
	})

	select {
	case v := <-got:
		if v != 42 {
			t.Errorf("delivered value = %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("completion never ran")
	}

	// The slot is removed by delivery.
	if n := host.state.pendingCount(); n != 0 {
		t.Errorf("pendingCount() after delivery = %d, want 0", n)
	}
}

func TestSpawn_CancelPreventsCompletion(t *testing.T) {
	host, _ := newTestHost(t)
	defer host.state.Close()

	taskDone := make(chan struct{})
	ran := make(chan struct{}, 1)
	handle := Spawn(host, func(ctx context.Context) int {
		defer close(taskDone)
		<-ctx.Done()
		return 1
	}, func(*testHost, int) {
		ran <- struct{}{}
	})

	if !handle.Cancel() {
		t.Fatal("Cancel() = false for pending task")
	}

	select {
	case <-taskDone:
	case <-time.After(time.Second):
		t.Fatal("cancelled task never observed its context")
	}

	select {
	case <-ran:
		t.Error("completion ran for cancelled task")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSpawn_CancelAfterCompletion(t *testing.T) {
	host, _ := newTestHost(t)
	defer host.state.Close()

	got := make(chan struct{})
	handle := Spawn(host, func(_ context.Context) int {
		return 1
	}, func(*testHost, int) {
		close(got)
	})

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("completion never ran")
	}

	if handle.Cancel() {
		t.Error("Cancel() = true after the task already completed")
	}
}

func TestSpawn_OwnerDestroyedMidFlight(t *testing.T) {
	host, _ := newTestHost(t)

	release := make(chan struct{})
	ran := make(chan struct{}, 1)
	Spawn(host, func(ctx context.Context) int {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return 7
	}, func(*testHost, int) {
		ran <- struct{}{}
	})

	// Destroy the object while the task is in flight, then let the task
	// finish.
	host.state.Close()
	close(release)

	select {
	case <-ran:
		t.Error("completion ran after owner object was destroyed")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSpawn_PanicContained(t *testing.T) {
	reports := make(chan string, 1)
	host, _ := newTestHost(t, WithPanicReporter(func(info string) {
		reports <- info
	}))
	defer host.state.Close()

	before := Snapshot().Panicked

	ran := make(chan struct{}, 1)
	Spawn(host, func(_ context.Context) int {
		panic("task exploded")
	}, func(*testHost, int) {
		ran <- struct{}{}
	})

	select {
	case info := <-reports:
		if !strings.Contains(info, "task exploded") {
			t.Errorf("panic report %q does not contain the panic value", info)
		}
		if !strings.Contains(info, "backtrace:") {
			t.Errorf("panic report %q does not contain a backtrace", info)
		}
	case <-time.After(time.Second):
		t.Fatal("panic report never delivered")
	}

	select {
	case <-ran:
		t.Error("completion ran for panicked task")
	case <-time.After(100 * time.Millisecond):
	}

	if Snapshot().Panicked == before {
		t.Error("panic was not counted")
	}

	// The panicked task's slot is marked reusable.
	if n := host.state.pendingCount(); n != 0 {
		t.Errorf("pendingCount() after panic = %d, want 0", n)
	}
}

func TestSpawnBlocking_ReturnsValue(t *testing.T) {
	v, err := SpawnBlocking(func(_ context.Context) string {
		return "done"
	})
	if err != nil {
		t.Fatalf("SpawnBlocking() error = %v", err)
	}
	if v != "done" {
		t.Errorf("SpawnBlocking() = %q, want %q", v, "done")
	}
}

func TestSpawnBlocking_Panic(t *testing.T) {
	_, err := SpawnBlocking(func(_ context.Context) int {
		panic("blocking task exploded")
	})

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("SpawnBlocking() error = %v, want *PanicError", err)
	}
	if !strings.Contains(panicErr.Info, "blocking task exploded") {
		t.Errorf("PanicError.Info = %q, missing panic value", panicErr.Info)
	}
}

func TestInvoke_DeliversToOwner(t *testing.T) {
	host, _ := newTestHost(t)
	defer host.state.Close()

	inv := NewInvoker(host)

	got, err := Invoke(inv, 3, func(h *testHost, n int) int {
		h.results = append(h.results, n)
		return n * 2
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got != 6 {
		t.Errorf("Invoke() = %d, want 6", got)
	}
}

func TestInvoke_TargetDead(t *testing.T) {
	host, _ := newTestHost(t)

	inv := NewInvoker(host)
	host.state.Close()

	_, err := Invoke(inv, 1, func(_ *testHost, n int) int { return n })
	if !errors.Is(err, ErrTargetDead) {
		t.Errorf("Invoke() error = %v, want ErrTargetDead", err)
	}
}

func TestInvoke_PanicOnOwnerThread(t *testing.T) {
	reports := make(chan string, 1)
	host, _ := newTestHost(t, WithPanicReporter(func(info string) {
		reports <- info
	}))
	defer host.state.Close()

	inv := NewInvoker(host)

	_, err := Invoke(inv, 0, func(*testHost, int) int {
		panic("completion exploded")
	})
	if !errors.Is(err, ErrPanicked) {
		t.Fatalf("Invoke() error = %v, want ErrPanicked", err)
	}

	select {
	case info := <-reports:
		if !strings.Contains(info, "completion exploded") {
			t.Errorf("panic report %q does not contain the panic value", info)
		}
	case <-time.After(time.Second):
		t.Fatal("owner-thread panic was not reported")
	}
}

func TestInvoker_CloneSharesTarget(t *testing.T) {
	host, _ := newTestHost(t)
	defer host.state.Close()

	inv := NewInvoker(host)
	clone := inv.Clone()

	got, err := Invoke(clone, 5, func(_ *testHost, n int) int { return n + 1 })
	if err != nil {
		t.Fatalf("Invoke() via clone error = %v", err)
	}
	if got != 6 {
		t.Errorf("Invoke() via clone = %d, want 6", got)
	}
}

func TestSpawn_DestroyedBetweenCompletionAndPump(t *testing.T) {
	// No pump goroutine: the envelope sits queued while the object dies.
	loop := NewChannelLoop(64)
	ctx := Bind(loop)
	t.Cleanup(func() {
		ctx.Close()
		loop.Close()
	})

	host := &testHost{state: NewHandlerState(), ctx: ctx}

	taskDone := make(chan struct{})
	ran := make(chan struct{}, 1)
	Spawn(host, func(_ context.Context) int {
		defer close(taskDone)
		return 1
	}, func(*testHost, int) {
		ran <- struct{}{}
	})

	select {
	case <-taskDone:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}

	// The completion envelope is now queued (or about to be). Destroy the
	// object, then pump: liveness is re-checked at execution time, so the
	// completion must not run whichever side consumes the envelope.
	host.state.Close()
	time.Sleep(20 * time.Millisecond)
	loop.Pump()
	time.Sleep(150 * time.Millisecond)
	loop.Pump()

	select {
	case <-ran:
		t.Error("completion ran after the owner object was destroyed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSpawn_CancelAfterPanic(t *testing.T) {
	reports := make(chan string, 1)
	host, _ := newTestHost(t, WithPanicReporter(func(info string) {
		reports <- info
	}))
	defer host.state.Close()

	before := Snapshot().Cancelled

	handle := Spawn(host, func(_ context.Context) int {
		panic("finished before cancel")
	}, func(*testHost, int) {})

	select {
	case <-reports:
	case <-time.After(time.Second):
		t.Fatal("panic report never delivered")
	}

	// The task already ended; its handle is stale and must say so.
	if handle.Cancel() {
		t.Error("Cancel() = true for a task that already panicked, want false")
	}
	if got := Snapshot().Cancelled; got != before {
		t.Errorf("cancelled counter = %d, want %d (unchanged)", got, before)
	}
}

func TestSpawn_CancelWhileDeliveryQueued(t *testing.T) {
	// No pump goroutine: the completion envelope stays queued so the
	// cancellation deterministically wins the race.
	loop := NewChannelLoop(64)
	ctx := Bind(loop)
	t.Cleanup(func() {
		ctx.Close()
		loop.Close()
	})

	host := &testHost{state: NewHandlerState(), ctx: ctx}
	defer host.state.Close()

	before := Snapshot().Completed

	taskDone := make(chan struct{})
	ran := make(chan struct{}, 1)
	handle := Spawn(host, func(_ context.Context) int {
		defer close(taskDone)
		return 9
	}, func(*testHost, int) {
		ran <- struct{}{}
	})

	select {
	case <-taskDone:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}

	// Let the runtime reach delivery before cancelling.
	time.Sleep(50 * time.Millisecond)
	handle.Cancel()

	loop.Pump()
	time.Sleep(50 * time.Millisecond)
	loop.Pump()

	select {
	case <-ran:
		t.Error("completion ran after cancellation")
	default:
	}

	// A suppressed delivery is not a completion.
	if got := Snapshot().Completed; got != before {
		t.Errorf("completed counter = %d, want %d (unchanged)", got, before)
	}
}

func TestSpawn_LoopClosedReclaimsSlot(t *testing.T) {
	loop := NewChannelLoop(8)
	ctx := Bind(loop)
	t.Cleanup(func() { ctx.Close() })
	loop.Close()

	host := &testHost{state: NewHandlerState(), ctx: ctx}
	defer host.state.Close()

	Spawn(host, func(_ context.Context) int { return 1 }, func(*testHost, int) {})

	// The failed delivery must flag the slot so its storage is reusable
	// while the object itself stays open.
	deadline := time.After(time.Second)
	for host.state.pendingCount() != 0 {
		select {
		case <-deadline:
			t.Fatalf("pendingCount() = %d after failed delivery, want 0", host.state.pendingCount())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
