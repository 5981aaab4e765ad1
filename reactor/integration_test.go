package reactor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// TestLifecycle_CancelCompleteDestroy exercises the three canonical task
// fates side by side on one owner thread: a cancelled task, a task that
// completes normally, and a task orphaned by object destruction.
func TestLifecycle_CancelCompleteDestroy(t *testing.T) {
	host, _ := newTestHost(t)

	delivered := make(chan int, 3)

	// Task A: slow, cancelled before it finishes.
	handleA := Spawn(host, func(ctx context.Context) int {
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
		}
		return 1
	}, func(_ *testHost, v int) {
		delivered <- v
	})
	if !handleA.Cancel() {
		t.Fatal("Cancel() = false for in-flight task A")
	}

	// Task B: completes and must deliver its exact value.
	Spawn(host, func(_ context.Context) int {
		return 2
	}, func(_ *testHost, v int) {
		delivered <- v
	})

	select {
	case v := <-delivered:
		if v != 2 {
			t.Fatalf("delivered value = %d, want 2 (task A was cancelled)", v)
		}
	case <-time.After(time.Second):
		t.Fatal("task B's completion never ran")
	}

	// Task C: long-running; the owner object is destroyed mid-flight.
	taskCDone := make(chan struct{})
	Spawn(host, func(ctx context.Context) int {
		defer close(taskCDone)
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return 3
	}, func(_ *testHost, v int) {
		delivered <- v
	})

	time.Sleep(20 * time.Millisecond)
	host.state.Close()

	select {
	case <-taskCDone:
	case <-time.After(2 * time.Second):
		t.Fatal("task C did not observe the teardown")
	}

	select {
	case v := <-delivered:
		t.Errorf("completion %d delivered after teardown", v)
	case <-time.After(200 * time.Millisecond):
	}
}

// TestDelivery_ExactlyOnce spawns a burst of tasks and verifies every
// completion runs exactly once on the owner goroutine.
func TestDelivery_ExactlyOnce(t *testing.T) {
	host, _ := newTestHost(t)
	defer host.state.Close()

	const n = 100
	var counter atomic.Int64
	done := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		i := i
		Spawn(host, func(_ context.Context) int {
			return i
		}, func(_ *testHost, _ int) {
			counter.Add(1)
			done <- struct{}{}
		})
	}

	for received := 0; received < n; received++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d completions delivered", received, n)
		}
	}

	// Nothing delivers twice.
	time.Sleep(100 * time.Millisecond)
	if got := counter.Load(); got != n {
		t.Errorf("completions ran %d times, want exactly %d", got, n)
	}

	if pending := host.state.pendingCount(); pending != 0 {
		t.Errorf("pendingCount() = %d after all deliveries, want 0", pending)
	}
}

// TestProgress_InvokerMidFlight covers a background task streaming
// progress to the owner thread before delivering its final result.
func TestProgress_InvokerMidFlight(t *testing.T) {
	host, _ := newTestHost(t)
	defer host.state.Close()

	inv := NewInvoker(host)

	final := make(chan int, 1)
	progressTotal := make(chan int, 1)

	Spawn(host, func(_ context.Context) int {
		clone := inv.Clone()
		total := 0
		for step := 1; step <= 3; step++ {
			got, err := Invoke(clone, step, func(_ *testHost, s int) int {
				// Owner goroutine: accumulate without locks.
				return s
			})
			if err != nil {
				return -1
			}
			total += got
		}
		progressTotal <- total
		return total
	}, func(_ *testHost, v int) {
		final <- v
	})

	select {
	case total := <-progressTotal:
		if total != 6 {
			t.Errorf("progress sum = %d, want 6", total)
		}
	case <-time.After(time.Second):
		t.Fatal("progress invocations never completed")
	}

	select {
	case v := <-final:
		if v != 6 {
			t.Errorf("final value = %d, want 6", v)
		}
	case <-time.After(time.Second):
		t.Fatal("final completion never ran")
	}
}
