package reactor

import "sync/atomic"

// Stats is a point-in-time snapshot of reactor activity counters.
// Counters are process-wide and monotonically increasing.
type Stats struct {
	// Spawned is the number of tasks submitted via Spawn.
	Spawned uint64
	// Completed is the number of completions delivered to owner threads.
	Completed uint64
	// Cancelled is the number of tasks abandoned via CancelHandle or
	// HandlerState teardown before delivery.
	Cancelled uint64
	// Panicked is the number of panics contained in background tasks.
	Panicked uint64
	// Delivered is the number of envelopes unboxed on an owner thread.
	Delivered uint64
	// DispatchFailed is the number of envelopes released because the
	// owner thread or its loop disappeared.
	DispatchFailed uint64
	// QueueRetries is the number of queue-full retries during posting.
	QueueRetries uint64
}

// reactorStats is the process-wide counter block behind Snapshot.
var reactorStats struct {
	spawned        atomic.Uint64
	completed      atomic.Uint64
	cancelled      atomic.Uint64
	panicked       atomic.Uint64
	delivered      atomic.Uint64
	dispatchFailed atomic.Uint64
	queueRetries   atomic.Uint64
}

// Snapshot returns the current reactor activity counters.
//
// Thread Safety: safe for concurrent use; the snapshot is not atomic
// across fields, which is fine for monitoring purposes.
func Snapshot() Stats {
	return Stats{
		Spawned:        reactorStats.spawned.Load(),
		Completed:      reactorStats.completed.Load(),
		Cancelled:      reactorStats.cancelled.Load(),
		Panicked:       reactorStats.panicked.Load(),
		Delivered:      reactorStats.delivered.Load(),
		DispatchFailed: reactorStats.dispatchFailed.Load(),
		QueueRetries:   reactorStats.queueRetries.Load(),
	}
}
