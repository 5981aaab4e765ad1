package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/nerrad567/gray-logic-reactor/internal/clients/httpclient"
	"github.com/nerrad567/gray-logic-reactor/internal/clients/mqtt"
	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-reactor/reactor"
)

// heartbeatInterval is how often the monitor samples and publishes.
const heartbeatInterval = 30 * time.Second

// heartbeatTopic carries the periodic counter snapshot.
const heartbeatTopic = "grayreactor/system/heartbeat"

// monitor is the demo owner-thread object. It lives on the main
// goroutine, spawns a heartbeat task on the background runtime, and
// receives each completion back on the event loop it was created under.
//
// All fields are owner-thread state; nothing here needs a mutex because
// completions are the only writers and they all run on the owner
// goroutine.
type monitor struct {
	state *reactor.HandlerState
	owner *reactor.OwnerContext
	log   *logging.Logger

	mqttClient *mqtt.Client
	httpClient *httpclient.Client

	seq     uint64
	stopped bool
}

func newMonitor(owner *reactor.OwnerContext, cfg *config.Config, log *logging.Logger, mqttClient *mqtt.Client) *monitor {
	return &monitor{
		state:      reactor.NewHandlerState(),
		owner:      owner,
		log:        log.With("component", "monitor"),
		mqttClient: mqttClient,
		httpClient: httpclient.New(cfg.HTTP),
	}
}

// HandlerState returns the monitor's cancellation registry.
func (m *monitor) HandlerState() *reactor.HandlerState { return m.state }

// OwnerContext returns the context of the thread hosting the monitor.
func (m *monitor) OwnerContext() *reactor.OwnerContext { return m.owner }

// start kicks off the heartbeat chain and the optional startup probe.
func (m *monitor) start() {
	m.scheduleHeartbeat()

	if probeURL := os.Getenv("GRAYREACTOR_PROBE_URL"); probeURL != "" {
		m.probe(probeURL)
	}
}

// stop tears the monitor down: every in-flight task is cancelled and no
// further completion will run.
func (m *monitor) stop() {
	m.stopped = true
	m.state.Close()
}

// scheduleHeartbeat spawns one heartbeat cycle. The completion runs on
// the owner goroutine and schedules the next cycle, so exactly one cycle
// is ever in flight.
func (m *monitor) scheduleHeartbeat() {
	reactor.Spawn(m, func(ctx context.Context) reactor.Stats {
		select {
		case <-time.After(heartbeatInterval):
		case <-ctx.Done():
		}
		return reactor.Snapshot()
	}, (*monitor).onHeartbeat)
}

// onHeartbeat publishes the sampled counters and schedules the next
// cycle. Owner goroutine only.
func (m *monitor) onHeartbeat(stats reactor.Stats) {
	if m.stopped {
		return
	}

	m.seq++
	m.log.Debug("heartbeat",
		"seq", m.seq,
		"spawned", stats.Spawned,
		"completed", stats.Completed,
		"panicked", stats.Panicked,
	)

	if m.mqttClient != nil {
		payload, err := json.Marshal(map[string]any{
			"seq":             m.seq,
			"spawned":         stats.Spawned,
			"completed":       stats.Completed,
			"cancelled":       stats.Cancelled,
			"panicked":        stats.Panicked,
			"delivered":       stats.Delivered,
			"dispatch_failed": stats.DispatchFailed,
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		})
		if err == nil {
			mqtt.PublishVia(m, m.mqttClient, heartbeatTopic, payload, true,
				func(target *monitor, pubErr error) {
					if pubErr != nil {
						target.log.Warn("heartbeat publish failed", "error", pubErr)
					}
				})
		}
	}

	m.scheduleHeartbeat()
}

// probe fetches a URL once at startup, logging progress and outcome from
// the owner goroutine.
func (m *monitor) probe(url string) {
	m.log.Info("startup probe", "url", url)

	httpclient.FetchVia(m, m.httpClient, url,
		func(target *monitor, read, total int64) {
			target.log.Debug("probe progress", "read", read, "total", total)
		},
		func(target *monitor, res httpclient.Result) {
			if res.Err != nil {
				target.log.Warn("probe failed", "error", res.Err)
				return
			}
			target.log.Info("probe complete",
				"status", res.Response.StatusCode,
				"bytes", len(res.Response.Body),
			)
		})
}
