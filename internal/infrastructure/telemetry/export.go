package telemetry

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-reactor/reactor"
)

// defaultSampleInterval is used when the configured interval is missing
// or invalid.
const defaultSampleInterval = 15 * time.Second

// Exporter periodically samples the reactor's counters and writes them
// to InfluxDB as a single measurement per sample.
//
// Counters are cumulative; dashboards should apply a derivative to get
// rates.
type Exporter struct {
	client   *Client
	interval time.Duration
	sample   func() reactor.Stats
	log      *logging.Logger
}

// NewExporter creates an exporter sampling reactor.Snapshot at the
// configured interval.
//
// Parameters:
//   - client: Connected telemetry client
//   - cfg: Telemetry configuration (interval in seconds)
//   - log: Logger for export diagnostics
func NewExporter(client *Client, cfg config.TelemetryConfig, log *logging.Logger) *Exporter {
	interval := time.Duration(cfg.Interval) * time.Second
	if interval <= 0 {
		interval = defaultSampleInterval
	}

	return &Exporter{
		client:   client,
		interval: interval,
		sample:   reactor.Snapshot,
		log:      log.With("component", "telemetry"),
	}
}

// Run samples and exports counters until ctx is cancelled.
//
// One final sample is written on shutdown so the last state before exit
// is captured.
func (e *Exporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.log.Info("telemetry exporter started", "interval", e.interval.String())

	for {
		select {
		case <-ctx.Done():
			e.export()
			e.client.Flush()
			e.log.Info("telemetry exporter stopped")
			return
		case <-ticker.C:
			e.export()
		}
	}
}

// export writes one counter snapshot.
func (e *Exporter) export() {
	stats := e.sample()

	e.client.WritePoint("reactor",
		map[string]string{
			"service": "grayreactor",
		},
		map[string]interface{}{
			"spawned":         int64(stats.Spawned),
			"completed":       int64(stats.Completed),
			"cancelled":       int64(stats.Cancelled),
			"panicked":        int64(stats.Panicked),
			"delivered":       int64(stats.Delivered),
			"dispatch_failed": int64(stats.DispatchFailed),
			"queue_retries":   int64(stats.QueueRetries),
		})
}
