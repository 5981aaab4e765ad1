// Package telemetry exports reactor runtime counters to InfluxDB.
//
// This package manages:
//   - Connection to an InfluxDB v2 server with token authentication
//   - Non-blocking, batched writes of counter snapshots
//   - A periodic exporter that samples the reactor's counters
//
// # Configuration
//
// Telemetry is configured via the TelemetryConfig in config.yaml:
//
//	telemetry:
//	  enabled: true
//	  url: "http://localhost:8086"
//	  org: "grayreactor"
//	  bucket: "reactor"
//	  interval: 15        # seconds between counter samples
//	  batch_size: 100
//	  flush_interval: 10  # seconds
//
// The token should be provided via the GRAYREACTOR_TELEMETRY_TOKEN
// environment variable rather than the config file.
//
// # Usage
//
//	client, err := telemetry.Connect(cfg.Telemetry)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	exporter := telemetry.NewExporter(client, cfg.Telemetry, logger)
//	go exporter.Run(ctx)
package telemetry
