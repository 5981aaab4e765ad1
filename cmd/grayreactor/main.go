// Gray Reactor - Cross-Thread Invocation Service
//
// This is the main entry point for the Gray Reactor service. It hosts an
// owner thread pumping a channel event loop, runs background work on the
// shared reactor runtime, and demonstrates owner-thread delivery of
// completions from MQTT and HTTP collaborators.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-reactor/internal/clients/mqtt"
	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/journal"
	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/telemetry"
	"github.com/nerrad567/gray-logic-reactor/reactor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Reactor",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open diagnostic journal (optional)
	var diag *journal.Journal
	if cfg.Journal.Enabled {
		diag, err = journal.Open(cfg.Journal)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer func() {
			log.Info("closing journal")
			if closeErr := diag.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()
		log.Info("journal opened", "path", cfg.Journal.Path)

		if recordErr := diag.RecordEvent(ctx, "startup", `{"version":"`+version+`"}`); recordErr != nil {
			log.Warn("failed to journal startup", "error", recordErr)
		}
	} else {
		log.Info("journal disabled")
	}

	// Connect to MQTT broker (optional; the service runs without it)
	var mqttClient *mqtt.Client
	mqttClient, err = mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("MQTT unavailable, heartbeats will not be published", "error", err)
		mqttClient = nil
	} else {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	}

	// Connect telemetry export (optional)
	if cfg.Telemetry.Enabled {
		tsClient, tsErr := telemetry.Connect(cfg.Telemetry)
		if tsErr != nil {
			return fmt.Errorf("connecting telemetry: %w", tsErr)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := tsClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)

		tsClient.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})

		exporter := telemetry.NewExporter(tsClient, cfg.Telemetry, log)
		go exporter.Run(ctx)
	} else {
		log.Info("telemetry disabled")
	}

	// The owner thread: this goroutine pumps the event loop, so every
	// completion in this process executes here.
	loop := reactor.NewChannelLoop(0)
	owner := reactor.Bind(loop,
		reactor.WithLogger(log),
		reactor.WithPanicReporter(panicReporter(log, diag)),
	)
	defer owner.Close()
	defer reactor.Finalize()

	mon := newMonitor(owner, cfg, log, mqttClient)
	mon.start()
	defer mon.stop()

	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received, closing event loop")
		loop.Close()
	}()

	log.Info("initialisation complete, pumping event loop")
	loop.Run()

	if diag != nil {
		summary, marshalErr := json.Marshal(reactor.Snapshot())
		if marshalErr == nil {
			if recordErr := diag.RecordEvent(context.Background(), "shutdown", string(summary)); recordErr != nil {
				log.Warn("failed to journal shutdown", "error", recordErr)
			}
		}
	}

	log.Info("Gray Reactor stopped")
	return nil
}

// panicReporter builds the sink for panics the reactor contains: always
// logged, and recorded in the journal when one is open.
func panicReporter(log *logging.Logger, diag *journal.Journal) func(info string) {
	return func(info string) {
		log.Error("panic contained by reactor", "panic", info)
		if diag == nil {
			return
		}
		if err := diag.RecordPanic(context.Background(), info); err != nil {
			log.Error("failed to journal panic", "error", err)
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses GRAYREACTOR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYREACTOR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
