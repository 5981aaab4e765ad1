// Package journal persists reactor diagnostic records to SQLite.
//
// This package manages:
//   - A local SQLite database for contained panic reports
//   - WAL mode and busy timeout configuration for concurrent access
//   - Retention-based pruning of old entries
//
// The journal is the durable half of panic containment: a panic caught
// inside a background task or an owner-thread completion is reported,
// logged, and recorded here so it survives a process restart.
//
// # Configuration
//
// The journal is configured via the JournalConfig in config.yaml:
//
//	journal:
//	  enabled: true
//	  path: "./data/grayreactor.db"
//	  wal_mode: true
//	  busy_timeout: 5   # seconds
//	  retention: 30     # days, 0 keeps everything
//
// # Usage
//
//	j, err := journal.Open(cfg.Journal)
//	if err != nil {
//	    return err
//	}
//	defer j.Close()
//
//	j.RecordPanic(ctx, "task panicked: index out of range")
package journal
