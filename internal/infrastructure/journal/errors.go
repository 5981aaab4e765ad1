package journal

import "errors"

// Sentinel errors for journal operations.
var (
	// ErrDisabled indicates the journal is disabled in config.
	ErrDisabled = errors.New("journal: disabled in configuration")

	// ErrClosed indicates an operation on a closed journal.
	ErrClosed = errors.New("journal: closed")
)
