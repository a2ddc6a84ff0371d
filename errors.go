package tbman

import (
	"github.com/parsiad/tbman/internal/core"
	"github.com/parsiad/tbman/internal/store"
)

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrPortExhausted is returned by Launch when no free port is found in
	// the configured range within the probe budget.
	ErrPortExhausted = core.ErrPortExhausted

	// ErrInstanceNotFound is returned by Stop when no live instance has the
	// given identifier.
	ErrInstanceNotFound = core.ErrInstanceNotFound

	// ErrShuttingDown is returned by Launch after Shutdown has started.
	ErrShuttingDown = core.ErrShuttingDown

	// ErrSessionLocked is returned by New when another process already
	// holds the session file.
	ErrSessionLocked = store.ErrLocked
)
