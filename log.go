package tbman

import (
	"log/slog"

	"github.com/parsiad/tbman/internal/core"
)

// SetLogger replaces the package-level logger used by tbman.
// This allows applications to integrate tbman logging with their own
// logging infrastructure. The provided logger should already have any
// desired attributes; tbman will not add additional attributes.
//
// If l is nil, the logger resets to the default: slog.Default() with
// "component" attribute, re-derived on the next use and then cached.
// Call SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with other tbman operations, but
// for a strict happens-before guarantee call it before constructing a
// Manager.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
