package tbman

import (
	"fmt"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("tbman: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("tbman: %s must not be empty", name))
	}
}

// Option configures a Manager during construction via New.
// Each With* function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (empty paths, inverted port
// ranges, non-positive durations). These panics are intentional: option
// values are typically compile-time constants or flag defaults, so an invalid
// value indicates a programmer error rather than a runtime condition. The
// pattern mirrors [regexp.MustCompile] — fail fast during initialization
// instead of returning errors that would be universally fatal anyway.
type Option func(*managerConfig)

// WithHost sets the address new TensorBoard instances bind to.
// Default: DefaultHost.
// Panics if host is empty.
func WithHost(host string) Option {
	requireNonEmpty("host", host)
	return func(c *managerConfig) {
		c.Host = host
	}
}

// WithTensorBoardBinary sets the path or name of the TensorBoard executable.
// Default: DefaultTensorBoardBinary, resolved through PATH.
// Panics if binPath is empty.
func WithTensorBoardBinary(binPath string) Option {
	requireNonEmpty("tensorboard binary path", binPath)
	return func(c *managerConfig) {
		c.TensorBoardBinary = binPath
	}
}

// WithPortRange sets the half-open port allocation range [low, high).
// Defaults: DefaultPortLow, DefaultPortHigh.
// Panics if low <= 0 or high <= low.
func WithPortRange(low, high int) Option {
	requirePositive("port range lower bound", low)
	if high <= low {
		panic(fmt.Sprintf("tbman: port range [%d, %d) is empty", low, high))
	}
	return func(c *managerConfig) {
		c.PortLow = low
		c.PortHigh = high
	}
}

// WithPortAttempts sets the number of random probes made per port
// allocation before giving up with ErrPortExhausted.
// Default: DefaultPortAttempts.
// Panics if n <= 0.
func WithPortAttempts(n int) Option {
	requirePositive("port attempts", n)
	return func(c *managerConfig) {
		c.PortAttempts = n
	}
}

// WithSessionPath sets the session file location. The sidecar lock file is
// derived from it by appending ".lock".
// Default: DefaultSessionPath().
// Panics if path is empty.
func WithSessionPath(path string) Option {
	requireNonEmpty("session path", path)
	return func(c *managerConfig) {
		c.SessionPath = path
	}
}

// WithStopTimeout sets the maximum time allowed for a TensorBoard process
// to stop when its instance is stopped.
// Default: DefaultStopTimeout.
// Panics if d <= 0.
func WithStopTimeout(d time.Duration) Option {
	requirePositive("stop timeout", d)
	return func(c *managerConfig) {
		c.StopTimeout = d
	}
}
