package netutil

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/parsiad/tbman/internal/sentinel"
)

// ErrExhausted is returned by Find when no free port was found within the
// attempt budget.
const ErrExhausted = sentinel.Error("no free port found in range")

// probeTimeout bounds the TCP connect attempt used to test whether a port is
// occupied. Probes go to the loopback interface, so anything beyond a few
// hundred milliseconds means the connection was refused or dropped.
const probeTimeout = 250 * time.Millisecond

// Registry allocates ports by random probing and tracks ports currently
// reserved by this process. The reservation map prevents the TOCTOU race
// where two concurrent Find calls probe the same port as free before either
// child process has bound it. A reservation does not protect against
// unrelated processes on the host racing for the same port; probe-then-use
// is best effort by design.
//
// The Manager creates one Registry and shares it across all launches.
type Registry struct {
	mu    sync.Mutex
	ports map[int]struct{}
	log   *slog.Logger
}

// NewRegistry creates a Registry ready for use.
// If logger is nil, slog.Default() is used as a fallback.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		ports: make(map[int]struct{}),
		log:   logger,
	}
}

// reserve attempts to register a port in the registry.
// Returns true if the port was reserved, false if already taken.
func (r *Registry) reserve(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ports[port]; ok {
		return false
	}
	r.ports[port] = struct{}{}
	return true
}

// Release removes a port from the registry, allowing it to be handed out
// again. Callers release a port when the instance bound to it stops, or when
// a launch fails after allocation.
func (r *Registry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// Reserved reports whether the port is currently reserved in the registry.
func (r *Registry) Reserved(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ports[port]
	return ok
}

// Find picks up to maxAttempts uniformly random ports in [low, high) and
// probes each with a TCP connect to localhost. A successful connection means
// the port is occupied; a refused or failed connection means the port is
// presumed free, in which case it is reserved in the registry and returned.
// Ports already reserved by this process are skipped without a probe.
//
// Random probing is preferred over a linear scan: a scan would repeatedly
// collide with a cluster of occupied low-numbered ports, while random picks
// amortize better under light contention and need no shared free-list.
//
// Returns ErrExhausted (wrapped) when the attempt budget runs out.
func (r *Registry) Find(low, high, maxAttempts int) (int, error) {
	if low >= high {
		return 0, fmt.Errorf("invalid port range [%d, %d)", low, high)
	}
	if maxAttempts <= 0 {
		return 0, fmt.Errorf("max attempts must be positive, got %d", maxAttempts)
	}

	for range maxAttempts {
		port := low + rand.IntN(high-low) //nolint:gosec // G404: port selection needs spread, not cryptographic strength
		if r.Reserved(port) {
			continue
		}
		if probeOccupied(port) {
			r.log.Debug("port occupied, retrying", "port", port)
			continue
		}
		if !r.reserve(port) {
			// A concurrent Find reserved it between the probe and the
			// reserve. Spend another attempt.
			continue
		}
		return port, nil
	}
	return 0, fmt.Errorf("probe %d ports in [%d, %d): %w", maxAttempts, low, high, ErrExhausted)
}

// probeOccupied reports whether something is listening on the port.
func probeOccupied(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", strconv.Itoa(port)), probeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
