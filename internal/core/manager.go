package core

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/parsiad/tbman/internal/logdir"
	"github.com/parsiad/tbman/internal/netutil"
	"github.com/parsiad/tbman/internal/process"
	"github.com/parsiad/tbman/internal/sentinel"
	"github.com/parsiad/tbman/internal/store"
)

// ErrInstanceNotFound is returned by Stop for an identifier that was never
// issued or has already been stopped.
const ErrInstanceNotFound = sentinel.Error("instance not found")

// ErrShuttingDown is returned by Launch once Shutdown has begun.
const ErrShuttingDown = sentinel.Error("manager is shutting down")

// ErrPortExhausted is re-exported from netutil so callers can match port
// exhaustion without importing the allocation internals.
const ErrPortExhausted = netutil.ErrExhausted

// entry pairs a registry Instance with the process handle it exclusively
// owns. Both live and die together.
type entry struct {
	inst Instance
	proc *process.Handle
}

// Manager owns the live instance set. Its registry, a mapping from identifier
// to instance plus process handle, is the single source of truth for what is
// running.
//
// Synchronization: mu guards the registry map and the identifier counter.
// Mutating operations (Launch, Stop, StopAll, Save snapshotting) may be
// called from concurrent request handlers; each takes mu only around registry
// access, so blocking work (port probes, process termination, tree removal)
// never holds up readers. shuttingDown is an atomic flag flipped exactly once
// by Shutdown; Launch rechecks it under mu before inserting so no instance
// can slip into the registry after the shutdown snapshot.
type Manager struct {
	cfg   ManagerConfig
	st    *store.Store
	ports *netutil.Registry

	mu      sync.Mutex
	entries map[int]*entry
	next    int

	shuttingDown atomic.Bool
}

// NewManager validates cfg, builds the registry, and replays the session
// store: every persisted configuration is launched in file order. A config
// that fails to launch (port exhaustion, spawn failure) is skipped with a
// warning, not retried, and does not affect the remaining configs. A session
// file that exists but cannot be parsed is returned as an error; the caller
// treats that as fatal to the whole process rather than discarding state.
//
// The Manager borrows st; the caller keeps ownership and closes it after
// Shutdown.
func NewManager(cfg ManagerConfig, st *store.Store) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manager config: %w", err)
	}
	if st == nil {
		return nil, errors.New("session store must not be nil")
	}

	m := &Manager{
		cfg:     cfg,
		st:      st,
		ports:   netutil.NewRegistry(Logger()),
		entries: make(map[int]*entry),
	}

	records, err := st.Load()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		cfg := Config{Paths: rec.Paths, Title: rec.Title}
		if _, err := m.Launch(cfg); err != nil {
			Logger().Warn("skipping persisted config that failed to launch",
				"title", cfg.Title, "error", err)
		}
	}
	return m, nil
}

// Host returns the address new instances bind to.
func (m *Manager) Host() string {
	return m.cfg.Host
}

// Launch builds a private log directory for cfg, allocates a port, spawns a
// TensorBoard process bound to both, and registers the result under a fresh
// identifier. On any failure nothing is registered and the partially built
// resources (directory, port reservation, process) are torn down:
// port exhaustion surfaces as ErrPortExhausted (wrapped), a spawn failure as
// the wrapped exec error. The registry is unchanged in every failure case.
func (m *Manager) Launch(cfg Config) (Instance, error) {
	if m.shuttingDown.Load() {
		return Instance{}, ErrShuttingDown
	}

	dir, err := logdir.Build(cfg.Paths)
	if err != nil {
		return Instance{}, fmt.Errorf("build log directory: %w", err)
	}

	port, err := m.ports.Find(m.cfg.PortLow, m.cfg.PortHigh, m.cfg.PortAttempts)
	if err != nil {
		_ = os.RemoveAll(dir)
		return Instance{}, fmt.Errorf("allocate port: %w", err)
	}

	proc, err := process.Start(process.StartConfig{
		Binary: m.cfg.TensorBoardBinary,
		Host:   m.cfg.Host,
		Logdir: dir,
		Port:   port,
		Title:  cfg.Title,
		Logger: Logger(),
	})
	if err != nil {
		m.ports.Release(port)
		_ = os.RemoveAll(dir)
		return Instance{}, fmt.Errorf("spawn tensorboard: %w", err)
	}

	m.mu.Lock()
	if m.shuttingDown.Load() {
		// Shutdown began while the process was being spawned. Registering
		// now would orphan the instance past the shutdown snapshot, so tear
		// it down instead.
		m.mu.Unlock()
		m.teardown(&entry{inst: Instance{Logdir: dir, Port: port}, proc: proc})
		return Instance{}, ErrShuttingDown
	}
	inst := Instance{Config: cfg, ID: m.next, Logdir: dir, Port: port}
	m.entries[inst.ID] = &entry{inst: inst, proc: proc}
	m.next++
	m.mu.Unlock()

	Logger().Info("launched instance",
		"id", inst.ID, "port", inst.Port, "logdir", inst.Logdir, "title", cfg.Title)
	return inst, nil
}

// Stop removes the instance from the registry, terminates its process, and
// deletes its log directory. The registry entry is removed first; from that
// point the stop cannot fail from the caller's perspective. Process
// termination is bounded by the configured stop timeout with SIGKILL
// escalation, and directory deletion is best effort: a failed delete is
// logged and swallowed because the registry has already dropped the instance
// and a partial stop cannot be rolled back.
//
// Returns ErrInstanceNotFound for an identifier that is not live; the
// registry is left unchanged.
func (m *Manager) Stop(id int) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("stop %d: %w", id, ErrInstanceNotFound)
	}
	delete(m.entries, id)
	m.mu.Unlock()

	m.teardown(e)
	Logger().Info("stopped instance", "id", id, "port", e.inst.Port)
	return nil
}

// teardown releases every resource an entry owns: the port reservation, the
// child process, and the log directory tree.
func (m *Manager) teardown(e *entry) {
	m.ports.Release(e.inst.Port)
	if err := e.proc.Stop(m.cfg.StopTimeout); err != nil {
		Logger().Warn("process stop failed; process may be orphaned",
			"port", e.inst.Port, "error", err)
	}
	if err := os.RemoveAll(e.inst.Logdir); err != nil {
		Logger().Warn("failed to remove log directory",
			"logdir", e.inst.Logdir, "error", err)
	}
}

// StopAll stops every live instance in ascending identifier order. The
// identifier set is snapshotted first because Stop mutates the registry;
// iterating the live map while removing from it is structurally avoided.
func (m *Manager) StopAll() {
	for _, id := range m.ids() {
		if err := m.Stop(id); err != nil && !errors.Is(err, ErrInstanceNotFound) {
			Logger().Warn("stop during stop-all failed", "id", id, "error", err)
		}
	}
}

// ids returns a sorted snapshot of the live identifiers. Identifiers come
// from a strictly increasing counter, so ascending order is insertion order.
func (m *Manager) ids() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Instances returns the live instances in insertion order. Read-only.
func (m *Manager) Instances() []Instance {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Instance, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.entries[id].inst)
	}
	return out
}

// Save persists the configurations of all live instances, in registry order,
// to the session store. Only user intent is written; identifiers, ports, and
// log directories are ephemeral and reassigned on replay.
func (m *Manager) Save() error {
	instances := m.Instances()
	records := make([]store.Record, 0, len(instances))
	for _, inst := range instances {
		records = append(records, store.Record{Paths: inst.Config.Paths, Title: inst.Config.Title})
	}
	if err := m.st.Save(records); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Shutdown persists the session and stops all instances, in that order:
// Save only reads configurations, which the subsequent terminations cannot
// affect. Runs at most once per Manager; a second call returns immediately
// with nil, so a late termination request cannot re-enter a shutdown already
// in progress. A save failure is reported but does not prevent the stop-all.
func (m *Manager) Shutdown() error {
	if !m.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	err := m.Save()
	if err != nil {
		Logger().Error("saving session during shutdown failed", "error", err)
	}
	m.StopAll()
	return err
}
