package tbman

import (
	"fmt"

	"github.com/parsiad/tbman/internal/core"
	"github.com/parsiad/tbman/internal/store"
)

// Config is one TensorBoard launch request: the log directories to merge and
// a window title. This is the durable unit of state; Save persists the
// configurations of all live instances and New replays them.
type Config struct {
	// Paths are the log directories to serve, merged into one private log
	// directory via symlinks. Relative paths are resolved against the
	// working directory at launch time.
	Paths []string

	// Title is passed to TensorBoard as the window title.
	Title string
}

// Instance describes one live TensorBoard process.
type Instance struct {
	// ID identifies the instance for Stop. IDs are assigned from a
	// strictly increasing counter starting at zero for each manager and
	// are never reused.
	ID int

	// Config is the request this instance was launched from.
	Config Config

	// Port is the TCP port TensorBoard is bound to, unique among the
	// manager's live instances.
	Port int

	// Logdir is the absolute path of the instance's private merged log
	// directory. It is removed when the instance stops.
	Logdir string
}

// managerConfig collects the construction parameters set by Options.
type managerConfig struct {
	core.ManagerConfig
	SessionPath string
}

// defaultManagerConfig returns a managerConfig populated with all default
// values. Both New and test helpers use this to avoid duplicating the
// default field assignments.
func defaultManagerConfig() managerConfig {
	return managerConfig{
		ManagerConfig: core.ManagerConfig{
			Host:              DefaultHost,
			TensorBoardBinary: DefaultTensorBoardBinary,
			PortLow:           DefaultPortLow,
			PortHigh:          DefaultPortHigh,
			PortAttempts:      DefaultPortAttempts,
			StopTimeout:       DefaultStopTimeout,
		},
		SessionPath: DefaultSessionPath(),
	}
}

// Manager supervises a set of TensorBoard instances backed by one session
// file. All methods are safe for concurrent use.
type Manager struct {
	mgr *core.Manager
	st  *store.Store
}

// New creates a Manager, acquires the session file, and relaunches every
// configuration found in it. A configuration that fails to relaunch is
// logged and skipped; an unparsable session file is an error, since
// proceeding would overwrite user state on the next save.
//
// Returns ErrSessionLocked if another process holds the session file.
func New(opts ...Option) (*Manager, error) {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(cfg.SessionPath, nil)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", cfg.SessionPath, err)
	}

	mgr, err := core.NewManager(cfg.ManagerConfig, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &Manager{mgr: mgr, st: st}, nil
}

// Host returns the address instances bind to.
func (m *Manager) Host() string {
	return m.mgr.Host()
}

// Launch starts a TensorBoard process for cfg: builds a private merged log
// directory, allocates a free port, and spawns the process. On any failure
// everything already acquired is released and nothing is registered.
//
// Returns ErrPortExhausted when no free port is found, and ErrShuttingDown
// after Shutdown has started.
func (m *Manager) Launch(cfg Config) (Instance, error) {
	inst, err := m.mgr.Launch(core.Config{Paths: cfg.Paths, Title: cfg.Title})
	if err != nil {
		return Instance{}, err
	}
	return fromCore(inst), nil
}

// Stop terminates the instance with the given id and removes its log
// directory. Returns ErrInstanceNotFound if no live instance has that id.
func (m *Manager) Stop(id int) error {
	return m.mgr.Stop(id)
}

// StopAll stops every live instance. Instances launched concurrently with
// StopAll may survive it; Shutdown closes that window.
func (m *Manager) StopAll() {
	m.mgr.StopAll()
}

// Instances returns the live instances in ascending id order.
func (m *Manager) Instances() []Instance {
	cores := m.mgr.Instances()
	instances := make([]Instance, 0, len(cores))
	for _, inst := range cores {
		instances = append(instances, fromCore(inst))
	}
	return instances
}

// Save writes the configurations of all live instances to the session file.
// The write is atomic: the previous contents survive any failure.
func (m *Manager) Save() error {
	return m.mgr.Save()
}

// Shutdown saves the session, stops every instance, and releases the session
// file. Safe to call more than once; only the first call does the work.
// Returns the save error, if any, after stopping everything regardless.
func (m *Manager) Shutdown() error {
	err := m.mgr.Shutdown()
	m.st.Close()
	return err
}

func fromCore(inst core.Instance) Instance {
	return Instance{
		ID:     inst.ID,
		Config: Config{Paths: inst.Config.Paths, Title: inst.Config.Title},
		Port:   inst.Port,
		Logdir: inst.Logdir,
	}
}
