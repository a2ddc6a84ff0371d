package core

import (
	"errors"
	"fmt"
	"time"
)

// Config is one user-declared TensorBoard launch request: the source
// directories to merge and a display title. Immutable once created; this is
// the durable unit of state, persisted verbatim and replayed on startup.
type Config struct {
	Paths []string
	Title string
}

// Instance is the runtime record of one supervised TensorBoard process.
// Created only by the Manager at launch time, never mutated afterwards, and
// removed from the registry only by an explicit stop.
type Instance struct {
	Config Config
	// ID is assigned from a strictly increasing counter starting at zero
	// for each supervisor run. IDs are never reused within a run and never
	// persisted; a replayed config gets a fresh ID.
	ID int
	// Logdir is the absolute path of the instance's private log directory.
	Logdir string
	// Port is the TCP port the instance is bound to, unique among live
	// instances of this supervisor.
	Port int
}

// ManagerConfig holds the construction parameters of a Manager.
// All fields are immutable after construction.
type ManagerConfig struct {
	// Host is the address new instances bind to.
	Host string
	// TensorBoardBinary is the path or name of the TensorBoard executable.
	TensorBoardBinary string
	// PortLow and PortHigh bound the allocation range [PortLow, PortHigh).
	PortLow  int
	PortHigh int
	// PortAttempts is the probe budget per allocation.
	PortAttempts int
	// StopTimeout bounds the SIGTERM/SIGKILL shutdown sequence per instance.
	StopTimeout time.Duration
}

// Validate checks all ManagerConfig invariants and returns an error
// describing every violation found, joined with errors.Join so callers can
// fix all problems in one pass.
func (c ManagerConfig) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if c.TensorBoardBinary == "" {
		errs = append(errs, errors.New("tensorboard binary path must not be empty"))
	}
	if c.PortLow <= 0 {
		errs = append(errs, fmt.Errorf("port range lower bound must be positive, got %d", c.PortLow))
	}
	if c.PortHigh <= c.PortLow {
		errs = append(errs, fmt.Errorf("port range [%d, %d) is empty", c.PortLow, c.PortHigh))
	}
	if c.PortAttempts <= 0 {
		errs = append(errs, fmt.Errorf("port attempts must be positive, got %d", c.PortAttempts))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop timeout must be greater than 0, got %s", c.StopTimeout))
	}

	return errors.Join(errs...)
}
