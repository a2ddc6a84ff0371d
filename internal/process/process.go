package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"
)

// DefaultStopTimeout is the fallback bound for the whole stop sequence when
// the caller configures none.
const DefaultStopTimeout = 10 * time.Second

// termGracePeriod is the maximum time to wait for a child to exit after
// SIGTERM before escalating to SIGKILL. The actual grace period is capped at
// the overall stop timeout.
const termGracePeriod = 5 * time.Second

// killDrainTimeout is the hard upper bound for waiting on the done channel
// after SIGKILL has been sent (or after the process has already exited).
// SIGKILL cannot be caught, so this should never fire; it exists to prevent
// indefinite blocking if cmd.Wait hangs on stuck I/O.
const killDrainTimeout = 10 * time.Second

// StartConfig describes one TensorBoard child to spawn.
type StartConfig struct {
	// Binary is the path or name of the TensorBoard executable.
	Binary string
	// Host is the address the child binds to.
	Host string
	// Logdir is the instance's private log directory. The child serves it
	// and its own stdout/stderr log files are written inside it.
	Logdir string
	// Port is the TCP port the child binds to.
	Port int
	// Title is passed as the child's window title.
	Title string
	// Logger is used for operational messages. Nil falls back to slog.Default().
	Logger *slog.Logger
}

// Handle is a running TensorBoard child process. It is created by Start and
// consumed by Stop; a Handle is not restartable.
//
// Handle is not safe for concurrent use; the Manager serializes access
// through its registry lock.
type Handle struct {
	cmd  *exec.Cmd
	done <-chan error    // receives the single cmd.Wait result; consumed by Stop
	exit <-chan struct{} // closed when the child exits; readable by any goroutine

	// stopping is set by Stop before signaling, so the wait goroutine can
	// tell a requested termination from an unexpected death.
	stopping atomic.Bool

	stdout *os.File
	stderr *os.File

	name string
	log  *slog.Logger
}

// Start spawns the TensorBoard binary bound to the given host, port and log
// directory. Exactly one goroutine calls cmd.Wait per child; its result is
// delivered on the handle's done channel for Stop to consume. If the child
// exits before Stop is requested, the wait goroutine logs a warning so
// unexpected deaths are visible to the operator.
func Start(cfg StartConfig) (*Handle, error) {
	if cfg.Binary == "" {
		return nil, errors.New("tensorboard binary must not be empty")
	}
	if cfg.Logdir == "" {
		return nil, errors.New("log directory must not be empty")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	name := fmt.Sprintf("tensorboard:%d", cfg.Port)

	cmd := exec.Command(cfg.Binary,
		"--host", cfg.Host,
		"--logdir", cfg.Logdir,
		"--port", strconv.Itoa(cfg.Port),
		"--window_title", cfg.Title,
	)
	configureSysProcAttr(cmd)

	stdout, err := os.Create(filepath.Join(cfg.Logdir, "tensorboard-stdout.log"))
	if err != nil {
		return nil, fmt.Errorf("create stdout log: %w", err)
	}
	stderr, err := os.Create(filepath.Join(cfg.Logdir, "tensorboard-stderr.log"))
	if err != nil {
		_ = stdout.Close()
		return nil, fmt.Errorf("create stderr log: %w", err)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stderr.Close()
		return nil, fmt.Errorf("start %s: %w", cfg.Binary, err)
	}

	h := &Handle{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		name:   name,
		log:    log,
	}

	// cmd.Wait must be called exactly once per started process; a second
	// call is undefined behavior. The goroutine started here guarantees the
	// invariant and feeds both channels: done (buffered 1, consumed by Stop)
	// and exit (closed, broadcast to any observer).
	done := make(chan error, 1)
	exit := make(chan struct{})
	go func() {
		err := cmd.Wait()
		if !h.stopping.Load() {
			h.log.Warn("tensorboard process exited unexpectedly",
				"process", h.name, "error", err)
		}
		done <- err
		close(exit)
	}()
	h.done = done
	h.exit = exit

	return h, nil
}

// Pid returns the operating system process id of the child.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Exited returns a channel that is closed when the child exits, however that
// happens. Safe to select on from any number of goroutines.
func (h *Handle) Exited() <-chan struct{} {
	return h.exit
}

// Alive reports whether the child has not yet exited.
func (h *Handle) Alive() bool {
	select {
	case <-h.exit:
		return false
	default:
		return true
	}
}

// Stop terminates the child and closes its log files. The shutdown sequence:
//
//  1. Send SIGTERM for graceful shutdown.
//  2. Schedule SIGKILL after a grace period capped by timeout (canceled if
//     the child exits first).
//  3. Wait for exit or the total timeout, then drain the wait goroutine with
//     a hard upper bound.
//
// A non-positive timeout falls back to DefaultStopTimeout. Exits caused by
// SIGTERM or SIGKILL are treated as successful stops. Worst-case blocking is
// timeout + killDrainTimeout.
func (h *Handle) Stop(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	h.stopping.Store(true)
	defer h.closeLogs()

	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Child already exited; drain the wait goroutine with a bound so a
		// hung cmd.Wait cannot block the stop forever.
		ok, waitErr := drainDone(h.done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out draining process after signal failure", h.name)
		}
		return expectSignalExit(waitErr, h.name)
	}

	// Kill after Wait has returned is a harmless "process already finished"
	// error, discarded deliberately.
	grace := min(termGracePeriod, timeout)
	killTimer := time.AfterFunc(grace, func() {
		_ = h.cmd.Process.Kill()
	})
	defer killTimer.Stop()

	totalTimer := time.NewTimer(timeout)
	defer totalTimer.Stop()

	select {
	case err := <-h.done:
		return expectSignalExit(err, h.name)
	case <-totalTimer.C:
		ok, waitErr := drainDone(h.done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out waiting for process exit after SIGKILL", h.name)
		}
		if err := expectSignalExit(waitErr, h.name); err != nil {
			return fmt.Errorf("%s stop timeout: %w", h.name, err)
		}
		return nil
	}
}

// closeLogs closes both log file handles and nils them to prevent double-close.
func (h *Handle) closeLogs() {
	if h.stdout != nil {
		_ = h.stdout.Close()
		h.stdout = nil
	}
	if h.stderr != nil {
		_ = h.stderr.Close()
		h.stderr = nil
	}
}

// drainDone reads from the done channel with the given timeout as a hard
// upper bound. Returns true and the cmd.Wait error if the channel delivered
// in time, or false and a nil error if the timeout elapsed.
func drainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// expectSignalExit interprets an error from cmd.Wait after a termination
// signal was sent. Exits caused by SIGTERM or SIGKILL are expected and
// treated as successful stops.
func expectSignalExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			sig := status.Signal()
			if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
