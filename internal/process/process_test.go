package process

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

// fakeTensorBoard writes an executable script that ignores its flags and
// behaves like a long-running server honoring SIGTERM.
func fakeTensorBoard(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tensorboard")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStart(t *testing.T) {
	t.Parallel()

	t.Run("missing binary surfaces spawn failure", func(t *testing.T) {
		t.Parallel()

		_, err := Start(StartConfig{
			Binary: filepath.Join(t.TempDir(), "no-such-binary"),
			Host:   "localhost",
			Logdir: t.TempDir(),
			Port:   6006,
		})
		if err == nil {
			t.Fatal("Start() with missing binary should fail")
		}
	})

	t.Run("empty binary rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := Start(StartConfig{Logdir: t.TempDir()}); err == nil {
			t.Fatal("Start() with empty binary should fail")
		}
	})

	t.Run("empty logdir rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := Start(StartConfig{Binary: "tensorboard"}); err == nil {
			t.Fatal("Start() with empty logdir should fail")
		}
	})

	t.Run("creates log files in the logdir", func(t *testing.T) {
		t.Parallel()

		logdir := t.TempDir()
		h, err := Start(StartConfig{
			Binary: fakeTensorBoard(t, `trap 'exit 0' TERM; while :; do sleep 1; done`),
			Host:   "localhost",
			Logdir: logdir,
			Port:   6006,
			Title:  "t",
		})
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		defer h.Stop(time.Second)

		for _, name := range []string{"tensorboard-stdout.log", "tensorboard-stderr.log"} {
			if _, err := os.Stat(filepath.Join(logdir, name)); err != nil {
				t.Errorf("expected %s: %v", name, err)
			}
		}
		if !h.Alive() {
			t.Error("child should be alive after Start")
		}
		if h.Pid() <= 0 {
			t.Errorf("Pid() = %d, want positive", h.Pid())
		}
	})
}

func TestHandle_Stop(t *testing.T) {
	t.Parallel()

	t.Run("graceful stop on SIGTERM", func(t *testing.T) {
		t.Parallel()

		h, err := Start(StartConfig{
			Binary: fakeTensorBoard(t, `trap 'exit 0' TERM; while :; do sleep 0.1; done`),
			Host:   "localhost",
			Logdir: t.TempDir(),
			Port:   6006,
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := h.Stop(5 * time.Second); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
		select {
		case <-h.Exited():
		default:
			t.Error("Exited() should be closed after Stop")
		}
		if h.Alive() {
			t.Error("Alive() should be false after Stop")
		}
	})

	t.Run("escalates to SIGKILL when SIGTERM is ignored", func(t *testing.T) {
		t.Parallel()

		h, err := Start(StartConfig{
			Binary: fakeTensorBoard(t, `trap '' TERM; while :; do sleep 0.1; done`),
			Host:   "localhost",
			Logdir: t.TempDir(),
			Port:   6006,
		})
		if err != nil {
			t.Fatal(err)
		}
		start := time.Now()
		if err := h.Stop(2 * time.Second); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed > 15*time.Second {
			t.Errorf("Stop() took %s, escalation did not fire", elapsed)
		}
	})

	t.Run("stop after child already exited", func(t *testing.T) {
		t.Parallel()

		h, err := Start(StartConfig{
			Binary: fakeTensorBoard(t, `exit 0`),
			Host:   "localhost",
			Logdir: t.TempDir(),
			Port:   6006,
		})
		if err != nil {
			t.Fatal(err)
		}
		select {
		case <-h.Exited():
		case <-time.After(5 * time.Second):
			t.Fatal("child did not exit")
		}
		if err := h.Stop(time.Second); err != nil {
			t.Errorf("Stop() after exit error = %v", err)
		}
	})
}

// makeSignalExitError produces a real *exec.ExitError caused by the given signal.
func makeSignalExitError(t *testing.T, sig syscall.Signal) error {
	t.Helper()

	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Process.Signal(sig); err != nil {
		t.Fatal(err)
	}
	return cmd.Wait()
}

func TestExpectSignalExit(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err     error
		signal  syscall.Signal
		wantErr bool
	}{
		"nil error":                {wantErr: false},
		"SIGTERM exit is expected": {signal: syscall.SIGTERM, wantErr: false},
		"SIGKILL exit is expected": {signal: syscall.SIGKILL, wantErr: false},
		"other signal":             {signal: syscall.SIGINT, wantErr: true},
		"non-ExitError":            {err: errors.New("broken pipe"), wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			inputErr := tc.err
			if inputErr == nil && tc.signal != 0 {
				inputErr = makeSignalExitError(t, tc.signal)
			}

			got := expectSignalExit(inputErr, "tensorboard:6006")
			if tc.wantErr && got == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && got != nil {
				t.Fatalf("expected nil, got %v", got)
			}
		})
	}
}

func TestDrainDone(t *testing.T) {
	t.Parallel()

	t.Run("delivers value in time", func(t *testing.T) {
		t.Parallel()

		done := make(chan error, 1)
		want := errors.New("crashed")
		done <- want

		ok, err := drainDone(done, time.Second)
		if !ok {
			t.Fatal("expected ok=true")
		}
		if !errors.Is(err, want) {
			t.Fatalf("err = %v, want %v", err, want)
		}
	})

	t.Run("times out on empty channel", func(t *testing.T) {
		t.Parallel()

		ok, err := drainDone(make(chan error), 10*time.Millisecond)
		if ok {
			t.Fatal("expected ok=false on timeout")
		}
		if err != nil {
			t.Fatalf("expected nil error on timeout, got %v", err)
		}
	})
}
