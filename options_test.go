package tbman_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/parsiad/tbman"
)

// panicTestCase defines a test case for option validation panic tests.
type panicTestCase struct {
	name     string
	panics   bool
	panicMsg string
	fn       func()
}

// requirePanics calls fn and verifies it panics (or not) with the expected message.
func requirePanics(t *testing.T, shouldPanic bool, wantMsg string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if shouldPanic && r == nil {
			t.Fatal("expected panic but didn't get one")
		}
		if !shouldPanic && r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
		if shouldPanic && r != nil {
			msg := fmt.Sprint(r)
			if msg != wantMsg {
				t.Fatalf("expected panic message %q, got %q", wantMsg, msg)
			}
		}
	}()
	fn()
}

// runPanicTests runs a slice of panic test cases using requirePanics.
func runPanicTests(t *testing.T, tests []panicTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			requirePanics(t, tt.panics, tt.panicMsg, tt.fn)
		})
	}
}

func TestWithHostPanicsOnEmpty(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "empty",
			panics:   true,
			panicMsg: "tbman: host must not be empty",
			fn:       func() { tbman.WithHost("") },
		},
		{name: "valid", fn: func() { tbman.WithHost("0.0.0.0") }},
	})
}

func TestWithTensorBoardBinaryPanicsOnEmpty(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "empty",
			panics:   true,
			panicMsg: "tbman: tensorboard binary path must not be empty",
			fn:       func() { tbman.WithTensorBoardBinary("") },
		},
		{name: "valid", fn: func() { tbman.WithTensorBoardBinary("/opt/bin/tensorboard") }},
	})
}

func TestWithPortRangePanicsOnInvalid(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "zero lower bound",
			panics:   true,
			panicMsg: "tbman: port range lower bound must be greater than 0, got 0",
			fn:       func() { tbman.WithPortRange(0, 9000) },
		},
		{
			name:     "empty range",
			panics:   true,
			panicMsg: "tbman: port range [9000, 9000) is empty",
			fn:       func() { tbman.WithPortRange(9000, 9000) },
		},
		{
			name:     "inverted range",
			panics:   true,
			panicMsg: "tbman: port range [9000, 8000) is empty",
			fn:       func() { tbman.WithPortRange(9000, 8000) },
		},
		{name: "valid", fn: func() { tbman.WithPortRange(8000, 9000) }},
	})
}

func TestWithPortAttemptsPanicsOnInvalid(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "zero",
			panics:   true,
			panicMsg: "tbman: port attempts must be greater than 0, got 0",
			fn:       func() { tbman.WithPortAttempts(0) },
		},
		{name: "valid", fn: func() { tbman.WithPortAttempts(50) }},
	})
}

func TestWithSessionPathPanicsOnEmpty(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "empty",
			panics:   true,
			panicMsg: "tbman: session path must not be empty",
			fn:       func() { tbman.WithSessionPath("") },
		},
		{name: "valid", fn: func() { tbman.WithSessionPath("/tmp/session.json") }},
	})
}

func TestWithStopTimeoutPanicsOnInvalid(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "zero",
			panics:   true,
			panicMsg: "tbman: stop timeout must be greater than 0, got 0s",
			fn:       func() { tbman.WithStopTimeout(0) },
		},
		{
			name:     "negative",
			panics:   true,
			panicMsg: "tbman: stop timeout must be greater than 0, got -1s",
			fn:       func() { tbman.WithStopTimeout(-1 * time.Second) },
		},
		{name: "valid", fn: func() { tbman.WithStopTimeout(time.Second) }},
	})
}
