// Package process spawns and terminates the TensorBoard child processes
// supervised by tbman. Each Handle owns exactly one child: its stdout and
// stderr are redirected to log files inside the instance's log directory, a
// single goroutine collects the cmd.Wait result, and Stop runs a SIGTERM,
// grace period, SIGKILL escalation bounded by the caller's timeout.
package process
