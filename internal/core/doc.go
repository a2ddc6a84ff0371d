// Package core implements the tbman instance registry: launching TensorBoard
// processes onto freshly allocated ports and log directories, stopping them
// with full resource cleanup, persisting their configurations through the
// session store, and the run-once shutdown sequence.
package core
