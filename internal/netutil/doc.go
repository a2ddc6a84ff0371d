// Package netutil allocates TCP ports for TensorBoard instances. Its central
// type, Registry, probes random ports in a configured range with a TCP connect
// attempt and tracks ports reserved by this process, closing the TOCTOU race
// where two concurrent launches could probe the same port as free before
// either child has bound it.
package netutil
