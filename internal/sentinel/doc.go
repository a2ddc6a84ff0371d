// Package sentinel provides an immutable error type for sentinel error
// declarations. Sentinels declared with errors.New are mutable variables that
// consumers can reassign; Error is a string-based error type that can be
// declared as a const while remaining compatible with errors.Is.
package sentinel
