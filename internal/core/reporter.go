// Package core provides the internal implementation of impatch's call
// recording, interception, matching, and seam bookkeeping.
package core

// TestReporter is the minimal interface impatch needs from test frameworks.
type TestReporter interface {
	Helper()
	Fatalf(format string, args ...any)
}

// CleanupRegistrar is the interface needed for registering cleanup functions.
// This is satisfied by *testing.T and *testing.B.
type CleanupRegistrar interface {
	Cleanup(cleanupFunc func())
}
