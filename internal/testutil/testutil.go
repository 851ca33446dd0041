// Package testutil provides testing utilities shared across packages.
package testutil

import (
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger creates a test logger that outputs to t.Log.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}

// IntPtr returns a pointer to n, for optional numeric fields in fixtures.
func IntPtr(n int) *int {
	return &n
}
