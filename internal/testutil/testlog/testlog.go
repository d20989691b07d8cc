// Package testlog wires a test's logging into the shared runtime
// configuration so package tests get readable, timestamp-free output
// without each test file reaching into internal/logging directly.
package testlog

import (
	"testing"

	"github.com/modmap/cody/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logger := logging.Logger()
	logger.Debug().Str("test", t.Name()).Msg("test start")
}
