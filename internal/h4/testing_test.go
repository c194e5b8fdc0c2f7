package h4

import (
	"io"
	"log/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestPools builds small pools sized generously for unit tests: 8 blocks
// of 64 bytes per type, enough to hold any fixture packet used below.
func newTestPools() *Pools {
	return NewPools(
		64, 8, make([]byte, 64*8),
		64, 8, make([]byte, 64*8),
		64, 8, make([]byte, 64*8),
	)
}
