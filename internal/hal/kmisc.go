package hal

import (
	"log/slog"
	"time"
)

// Sleep sleeps for the requested duration via the platform delay. NoWait
// yields the CPU instead of sleeping a full tick, matching spec §4.6.
func Sleep(timeout Timepoint) {
	if timeout == NoWait {
		time.Sleep(0)
		return
	}

	d := time.Duration(timeout) * time.Millisecond
	if timeout == Forever {
		// A Forever sleep has no sensible hosted meaning; treat it as a
		// very long, but not infinite, delay so tests cannot hang the
		// process.
		d = time.Hour
	}

	time.Sleep(d)
}

var bootClock = NewSystemClock()

// Uptime returns a monotonic millisecond counter, shared by every board
// instance in the process.
func Uptime() Timepoint {
	return bootClock.Now()
}

// Panic reports a fatal invariant violation and halts, matching spec §7's
// Fatal error kind. There is no recovery path: the caller is expected to be
// reporting something the host stack itself asserted.
func Panic(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(msg, args...)
	panic(msg)
}

// Oops logs a non-fatal but serious error and continues, matching spec §7's
// guidance that local errors are recovered in place.
func Oops(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(msg, args...)
}

// irqDepth tracks nested IRQ-context markers set by transports around their
// interrupt-equivalent handlers, without needing a real interrupt
// controller. It is a single process-wide counter, not a per-goroutine one.
var irqDepth Atomic

// EnterISR marks the process as executing in the IRQ-equivalent context.
// Ports call this around their interrupt handler body.
func EnterISR() {
	irqDepth.Add(1)
}

// ExitISR clears the marker set by EnterISR.
func ExitISR() {
	irqDepth.Sub(1)
}

// IsInISR reports whether any EnterISR call is still unmatched by ExitISR.
// The answer is the same for every goroutine, including ones that never
// called EnterISR.
func IsInISR() bool {
	return irqDepth.Load() > 0
}
