// Package host defines the boundary between the adapter and the imported
// Zephyr-style BLE host stack (spec §1: "out of scope... referenced only by
// interface"). Stack is the minimal surface the adapter needs to drive the
// host; a real host implementation (GAP/GATT/SMP/L2CAP/ATT, net_buf) is not
// part of this repository.
package host

import "github.com/andrewleech/micropython-sub002/internal/h4"

// Stack is the imported BLE host's adapter-facing surface.
type Stack interface {
	// Enable is called once, synchronously, by the façade's Open. Per
	// spec §4.10's deadlock-avoidance note, Enable must only submit its
	// init work item and return — it must not itself wait on that work's
	// completion, since nothing is pumping the work queue yet.
	Enable() error

	// RecvCB is invoked exactly once per delivered H:4 packet (spec §6).
	// A non-zero return means the host refused the packet; the adapter
	// releases buf in that case. The host takes ownership on a zero
	// return and is responsible for releasing it itself.
	RecvCB(buf *h4.Buffer) int
}
