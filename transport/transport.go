// Package transport defines the bottom-half contract every port implements
// (spec §6's "Bottom-half transport interface"): setup/teardown plus a byte
// source and sink the H:4 pipeline drives. Concrete ports live in
// transport/uart, transport/cyw43, transport/linuxhci and transport/ipcc.
package transport

import "io"

// Transport is what a board-specific bottom half provides to the HCI device
// façade. Setup/Teardown bracket a session (spec §4.9); ReadByte/Write carry
// traffic once set up.
//
// ReadByte returns io.EOF-equivalent semantics via ok=false when no byte is
// currently available — ports must never block here, since PumpRX (see
// internal/sched) is called from contexts that must not stall.
type Transport interface {
	// Setup initialises the bottom half: powers the controller, brings up
	// the shared bus, or opens the device node. Called once from the HCI
	// device façade's Open.
	Setup() error

	// Teardown releases whatever Setup acquired. Called once from Close.
	Teardown() error

	// ReadByte returns the next available byte without blocking. ok is
	// false if none is currently buffered.
	ReadByte() (b byte, ok bool)

	// Write sends a fully framed H:4 packet in one call (spec §4.8: "write
	// it to the transport in one call").
	Write(frame []byte) error
}

// ErrClosed is returned by a transport's Write after Teardown (the uart,
// cyw43 and linuxhci ports; ipcc's Write always succeeds). ReadByte reports
// a closed transport as ok=false.
var ErrClosed = io.ErrClosedPipe
