// Package cyw43 implements the "composite Wi-Fi/BT chip" bottom half (spec
// §4.9): a CYW43439-family SDIO/SPI combo chip that exposes its Bluetooth
// HCI traffic over an internal shared-memory ring buffer rather than a
// dedicated UART.
//
// Grounded on
// _examples/other_examples/0cc00283_deadprogram-cyw43439__bluetooth.go.go,
// which wraps the chip's hci_read/hci_write/hci_buffered ring-buffer
// primitives behind an io.ReadWriter (Device.HCIReaderWriter). This port
// assumes the caller has already brought the Device up in Bluetooth mode
// (firmware upload and the wake/ready handshake in that file's bt_init are
// internal to the soypat/cyw43439 package and not something a bottom-half
// port re-implements) and only takes ownership of the resulting
// io.ReadWriter for framing.
package cyw43

import (
	"io"

	"github.com/pkg/errors"
	"github.com/soypat/cyw43439/whd"

	"github.com/andrewleech/micropython-sub002/transport"
)

// HCIDevice is the subset of *cyw43439.Device this port depends on: a
// bluetooth-mode-enabled device that hands out its HCI ring buffer as an
// io.ReadWriter.
type HCIDevice interface {
	HCIReaderWriter() (io.ReadWriter, error)
}

// Port is a transport.Transport backed by a CYW43439's internal HCI ring
// buffer.
type Port struct {
	dev HCIDevice
	rw  io.ReadWriter

	rxBuf [whd.BTSDIO_FWBUF_SIZE]byte
	rxLen int
	rxPos int
}

// New creates a Port wrapping an already wifi/bt-initialised device.
func New(dev HCIDevice) *Port {
	return &Port{dev: dev}
}

var _ transport.Transport = (*Port)(nil)

// Setup fetches the chip's HCI read/write handle. The chip itself must
// already be powered and in Bluetooth mode (board init, out of scope here).
func (p *Port) Setup() error {
	rw, err := p.dev.HCIReaderWriter()
	if err != nil {
		return errors.Wrap(err, "cyw43: HCIReaderWriter")
	}
	p.rw = rw
	return nil
}

// Teardown drops the cached read/write handle; the chip itself is powered
// down by board-level code, not this generic port.
func (p *Port) Teardown() error {
	p.rw = nil
	return nil
}

// ReadByte refills from the chip's HCI ring buffer on demand. A zero-byte,
// nil-error read means the ring buffer is currently empty, matching
// hci_buffered() == 0 in the grounding file.
func (p *Port) ReadByte() (byte, bool) {
	if p.rw == nil {
		return 0, false
	}
	if p.rxPos >= p.rxLen {
		n, err := p.rw.Read(p.rxBuf[:])
		if err != nil || n <= 0 {
			return 0, false
		}
		p.rxLen = n
		p.rxPos = 0
	}
	b := p.rxBuf[p.rxPos]
	p.rxPos++
	return b, true
}

// Write sends a fully framed H:4 packet to the chip's HCI ring buffer in one
// call (WriteHCI / hci_write in the grounding file writes the whole slice).
func (p *Port) Write(frame []byte) error {
	if p.rw == nil {
		return transport.ErrClosed
	}
	_, err := p.rw.Write(frame)
	return errors.Wrap(err, "cyw43: write")
}
