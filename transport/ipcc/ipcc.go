// Package ipcc implements the inter-processor mailbox bottom half for dual-
// core parts where the BLE controller runs on a second core reached over
// shared memory (the STM32WB family's IPCC peripheral is the canonical
// example: an M4 application core and an M0+ radio core trading HCI frames
// through a shared SRAM mailbox with a pair of doorbell interrupts).
//
// No pack example implements an IPCC-style register block directly, so this
// port is synthesized rather than copied from a retrieved file. It is
// grounded structurally on the teacher's DMA region accounting
// (_examples/usbarmory-tamago/dma/region.go: a mutex-guarded free/used
// bookkeeping pass over a fixed memory window) — here applied to a pair of
// fixed-size byte rings over a shared-memory window instead of a first-fit
// heap, since a mailbox only ever needs FIFO framing, not arbitrary-sized
// allocation.
package ipcc

import (
	"github.com/andrewleech/micropython-sub002/internal/hal"
	"github.com/andrewleech/micropython-sub002/transport"
)

// Mailbox is the shared-memory window two cores trade bytes through: one
// ring for each direction, each guarded independently so an RX doorbell
// handler on one core never contends with a TX write on the other beyond the
// short critical section each ring needs.
type Mailbox struct {
	txLock hal.Spinlock
	rxLock hal.Spinlock

	tx, rx ring

	// Doorbell, if set, is rung after each Write — the platform's IPCC
	// channel-direction "set flag" register write that interrupts the
	// radio core. Left nil in tests.
	Doorbell func()
}

// NewMailbox creates a Mailbox with txSize/rxSize byte capacity in each
// direction.
func NewMailbox(txSize, rxSize int) *Mailbox {
	return &Mailbox{
		tx: newRing(txSize),
		rx: newRing(rxSize),
	}
}

// DeliverFromRadio is called by the platform's IPCC RX-doorbell interrupt
// handler to hand freshly-arrived bytes from the radio core into the
// mailbox's RX ring. Marking the IRQ-equivalent context lets anything on the
// application-core side that checks hal.IsInISR behave correctly if this
// fires re-entrantly with respect to the main pump.
func (m *Mailbox) DeliverFromRadio(b []byte) {
	hal.EnterISR()
	defer hal.ExitISR()

	key := m.rxLock.Lock()
	m.rx.write(b)
	m.rxLock.Unlock(key)
}

// Port is a transport.Transport backed by a Mailbox.
type Port struct {
	mbox *Mailbox
}

// New creates a Port over an already-constructed Mailbox (constructing the
// Mailbox itself is board-level: it must be placed at the address both
// cores' linker scripts agree on, which this package has no visibility
// into).
func New(mbox *Mailbox) *Port {
	return &Port{mbox: mbox}
}

var _ transport.Transport = (*Port)(nil)

// Setup rings the doorbell once to tell the radio core the channel is live.
// The actual IPCC peripheral bring-up (enabling the channel's interrupt,
// releasing the radio core from reset) is board init, out of scope here.
func (p *Port) Setup() error {
	if p.mbox.Doorbell != nil {
		p.mbox.Doorbell()
	}
	return nil
}

// Teardown is a no-op: the mailbox's shared memory window persists across
// sessions on a dual-core part, since the radio core keeps running
// independently of the application core's BLE stack lifecycle.
func (p *Port) Teardown() error {
	return nil
}

// ReadByte drains one byte from the RX ring without blocking.
func (p *Port) ReadByte() (byte, bool) {
	key := p.mbox.rxLock.Lock()
	defer p.mbox.rxLock.Unlock(key)
	return p.mbox.rx.readByte()
}

// Write copies a fully framed H:4 packet into the TX ring and rings the
// doorbell once, matching spec §4.8's "write it to the transport in one
// call".
func (p *Port) Write(frame []byte) error {
	key := p.mbox.txLock.Lock()
	p.mbox.tx.write(frame)
	p.mbox.txLock.Unlock(key)

	if p.mbox.Doorbell != nil {
		p.mbox.Doorbell()
	}
	return nil
}

// ring is a fixed-capacity byte ring buffer, the mailbox's per-direction
// backing store.
type ring struct {
	buf        []byte
	head, tail int
	count      int
}

func newRing(size int) ring {
	return ring{buf: make([]byte, size)}
}

func (r *ring) write(b []byte) {
	for _, c := range b {
		if r.count == len(r.buf) {
			// Mailbox overrun: the radio core produced faster than the
			// application core drained. Drop the oldest byte rather than
			// the newest, so framing resynchronizes on the next header.
			r.head = (r.head + 1) % len(r.buf)
			r.count--
		}
		r.buf[r.tail] = c
		r.tail = (r.tail + 1) % len(r.buf)
		r.count++
	}
}

func (r *ring) readByte() (byte, bool) {
	if r.count == 0 {
		return 0, false
	}
	b := r.buf[r.head]
	r.head = (r.head + 1) % len(r.buf)
	r.count--
	return b, true
}
