package hci

import (
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/andrewleech/micropython-sub002/host"
	"github.com/andrewleech/micropython-sub002/internal/h4"
	"github.com/andrewleech/micropython-sub002/internal/hal"
	"github.com/andrewleech/micropython-sub002/internal/sched"
	"github.com/andrewleech/micropython-sub002/transport"
)

// ErrAlreadyOpen is returned by Open on a device that is already open.
var ErrAlreadyOpen = errors.New("hci: device already open")

// ErrNotOpen is returned by Send on a device that has not been opened.
var ErrNotOpen = errors.New("hci: device not open")

// Device is the single global HCI device record the host stack looks up at
// initialisation (spec §3 "HCI device façade"): an open/close/send function
// table plus mutable state, everything else immutable once constructed.
type Device struct {
	cfg    Config
	kernel *hal.Kernel
	logger *slog.Logger

	pools      *h4.Pools
	parser     *h4.Parser
	rxq        *h4.RXQueue
	dispatcher *h4.Dispatcher
	hook       *sched.Hook

	mu        sync.Mutex
	open      bool
	transport transport.Transport
	stack     host.Stack
	stats     Stats
}

// NewDevice constructs a Device from cfg. It allocates the packet-buffer
// pools and RX queue up front; nothing is wired to a transport until Open.
func NewDevice(cfg Config, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.Default()
	}

	pools := h4.NewPools(
		cfg.EVTBufferSize, cfg.EVTBufferCount, make([]byte, cfg.EVTBufferSize*cfg.EVTBufferCount),
		cfg.ACLBufferSize, cfg.ACLBufferCount, make([]byte, cfg.ACLBufferSize*cfg.ACLBufferCount),
		cfg.ISOBufferSize, cfg.ISOBufferCount, make([]byte, cfg.ISOBufferSize*cfg.ISOBufferCount),
	)

	d := &Device{
		cfg:    cfg,
		kernel: hal.NewKernel(nil),
		logger: logger,
		pools:  pools,
		parser: h4.NewParser(pools, logger),
		rxq:    h4.NewRXQueue(cfg.RXQueueDepth),
	}
	d.dispatcher = h4.NewDispatcher(d.rxq, d.deliverOne, cfg.DispatchBatchSize)

	return d
}

// Kernel exposes the device's cooperative kernel so board glue can register
// additional timers or work queues against the same pump loop.
func (d *Device) Kernel() *hal.Kernel { return d.kernel }

// Stats returns a snapshot of the device's packet counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Open installs stack (its RecvCB) as the receive target, resets the parser, brings up
// tp, then calls stack.Enable (spec §4.9). Per spec §4.10's deadlock note,
// Enable must return promptly; the scheduling hook — started here — drives
// the first and all subsequent pumps.
func (d *Device) Open(tp transport.Transport, stack host.Stack) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return ErrAlreadyOpen
	}

	d.parser.Reset()
	d.stats = Stats{}
	d.transport = tp
	d.stack = stack

	if err := tp.Setup(); err != nil {
		d.transport = nil
		d.stack = nil
		return errors.Wrap(err, "hci: transport setup")
	}

	d.hook = sched.NewHook(d.kernel, transportPumper{d}, d.deliverBatches, d.cfg.SchedTickMillis)
	d.kernel.System.OnSubmit(d.hook.Request)
	d.open = true

	if err := stack.Enable(); err != nil {
		d.closeLocked()
		return errors.Wrap(err, "hci: stack enable")
	}

	return nil
}

// Close tears down the transport and uninstalls the receive callback; no
// further RecvCB calls occur after Close returns (spec §6).
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *Device) closeLocked() error {
	if !d.open {
		return nil
	}

	d.hook.Stop()
	d.hook = nil
	d.kernel.System.OnSubmit(nil)

	err := d.transport.Teardown()
	d.transport = nil
	d.stack = nil
	d.parser.Reset()
	d.open = false

	return errors.Wrap(err, "hci: transport teardown")
}

// transportPumper adapts Device to sched.TransportPump without exposing
// pumpRX itself as part of Device's public surface.
type transportPumper struct{ d *Device }

func (p transportPumper) PumpRX() { p.d.pumpRX() }

// pumpRX drains whatever bytes are currently available from the transport
// into the parser, enqueuing completed packets on the RX queue. It resumes a
// stalled parser (spec §8 scenario 5) before consuming any new byte.
func (d *Device) pumpRX() {
	d.mu.Lock()
	tp := d.transport
	d.mu.Unlock()

	if tp == nil {
		return
	}

	for {
		if d.parser.Stalled() {
			buf, stalled := d.parser.Retry()
			if stalled {
				return
			}
			if buf != nil {
				d.enqueue(buf)
			}
			continue
		}

		b, ok := tp.ReadByte()
		if !ok {
			return
		}

		d.mu.Lock()
		d.stats.ByteRX++
		d.mu.Unlock()

		buf, stalled := d.parser.Feed(b)
		if stalled {
			d.mu.Lock()
			d.stats.ErrRX++
			d.mu.Unlock()
			return
		}
		if buf != nil {
			d.enqueue(buf)
		}
	}
}

func (d *Device) enqueue(buf *h4.Buffer) {
	d.mu.Lock()
	switch buf.Type {
	case h4.TypeEvt:
		d.stats.EvtRX++
	case h4.TypeACL:
		d.stats.ACLRX++
	case h4.TypeISO:
		d.stats.ISORX++
	}
	d.mu.Unlock()

	if !d.rxq.Enqueue(buf) {
		d.mu.Lock()
		d.stats.ErrRX++
		d.mu.Unlock()
	}
}

// deliverBatches drains the dispatcher fully: a burst larger than one batch
// must not wait for the next pump cycle to finish delivering.
func (d *Device) deliverBatches() {
	for d.dispatcher.Pump() > 0 {
	}
}

// deliverOne hands a completed buffer to the installed host callback,
// releasing it back to its pool on refusal (spec §6 recv_cb contract).
func (d *Device) deliverOne(buf *h4.Buffer) {
	d.mu.Lock()
	stack := d.stack
	d.mu.Unlock()

	if d.cfg.Debug {
		d.logger.Debug("hci: delivering packet", "type", buf.Type, "len", len(buf.Data))
	}

	if stack == nil {
		buf.Release()
		return
	}

	if rc := stack.RecvCB(buf); rc != 0 {
		if d.cfg.Debug {
			d.logger.Debug("hci: host refused packet, releasing", "type", buf.Type)
		}
		buf.Release()
	}
}
