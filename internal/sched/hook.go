// Package sched implements the scheduling hook that drives the adapter's
// single logical worker context: a one-shot soft timer that rearms itself
// before running the main pump, plus a scheduled-node that lets any producer
// (a transport's interrupt-equivalent callback, a work-queue submission, or
// the timer itself) request "run the pump soon" without racing or piling up
// duplicate requests within one cycle.
//
// Grounded on the teacher's periodic-rearm idiom for its own timer-driven
// polling loops (tamago boards re-arm a timer at the top of their handler
// before doing any work, so a long handler never starves the next tick) and
// on spec §4.10.
//
// Something outside this package must still call (*hal.Kernel).Process on a
// real cadence to make timer expiry checks happen at all — on the teacher's
// bare-metal boards that's the systick interrupt handler; on a hosted build
// it is whatever board-glue loop the integrator already runs (a goroutine
// with a time.Ticker, an existing event loop, a test driving a fake clock).
// This package intentionally owns no such driver itself, matching the
// teacher's own split between the timer subsystem and the ISR that ticks it.
package sched

import "github.com/andrewleech/micropython-sub002/internal/hal"

// DefaultTickMillis is the soft timer's default period (spec §4.10: "default
// 128 ms").
const DefaultTickMillis = 128

// TransportPump is implemented by a transport port: PumpRX drains whatever
// bytes are currently available into the H:4 parser and RX queue. It must
// not block.
type TransportPump interface {
	PumpRX()
}

// Hook is the scheduling hook (spec §4.10). It satisfies hal.Pumper so
// hal.Sem.Take can drive it directly from a wait loop.
type Hook struct {
	k         *hal.Kernel
	timer     *hal.Timer
	transport TransportPump
	deliver   func()
	tick      uint32

	lock      hal.Spinlock
	scheduled bool
}

// NewHook creates a scheduling hook bound to k. transport drains receive
// bytes; deliver runs the H:4 dispatcher's priority-sorted delivery to the
// host (spec §4.7) — typically (*h4.Dispatcher).Pump wrapped to discard its
// count. tickMillis <= 0 uses DefaultTickMillis.
//
// The caller's tick driver must keep invoking k.Process: the hook fires (and
// rearms itself) only on a Process call made once tickMillis has elapsed;
// see the package doc.
func NewHook(k *hal.Kernel, transport TransportPump, deliver func(), tickMillis uint32) *Hook {
	if tickMillis == 0 {
		tickMillis = DefaultTickMillis
	}

	h := &Hook{k: k, transport: transport, deliver: deliver, tick: tickMillis}
	h.timer = k.NewTimer(h.fire, nil)
	h.timer.Start(tickMillis, 0)
	return h
}

// Request asks the hook to run the main pump soon, coalescing with any
// request already scheduled for this cycle (spec §4.10's scheduled-node).
// Safe to call from an interrupt-equivalent context; the HCI device façade
// wires this to the System work queue's OnSubmit so a handler that schedules
// more work there doesn't have to wait out the rest of the periodic tick.
func (h *Hook) Request() {
	key := h.lock.Lock()
	already := h.scheduled
	h.scheduled = true
	h.lock.Unlock(key)

	if already {
		return
	}

	// An already-elapsed Start(0, 0) fires on the very next Process call,
	// which is as close to "soon" as this model gets without a real
	// interrupt to jump to immediately.
	h.timer.Start(0, 0)
}

// fire is the soft timer's handler. It rearms itself first (spec §4.10 point
// 1: "first rearms itself... and then schedules the main pump"), so a slow
// pump cycle never starves the periodic drumbeat, then runs one pump.
func (h *Hook) fire(*hal.Timer) {
	h.timer.Start(h.tick, 0)

	key := h.lock.Lock()
	h.scheduled = false
	h.lock.Unlock(key)

	h.Pump()
	h.k.ProcessQueues(false)
}

// Pump implements hal.Pumper. It drains the transport and runs the
// dispatcher's delivery stage, but deliberately does not touch the
// work-queue dispatcher: hal.Sem.Take calls Pump and then runs
// Kernel.ProcessQueues itself immediately afterward, so doing it again here
// would just waste a cycle.
func (h *Hook) Pump() {
	if h.transport != nil {
		h.transport.PumpRX()
	}
	if h.deliver != nil {
		h.deliver()
	}
}

// Stop disarms the soft timer, e.g. on transport close.
func (h *Hook) Stop() {
	h.timer.Stop()
}
