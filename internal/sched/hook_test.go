package sched

import (
	"testing"

	"github.com/andrewleech/micropython-sub002/internal/hal"
)

type fakeClock struct{ now hal.Timepoint }

func (c *fakeClock) Now() hal.Timepoint { return c.now }
func (c *fakeClock) advance(ms uint32)  { c.now = c.now.Add(ms) }

type countingPump struct{ n int }

func (p *countingPump) PumpRX() { p.n++ }

func TestHookFiresOnDefaultTick(t *testing.T) {
	clock := &fakeClock{}
	k := hal.NewKernel(clock)
	transport := &countingPump{}

	delivered := 0
	h := NewHook(k, transport, func() { delivered++ }, 0)
	defer h.Stop()

	clock.advance(DefaultTickMillis + 1)
	k.Process()

	if transport.n != 1 {
		t.Fatalf("transport pumped %d times, want 1", transport.n)
	}
	if delivered != 1 {
		t.Fatalf("delivered %d times, want 1", delivered)
	}
}

func TestHookRearmsItself(t *testing.T) {
	clock := &fakeClock{}
	k := hal.NewKernel(clock)
	transport := &countingPump{}

	h := NewHook(k, transport, func() {}, 10)
	defer h.Stop()

	for i := 0; i < 3; i++ {
		clock.advance(10)
		k.Process()
	}

	if transport.n != 3 {
		t.Fatalf("transport pumped %d times, want 3 (hook must keep re-arming)", transport.n)
	}
}

// TestHookRequestCoalesces covers spec §4.10 point 2: multiple Request calls
// within one cycle must not schedule more than one extra pump.
func TestHookRequestCoalesces(t *testing.T) {
	clock := &fakeClock{}
	k := hal.NewKernel(clock)
	transport := &countingPump{}

	h := NewHook(k, transport, func() {}, 1000)
	defer h.Stop()

	h.Request()
	h.Request()
	h.Request()

	clock.advance(1)
	k.Process()

	if transport.n != 1 {
		t.Fatalf("transport pumped %d times, want exactly 1 for three coalesced requests", transport.n)
	}
}

// TestHookPumpDoesNotProcessQueues ensures Pump (the hal.Pumper surface used
// by Sem.Take) only drains the transport/dispatcher, leaving work-queue
// processing to the caller.
func TestHookPumpDoesNotProcessQueues(t *testing.T) {
	clock := &fakeClock{}
	k := hal.NewKernel(clock)
	transport := &countingPump{}

	var ran bool
	w := hal.NewWork(func(*hal.Work) { ran = true })
	k.System.Submit(w)

	h := NewHook(k, transport, func() {}, 1000)
	defer h.Stop()

	h.Pump()

	if ran {
		t.Fatal("Hook.Pump must not run the work-queue dispatcher itself")
	}
}

var _ hal.Pumper = (*Hook)(nil)
