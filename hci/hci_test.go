package hci

import (
	"testing"

	"github.com/andrewleech/micropython-sub002/internal/h4"
	"github.com/andrewleech/micropython-sub002/internal/hal"
)

type fakeTransport struct {
	setupErr    error
	teardownErr error
	written     [][]byte
	writeErr    error
	rx          []byte
	pos         int
}

func (t *fakeTransport) Setup() error    { return t.setupErr }
func (t *fakeTransport) Teardown() error { return t.teardownErr }

func (t *fakeTransport) ReadByte() (byte, bool) {
	if t.pos >= len(t.rx) {
		return 0, false
	}
	b := t.rx[t.pos]
	t.pos++
	return b, true
}

func (t *fakeTransport) Write(frame []byte) error {
	if t.writeErr != nil {
		return t.writeErr
	}
	cp := append([]byte(nil), frame...)
	t.written = append(t.written, cp)
	return nil
}

type fakeStack struct {
	enableErr error
	enabled   bool
	received  []*h4.Buffer
	refuse    bool
}

func (s *fakeStack) Enable() error {
	s.enabled = true
	return s.enableErr
}

func (s *fakeStack) RecvCB(buf *h4.Buffer) int {
	s.received = append(s.received, buf)
	if s.refuse {
		return 1
	}
	return 0
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SchedTickMillis = 1000
	return cfg
}

func TestOpenEnablesStackAndReturnsPromptly(t *testing.T) {
	d := NewDevice(testConfig(), nil)
	tp := &fakeTransport{}
	stack := &fakeStack{}

	if err := d.Open(tp, stack); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if !stack.enabled {
		t.Fatal("Open must call stack.Enable")
	}
}

func TestOpenTwiceFails(t *testing.T) {
	d := NewDevice(testConfig(), nil)
	tp := &fakeTransport{}
	stack := &fakeStack{}

	if err := d.Open(tp, stack); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	defer d.Close()

	if err := d.Open(tp, stack); err != ErrAlreadyOpen {
		t.Fatalf("second Open err=%v, want ErrAlreadyOpen", err)
	}
}

func TestSendBeforeOpenFails(t *testing.T) {
	d := NewDevice(testConfig(), nil)
	if err := d.Send(BufferCmd, []byte{0x03, 0x0c, 0x00}); err == nil {
		t.Fatal("Send before Open must fail")
	}
}

// TestHCIResetRoundTrip covers spec §8 scenario 1 end to end: a submitted
// Reset command is written with the CMD type byte, and the controller's
// Command Complete EVT response is parsed, queued, and delivered to the
// host's RecvCB, with the TX/RX counters recording one of each.
func TestHCIResetRoundTrip(t *testing.T) {
	d := NewDevice(testConfig(), nil)
	tp := &fakeTransport{}
	stack := &fakeStack{}

	if err := d.Open(tp, stack); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if err := d.Send(BufferCmd, []byte{0x03, 0x0c, 0x00}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(tp.written) != 1 {
		t.Fatalf("written frames=%d, want 1", len(tp.written))
	}
	if want := []byte{byte(h4.TypeCmd), 0x03, 0x0c, 0x00}; string(tp.written[0]) != string(want) {
		t.Fatalf("frame=%x, want %x", tp.written[0], want)
	}

	// Controller replies with Command Complete.
	tp.rx = []byte{byte(h4.TypeEvt), 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}
	tp.pos = 0

	d.pumpRX()
	d.deliverBatches()

	if len(stack.received) != 1 {
		t.Fatalf("delivered=%d, want 1", len(stack.received))
	}
	want := []byte{0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}
	if string(stack.received[0].Data) != string(want) {
		t.Fatalf("data=%x, want %x", stack.received[0].Data, want)
	}

	stats := d.Stats()
	if stats.CmdTX != 1 {
		t.Fatalf("CmdTX=%d, want 1", stats.CmdTX)
	}
	if stats.EvtRX != 1 {
		t.Fatalf("EvtRX=%d, want 1", stats.EvtRX)
	}
}

// TestWorkSubmissionRequestsPromptPump covers spec §4.10's coalescing
// scheduled-node: a host handler that submits work to Device.Kernel().System
// must not wait out the rest of the (here, 1-second) periodic tick for it to
// run — submitting rearms the hook's timer to fire on the very next Process.
func TestWorkSubmissionRequestsPromptPump(t *testing.T) {
	d := NewDevice(testConfig(), nil)
	tp := &fakeTransport{}
	stack := &fakeStack{}

	if err := d.Open(tp, stack); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	var ran bool
	d.Kernel().System.Submit(hal.NewWork(func(*hal.Work) { ran = true }))

	d.Kernel().Process()
	d.Kernel().ProcessQueues(false)

	if !ran {
		t.Fatal("submitting work must request a prompt pump rather than waiting for the next tick")
	}
}

func TestRecvCBRefusalReleasesBuffer(t *testing.T) {
	d := NewDevice(testConfig(), nil)
	tp := &fakeTransport{rx: []byte{byte(h4.TypeEvt), 0x13, 0x00}}
	stack := &fakeStack{refuse: true}

	if err := d.Open(tp, stack); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	d.pumpRX()
	d.deliverBatches()

	if len(stack.received) != 1 {
		t.Fatalf("delivered=%d, want 1", len(stack.received))
	}

	// The buffer must have been released back to its pool: a fresh alloc
	// of the same size must succeed even though the pool was sized for
	// exactly cfg.EVTBufferCount blocks and we already delivered one.
	cfg := testConfig()
	for i := 0; i < cfg.EVTBufferCount; i++ {
		buf, err := d.pools.Alloc(h4.TypeEvt, 2)
		if err != nil {
			t.Fatalf("alloc %d after refusal: %v", i, err)
		}
		defer buf.Release()
	}
}
