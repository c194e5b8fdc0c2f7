package hal

import "testing"

// TestWorkIdempotence covers spec §8 invariant 3: repeated submits of a
// pending item behave as a single submission.
func TestWorkIdempotence(t *testing.T) {
	k := NewKernel(nil)
	var runs int
	w := NewWork(func(*Work) { runs++ })

	n1, err := k.System.Submit(w)
	if err != nil || n1 != 1 {
		t.Fatalf("first submit: n=%d err=%v", n1, err)
	}

	n2, err := k.System.Submit(w)
	if err != nil || n2 != 0 {
		t.Fatalf("second submit: n=%d err=%v", n2, err)
	}

	k.ProcessQueues(false)

	if runs != 1 {
		t.Fatalf("handler ran %d times, want 1", runs)
	}
}

// TestWorkResubmitDuringExecution covers spec §8 scenario 6: a handler that
// resubmits itself runs exactly once per pump cycle.
func TestWorkResubmitDuringExecution(t *testing.T) {
	k := NewKernel(nil)
	var runs int
	var w *Work
	w = NewWork(func(*Work) {
		runs++
		if runs == 1 {
			k.System.Submit(w)
		}
	})

	k.System.Submit(w)
	k.ProcessQueues(false)

	if runs != 1 {
		t.Fatalf("runs=%d after first pump, want 1", runs)
	}
	if !w.IsPending() {
		t.Fatal("resubmission should be visible after the pump that triggered it")
	}

	k.ProcessQueues(false)
	if runs != 2 {
		t.Fatalf("runs=%d after second pump, want 2", runs)
	}
}

func TestWorkSubmitNil(t *testing.T) {
	k := NewKernel(nil)
	if _, err := k.System.Submit(nil); err != ErrInvalidWork {
		t.Fatalf("got err=%v, want ErrInvalidWork", err)
	}
}

func TestWorkCancel(t *testing.T) {
	k := NewKernel(nil)
	var ran bool
	w := NewWork(func(*Work) { ran = true })

	k.System.Submit(w)
	k.System.Cancel(w)
	k.ProcessQueues(false)

	if ran {
		t.Fatal("cancelled work must not run")
	}
	if w.IsPending() {
		t.Fatal("cancelled work must not be pending")
	}

	// cancelling again, or cancelling something never submitted, is a no-op
	k.System.Cancel(w)
}

// TestNewQueueRegistersWithProcessQueues covers board-glue's ability to
// register an additional named queue (beyond System/Init) and have it
// drained by the same ProcessQueues pass.
func TestNewQueueRegistersWithProcessQueues(t *testing.T) {
	k := NewKernel(nil)
	gatt := k.NewQueue("gatt")

	var ran bool
	gatt.Submit(NewWork(func(*Work) { ran = true }))

	k.ProcessQueues(false)

	if !ran {
		t.Fatal("a queue created with NewQueue must be drained by ProcessQueues")
	}
}

func TestProcessQueuesSkipsInit(t *testing.T) {
	k := NewKernel(nil)
	var ran bool
	w := NewWork(func(*Work) { ran = true })
	k.Init.Submit(w)

	k.ProcessQueues(false)

	if ran {
		t.Fatal("Init queue must not be drained by ProcessQueues")
	}
}

func TestProcessQueuesFIFOOrder(t *testing.T) {
	k := NewKernel(nil)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		k.System.Submit(NewWork(func(*Work) { order = append(order, i) }))
	}

	k.ProcessQueues(false)

	for i, v := range order {
		if v != i {
			t.Fatalf("order=%v, want strict FIFO 0..4", order)
		}
	}
}

func TestProcessQueuesReentrancyGuard(t *testing.T) {
	k := NewKernel(nil)
	var nested bool
	k.System.Submit(NewWork(func(*Work) {
		nested = k.ProcessQueues(false)
	}))

	k.ProcessQueues(false)

	if nested {
		t.Fatal("a non-wait-loop nested ProcessQueues call must be refused")
	}
}

func TestProcessQueuesWaitLoopDepthBudget(t *testing.T) {
	k := NewKernel(nil)

	var depth2 bool
	k.System.Submit(NewWork(func(*Work) {
		// depth is now 1 (this call came from a waitLoop=true call below)
		k.System.Submit(NewWork(func(*Work) {
			// a further nested waitLoop call would be depth 2: refused
			depth2 = k.ProcessQueues(true)
		}))
		k.ProcessQueues(true)
	}))

	k.ProcessQueues(true)

	if depth2 {
		t.Fatal("wait-loop dispatch depth must be capped at 2")
	}
}

func TestCurrentContext(t *testing.T) {
	k := NewKernel(nil)
	if k.CurrentContext() {
		t.Fatal("CurrentContext must be false outside ProcessQueues")
	}

	var inside bool
	k.System.Submit(NewWork(func(*Work) {
		inside = k.CurrentContext()
	}))
	k.ProcessQueues(false)

	if !inside {
		t.Fatal("CurrentContext must be true while a handler runs under ProcessQueues")
	}
	if k.CurrentContext() {
		t.Fatal("CurrentContext must be false again after ProcessQueues returns")
	}
}
