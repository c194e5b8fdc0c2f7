package hal

import "time"

// Pumper is implemented by whatever drives bytes off a transport into the
// H:4 pipeline. Sem.Take calls it on every iteration of its wait loop so
// that a command's response — which the host routes through a work item —
// has a chance to arrive while a handler is blocked waiting for it (spec
// §4.4). It is satisfied by sched.Hook in normal use; tests can supply a
// no-op or a scripted fake.
type Pumper interface {
	Pump()
}

// Sem is a counting semaphore whose Take pumps the transport and the work
// queue instead of blocking on a real OS wait primitive — there is no other
// thread in this model that could perform the work needed to signal it
// (spec §4.4 rationale).
type Sem struct {
	k     *Kernel
	pump  Pumper
	lock  Spinlock
	count uint32
	limit uint32
}

// NewSem creates a semaphore with the given initial count and limit, pumped
// by p while a Take is waiting.
func (k *Kernel) NewSem(initial, limit uint32, p Pumper) *Sem {
	return &Sem{k: k, pump: p, count: initial, limit: limit}
}

// Give increments the counter, clamped at the limit. Safe to call from an
// IRQ-equivalent context.
func (s *Sem) Give() {
	key := s.lock.Lock()
	if s.count < s.limit {
		s.count++
	}
	s.lock.Unlock(key)
}

// Count returns the current counter value.
func (s *Sem) Count() uint32 {
	key := s.lock.Lock()
	defer s.lock.Unlock(key)
	return s.count
}

// TakeResult is the outcome of a Take call.
type TakeResult int

const (
	// TakeOK means the semaphore was acquired.
	TakeOK TakeResult = iota
	// TakeWouldBlock means NoWait was requested and the counter was 0.
	TakeWouldBlock
	// TakeTimedOut means the deadline passed before the counter became
	// positive.
	TakeTimedOut
)

// pollInterval is how long Take sleeps between wait-loop iterations; it
// mirrors spec §4.4's "yield the CPU briefly (a short scheduled wait or 1 ms
// sleep)".
var pollInterval = time.Millisecond

// Take attempts to decrement the counter. With NoWait it returns immediately.
// With any other timeout (Forever disables the deadline) it loops: pump the
// transport, pump the work-queue dispatcher in wait-loop mode (so the
// nested dispatch budget in ProcessQueues applies), then yield briefly,
// until the counter is positive or the deadline passes.
func (s *Sem) Take(timeout Timepoint) TakeResult {
	if s.tryTake() {
		return TakeOK
	}

	if timeout == NoWait {
		return TakeWouldBlock
	}

	var deadline Timepoint
	hasDeadline := timeout != Forever
	if hasDeadline {
		deadline = s.k.Clock.Now().Add(uint32(timeout))
	}

	for {
		if s.pump != nil {
			s.pump.Pump()
		}

		s.k.ProcessQueues(true)

		if s.tryTake() {
			return TakeOK
		}

		if hasDeadline && deadline.Before(s.k.Clock.Now()) {
			return TakeTimedOut
		}

		time.Sleep(pollInterval)
	}
}

func (s *Sem) tryTake() bool {
	key := s.lock.Lock()
	defer s.lock.Unlock(key)

	if s.count > 0 {
		s.count--
		return true
	}

	return false
}
