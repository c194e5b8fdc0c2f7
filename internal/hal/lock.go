package hal

import "sync"

// Spinlock is the critical-section primitive every shared-mutation path in
// this package uses: RX queue indices, work-queue links, atomic variables,
// and the semaphore counter.
//
// On the teacher's bare-metal targets a spinlock enter/exit degenerates to
// IRQ-disable/IRQ-restore around a short section (see arm.CPU.DisableInterrupts
// in the teacher repo) because there is only one core and interrupts are the
// only source of preemption. A hosted Go build has no equivalent to masking
// CPU interrupts, so Spinlock keeps the same enter/exit-with-a-key shape but
// implements it with a mutex; the contract — sections must be short, no
// allocation, no callbacks — is unchanged and is what actually matters to
// callers.
type Spinlock struct {
	mu  sync.Mutex
	key uint32
}

// Lock enters the critical section and returns an opaque key that must be
// passed back to Unlock. The key mirrors the teacher's "previous IRQ state"
// return value from DisableInterrupts, even though there is no IRQ state to
// save here.
func (s *Spinlock) Lock() uint32 {
	s.mu.Lock()
	s.key++
	return s.key
}

// Unlock exits the critical section.
func (s *Spinlock) Unlock(uint32) {
	s.mu.Unlock()
}

// Mutex is a sync.Mutex-backed lock with a depth counter, after spec §4.5:
// on a single-task cooperative host there is never real contention, so Mutex
// exists to preserve the host stack's lock/unlock call shape and to let
// assertions catch unbalanced use. It is not reentrant: a second Lock from
// the same holder blocks.
type Mutex struct {
	mu    sync.Mutex
	depth int
}

// Lock acquires the mutex.
func (m *Mutex) Lock() {
	m.mu.Lock()
	m.depth++
}

// Unlock releases the mutex.
func (m *Mutex) Unlock() {
	m.depth--
	m.mu.Unlock()
}

// Depth returns the current lock depth, for assertions only.
func (m *Mutex) Depth() int {
	return m.depth
}
