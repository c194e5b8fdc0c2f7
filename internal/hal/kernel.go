package hal

import "sync"

// Kernel is the process-wide cooperative-kernel state the rest of this
// package operates on: the active timer set, the registered work queues, and
// the re-entrancy guards that let a semaphore's wait loop safely pump the
// work-queue dispatcher.
//
// A board normally has exactly one Kernel, created at init time and reset
// (via Reset) before a soft reboot to discard stale links — mirroring the
// teacher's (tamago) treatment of its own package-level globals (DMA region,
// active timer list) as zero-initialized, lifecycle-owned state rather than
// something an application constructs per call.
type Kernel struct {
	Clock Clock

	lock Spinlock

	timers []*Timer
	queues []*Queue

	System *Queue
	Init   *Queue

	dispatchRunning bool
	dispatchDepth   int
}

// NewKernel creates a Kernel with the System and Init work queues
// pre-registered, matching spec §3's "two named queues exist" data model.
func NewKernel(clock Clock) *Kernel {
	if clock == nil {
		clock = NewSystemClock()
	}

	k := &Kernel{Clock: clock}
	k.System = k.newQueue("system")
	k.Init = k.newQueue("init")

	return k
}

// Reset clears all timers, queues and guard state, dropping any stale links
// left over from a prior enable/disable cycle. It must only be called while
// nothing is pumping the kernel.
func (k *Kernel) Reset() {
	key := k.lock.Lock()
	defer k.lock.Unlock(key)

	k.timers = nil
	k.queues = nil
	k.dispatchRunning = false
	k.dispatchDepth = 0

	k.System = k.newQueueLocked("system")
	k.Init = k.newQueueLocked("init")
}

var (
	defaultKernel     *Kernel
	defaultKernelOnce sync.Once
)

// Default returns the process-wide default Kernel, lazily creating it with a
// SystemClock on first use.
func Default() *Kernel {
	defaultKernelOnce.Do(func() {
		defaultKernel = NewKernel(nil)
	})
	return defaultKernel
}
