package hal

// Delayable pairs a Timer with a Work item: on timer expiry the item is
// submitted to a designated queue. Spec §9 warns against a cyclic ownership
// between timer and work item (timer pointing at the work item, work item
// pointing back for cancellation); we avoid it the way the note suggests for
// a language with closures — the timer's handler is a closure over the
// Delayable's own address, so neither the Timer nor the Work needs a field
// pointing at the other.
type Delayable struct {
	timer *Timer
	work  *Work
	queue *Queue
}

// NewDelayable creates a Delayable that submits handler's work to queue when
// its timer expires.
func (k *Kernel) NewDelayable(queue *Queue, handler WorkHandler) *Delayable {
	d := &Delayable{work: NewWork(handler), queue: queue}
	d.timer = k.NewTimer(func(*Timer) {
		_, _ = d.queue.Submit(d.work)
	}, nil)
	return d
}

// Schedule arms the delayable to fire after duration milliseconds.
func (d *Delayable) Schedule(duration uint32) {
	d.timer.Start(duration, 0)
}

// Cancel stops the timer and removes the work item from its queue if it is
// already pending.
func (d *Delayable) Cancel() {
	d.timer.Stop()
	d.queue.Cancel(d.work)
}

// IsPending reports whether the delayable's timer is armed or its work item
// is queued.
func (d *Delayable) IsPending() bool {
	return d.timer.IsArmed() || d.work.IsPending()
}
