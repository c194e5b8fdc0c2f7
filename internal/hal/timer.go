package hal

// TimerHandler is invoked when a timer expires. It must not block.
type TimerHandler func(t *Timer)

// timerState mirrors spec §3's "state ∈ {idle, armed}" invariant: a timer is
// armed iff it is present in the kernel's active-timer set.
type timerState int

const (
	timerIdle timerState = iota
	timerArmed
)

// Timer is a one-shot or periodic alarm driven by Kernel.Process, which the
// scheduling hook calls on every tick (see the sched package).
type Timer struct {
	k *Kernel

	state   timerState
	expiry  Timepoint
	period  uint32
	handler TimerHandler
	stopFn  func(*Timer)

	userData any
}

// NewTimer allocates an idle timer bound to k. handler fires on expiry;
// stopFn, if non-nil, fires whenever the timer is explicitly stopped (armed
// or not) — this mirrors Zephyr's k_timer stop-callback, used by hosts that
// release resources tied to a running timer.
func (k *Kernel) NewTimer(handler TimerHandler, stopFn func(*Timer)) *Timer {
	return &Timer{k: k, handler: handler, stopFn: stopFn}
}

// SetUserData attaches caller-owned data to the timer, retrievable with
// UserData. It exists so a timer handler expressed as a closure still has an
// idiomatic escape hatch for callers following the host's C-style "timer
// carries a void *user_data" convention.
func (t *Timer) SetUserData(v any) { t.userData = v }

// UserData returns the value set by SetUserData.
func (t *Timer) UserData() any { return t.userData }

// Start arms the timer. duration == 0 fires on the next Process call;
// period != 0 causes the timer to automatically rearm after firing.
func (t *Timer) Start(duration uint32, period uint32) {
	key := t.k.lock.Lock()
	defer t.k.lock.Unlock(key)

	now := t.k.Clock.Now()
	t.expiry = now.Add(duration)
	t.period = period

	if t.state == timerIdle {
		t.k.timers = append(t.k.timers, t)
		t.state = timerArmed
	}
}

// Stop removes the timer from the active set. Safe to call on an idle timer.
func (t *Timer) Stop() {
	key := t.k.lock.Lock()
	wasArmed := t.state == timerArmed
	if wasArmed {
		t.removeLocked()
	}
	t.k.lock.Unlock(key)

	if t.stopFn != nil {
		t.stopFn(t)
	}
}

func (t *Timer) removeLocked() {
	for i, other := range t.k.timers {
		if other == t {
			t.k.timers = append(t.k.timers[:i], t.k.timers[i+1:]...)
			break
		}
	}
	t.state = timerIdle
}

// Remaining returns the milliseconds until expiry, or 0 if idle or already
// expired.
func (t *Timer) Remaining() uint32 {
	key := t.k.lock.Lock()
	defer t.k.lock.Unlock(key)

	if t.state != timerArmed {
		return 0
	}

	now := t.k.Clock.Now()
	remaining := now.Since(t.expiry)
	if remaining <= 0 {
		return 0
	}

	return uint32(remaining)
}

// IsArmed reports whether the timer is currently armed.
func (t *Timer) IsArmed() bool {
	key := t.k.lock.Lock()
	defer t.k.lock.Unlock(key)
	return t.state == timerArmed
}

// Process fires every armed timer whose expiry has passed, rearming
// periodic ones exactly once. A slow host that misses several ticks of a
// periodic timer never receives more than one catch-up fire per Process
// call — spec §4.1 explicitly forbids coalesced/backlogged fires.
func (k *Kernel) Process() {
	now := k.Clock.Now()

	key := k.lock.Lock()
	due := make([]*Timer, 0, len(k.timers))
	for _, t := range k.timers {
		if t.expiry.Before(now) || t.expiry == now {
			due = append(due, t)
		}
	}
	k.lock.Unlock(key)

	for _, t := range due {
		key := k.lock.Lock()
		if t.state != timerArmed {
			k.lock.Unlock(key)
			continue
		}

		if t.period == 0 {
			t.removeLocked()
		} else {
			t.expiry = now.Add(t.period)
		}
		k.lock.Unlock(key)

		if t.handler != nil {
			t.handler(t)
		}
	}
}
