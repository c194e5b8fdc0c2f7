package hal

import "testing"

func TestTimerOneShot(t *testing.T) {
	clock := &fakeClock{}
	k := NewKernel(clock)

	var fired int
	timer := k.NewTimer(func(*Timer) { fired++ }, nil)
	timer.Start(10, 0)

	clock.advance(5)
	k.Process()
	if fired != 0 {
		t.Fatalf("fired=%d before expiry", fired)
	}

	clock.advance(10)
	k.Process()
	if fired != 1 {
		t.Fatalf("fired=%d, want 1", fired)
	}
	if timer.IsArmed() {
		t.Fatal("one-shot timer must be idle after firing")
	}
	if timer.Remaining() != 0 {
		t.Fatalf("remaining=%d, want 0 for an idle timer", timer.Remaining())
	}
}

func TestTimerPeriodic(t *testing.T) {
	clock := &fakeClock{}
	k := NewKernel(clock)

	var fired int
	timer := k.NewTimer(func(*Timer) { fired++ }, nil)
	timer.Start(10, 10)

	for i := 0; i < 3; i++ {
		clock.advance(10)
		k.Process()
	}

	if fired != 3 {
		t.Fatalf("fired=%d, want 3", fired)
	}
	if !timer.IsArmed() {
		t.Fatal("periodic timer must remain armed")
	}
}

func TestTimerStop(t *testing.T) {
	clock := &fakeClock{}
	k := NewKernel(clock)

	var stopped bool
	var fired int
	timer := k.NewTimer(func(*Timer) { fired++ }, func(*Timer) { stopped = true })
	timer.Start(10, 0)
	timer.Stop()

	if !stopped {
		t.Fatal("stopFn must fire on explicit Stop")
	}

	clock.advance(20)
	k.Process()

	if fired != 0 {
		t.Fatal("stopped timer must not fire")
	}

	// Stop on an idle timer is safe.
	timer.Stop()
}

// TestTimerStartRemainingRoundTrip covers spec §8's round-trip law:
// timer.start(t, d, 0); sleep(d + ε); timer.remaining(t) == 0.
func TestTimerStartRemainingRoundTrip(t *testing.T) {
	clock := &fakeClock{}
	k := NewKernel(clock)

	timer := k.NewTimer(func(*Timer) {}, nil)
	timer.Start(50, 0)

	clock.advance(51)
	if got := timer.Remaining(); got != 0 {
		t.Fatalf("remaining=%d, want 0 after deadline passed", got)
	}
}

func TestTimerNoCoalescedCatchUp(t *testing.T) {
	clock := &fakeClock{}
	k := NewKernel(clock)

	var fired int
	timer := k.NewTimer(func(*Timer) { fired++ }, nil)
	timer.Start(10, 10)

	// The host is slow: five periods elapse before Process runs once.
	clock.advance(50)
	k.Process()

	if fired != 1 {
		t.Fatalf("fired=%d, want exactly 1 (ticks are dropped, not accumulated)", fired)
	}
}
