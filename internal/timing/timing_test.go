package timing

import (
	"testing"
	"time"
)

func TestVirtualClockMicroseconds(t *testing.T) {
	c := NewVirtualClock()
	c.DelayMicroseconds(10)
	c.DelayMicroseconds(0)
	c.DelayMicroseconds(250)

	if got := c.NowMicros(); got != 260 {
		t.Errorf("expected 260us, got %d", got)
	}
	if got := c.Calls(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestVirtualClockMillisecondsAreThousandMicroRepeats(t *testing.T) {
	c := NewVirtualClock()
	c.DelayMilliseconds(7)

	if got := c.NowMicros(); got != 7000 {
		t.Errorf("expected 7000us, got %d", got)
	}
	if got := c.Calls(); got != 7 {
		t.Errorf("expected 7 x 1000us delays, got %d", got)
	}
}

func TestVirtualClockZeroMilliseconds(t *testing.T) {
	c := NewVirtualClock()
	c.DelayMilliseconds(0)
	if c.NowMicros() != 0 || c.Calls() != 0 {
		t.Errorf("expected no delay, got %dus over %d calls", c.NowMicros(), c.Calls())
	}
}

func TestNewBusyWaitDefault(t *testing.T) {
	b := NewBusyWait(0)
	if b.CyclesPerMicrosecond != DefaultCyclesPerMicrosecond {
		t.Errorf("expected default %d, got %d", DefaultCyclesPerMicrosecond, b.CyclesPerMicrosecond)
	}

	b = NewBusyWait(42)
	if b.CyclesPerMicrosecond != 42 {
		t.Errorf("expected 42, got %d", b.CyclesPerMicrosecond)
	}
}

func TestBusyWaitNeverReturnsEarly(t *testing.T) {
	b := NewBusyWait(Calibrate(5 * time.Millisecond))

	start := time.Now()
	b.DelayMilliseconds(20)
	elapsed := time.Since(start)

	// Calibration is approximate, so only a generous lower bound is checked.
	if elapsed < 5*time.Millisecond {
		t.Errorf("expected roughly 20ms, got %v", elapsed)
	}
}

func TestCalibrateIsPositive(t *testing.T) {
	if got := Calibrate(time.Millisecond); got < 1 {
		t.Errorf("expected calibration >= 1, got %d", got)
	}
	if got := Calibrate(0); got < 1 {
		t.Errorf("expected calibration >= 1 with default window, got %d", got)
	}
}

func TestMonotonicDelay(t *testing.T) {
	m := NewMonotonic()

	start := time.Now()
	m.DelayMicroseconds(500)
	if elapsed := time.Since(start); elapsed < 500*time.Microsecond {
		t.Errorf("expected at least 500us, got %v", elapsed)
	}

	before := m.NowMicros()
	m.DelayMilliseconds(1)
	if after := m.NowMicros(); after-before < 1000 {
		t.Errorf("expected clock to advance >= 1000us, got %d", after-before)
	}
}

func TestPacedCountsDelaysAndBlocks(t *testing.T) {
	inner := NewVirtualClock()
	p := NewPaced(inner)

	p.DelayMicroseconds(3)
	p.DelayMilliseconds(2)

	if p.NowMicros() != 2003 {
		t.Errorf("expected 2003us, got %d", p.NowMicros())
	}
	if inner.NowMicros() != 2003 || inner.Calls() != 3 {
		t.Errorf("expected real delayer to see 2003us over 3 calls, got %dus over %d", inner.NowMicros(), inner.Calls())
	}
}

func TestPacedIgnoresTimeBetweenDelays(t *testing.T) {
	p := NewPaced(NewMonotonic())

	p.DelayMicroseconds(100)
	time.Sleep(2 * time.Millisecond)
	p.DelayMicroseconds(100)

	if p.NowMicros() != 200 {
		t.Errorf("expected 200us of delayed time, got %d", p.NowMicros())
	}
}

func TestDelayersImplementInterfaces(t *testing.T) {
	var _ Delayer = BusyWait{}
	var _ Delayer = NewMonotonic()
	var _ Delayer = NewVirtualClock()
	var _ Delayer = NewPaced(NewVirtualClock())
	var _ Clock = NewPaced(NewVirtualClock())
	var _ Clock = NewMonotonic()
	var _ Clock = NewVirtualClock()
}
