// Package timing provides the delay primitive every other part of the device
// derives its timing from.
//
// Delays are busy-waits: the calling goroutine spins for the whole duration
// and nothing else in the control loop runs meanwhile. Accuracy is
// approximate. A BusyWait is only as good as its CyclesPerMicrosecond
// calibration, and on a host with a scheduler, frequency scaling or
// preemption the real delay drifts longer than requested. Delays never
// return early and cannot be cancelled.
package timing

import "time"

// DefaultCyclesPerMicrosecond is the spin count per microsecond for the
// 16 MHz-class core the device was first built on. It is far too low for
// an application processor; use Calibrate there.
const DefaultCyclesPerMicrosecond = 8

// Delayer blocks the caller for an approximate duration.
type Delayer interface {
	// DelayMicroseconds blocks for roughly us microseconds.
	DelayMicroseconds(us uint32)

	// DelayMilliseconds blocks for ms repetitions of a 1000 µs delay.
	DelayMilliseconds(ms uint32)
}

// Clock reports elapsed microseconds since an arbitrary origin.
type Clock interface {
	NowMicros() uint64
}

// milliseconds implements DelayMilliseconds in terms of DelayMicroseconds
// for every Delayer in this package.
func milliseconds(d Delayer, ms uint32) {
	for i := uint32(0); i < ms; i++ {
		d.DelayMicroseconds(1000)
	}
}

// spinSink keeps the spin loop observable so it is not optimised away.
var spinSink uint64

func spin(n uint64) {
	var acc uint64
	for i := uint64(0); i < n; i++ {
		acc++
	}
	spinSink += acc
}

// BusyWait is a calibrated spin-loop delay.
type BusyWait struct {
	// CyclesPerMicrosecond is the number of loop iterations that take one
	// microsecond on the running core.
	CyclesPerMicrosecond uint32
}

// NewBusyWait returns a BusyWait with the given calibration. A zero value
// falls back to DefaultCyclesPerMicrosecond.
func NewBusyWait(cyclesPerMicrosecond uint32) BusyWait {
	if cyclesPerMicrosecond == 0 {
		cyclesPerMicrosecond = DefaultCyclesPerMicrosecond
	}
	return BusyWait{CyclesPerMicrosecond: cyclesPerMicrosecond}
}

// DelayMicroseconds spins us × CyclesPerMicrosecond iterations.
func (b BusyWait) DelayMicroseconds(us uint32) {
	spin(uint64(us) * uint64(b.CyclesPerMicrosecond))
}

// DelayMilliseconds spins for ms × 1000 µs.
func (b BusyWait) DelayMilliseconds(ms uint32) {
	milliseconds(b, ms)
}

// calibrationChunk is the number of iterations spun between clock reads
// while calibrating.
const calibrationChunk = 1 << 16

// Calibrate measures how many spin iterations fit in one microsecond on this
// host by spinning for at least window. The result is never below 1.
func Calibrate(window time.Duration) uint32 {
	if window <= 0 {
		window = 10 * time.Millisecond
	}
	var iterations uint64
	start := time.Now()
	for time.Since(start) < window {
		spin(calibrationChunk)
		iterations += calibrationChunk
	}
	us := uint64(time.Since(start) / time.Microsecond)
	if us == 0 {
		return 1
	}
	perUS := iterations / us
	if perUS == 0 {
		return 1
	}
	if perUS > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(perUS)
}

// Monotonic is a timer-backed Delayer: it spins on the monotonic clock
// instead of counting iterations, so it needs no calibration.
type Monotonic struct {
	start time.Time
}

// NewMonotonic returns a Monotonic whose clock origin is now.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// DelayMicroseconds spins until us microseconds of monotonic time have passed.
func (m *Monotonic) DelayMicroseconds(us uint32) {
	deadline := time.Now().Add(time.Duration(us) * time.Microsecond)
	for time.Now().Before(deadline) {
	}
}

// DelayMilliseconds spins for ms × 1000 µs.
func (m *Monotonic) DelayMilliseconds(ms uint32) {
	milliseconds(m, ms)
}

// NowMicros returns microseconds elapsed since NewMonotonic.
func (m *Monotonic) NowMicros() uint64 {
	return uint64(time.Since(m.start) / time.Microsecond)
}

// Paced blocks on a real Delayer and advances a counter by exactly the
// requested delays. NowMicros therefore counts delayed time only, not the
// overhead between delays.
type Paced struct {
	inner Delayer
	now   uint64
}

// NewPaced returns a Paced clock at time zero blocking on inner.
func NewPaced(inner Delayer) *Paced {
	return &Paced{inner: inner}
}

// DelayMicroseconds blocks on the real Delayer and advances the clock by us.
func (p *Paced) DelayMicroseconds(us uint32) {
	p.inner.DelayMicroseconds(us)
	p.now += uint64(us)
}

// DelayMilliseconds blocks for ms × 1000 µs.
func (p *Paced) DelayMilliseconds(ms uint32) {
	milliseconds(p, ms)
}

// NowMicros returns the accumulated delayed time.
func (p *Paced) NowMicros() uint64 {
	return p.now
}

// VirtualClock is a Delayer that advances a counter instead of blocking.
// Not safe for concurrent use.
type VirtualClock struct {
	now   uint64
	calls int
}

// NewVirtualClock returns a VirtualClock at time zero.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

// DelayMicroseconds advances the clock by us.
func (c *VirtualClock) DelayMicroseconds(us uint32) {
	c.now += uint64(us)
	c.calls++
}

// DelayMilliseconds advances the clock by ms × 1000 µs.
func (c *VirtualClock) DelayMilliseconds(ms uint32) {
	milliseconds(c, ms)
}

// NowMicros returns the accumulated virtual time.
func (c *VirtualClock) NowMicros() uint64 {
	return c.now
}

// Calls returns the number of DelayMicroseconds calls made so far.
func (c *VirtualClock) Calls() int {
	return c.calls
}
