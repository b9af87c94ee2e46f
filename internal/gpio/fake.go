package gpio

import "errors"

// FakeOutput is a test double that records every level written to it.
type FakeOutput struct {
	// Writes contains every level passed to Set, in order.
	Writes []Level

	// Times contains the Clock reading at each write, when Clock is set.
	Times []uint64

	// Clock, if set, timestamps each write.
	Clock func() uint64

	// SetError, if set, will be returned by Set and nothing is recorded.
	SetError error

	level Level
}

// NewFakeOutput creates a FakeOutput resting LOW.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the level.
func (f *FakeOutput) Set(l Level) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, l)
	if f.Clock != nil {
		f.Times = append(f.Times, f.Clock())
	}
	f.level = l
	return nil
}

// Level returns the last level written.
func (f *FakeOutput) Level() Level {
	return f.level
}

// Pulses counts LOW→HIGH transitions across all writes.
func (f *FakeOutput) Pulses() int {
	n := 0
	prev := Low
	for _, l := range f.Writes {
		if l && !prev {
			n++
		}
		prev = l
	}
	return n
}

// Reset clears recorded writes and returns the line to LOW.
func (f *FakeOutput) Reset() {
	f.Writes = nil
	f.Times = nil
	f.SetError = nil
	f.level = Low
}

// FakeInput is a test double that returns scripted levels.
type FakeInput struct {
	// Levels contains scripted values to return.
	// Each call to Get() consumes the next level.
	Levels []Level

	// Reads counts calls to Get.
	Reads int

	// GetError, if set, will be returned by Get().
	GetError error

	index int
}

// NewFakeInput creates a FakeInput with the given levels.
func NewFakeInput(levels ...Level) *FakeInput {
	return &FakeInput{Levels: levels}
}

// Get returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakeInput) Get() (Level, error) {
	if f.GetError != nil {
		return Low, f.GetError
	}
	if len(f.Levels) == 0 {
		return Low, errors.New("no levels configured")
	}
	f.Reads++

	l := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}
	return l, nil
}

// Reset rewinds to the first level.
func (f *FakeInput) Reset() {
	f.index = 0
	f.Reads = 0
}

// FakeAnalog is a test double for an analog channel.
type FakeAnalog struct {
	// Samples contains scripted values; exhausted scripts repeat the last.
	Samples []uint16

	// PendingPolls is the number of ConversionComplete calls that report
	// "not ready" before a sample becomes available. Each sample read
	// re-arms it from Latency.
	PendingPolls int

	// Latency re-arms PendingPolls after every Read.
	Latency int

	// Polls counts ConversionComplete calls.
	Polls int

	// NeverReady makes ConversionComplete always report false.
	NeverReady bool

	// ReadyError and ReadError, if set, are returned by the matching method.
	ReadyError error
	ReadError  error

	index int
}

// NewFakeAnalog creates a FakeAnalog that is immediately ready.
func NewFakeAnalog(samples ...uint16) *FakeAnalog {
	return &FakeAnalog{Samples: samples}
}

// ConversionComplete reports readiness after PendingPolls polls.
func (f *FakeAnalog) ConversionComplete() (bool, error) {
	f.Polls++
	if f.ReadyError != nil {
		return false, f.ReadyError
	}
	if f.NeverReady {
		return false, nil
	}
	if f.PendingPolls > 0 {
		f.PendingPolls--
		return false, nil
	}
	return true, nil
}

// Read returns the next scripted sample.
func (f *FakeAnalog) Read() (uint16, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}
	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	f.PendingPolls = f.Latency
	return s, nil
}
