// Package sim provides a simulated board for running the control loop
// without hardware. Light level, obstacle distance and button state are
// plain fields; the echo line answers each trigger pulse with a pulse whose
// width matches Distance.
package sim

import (
	"github.com/sweeney/blind-stick/internal/gpio"
	"github.com/sweeney/blind-stick/internal/timing"
	"github.com/sweeney/blind-stick/internal/ultrasonic"
)

// Line is a simulated output line.
type Line struct {
	Name  string
	level gpio.Level
	rises uint64

	// Watch, if set, is called on every write with the board time.
	Watch func(l gpio.Level, atMicros uint64)

	clock timing.Clock
}

// Set drives the line.
func (l *Line) Set(v gpio.Level) error {
	if v && !l.level {
		l.rises++
	}
	l.level = v
	if l.Watch != nil {
		l.Watch(v, l.clock.NowMicros())
	}
	return nil
}

// Level returns the current level.
func (l *Line) Level() gpio.Level { return l.level }

// Rises returns the number of LOW→HIGH transitions so far.
func (l *Line) Rises() uint64 { return l.rises }

// Board is a simulated set of sensors and outputs.
type Board struct {
	// Light is the raw analog sample the light channel returns.
	Light uint16

	// Distance is the obstacle distance in centimeters.
	Distance uint32

	// Pressed holds the emergency button down.
	Pressed bool

	// NoEcho keeps the echo line LOW after a trigger.
	NoEcho bool

	EmergencyLED *Line
	LightLED     *Line
	Buzzer       *Line
	Trigger      *Line

	clock   timing.Clock
	fall    uint64
	pending bool
}

// NewBoard creates a Board timed by clock. The clock must advance only
// through the Delayer the ranger uses (timing.VirtualClock or timing.Paced).
func NewBoard(clock timing.Clock) *Board {
	b := &Board{clock: clock}
	b.EmergencyLED = &Line{Name: "emergency-led", clock: clock}
	b.LightLED = &Line{Name: "light-led", clock: clock}
	b.Buzzer = &Line{Name: "buzzer", clock: clock}
	b.Trigger = &Line{Name: "trigger", clock: clock}
	return b
}

// Pins returns the board lines as capabilities.
func (b *Board) Pins() gpio.Pins {
	return gpio.Pins{
		Button:       gpio.InputFunc(b.button),
		Echo:         gpio.InputFunc(b.echo),
		EmergencyLED: b.EmergencyLED,
		LightLED:     b.LightLED,
		Buzzer:       b.Buzzer,
		Trigger:      gpio.OutputFunc(b.trigger),
	}
}

// Analog returns the light channel.
func (b *Board) Analog() gpio.AnalogChannel {
	return analog{b}
}

// PulseMicros is the echo width the board produces for Distance, mid-way
// through the centimeter. It converts back to Distance only when the board
// clock counts the ranger's delays; on a wall clock the loop overhead makes
// every reading short.
func (b *Board) PulseMicros() uint64 {
	return uint64(b.Distance)*ultrasonic.MicrosPerCentimeter + ultrasonic.MicrosPerCentimeter/2
}

func (b *Board) button() (gpio.Level, error) {
	// Active-LOW behind a pull-up.
	return gpio.Level(!b.Pressed), nil
}

func (b *Board) trigger(l gpio.Level) error {
	if b.Trigger.Level() && !l {
		b.fall = b.clock.NowMicros()
		b.pending = !b.NoEcho
	}
	return b.Trigger.Set(l)
}

// echo is HIGH from the trigger's falling edge for PulseMicros, once per
// trigger.
func (b *Board) echo() (gpio.Level, error) {
	if !b.pending {
		return gpio.Low, nil
	}
	if b.clock.NowMicros()-b.fall < b.PulseMicros() {
		return gpio.High, nil
	}
	b.pending = false
	return gpio.Low, nil
}

type analog struct{ b *Board }

func (a analog) ConversionComplete() (bool, error) { return true, nil }

func (a analog) Read() (uint16, error) { return a.b.Light, nil }
