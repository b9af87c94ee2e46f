// Package gpio provides the pin and analog-channel capabilities the device
// core drives.
// The real implementations use the Linux GPIO character device (or periph.io)
// and the Linux IIO subsystem. The fake implementations allow testing without
// hardware.
package gpio

// Level is the logic level of a digital line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// OutputPin is a digital line configured as output. It is never read.
type OutputPin interface {
	// Set drives the line to the given level.
	Set(Level) error
}

// InputPin is a digital line configured as input. It is never written.
type InputPin interface {
	// Get returns the current level of the line.
	Get() (Level, error)
}

// AnalogChannel is an analog input sampled by a converter running in
// continuous-conversion mode.
type AnalogChannel interface {
	// ConversionComplete reports whether a new sample is ready to read.
	ConversionComplete() (bool, error)

	// Read returns the most recent quantized sample.
	Read() (uint16, error)
}

// InputFunc adapts a function to the InputPin interface.
type InputFunc func() (Level, error)

// Get calls f.
func (f InputFunc) Get() (Level, error) { return f() }

// OutputFunc adapts a function to the OutputPin interface.
type OutputFunc func(Level) error

// Set calls f(l).
func (f OutputFunc) Set(l Level) error { return f(l) }

// Pins is the full set of digital lines the device uses.
type Pins struct {
	Button       InputPin  // active-LOW, pull-up bias
	Echo         InputPin  // ultrasonic echo
	EmergencyLED OutputPin // indicator A
	LightLED     OutputPin // indicator B
	Buzzer       OutputPin // shared tone line
	Trigger      OutputPin // ultrasonic trigger
}

// Outputs returns the output lines in a fixed order.
func (p Pins) Outputs() []OutputPin {
	return []OutputPin{p.EmergencyLED, p.LightLED, p.Buzzer, p.Trigger}
}

// PinMap holds line offsets for each signal.
type PinMap struct {
	Button       int
	Echo         int
	EmergencyLED int
	LightLED     int
	Buzzer       int
	Trigger      int
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinButton       = 17
	DefaultPinEcho         = 24
	DefaultPinEmergencyLED = 27
	DefaultPinLightLED     = 22
	DefaultPinBuzzer       = 18
	DefaultPinTrigger      = 23
)

// DefaultPinMap returns the default wiring.
func DefaultPinMap() PinMap {
	return PinMap{
		Button:       DefaultPinButton,
		Echo:         DefaultPinEcho,
		EmergencyLED: DefaultPinEmergencyLED,
		LightLED:     DefaultPinLightLED,
		Buzzer:       DefaultPinBuzzer,
		Trigger:      DefaultPinTrigger,
	}
}
