// Package button watches the emergency button and raises the emergency
// indicator and tone while it is held.
package button

import (
	"fmt"

	"github.com/sweeney/blind-stick/internal/buzzer"
	"github.com/sweeney/blind-stick/internal/gpio"
	"github.com/sweeney/blind-stick/internal/timing"
)

// EmergencyTone is the short high-pitched alarm played while pressed.
var EmergencyTone = buzzer.ToneRequest{FrequencyHz: 2800, DurationMS: 100}

// SettleMS is the pause after each alarm tone.
const SettleMS = 100

// Module polls the button. The input is active-LOW: a pull-up holds it HIGH
// until the button shorts it to ground. There is no edge detection or
// latching; the loop cadence is the only debounce.
type Module struct {
	input gpio.InputPin
	led   gpio.OutputPin
	buzz  *buzzer.Buzzer
	delay timing.Delayer
}

// New creates a Module.
func New(input gpio.InputPin, led gpio.OutputPin, buzz *buzzer.Buzzer, delay timing.Delayer) *Module {
	return &Module{input: input, led: led, buzz: buzz, delay: delay}
}

// PollAndIndicate reads the button once. When pressed it drives the
// indicator HIGH, plays EmergencyTone and waits SettleMS. When released it
// drives the indicator LOW and returns immediately.
func (m *Module) PollAndIndicate() (pressed bool, err error) {
	l, err := m.input.Get()
	if err != nil {
		return false, fmt.Errorf("read button: %w", err)
	}
	if l == gpio.High {
		if err := m.led.Set(gpio.Low); err != nil {
			return false, fmt.Errorf("emergency indicator low: %w", err)
		}
		return false, nil
	}

	if err := m.led.Set(gpio.High); err != nil {
		return true, fmt.Errorf("emergency indicator high: %w", err)
	}
	if err := m.buzz.Play(EmergencyTone); err != nil {
		return true, fmt.Errorf("emergency tone: %w", err)
	}
	m.delay.DelayMilliseconds(SettleMS)
	return true, nil
}
