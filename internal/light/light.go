// Package light samples the ambient light sensor and blinks an indicator
// while it is dark.
package light

import (
	"errors"
	"fmt"

	"github.com/sweeney/blind-stick/internal/gpio"
	"github.com/sweeney/blind-stick/internal/timing"
)

const (
	// Threshold is the raw sample above which it is considered dark
	// (the sensor divider reads higher as resistance rises).
	Threshold = 100

	// BlinkMS is the length of each half of the indicator blink.
	BlinkMS = 100
)

// ErrConversionTimeout is returned when WaitLimitMicros is set and the
// converter did not report a sample in time.
var ErrConversionTimeout = errors.New("light: analog conversion did not complete")

// Reading is the outcome of one poll.
type Reading struct {
	Sample uint16
	Dark   bool
}

// Module polls the light sensor and drives its indicator.
type Module struct {
	adc   gpio.AnalogChannel
	led   gpio.OutputPin
	delay timing.Delayer

	// WaitLimitMicros bounds the wait for a conversion. Zero waits forever,
	// polling without delay; the loop stalls if the converter never
	// signals ready.
	WaitLimitMicros uint32
}

// New creates a Module reading adc and driving led.
func New(adc gpio.AnalogChannel, led gpio.OutputPin, delay timing.Delayer) *Module {
	return &Module{adc: adc, led: led, delay: delay}
}

// PollAndIndicate waits for a conversion, reads it, and blinks the
// indicator once (100 ms HIGH, 100 ms LOW) if the sample exceeds Threshold.
// Otherwise the indicator is driven LOW with no delay.
func (m *Module) PollAndIndicate() (Reading, error) {
	if err := m.waitReady(); err != nil {
		return Reading{}, err
	}
	sample, err := m.adc.Read()
	if err != nil {
		return Reading{}, fmt.Errorf("read light sample: %w", err)
	}
	r := Reading{Sample: sample, Dark: sample > Threshold}

	if !r.Dark {
		if err := m.led.Set(gpio.Low); err != nil {
			return r, fmt.Errorf("light indicator low: %w", err)
		}
		return r, nil
	}

	if err := m.led.Set(gpio.High); err != nil {
		return r, fmt.Errorf("light indicator high: %w", err)
	}
	m.delay.DelayMilliseconds(BlinkMS)
	if err := m.led.Set(gpio.Low); err != nil {
		return r, fmt.Errorf("light indicator low: %w", err)
	}
	m.delay.DelayMilliseconds(BlinkMS)
	return r, nil
}

func (m *Module) waitReady() error {
	var waited uint32
	for {
		ready, err := m.adc.ConversionComplete()
		if err != nil {
			return fmt.Errorf("poll light conversion: %w", err)
		}
		if ready {
			return nil
		}
		if m.WaitLimitMicros == 0 {
			continue
		}
		if waited >= m.WaitLimitMicros {
			return ErrConversionTimeout
		}
		m.delay.DelayMicroseconds(1)
		waited++
	}
}
