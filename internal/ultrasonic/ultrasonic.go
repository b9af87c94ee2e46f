// Package ultrasonic measures obstacle distance with a trigger/echo ranging
// module (HC-SR04 style).
//
// One measurement sends a 10 µs trigger pulse, waits for the echo line to
// rise, then counts microseconds while it stays HIGH. The count is capped
// at TimeoutMicros; a capped count is converted like any other, so a
// timeout reads as the farthest distance (~517 cm) and is not reported as
// a failure.
package ultrasonic

import (
	"errors"
	"fmt"

	"github.com/sweeney/blind-stick/internal/gpio"
	"github.com/sweeney/blind-stick/internal/timing"
)

const (
	// TriggerWidthMicros is the trigger pulse width.
	TriggerWidthMicros = 10

	// TimeoutMicros caps the echo pulse measurement (~30 ms).
	TimeoutMicros = 30000

	// MicrosPerCentimeter converts round-trip echo time to one-way distance:
	// 0.0343 cm/µs halved is 1/58.
	MicrosPerCentimeter = 58
)

// ErrNoEcho is returned when WaitLimitMicros is set and the echo line did
// not rise in time.
var ErrNoEcho = errors.New("ultrasonic: echo did not rise")

// DistanceCM converts an echo pulse width to centimeters (integer division).
func DistanceCM(pulseMicros uint32) uint32 {
	return pulseMicros / MicrosPerCentimeter
}

// Ranger drives one ultrasonic module.
type Ranger struct {
	trigger gpio.OutputPin
	echo    gpio.InputPin
	delay   timing.Delayer

	// WaitLimitMicros bounds the wait for the echo to rise. Zero waits
	// forever, polling without delay; a missing echo stalls the loop.
	WaitLimitMicros uint32
}

// New creates a Ranger.
func New(trigger gpio.OutputPin, echo gpio.InputPin, delay timing.Delayer) *Ranger {
	return &Ranger{trigger: trigger, echo: echo, delay: delay}
}

// MeasureDistance performs one ranging cycle and returns centimeters.
func (r *Ranger) MeasureDistance() (uint32, error) {
	pulse, err := r.measurePulse()
	if err != nil {
		return 0, err
	}
	return DistanceCM(pulse), nil
}

func (r *Ranger) measurePulse() (uint32, error) {
	if err := r.sendTrigger(); err != nil {
		return 0, err
	}
	if err := r.waitEchoHigh(); err != nil {
		return 0, err
	}

	var elapsed uint32
	for {
		l, err := r.echo.Get()
		if err != nil {
			return 0, fmt.Errorf("read echo: %w", err)
		}
		if l == gpio.Low {
			break
		}
		elapsed++
		r.delay.DelayMicroseconds(1)
		if elapsed > TimeoutMicros {
			break
		}
	}
	return elapsed, nil
}

func (r *Ranger) sendTrigger() error {
	if err := r.trigger.Set(gpio.High); err != nil {
		return fmt.Errorf("trigger high: %w", err)
	}
	r.delay.DelayMicroseconds(TriggerWidthMicros)
	if err := r.trigger.Set(gpio.Low); err != nil {
		return fmt.Errorf("trigger low: %w", err)
	}
	return nil
}

func (r *Ranger) waitEchoHigh() error {
	var waited uint32
	for {
		l, err := r.echo.Get()
		if err != nil {
			return fmt.Errorf("read echo: %w", err)
		}
		if l == gpio.High {
			return nil
		}
		if r.WaitLimitMicros == 0 {
			continue
		}
		if waited >= r.WaitLimitMicros {
			return ErrNoEcho
		}
		r.delay.DelayMicroseconds(1)
		waited++
	}
}
