// Package buzzer drives the single tone line shared by every module.
//
// A tone is a square wave generated by toggling the line and busy-waiting
// half a period between toggles. Beep is synchronous: it occupies the caller
// for the whole tone, so two tones can never overlap.
package buzzer

import (
	"fmt"

	"github.com/sweeney/blind-stick/internal/gpio"
	"github.com/sweeney/blind-stick/internal/timing"
)

// ToneRequest is a frequency/duration pair consumed by a single Play call.
type ToneRequest struct {
	FrequencyHz uint32
	DurationMS  uint32
}

// HalfPeriodMicros returns the HIGH (and LOW) phase length for frequencyHz,
// truncating at each step: (1e6 / f) / 2.
func HalfPeriodMicros(frequencyHz uint32) uint32 {
	if frequencyHz == 0 {
		return 0
	}
	return (1_000_000 / frequencyHz) / 2
}

// Cycles returns the number of HIGH/LOW pairs for a tone:
// frequencyHz × durationMS / 1000, truncated.
func Cycles(frequencyHz, durationMS uint32) uint32 {
	return uint32(uint64(frequencyHz) * uint64(durationMS) / 1000)
}

// Buzzer generates tones on one output line.
type Buzzer struct {
	pin   gpio.OutputPin
	delay timing.Delayer
}

// New creates a Buzzer on pin using delay for half-cycle timing.
func New(pin gpio.OutputPin, delay timing.Delayer) *Buzzer {
	return &Buzzer{pin: pin, delay: delay}
}

// Beep plays frequencyHz for roughly durationMS. A zero frequency is a
// silent no-op. Frequencies above 500 kHz give a zero half-period and are
// played as fast as the line toggles.
func (b *Buzzer) Beep(frequencyHz, durationMS uint32) error {
	if frequencyHz == 0 {
		return nil
	}
	half := HalfPeriodMicros(frequencyHz)
	cycles := Cycles(frequencyHz, durationMS)

	for i := uint32(0); i < cycles; i++ {
		if err := b.pin.Set(gpio.High); err != nil {
			return fmt.Errorf("buzzer high: %w", err)
		}
		b.delay.DelayMicroseconds(half)
		if err := b.pin.Set(gpio.Low); err != nil {
			return fmt.Errorf("buzzer low: %w", err)
		}
		b.delay.DelayMicroseconds(half)
	}
	return nil
}

// Play is Beep for a ToneRequest.
func (b *Buzzer) Play(t ToneRequest) error {
	return b.Beep(t.FrequencyHz, t.DurationMS)
}
