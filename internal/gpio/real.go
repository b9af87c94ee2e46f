//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip drives the device lines through the Linux GPIO character device.
type Chip struct {
	chip    *gpiocdev.Chip
	inputs  []*gpiocdev.Line
	outputs []*gpiocdev.Line

	// Pins exposes the requested lines as capabilities.
	Pins Pins
}

type lineOutput struct{ line *gpiocdev.Line }

func (o lineOutput) Set(l Level) error {
	v := 0
	if l {
		v = 1
	}
	return o.line.SetValue(v)
}

type lineInput struct{ line *gpiocdev.Line }

func (i lineInput) Get() (Level, error) {
	v, err := i.line.Value()
	if err != nil {
		return Low, err
	}
	return Level(v != 0), nil
}

// OpenChip requests every line in m from the named chip (e.g. "gpiochip0").
// Outputs start LOW. The button is biased with a pull-up so it reads LOW
// only while pressed.
func OpenChip(name string, m PinMap) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	c := &Chip{chip: chip}

	button, err := chip.RequestLine(m.Button, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request button pin %d: %w", m.Button, err)
	}
	c.inputs = append(c.inputs, button)

	echo, err := chip.RequestLine(m.Echo, gpiocdev.AsInput)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", m.Echo, err)
	}
	c.inputs = append(c.inputs, echo)

	out := make(map[string]*gpiocdev.Line, 4)
	for _, o := range []struct {
		name string
		pin  int
	}{
		{"emergency led", m.EmergencyLED},
		{"light led", m.LightLED},
		{"buzzer", m.Buzzer},
		{"trigger", m.Trigger},
	} {
		line, err := chip.RequestLine(o.pin, gpiocdev.AsOutput(0))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", o.name, o.pin, err)
		}
		c.outputs = append(c.outputs, line)
		out[o.name] = line
	}

	c.Pins = Pins{
		Button:       lineInput{button},
		Echo:         lineInput{echo},
		EmergencyLED: lineOutput{out["emergency led"]},
		LightLED:     lineOutput{out["light led"]},
		Buzzer:       lineOutput{out["buzzer"]},
		Trigger:      lineOutput{out["trigger"]},
	}
	return c, nil
}

// Close releases GPIO resources.
// Outputs are driven LOW and every line is reconfigured as an input before
// release so nothing is left energised.
func (c *Chip) Close() error {
	var errs []error

	for _, line := range c.outputs {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive line %d low: %w", line.Offset(), err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", line.Offset(), err))
		}
	}
	for _, line := range append(c.inputs, c.outputs...) {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", line.Offset(), err))
		}
	}
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
