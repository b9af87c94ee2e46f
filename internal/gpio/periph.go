package gpio

import (
	"fmt"
	"strconv"

	pgpio "periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// PeriphBoard drives the device lines through periph.io's host drivers.
// Pins are looked up by their BCM number.
type PeriphBoard struct {
	outputs []pgpio.PinIO
	inputs  []pgpio.PinIO

	// Pins exposes the configured lines as capabilities.
	Pins Pins
}

type periphOutput struct{ pin pgpio.PinIO }

func (o periphOutput) Set(l Level) error { return o.pin.Out(pgpio.Level(l)) }

type periphInput struct{ pin pgpio.PinIO }

// Get never returns an error; periph reports no read failures.
func (i periphInput) Get() (Level, error) { return Level(i.pin.Read()), nil }

// OpenPeriph initialises the periph.io host and configures every line in m.
func OpenPeriph(m PinMap) (*PeriphBoard, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	b := &PeriphBoard{}

	lookup := func(what string, n int) (pgpio.PinIO, error) {
		p := gpioreg.ByName(strconv.Itoa(n))
		if p == nil {
			return nil, fmt.Errorf("no GPIO %s pin named %d", what, n)
		}
		return p, nil
	}

	button, err := lookup("button", m.Button)
	if err != nil {
		return nil, err
	}
	if err := button.In(pgpio.PullUp, pgpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure button pin %d: %w", m.Button, err)
	}
	echo, err := lookup("echo", m.Echo)
	if err != nil {
		return nil, err
	}
	if err := echo.In(pgpio.Float, pgpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure echo pin %d: %w", m.Echo, err)
	}
	b.inputs = []pgpio.PinIO{button, echo}

	outs := make([]pgpio.PinIO, 0, 4)
	for _, o := range []struct {
		name string
		pin  int
	}{
		{"emergency led", m.EmergencyLED},
		{"light led", m.LightLED},
		{"buzzer", m.Buzzer},
		{"trigger", m.Trigger},
	} {
		p, err := lookup(o.name, o.pin)
		if err != nil {
			b.Close()
			return nil, err
		}
		if err := p.Out(pgpio.Low); err != nil {
			b.Close()
			return nil, fmt.Errorf("configure %s pin %d: %w", o.name, o.pin, err)
		}
		outs = append(outs, p)
		b.outputs = append(b.outputs, p)
	}

	b.Pins = Pins{
		Button:       periphInput{button},
		Echo:         periphInput{echo},
		EmergencyLED: periphOutput{outs[0]},
		LightLED:     periphOutput{outs[1]},
		Buzzer:       periphOutput{outs[2]},
		Trigger:      periphOutput{outs[3]},
	}
	return b, nil
}

// Close drives outputs LOW and returns every output line to a floating input.
func (b *PeriphBoard) Close() error {
	var errs []error
	for _, p := range b.outputs {
		if err := p.Out(pgpio.Low); err != nil {
			errs = append(errs, fmt.Errorf("drive %s low: %w", p.Name(), err))
		}
		if err := p.In(pgpio.Float, pgpio.NoEdge); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", p.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
