package internal

import (
	"errors"
	"testing"

	"github.com/sweeney/blind-stick/internal/button"
	"github.com/sweeney/blind-stick/internal/buzzer"
	"github.com/sweeney/blind-stick/internal/control"
	"github.com/sweeney/blind-stick/internal/gpio"
	"github.com/sweeney/blind-stick/internal/light"
	"github.com/sweeney/blind-stick/internal/sim"
	"github.com/sweeney/blind-stick/internal/timing"
	"github.com/sweeney/blind-stick/internal/ultrasonic"
)

type edge struct {
	level gpio.Level
	at    uint64
}

type device struct {
	clock  *timing.VirtualClock
	board  *sim.Board
	loop   *control.Loop
	ranger *ultrasonic.Ranger
	lightM *light.Module

	lightLED, emergencyLED, buzzerLine []edge
}

func newDevice() *device {
	d := &device{clock: timing.NewVirtualClock()}
	d.board = sim.NewBoard(d.clock)
	d.board.LightLED.Watch = func(l gpio.Level, at uint64) { d.lightLED = append(d.lightLED, edge{l, at}) }
	d.board.EmergencyLED.Watch = func(l gpio.Level, at uint64) { d.emergencyLED = append(d.emergencyLED, edge{l, at}) }
	d.board.Buzzer.Watch = func(l gpio.Level, at uint64) { d.buzzerLine = append(d.buzzerLine, edge{l, at}) }

	pins := d.board.Pins()
	buzz := buzzer.New(pins.Buzzer, d.clock)
	d.lightM = light.New(d.board.Analog(), pins.LightLED, d.clock)
	d.ranger = ultrasonic.New(pins.Trigger, pins.Echo, d.clock)
	d.loop = control.New(control.Config{
		Light:   d.lightM,
		Ranger:  d.ranger,
		Button:  button.New(pins.Button, pins.EmergencyLED, buzz, d.clock),
		Buzzer:  buzz,
		Delay:   d.clock,
		Outputs: pins.Outputs(),
	})
	return d
}

// TestIntegrationDarkObstacleReleased covers light=150, distance=10cm,
// button released.
func TestIntegrationDarkObstacleReleased(t *testing.T) {
	d := newDevice()
	d.board.Light = 150
	d.board.Distance = 10

	rep := d.loop.Step()
	if rep.Err != nil {
		t.Fatalf("unexpected error: %v", rep.Err)
	}
	if !rep.Light.Dark || rep.DistanceCM != 10 || !rep.Obstacle || rep.Pressed {
		t.Fatalf("unexpected report %+v", rep)
	}

	// Light indicator: one blink, 100ms HIGH then 100ms LOW.
	if len(d.lightLED) != 2 || d.lightLED[0] != (edge{gpio.High, 0}) || d.lightLED[1] != (edge{gpio.Low, 100000}) {
		t.Fatalf("unexpected light indicator edges %v", d.lightLED)
	}

	// Ranging starts after the blink: 10us trigger plus the echo pulse.
	toneStart := uint64(200000 + ultrasonic.TriggerWidthMicros + d.board.PulseMicros())

	// Obstacle tone: 400 cycles at 2000Hz, 250us half-cycles.
	if len(d.buzzerLine) != 800 {
		t.Fatalf("expected 800 buzzer edges, got %d", len(d.buzzerLine))
	}
	if d.buzzerLine[0].at != toneStart {
		t.Errorf("expected tone to start at %dus, got %d", toneStart, d.buzzerLine[0].at)
	}
	for i := 1; i < len(d.buzzerLine); i++ {
		if d.buzzerLine[i].at-d.buzzerLine[i-1].at != 250 {
			t.Fatalf("half-cycle %d is not 250us", i)
		}
	}
	toneEnd := toneStart + 200000

	// Emergency indicator driven LOW after the 100ms pause, never HIGH.
	if len(d.emergencyLED) != 1 || d.emergencyLED[0] != (edge{gpio.Low, toneEnd + 100000}) {
		t.Errorf("unexpected emergency indicator edges %v", d.emergencyLED)
	}

	// Then the 10ms stabilisation delay.
	if want := toneEnd + 100000 + 10000; d.clock.NowMicros() != want {
		t.Errorf("expected iteration to end at %dus, got %d", want, d.clock.NowMicros())
	}
}

func TestIntegrationSafeBandPressed(t *testing.T) {
	d := newDevice()
	d.board.Light = 100
	d.board.Distance = 4
	d.board.Pressed = true

	rep := d.loop.Step()
	if rep.Err != nil {
		t.Fatalf("unexpected error: %v", rep.Err)
	}
	if rep.Light.Dark || rep.Obstacle || !rep.Pressed {
		t.Fatalf("unexpected report %+v", rep)
	}
	if len(d.lightLED) != 1 || d.lightLED[0].level != gpio.Low {
		t.Errorf("light indicator should be driven LOW once, got %v", d.lightLED)
	}
	if d.board.EmergencyLED.Level() != gpio.High {
		t.Error("emergency indicator should be HIGH while pressed")
	}
	// Only the emergency tone plays: 280 cycles at 2800Hz.
	if got := d.board.Buzzer.Rises(); got != 280 {
		t.Errorf("expected 280 emergency tone cycles, got %d", got)
	}

	// Release: indicator follows immediately, no latching.
	d.board.Pressed = false
	rep = d.loop.Step()
	if rep.Pressed || d.board.EmergencyLED.Level() != gpio.Low {
		t.Error("emergency indicator should clear on release")
	}
	if got := d.board.Buzzer.Rises(); got != 280 {
		t.Errorf("no further tone expected, got %d cycles", got)
	}

	c := d.loop.Counts()
	if c.Iterations != 2 || c.EmergencyTones != 1 || c.ObstacleTones != 0 {
		t.Errorf("unexpected counts %+v", c)
	}
}

func TestIntegrationFarObstacleTimeout(t *testing.T) {
	d := newDevice()
	d.board.Distance = 5000

	rep := d.loop.Step()
	if rep.Err != nil {
		t.Fatalf("timeout must not surface as an error: %v", rep.Err)
	}
	if rep.DistanceCM != 517 || !rep.Obstacle {
		t.Errorf("expected capped 517cm with obstacle tone, got %+v", rep)
	}
}

func TestIntegrationHardenedWaits(t *testing.T) {
	d := newDevice()
	d.board.NoEcho = true
	d.board.Distance = 10
	d.ranger.WaitLimitMicros = 30000
	d.lightM.WaitLimitMicros = 30000

	rep := d.loop.Step()
	if !errors.Is(rep.Err, ultrasonic.ErrNoEcho) {
		t.Fatalf("expected ErrNoEcho, got %v", rep.Err)
	}
	if rep.Ranged || rep.Obstacle || len(d.buzzerLine) != 0 {
		t.Error("a failed measurement must not sound the obstacle tone")
	}
	// The button still ran.
	if len(d.emergencyLED) != 1 {
		t.Errorf("button module should still run, got %v", d.emergencyLED)
	}

	// Recovery on the next iteration once the echo returns.
	d.board.NoEcho = false
	rep = d.loop.Step()
	if rep.Err != nil || rep.DistanceCM != 10 {
		t.Errorf("expected recovery to 10cm, got %+v", rep)
	}
}

func TestIntegrationSilence(t *testing.T) {
	d := newDevice()
	d.board.Pressed = true
	d.loop.Step()

	if err := d.loop.Silence(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, line := range []*sim.Line{d.board.EmergencyLED, d.board.LightLED, d.board.Buzzer, d.board.Trigger} {
		if line.Level() != gpio.Low {
			t.Errorf("%s should be LOW after Silence", line.Name)
		}
	}
}
