package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/blind-stick/internal/gpio"
	"github.com/sweeney/blind-stick/internal/timing"
)

// ObstacleAlert reports whether distanceCM lies outside the open interval
// (SafeBandMin, SafeBandMax). Only 3 and 4 cm are silent.
//
// Older wiring notes describe a "2 cm to 20 cm" detection range. That does
// not match this condition and should not be relied on.
func ObstacleAlert(distanceCM uint32) bool {
	return !(distanceCM < SafeBandMax && distanceCM > SafeBandMin)
}

// Config wires a Loop.
type Config struct {
	Light  LightSensor
	Ranger RangeFinder
	Button EmergencyButton
	Buzzer TonePlayer
	Delay  timing.Delayer

	// Outputs are driven LOW by Silence.
	Outputs []gpio.OutputPin

	// Logger receives per-iteration and heartbeat logs. Nil disables logging.
	Logger *zerolog.Logger

	// Now is the wall clock used for heartbeats. Defaults to time.Now.
	Now func() time.Time

	// Heartbeat is the interval between heartbeat logs (0 to disable).
	Heartbeat time.Duration
}

// Loop is the device scheduler.
type Loop struct {
	light  LightSensor
	ranger RangeFinder
	button EmergencyButton
	buzzer TonePlayer
	delay  timing.Delayer

	outputs []gpio.OutputPin
	log     zerolog.Logger

	now           func() time.Time
	heartbeat     time.Duration
	startTime     time.Time
	lastHeartbeat time.Time
	counts        Counts
}

// New creates a Loop.
func New(cfg Config) *Loop {
	l := &Loop{
		light:     cfg.Light,
		ranger:    cfg.Ranger,
		button:    cfg.Button,
		buzzer:    cfg.Buzzer,
		delay:     cfg.Delay,
		outputs:   cfg.Outputs,
		log:       zerolog.Nop(),
		now:       cfg.Now,
		heartbeat: cfg.Heartbeat,
	}
	if cfg.Logger != nil {
		l.log = *cfg.Logger
	}
	if l.now == nil {
		l.now = time.Now
	}
	l.startTime = l.now()
	l.lastHeartbeat = l.startTime
	return l
}

// Step runs exactly one iteration. A failing module is recorded in the
// report and does not skip the modules after it or the closing delay.
func (l *Loop) Step() Report {
	l.counts.Iterations++
	r := Report{Iteration: l.counts.Iterations}
	var errs []error

	reading, err := l.light.PollAndIndicate()
	r.Light = reading
	if err != nil {
		errs = append(errs, err)
	} else if reading.Dark {
		l.counts.DarkBlinks++
	}

	distance, err := l.ranger.MeasureDistance()
	if err != nil {
		errs = append(errs, err)
	} else {
		r.Ranged = true
		r.DistanceCM = distance
		if ObstacleAlert(distance) {
			r.Obstacle = true
			if err := l.buzzer.Play(ObstacleTone); err != nil {
				errs = append(errs, fmt.Errorf("obstacle tone: %w", err))
			} else {
				l.counts.ObstacleTones++
			}
			l.delay.DelayMilliseconds(ObstaclePauseMS)
		}
	}

	pressed, err := l.button.PollAndIndicate()
	r.Pressed = pressed
	if err != nil {
		errs = append(errs, err)
	} else if pressed {
		l.counts.EmergencyTones++
	}

	l.delay.DelayMilliseconds(StabilizeMS)

	if len(errs) > 0 {
		r.Err = errors.Join(errs...)
		l.counts.Errors++
	}
	return r
}

// Run repeats Step until ctx is done. Cancellation is only observed between
// iterations; a stalled module blocks Run indefinitely.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Uint64("iterations", l.counts.Iterations).Msg("control loop stopped")
			return nil
		default:
		}

		r := l.Step()
		l.logReport(r)

		if hb := l.CheckHeartbeat(l.now()); hb != nil {
			l.log.Info().
				Dur("uptime", hb.Uptime).
				Uint64("iterations", hb.Counts.Iterations).
				Uint64("dark_blinks", hb.Counts.DarkBlinks).
				Uint64("obstacle_tones", hb.Counts.ObstacleTones).
				Uint64("emergency_tones", hb.Counts.EmergencyTones).
				Uint64("errors", hb.Counts.Errors).
				Msg("heartbeat")
		}
	}
}

func (l *Loop) logReport(r Report) {
	if r.Err != nil {
		l.log.Warn().Err(r.Err).Uint64("iteration", r.Iteration).Msg("module error")
	}
	l.log.Debug().
		Uint64("iteration", r.Iteration).
		Uint16("light", r.Light.Sample).
		Bool("dark", r.Light.Dark).
		Bool("ranged", r.Ranged).
		Uint32("distance_cm", r.DistanceCM).
		Bool("obstacle", r.Obstacle).
		Bool("pressed", r.Pressed).
		Msg("iteration")
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if it is <= 0 (disabled).
func (l *Loop) CheckHeartbeat(now time.Time) *HeartbeatData {
	if l.heartbeat <= 0 {
		return nil
	}
	if now.Sub(l.lastHeartbeat) < l.heartbeat {
		return nil
	}

	l.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(l.startTime),
		Counts:    l.counts,
	}
}

// Counts returns a copy of the activity counters.
func (l *Loop) Counts() Counts {
	return l.counts
}

// Silence drives every configured output LOW.
func (l *Loop) Silence() error {
	var errs []error
	for _, o := range l.outputs {
		if o == nil {
			continue
		}
		if err := o.Set(gpio.Low); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
