// Command blind-stick runs the assistive cane control loop: light indicator,
// ultrasonic obstacle tone and emergency button alarm.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/blind-stick/internal/button"
	"github.com/sweeney/blind-stick/internal/buzzer"
	"github.com/sweeney/blind-stick/internal/control"
	"github.com/sweeney/blind-stick/internal/gpio"
	"github.com/sweeney/blind-stick/internal/light"
	"github.com/sweeney/blind-stick/internal/sim"
	"github.com/sweeney/blind-stick/internal/timing"
	"github.com/sweeney/blind-stick/internal/ultrasonic"
)

// adcSettleMS is waited once after the analog channel is opened.
const adcSettleMS = 10

type config struct {
	Backend     string
	Chip        string
	ADCPath     string
	Pins        gpio.PinMap
	Timer       string
	Cycles      uint32
	Calibrate   bool
	WaitLimit   time.Duration
	Heartbeat   time.Duration
	PrintState  bool
	SimLight    uint16
	SimDistance uint32
	SimPressed  bool
}

func main() {
	var cfg config
	defaults := gpio.DefaultPinMap()

	flag.StringVar(&cfg.Backend, "backend", "gpiocdev", "Pin backend: gpiocdev, periph or sim")
	flag.StringVar(&cfg.Chip, "chip", "gpiochip0", "GPIO character device (gpiocdev backend)")
	flag.StringVar(&cfg.ADCPath, "adc", gpio.DefaultIIOPath, "IIO raw attribute of the light sensor channel")
	flag.IntVar(&cfg.Pins.Button, "pin-button", defaults.Button, "BCM pin for the emergency button (active-LOW)")
	flag.IntVar(&cfg.Pins.Echo, "pin-echo", defaults.Echo, "BCM pin for the ultrasonic echo")
	flag.IntVar(&cfg.Pins.EmergencyLED, "pin-emergency-led", defaults.EmergencyLED, "BCM pin for the emergency indicator")
	flag.IntVar(&cfg.Pins.LightLED, "pin-light-led", defaults.LightLED, "BCM pin for the light indicator")
	flag.IntVar(&cfg.Pins.Buzzer, "pin-buzzer", defaults.Buzzer, "BCM pin for the buzzer")
	flag.IntVar(&cfg.Pins.Trigger, "pin-trigger", defaults.Trigger, "BCM pin for the ultrasonic trigger")
	flag.StringVar(&cfg.Timer, "timer", "busy", "Delay source: busy (calibrated spin) or monotonic")
	cycles := flag.Uint("cycles-per-us", 0, "Busy-wait iterations per microsecond (0 calibrates at startup)")
	flag.BoolVar(&cfg.Calibrate, "calibrate", false, "Measure cycles-per-us at startup even if -cycles-per-us is set")
	flag.DurationVar(&cfg.WaitLimit, "wait-limit", 0, "Bound the ADC-ready and echo-rise waits (0 waits forever)")
	flag.DurationVar(&cfg.Heartbeat, "heartbeat", 15*time.Minute, "Heartbeat log interval (0 to disable)")
	flag.BoolVar(&cfg.PrintState, "print-state", false, "Print current sensor state and exit")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	simLight := flag.Uint("sim-light", 50, "Simulated light sample (sim backend)")
	simDistance := flag.Uint("sim-distance", 3, "Simulated obstacle distance in cm (sim backend)")
	flag.BoolVar(&cfg.SimPressed, "sim-button", false, "Hold the simulated emergency button (sim backend)")

	flag.Parse()

	setupLogger(os.Stderr)
	if err := setLogLevel(*logLevel); err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	if *cycles > uint(^uint32(0)) || *simDistance > uint(^uint32(0)) || *simLight > 0xffff {
		log.Fatal().Msg("numeric flag out of range")
	}
	cfg.Cycles = uint32(*cycles)
	cfg.SimLight = uint16(*simLight)
	cfg.SimDistance = uint32(*simDistance)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(cfg, os.Stdout, sigCh); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func setupLogger(w io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
}

func setLogLevel(s string) error {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// hardware is an opened pin backend.
type hardware struct {
	pins  gpio.Pins
	adc   gpio.AnalogChannel
	delay timing.Delayer
	close func() error
}

func newDelayer(cfg config) (timing.Delayer, error) {
	switch cfg.Timer {
	case "busy":
		cycles := cfg.Cycles
		if cfg.Calibrate || cycles == 0 {
			cycles = timing.Calibrate(50 * time.Millisecond)
			log.Info().Uint32("cycles_per_us", cycles).Msg("calibrated busy-wait")
		}
		return timing.NewBusyWait(cycles), nil
	case "monotonic":
		return timing.NewMonotonic(), nil
	default:
		return nil, fmt.Errorf("unknown timer %q", cfg.Timer)
	}
}

func openHardware(cfg config) (*hardware, error) {
	if cfg.Backend == "sim" {
		// The simulated echo is timed on the delays the ranger makes, so
		// measured distance matches the board; pacing keeps real time.
		clock := timing.NewPaced(timing.NewMonotonic())
		b := sim.NewBoard(clock)
		b.Light = cfg.SimLight
		b.Distance = cfg.SimDistance
		b.Pressed = cfg.SimPressed
		log.Info().Uint16("light", b.Light).Uint32("distance_cm", b.Distance).Bool("pressed", b.Pressed).Msg("using simulated board")
		return &hardware{pins: b.Pins(), adc: b.Analog(), delay: clock, close: func() error { return nil }}, nil
	}

	delay, err := newDelayer(cfg)
	if err != nil {
		return nil, err
	}

	adc, err := gpio.OpenIIO(cfg.ADCPath)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "gpiocdev":
		chip, err := gpio.OpenChip(cfg.Chip, cfg.Pins)
		if err != nil {
			return nil, fmt.Errorf("init gpio: %w", err)
		}
		return &hardware{pins: chip.Pins, adc: adc, delay: delay, close: chip.Close}, nil
	case "periph":
		board, err := gpio.OpenPeriph(cfg.Pins)
		if err != nil {
			return nil, fmt.Errorf("init gpio: %w", err)
		}
		return &hardware{pins: board.Pins, adc: adc, delay: delay, close: board.Close}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func run(cfg config, stdout io.Writer, sig <-chan os.Signal) error {
	waitLimit, err := waitLimitMicros(cfg.WaitLimit)
	if err != nil {
		return err
	}

	hw, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := hw.close(); err != nil {
			log.Error().Err(err).Msg("release gpio")
		}
	}()

	// Let the converter settle before the first sample.
	hw.delay.DelayMilliseconds(adcSettleMS)

	if cfg.WaitLimit > 0 {
		log.Warn().Dur("wait_limit", cfg.WaitLimit).Msg("bounded sensor waits enabled; stalled sensors are reported as errors instead of blocking")
	}

	buzz := buzzer.New(hw.pins.Buzzer, hw.delay)
	lightModule := light.New(hw.adc, hw.pins.LightLED, hw.delay)
	lightModule.WaitLimitMicros = waitLimit
	ranger := ultrasonic.New(hw.pins.Trigger, hw.pins.Echo, hw.delay)
	ranger.WaitLimitMicros = waitLimit
	buttonModule := button.New(hw.pins.Button, hw.pins.EmergencyLED, buzz, hw.delay)

	if cfg.PrintState {
		return printState(stdout, hw, ranger)
	}

	loop := control.New(control.Config{
		Light:     lightModule,
		Ranger:    ranger,
		Button:    buttonModule,
		Buzzer:    buzz,
		Delay:     hw.delay,
		Outputs:   hw.pins.Outputs(),
		Logger:    &log.Logger,
		Heartbeat: cfg.Heartbeat,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Info().Str("backend", cfg.Backend).Dur("heartbeat", cfg.Heartbeat).Msg("started")
	if err := loop.Run(ctx); err != nil {
		return err
	}
	if err := loop.Silence(); err != nil {
		return fmt.Errorf("silence outputs: %w", err)
	}
	return nil
}

// maxWaitLimit is the longest wait limit representable in microseconds.
const maxWaitLimit = time.Duration(^uint32(0)) * time.Microsecond

// waitLimitMicros converts the -wait-limit flag. Out-of-range values are
// rejected rather than truncated, since a wrap to 0 would mean "wait forever".
func waitLimitMicros(d time.Duration) (uint32, error) {
	if d < 0 || d > maxWaitLimit {
		return 0, fmt.Errorf("wait limit %v out of range (0 to %v)", d, maxWaitLimit)
	}
	return uint32(d / time.Microsecond), nil
}

// printState samples each sensor once without driving any indicator.
func printState(w io.Writer, hw *hardware, ranger *ultrasonic.Ranger) error {
	sample, err := hw.adc.Read()
	if err != nil {
		return fmt.Errorf("read light: %w", err)
	}
	distance, err := ranger.MeasureDistance()
	if err != nil {
		return fmt.Errorf("measure distance: %w", err)
	}
	level, err := hw.pins.Button.Get()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}

	fmt.Fprintf(w, "light: %d (%s), distance: %d cm (%s), button: %s\n",
		sample, darkString(sample > light.Threshold),
		distance, alertString(control.ObstacleAlert(distance)),
		buttonString(level))
	return nil
}

func darkString(dark bool) string {
	if dark {
		return "DARK"
	}
	return "LIGHT"
}

func alertString(alert bool) string {
	if alert {
		return "ALERT"
	}
	return "SAFE"
}

func buttonString(l gpio.Level) string {
	if l == gpio.Low {
		return "PRESSED"
	}
	return "RELEASED"
}

