// Package control runs the device modules in their fixed order, forever.
//
// One iteration is: light sensing, ultrasonic ranging with the obstacle
// gate, emergency button, then a short stabilisation delay. Modules run to
// completion one after another on the caller's goroutine, so the shared
// buzzer is never driven by two modules at once.
package control

import (
	"time"

	"github.com/sweeney/blind-stick/internal/buzzer"
	"github.com/sweeney/blind-stick/internal/light"
)

const (
	// SafeBandMin and SafeBandMax bound the open interval of distances
	// (cm) that raise no obstacle tone.
	SafeBandMin = 2
	SafeBandMax = 5

	// ObstaclePauseMS follows every obstacle tone.
	ObstaclePauseMS = 100

	// StabilizeMS ends every iteration.
	StabilizeMS = 10
)

// ObstacleTone is played when a distance falls outside the safe band.
var ObstacleTone = buzzer.ToneRequest{FrequencyHz: 2000, DurationMS: 200}

// LightSensor is the light sensing module.
type LightSensor interface {
	PollAndIndicate() (light.Reading, error)
}

// RangeFinder is the ultrasonic ranging module.
type RangeFinder interface {
	MeasureDistance() (uint32, error)
}

// EmergencyButton is the emergency button module.
type EmergencyButton interface {
	PollAndIndicate() (pressed bool, err error)
}

// TonePlayer is the shared buzzer.
type TonePlayer interface {
	Play(buzzer.ToneRequest) error
}

// Report describes one loop iteration.
type Report struct {
	Iteration uint64
	Light     light.Reading

	// Ranged is false when the measurement failed and the gate was skipped.
	Ranged     bool
	DistanceCM uint32
	Obstacle   bool

	Pressed bool

	// Err joins every module error from the iteration.
	Err error
}

// Counts tracks activity since startup.
type Counts struct {
	Iterations     uint64
	DarkBlinks     uint64
	ObstacleTones  uint64
	EmergencyTones uint64
	Errors         uint64
}

// HeartbeatData contains information for a heartbeat log line.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
