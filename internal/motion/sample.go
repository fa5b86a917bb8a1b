package motion

import (
	"time"

	"github.com/relabs-tech/pov_wand/internal/config"
)

// Sample is a single inertial reading: linear acceleration in g on each axis
// plus the rotation rate about the vertical axis in deg/s. Samples are
// transient; they feed the velocity estimate and are never persisted.
type Sample struct {
	Ax   float64   `json:"ax"`
	Ay   float64   `json:"ay"`
	Az   float64   `json:"az"`
	RotZ float64   `json:"rot_z"`
	At   time.Time `json:"at"`
}

// Direction is the classified swing direction of the wand.
type Direction string

const (
	DirectionLeft       Direction = "left"
	DirectionRight      Direction = "right"
	DirectionStationary Direction = "stationary"
)

// ParseDirection maps a config string onto a Direction, defaulting to right.
func ParseDirection(s string) Direction {
	if s == string(DirectionLeft) {
		return DirectionLeft
	}
	return DirectionRight
}

// State is the derived motion snapshot broadcast after every accepted sample.
type State struct {
	Velocity  float64   `json:"velocity"`
	Direction Direction `json:"direction"`
	Samples   int       `json:"samples"`
	At        time.Time `json:"at"`
}

// Source is anything that can produce inertial samples over time: the real
// MPU9250, a GPS speed adapter, or a mock.
type Source interface {
	Next() (Sample, error)
}

// Prober is implemented by sources that can report availability and access
// permission up front. Sources without a Probe are assumed usable.
type Prober interface {
	Probe() (available, permitted bool)
}

// Options tunes the sampler. Zero values are replaced by defaults.
type Options struct {
	SampleInterval     time.Duration
	Window             int
	MaxDelta           time.Duration
	DirectionThreshold float64
	RotWeight          float64
	AccelWeight        float64
}

// OptionsFromConfig builds sampler options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SampleInterval:     time.Duration(cfg.SampleIntervalMS) * time.Millisecond,
		Window:             cfg.VelocityWindow,
		MaxDelta:           time.Duration(cfg.MaxDeltaTimeMS) * time.Millisecond,
		DirectionThreshold: cfg.DirectionThreshold,
		RotWeight:          cfg.VelocityRotWeight,
		AccelWeight:        cfg.VelocityAccelWeight,
	}
}

func (o Options) withDefaults() Options {
	def := OptionsFromConfig(config.Default())
	if o.SampleInterval <= 0 {
		o.SampleInterval = def.SampleInterval
	}
	if o.Window <= 0 {
		o.Window = def.Window
	}
	if o.MaxDelta <= 0 {
		o.MaxDelta = def.MaxDelta
	}
	if o.DirectionThreshold <= 0 {
		o.DirectionThreshold = def.DirectionThreshold
	}
	if o.RotWeight == 0 && o.AccelWeight == 0 {
		o.RotWeight = def.RotWeight
		o.AccelWeight = def.AccelWeight
	}
	return o
}
