// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"sync"
	"time"

	"github.com/relabs-tech/pov_wand/internal/config"
	"github.com/relabs-tech/pov_wand/internal/haptics"
	"github.com/relabs-tech/pov_wand/internal/motion"
	"github.com/relabs-tech/pov_wand/internal/pubsub"
)

// Data is the settled tempo/direction pair produced by a completed
// calibration run. Read-only to consumers; only an explicit recalibration
// replaces it.
type Data struct {
	Speed     float64          `json:"speed"`
	Direction motion.Direction `json:"direction"`
	At        time.Time        `json:"at"`
}

// Tempo is the 3-level live classification of motion speed.
type Tempo string

const (
	TempoTooSlow Tempo = "too-slow"
	TempoOK      Tempo = "ok"
	TempoTooFast Tempo = "too-fast"
)

// ClassifyTempo buckets a velocity against the slow/fast thresholds. The
// threshold edges themselves are closed on the OK side.
func ClassifyTempo(velocity, slow, fast float64) Tempo {
	switch {
	case velocity < slow:
		return TempoTooSlow
	case velocity > fast:
		return TempoTooFast
	default:
		return TempoOK
	}
}

// State is the full controller snapshot broadcast on every transition.
type State struct {
	Calibrating      bool    `json:"calibrating"`
	Calibrated       bool    `json:"calibrated"`
	Progress         float64 `json:"progress"`
	Data             *Data   `json:"data,omitempty"`
	Tempo            Tempo   `json:"tempo"`
	MetronomeEnabled bool    `json:"metronome_enabled"`
}

// Options tunes the calibration run. Zero fields take config defaults.
type Options struct {
	Duration          time.Duration
	SamplesNeeded     int
	VelocityThreshold float64
	DefaultDirection  motion.Direction
	MetronomeInterval time.Duration
	TempoThrottle     time.Duration
	SlowThreshold     float64
	FastThreshold     float64
}

// OptionsFromConfig builds calibration options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Duration:          time.Duration(cfg.CalibrationDurationMS) * time.Millisecond,
		SamplesNeeded:     cfg.SamplesNeeded,
		VelocityThreshold: cfg.VelocityThreshold,
		DefaultDirection:  motion.ParseDirection(cfg.DefaultDirection),
		MetronomeInterval: time.Duration(cfg.MetronomeIntervalMS) * time.Millisecond,
		TempoThrottle:     time.Duration(cfg.TempoHapticThrottleMS) * time.Millisecond,
		SlowThreshold:     cfg.TempoSlowThreshold,
		FastThreshold:     cfg.TempoFastThreshold,
	}
}

func (o Options) withDefaults() Options {
	def := OptionsFromConfig(config.Default())
	if o.Duration <= 0 {
		o.Duration = def.Duration
	}
	if o.SamplesNeeded <= 0 {
		o.SamplesNeeded = def.SamplesNeeded
	}
	if o.VelocityThreshold == 0 {
		o.VelocityThreshold = def.VelocityThreshold
	}
	if o.DefaultDirection == "" {
		o.DefaultDirection = def.DefaultDirection
	}
	if o.MetronomeInterval <= 0 {
		o.MetronomeInterval = def.MetronomeInterval
	}
	if o.TempoThrottle <= 0 {
		o.TempoThrottle = def.TempoThrottle
	}
	if o.SlowThreshold == 0 && o.FastThreshold == 0 {
		o.SlowThreshold = def.SlowThreshold
		o.FastThreshold = def.FastThreshold
	}
	return o
}

// Controller runs the bounded calibration phase that converts noisy velocity
// samples into one confident speed/direction pair, and thereafter classifies
// ongoing velocity into the tempo signal. It is the single owner of
// calibration state.
//
// Lifecycle: idle -> calibrating -> calibrated (until reset/recalibrate),
// with StopCalibration as a side exit back to idle without data.
type Controller struct {
	opts Options
	hap  haptics.Driver
	subs *pubsub.Registry[State]

	mu               sync.Mutex
	calibrating      bool
	calibrated       bool
	progress         float64
	data             *Data
	tempo            Tempo
	metronomeEnabled bool
	metronomeActive  bool

	samples       []float64
	lastDirection motion.Direction // last non-stationary sample direction
	timeout       *time.Timer
	metronomeStop chan struct{}
	generation    int // invalidates stale timer/metronome callbacks
	lastTempoHap  time.Time
}

// New creates an idle controller. A nil haptic driver disables feedback.
func New(hap haptics.Driver, opts Options) *Controller {
	if hap == nil {
		hap = haptics.Noop{}
	}
	return &Controller{
		opts:             opts.withDefaults(),
		hap:              hap,
		subs:             pubsub.NewRegistry[State](),
		tempo:            TempoTooSlow,
		metronomeEnabled: true,
		lastDirection:    motion.DirectionStationary,
	}
}

// Subscribe registers a state listener. The same id twice is a no-op.
func (c *Controller) Subscribe(id string, fn func(State)) { c.subs.Subscribe(id, fn) }

// Unsubscribe removes a state listener.
func (c *Controller) Unsubscribe(id string) { c.subs.Unsubscribe(id) }

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	return State{
		Calibrating:      c.calibrating,
		Calibrated:       c.calibrated,
		Progress:         c.progress,
		Data:             c.data,
		Tempo:            c.tempo,
		MetronomeEnabled: c.metronomeEnabled,
	}
}

// Data returns the completed calibration data, or nil before completion.
func (c *Controller) Data() *Data {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// Start begins a calibration run. A no-op while one is already running.
// Completion is guaranteed: if the early-exit criteria are never met, an
// unconditional timeout completes the run at the configured duration.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.calibrating {
		c.mu.Unlock()
		return
	}
	c.calibrating = true
	c.calibrated = false
	c.progress = 0
	c.samples = c.samples[:0]
	c.lastDirection = motion.DirectionStationary
	c.generation++
	gen := c.generation

	c.timeout = time.AfterFunc(c.opts.Duration, func() { c.completeFromTimeout(gen) })
	startMetronome := c.metronomeEnabled
	if startMetronome {
		c.startMetronomeLocked(gen)
	}
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.subs.Publish(state)
}

// startMetronomeLocked launches the periodic haptic tick: an immediate pulse,
// then one per interval, running until the calibration run ends.
func (c *Controller) startMetronomeLocked(gen int) {
	if c.metronomeActive {
		return
	}
	c.metronomeActive = true
	stop := make(chan struct{})
	c.metronomeStop = stop

	go func() {
		c.hap.Tick()
		ticker := time.NewTicker(c.opts.MetronomeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.mu.Lock()
				live := c.generation == gen && c.calibrating
				c.mu.Unlock()
				if !live {
					return
				}
				c.hap.Tick()
			}
		}
	}()
}

func (c *Controller) stopMetronomeLocked() {
	if !c.metronomeActive {
		return
	}
	c.metronomeActive = false
	close(c.metronomeStop)
	c.metronomeStop = nil
}

// AddSample feeds one velocity sample into the running calibration. No-op
// unless calibrating. Early completion happens synchronously inside the call
// once enough samples average above the threshold, so it deterministically
// pre-empts the timeout path.
func (c *Controller) AddSample(velocity float64, dir motion.Direction) {
	c.mu.Lock()
	if !c.calibrating {
		c.mu.Unlock()
		return
	}
	c.samples = append(c.samples, velocity)
	if dir != motion.DirectionStationary {
		c.lastDirection = dir
	}
	c.progress = float64(len(c.samples)) / float64(c.opts.SamplesNeeded)
	if c.progress > 1 {
		c.progress = 1
	}
	c.tempo = ClassifyTempo(velocity, c.opts.SlowThreshold, c.opts.FastThreshold)

	if len(c.samples) >= c.opts.SamplesNeeded && meanOf(c.samples) > c.opts.VelocityThreshold {
		settled := dir
		if settled == motion.DirectionStationary {
			settled = c.opts.DefaultDirection
		}
		state := c.completeLocked(settled)
		c.mu.Unlock()
		c.hap.Success()
		c.subs.Publish(state)
		return
	}

	state := c.snapshotLocked()
	c.mu.Unlock()
	c.subs.Publish(state)
}

// completeFromTimeout is the unconditional completion path. It uses the last
// directional sample seen, falling back to the configured default when the
// whole run was stationary.
func (c *Controller) completeFromTimeout(gen int) {
	c.mu.Lock()
	if c.generation != gen || !c.calibrating {
		c.mu.Unlock()
		return
	}
	dir := c.lastDirection
	if dir == motion.DirectionStationary {
		dir = c.opts.DefaultDirection
	}
	state := c.completeLocked(dir)
	c.mu.Unlock()
	c.hap.Success()
	c.subs.Publish(state)
}

func (c *Controller) completeLocked(dir motion.Direction) State {
	if c.timeout != nil {
		c.timeout.Stop()
		c.timeout = nil
	}
	c.stopMetronomeLocked()

	speed := 0.0
	if len(c.samples) > 0 {
		speed = meanOf(c.samples)
	}
	c.data = &Data{Speed: speed, Direction: dir, At: time.Now()}
	c.calibrated = true
	c.calibrating = false
	c.progress = 1
	c.tempo = ClassifyTempo(speed, c.opts.SlowThreshold, c.opts.FastThreshold)
	return c.snapshotLocked()
}

// StopCalibration aborts a running calibration without producing data.
func (c *Controller) StopCalibration() {
	c.mu.Lock()
	if !c.calibrating {
		c.mu.Unlock()
		return
	}
	c.generation++
	if c.timeout != nil {
		c.timeout.Stop()
		c.timeout = nil
	}
	c.stopMetronomeLocked()
	c.calibrating = false
	c.progress = 0
	c.samples = c.samples[:0]
	state := c.snapshotLocked()
	c.mu.Unlock()
	c.subs.Publish(state)
}

// Recalibrate aborts any running calibration and starts a fresh one. This is
// the only path that replaces existing Data.
func (c *Controller) Recalibrate() {
	c.StopCalibration()
	c.Start()
}

// UpdateTempo reclassifies live velocity after calibration has completed.
// Subscribers are only notified when the classification actually changes,
// and the associated haptic feedback is throttled.
func (c *Controller) UpdateTempo(velocity float64) {
	c.mu.Lock()
	if !c.calibrated || c.calibrating {
		c.mu.Unlock()
		return
	}
	tempo := ClassifyTempo(velocity, c.opts.SlowThreshold, c.opts.FastThreshold)
	if tempo == c.tempo {
		c.mu.Unlock()
		return
	}
	c.tempo = tempo
	fireHaptic := time.Since(c.lastTempoHap) >= c.opts.TempoThrottle
	if fireHaptic {
		c.lastTempoHap = time.Now()
	}
	state := c.snapshotLocked()
	c.mu.Unlock()

	if fireHaptic {
		c.hap.Warning()
	}
	c.subs.Publish(state)
}

// Tempo returns the current classification.
func (c *Controller) Tempo() Tempo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tempo
}

// SetMetronomeEnabled toggles the periodic haptic tick. Takes effect
// immediately for a running calibration; has no retroactive effect on a
// completed one.
func (c *Controller) SetMetronomeEnabled(enabled bool) {
	c.mu.Lock()
	if c.metronomeEnabled == enabled {
		c.mu.Unlock()
		return
	}
	c.metronomeEnabled = enabled
	if c.calibrating {
		if enabled {
			c.startMetronomeLocked(c.generation)
		} else {
			c.stopMetronomeLocked()
		}
	}
	state := c.snapshotLocked()
	c.mu.Unlock()
	c.subs.Publish(state)
}

// Reset returns the controller fully to idle, clearing calibration data.
// Used on session teardown; safe to call repeatedly.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.generation++
	if c.timeout != nil {
		c.timeout.Stop()
		c.timeout = nil
	}
	c.stopMetronomeLocked()
	c.calibrating = false
	c.calibrated = false
	c.progress = 0
	c.data = nil
	c.samples = c.samples[:0]
	c.tempo = TempoTooSlow
	c.lastDirection = motion.DirectionStationary
	state := c.snapshotLocked()
	c.mu.Unlock()
	c.subs.Publish(state)
}

func meanOf(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
