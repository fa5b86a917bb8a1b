// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scroll

import (
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/pov_wand/internal/calibration"
	"github.com/relabs-tech/pov_wand/internal/config"
	"github.com/relabs-tech/pov_wand/internal/motion"
	"github.com/relabs-tech/pov_wand/internal/pubsub"
	"github.com/relabs-tech/pov_wand/internal/safety"
)

// Mode is the drive mode of a display session. It is chosen once at session
// start and stays fixed until teardown; recalibration does not change it.
type Mode string

const (
	ModeIMU        Mode = "imu"
	ModeAutoScroll Mode = "auto-scroll"
	ModeDemo       Mode = "demo"
)

// FallbackReason distinguishes why the session fell back to auto-scroll.
type FallbackReason string

const (
	FallbackUnavailable FallbackReason = "unavailable"
	FallbackPermission  FallbackReason = "permission"
)

// Notice is an informational event for the surrounding UI. Capability
// failures surface here, never as errors.
type Notice struct {
	Fallback bool           `json:"fallback"`
	Reason   FallbackReason `json:"reason,omitempty"`
}

// Frame is one rendered offset, published to frame subscribers at the frame
// rate.
type Frame struct {
	Offset float64   `json:"offset"`
	Mode   Mode      `json:"mode"`
	At     time.Time `json:"at"`
}

// Options tunes the driver. Dimensions are in pixels.
type Options struct {
	ScreenWidth float64
	TextWidth   float64

	Multiplier    float64 // velocity -> pixel nudge
	MaxDeltaPX    float64 // per-sample nudge ceiling, guards against spikes
	BaseSpeed     float64 // fallback sweep reference speed, px/s
	MinHz, MaxHz  float64
	FallbackFloor time.Duration
	FrameInterval time.Duration

	SpringStiffness float64
	SpringDamping   float64
	SpringMass      float64

	// Demo relabels an IMU-driven session running on a mock source.
	Demo bool
}

// OptionsFromConfig builds driver options from the application config plus
// the measured dimensions.
func OptionsFromConfig(cfg *config.Config, screenWidth, textWidth float64) Options {
	return Options{
		ScreenWidth:     screenWidth,
		TextWidth:       textWidth,
		Multiplier:      cfg.BaseScrollMultiplier,
		MaxDeltaPX:      cfg.MaxScrollDeltaPX,
		BaseSpeed:       cfg.BaseScrollSpeedPXPS,
		MinHz:           cfg.FlickerSafeMinHz,
		MaxHz:           cfg.FlickerSafeMaxHz,
		FallbackFloor:   time.Duration(cfg.FallbackMinDurationMS) * time.Millisecond,
		FrameInterval:   time.Duration(cfg.FrameIntervalMS) * time.Millisecond,
		SpringStiffness: cfg.SpringStiffness,
		SpringDamping:   cfg.SpringDamping,
		SpringMass:      cfg.SpringMass,
	}
}

// Driver owns the single rendered horizontal offset and chooses, per
// session, between IMU-driven incremental motion and the timed fallback
// sweep. Exactly one of the two drives ever writes the offset.
type Driver struct {
	sampler *motion.Sampler
	calib   *calibration.Controller
	opts    Options

	mu        sync.Mutex
	mode      Mode
	offset    float64
	screen    float64
	text      float64
	spring    *springDrive
	sweep     *sweepDrive
	anomalies int
	started   bool
	stopped   bool
	stop      chan struct{}

	frames  *pubsub.Registry[Frame]
	notices *pubsub.Registry[Notice]
}

// NewDriver wires a driver over its collaborators. Start chooses the mode.
func NewDriver(sampler *motion.Sampler, calib *calibration.Controller, opts Options) *Driver {
	return &Driver{
		sampler: sampler,
		calib:   calib,
		opts:    opts,
		screen:  opts.ScreenWidth,
		text:    opts.TextWidth,
		offset:  opts.ScreenWidth, // start edge: text fully off screen
		frames:  pubsub.NewRegistry[Frame](),
		notices: pubsub.NewRegistry[Notice](),
	}
}

// SubscribeFrames registers a renderer for offset frames.
func (d *Driver) SubscribeFrames(id string, fn func(Frame)) { d.frames.Subscribe(id, fn) }

// UnsubscribeFrames removes a renderer.
func (d *Driver) UnsubscribeFrames(id string) { d.frames.Unsubscribe(id) }

// SubscribeNotices registers a listener for session notices.
func (d *Driver) SubscribeNotices(id string, fn func(Notice)) { d.notices.Subscribe(id, fn) }

// UnsubscribeNotices removes a listener.
func (d *Driver) UnsubscribeNotices(id string) { d.notices.Unsubscribe(id) }

// Start runs the session initialization sequence: probe the sampler, pick
// the drive mode, and begin producing frames. Redundant calls are no-ops.
func (d *Driver) Start() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.stop = make(chan struct{})
	stop := d.stop
	d.mu.Unlock()

	available, permitted := d.sampler.Initialize()
	switch {
	case !available:
		d.activateFallback(FallbackUnavailable)
	case !permitted:
		d.activateFallback(FallbackPermission)
	default:
		d.activateIMU()
	}

	go d.frameLoop(stop)
}

func (d *Driver) activateFallback(reason FallbackReason) {
	d.mu.Lock()
	d.mode = ModeAutoScroll
	d.sweep = newSweepDrive(d.dimsLocked, d.opts.BaseSpeed, d.opts.MinHz, d.opts.MaxHz, d.opts.FallbackFloor, motion.DirectionLeft)
	d.mu.Unlock()

	log.Printf("scroll: motion unusable (%s), falling back to auto-scroll", reason)
	d.notices.Publish(Notice{Fallback: true, Reason: reason})
}

func (d *Driver) activateIMU() {
	d.mu.Lock()
	if d.opts.Demo {
		d.mode = ModeDemo
	} else {
		d.mode = ModeIMU
	}
	d.spring = newSpringDrive(d.opts.FrameInterval, d.opts.SpringStiffness, d.opts.SpringDamping, d.opts.SpringMass, d.offset)
	d.mu.Unlock()

	// Fixed consumer order per sample: calibration bookkeeping first, then
	// the offset nudge. Both observe the same state value.
	d.sampler.SubscribeState("scroll-calibration", d.feedCalibration)
	d.sampler.SubscribeState("scroll-nudge", d.nudge)
	d.calib.Start()
	d.sampler.Start()
}

// dimsLocked is only safe because the sweep is stepped under d.mu.
func (d *Driver) dimsLocked() (float64, float64) {
	return d.screen, d.text
}

// feedCalibration forwards each velocity sample into the calibration
// controller while calibrating, and into the live tempo classifier after.
func (d *Driver) feedCalibration(st motion.State) {
	cs := d.calib.State()
	switch {
	case cs.Calibrating:
		d.calib.AddSample(st.Velocity, st.Direction)
	case cs.Calibrated:
		d.calib.UpdateTempo(st.Velocity)
	}
}

// nudge moves the spring target by velocity x multiplier per sample. A
// swing to the right reads the text leftward, so right means a negative
// offset delta.
func (d *Driver) nudge(st motion.State) {
	if st.Direction == motion.DirectionStationary {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.spring == nil {
		return
	}

	delta := safety.ClampAbs(st.Velocity*d.opts.Multiplier, d.opts.MaxDeltaPX)
	if st.Direction == motion.DirectionRight {
		delta = -delta
	}

	target := safety.Clamp(d.spring.Target()+delta, -d.text, d.screen)
	if !safety.AllFinite(delta, target) {
		d.anomalies++
		log.Printf("scroll: dropping non-finite nudge (velocity=%v delta=%v)", st.Velocity, delta)
		return
	}
	d.spring.SetTarget(target)
}

func (d *Driver) frameLoop(stop chan struct{}) {
	ticker := time.NewTicker(d.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if !d.step(now) {
				return
			}
		}
	}
}

// step advances the active drive by one frame and publishes the offset.
// Returns false when the drive stopped itself (degenerate dimensions).
func (d *Driver) step(now time.Time) bool {
	d.mu.Lock()
	var (
		offset float64
		ok     bool
	)
	switch {
	case d.spring != nil:
		offset, ok = d.spring.Step(now)
	case d.sweep != nil:
		offset, ok = d.sweep.Step(now)
	default:
		d.mu.Unlock()
		return false
	}

	if !ok {
		// The sweep hit invalid dimensions; hold the last valid offset and
		// stop cleanly rather than paint garbage.
		d.anomalies++
		mode := d.mode
		d.mu.Unlock()
		log.Printf("scroll: %s drive stopped on invalid dimensions", mode)
		return false
	}
	if !safety.Finite(offset) {
		d.anomalies++
		d.mu.Unlock()
		log.Printf("scroll: dropped non-finite offset")
		return true
	}

	offset = safety.Clamp(offset, -d.text, d.screen)
	d.offset = offset
	frame := Frame{Offset: offset, Mode: d.mode, At: now}
	d.mu.Unlock()

	d.frames.Publish(frame)
	return true
}

// Offset returns the current rendered offset.
func (d *Driver) Offset() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offset
}

// Mode returns the session drive mode.
func (d *Driver) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Anomalies reports how many numeric guard violations were absorbed.
func (d *Driver) Anomalies() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.anomalies
}

// SetDimensions feeds a re-measured layout back into the driver. The offset
// and spring target are clamped into the new travel bounds.
func (d *Driver) SetDimensions(screenWidth, textWidth float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !safety.AllFinite(screenWidth, textWidth) {
		d.anomalies++
		log.Printf("scroll: ignoring non-finite dimensions %v x %v", screenWidth, textWidth)
		return
	}
	d.screen = screenWidth
	d.text = textWidth
	d.offset = safety.Clamp(d.offset, -textWidth, screenWidth)
	if d.spring != nil {
		d.spring.SetTarget(safety.Clamp(d.spring.Target(), -textWidth, screenWidth))
	}
}

// Recalibrate resets the sampler history, restarts the calibration
// controller, and snaps the offset back to the start edge. The drive mode is
// unchanged.
func (d *Driver) Recalibrate() {
	d.mu.Lock()
	mode := d.mode
	start := d.screen
	d.offset = start
	if d.spring != nil {
		d.spring.Reset(start)
	}
	d.mu.Unlock()

	if mode == ModeIMU || mode == ModeDemo {
		d.sampler.Reset()
		d.calib.Recalibrate()
	}
}

// Stop tears the driver down: frame loop, sampler subscriptions and stream,
// calibration state. Safe to call multiple times.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.started || d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stop)
	d.mu.Unlock()

	d.sampler.UnsubscribeState("scroll-calibration")
	d.sampler.UnsubscribeState("scroll-nudge")
	d.sampler.Stop()
	d.calib.Reset()
	d.frames.Clear()
}
