package scroll

import (
	"sync"
	"time"

	"github.com/relabs-tech/pov_wand/internal/motion"
	"github.com/relabs-tech/pov_wand/internal/pubsub"
	"github.com/relabs-tech/pov_wand/internal/safety"
)

// Preview is the reduced driver used for the editor live preview: no
// sensors, no calibration, just a constant-speed directional loop that
// restarts whenever the message or speed changes.
type Preview struct {
	opts Options

	mu      sync.Mutex
	sweep   *sweepDrive
	text    float64
	speed   float64
	dir     motion.Direction
	offset  float64
	running bool
	stop    chan struct{}

	frames *pubsub.Registry[Frame]
}

// NewPreview creates an inactive preview for the given screen width.
func NewPreview(opts Options) *Preview {
	return &Preview{
		opts:   opts,
		speed:  opts.BaseSpeed,
		dir:    motion.DirectionLeft,
		offset: opts.ScreenWidth,
		frames: pubsub.NewRegistry[Frame](),
	}
}

// SubscribeFrames registers a renderer for preview frames.
func (p *Preview) SubscribeFrames(id string, fn func(Frame)) { p.frames.Subscribe(id, fn) }

// SetMessage restarts the loop for a new text width, speed and direction.
// Non-positive speed falls back to the configured base speed. The effective
// speed is corrected so the sweep frequency stays inside the flicker band.
func (p *Preview) SetMessage(textWidth, speedPxPerSec float64, dir motion.Direction) {
	p.mu.Lock()
	p.text = textWidth
	if speedPxPerSec > 0 {
		p.speed = speedPxPerSec
	} else {
		p.speed = p.opts.BaseSpeed
	}
	// textWidth is already measured in pixels, so the character heuristic
	// collapses to a single cell of that width.
	p.speed = safety.SafeSpeedMultiplier(p.speed, 1, p.opts.ScreenWidth, textWidth, p.opts.MinHz, p.opts.MaxHz)
	if dir == "" {
		dir = motion.DirectionLeft
	}
	p.dir = dir
	p.sweep = newSweepDrive(p.dimsLocked, p.speed, p.opts.MinHz, p.opts.MaxHz, p.opts.FallbackFloor, p.dir)
	wasRunning := p.running
	p.mu.Unlock()

	if !wasRunning {
		p.start()
	}
}

// dimsLocked is only safe because the sweep is stepped under p.mu.
func (p *Preview) dimsLocked() (float64, float64) {
	return p.opts.ScreenWidth, p.text
}

func (p *Preview) start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	stop := p.stop
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(p.opts.FrameInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				p.mu.Lock()
				if p.sweep == nil {
					p.mu.Unlock()
					continue
				}
				offset, ok := p.sweep.Step(now)
				if !ok {
					p.mu.Unlock()
					continue
				}
				p.offset = offset
				frame := Frame{Offset: offset, Mode: ModeAutoScroll, At: now}
				p.mu.Unlock()
				p.frames.Publish(frame)
			}
		}
	}()
}

// Speed returns the effective sweep speed in px/s, after band correction.
func (p *Preview) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Offset returns the current preview offset.
func (p *Preview) Offset() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

// CycleDuration reports the duration of one preview loop.
func (p *Preview) CycleDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sweep == nil {
		return 0
	}
	return p.sweep.CycleDuration()
}

// Stop cancels the loop and resets the offset to the start edge. Safe to
// call repeatedly; SetMessage revives the preview afterwards.
func (p *Preview) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.sweep = nil
	p.offset = p.opts.ScreenWidth
	p.mu.Unlock()
}
