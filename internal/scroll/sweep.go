package scroll

import (
	"time"

	"github.com/relabs-tech/pov_wand/internal/motion"
	"github.com/relabs-tech/pov_wand/internal/safety"
)

// sweepDrive is the sensor-independent fallback: a fixed-duration linear
// sweep across the screen, looping indefinitely. Dimensions are re-read from
// the supplier on every loop restart because a layout change (rotation,
// re-measure) can invalidate them mid-loop; an invalid read stops the drive
// cleanly instead of animating toward NaN.
type sweepDrive struct {
	dims      func() (screenWidth, textWidth float64)
	speed     float64
	minHz     float64
	maxHz     float64
	floor     time.Duration
	direction motion.Direction

	from, to float64
	start    time.Time
	duration time.Duration
	active   bool
}

func newSweepDrive(dims func() (float64, float64), speed, minHz, maxHz float64, floor time.Duration, dir motion.Direction) *sweepDrive {
	if dir != motion.DirectionRight {
		dir = motion.DirectionLeft
	}
	return &sweepDrive{
		dims:      dims,
		speed:     speed,
		minHz:     minHz,
		maxHz:     maxHz,
		floor:     floor,
		direction: dir,
	}
}

// restart computes a fresh loop from current dimensions. Returns false when
// the dimensions are unusable.
func (w *sweepDrive) restart(now time.Time) bool {
	screen, text := w.dims()
	if !safety.AllFinite(screen, text) || screen <= 0 || text <= 0 {
		w.active = false
		return false
	}

	w.duration = safety.SafeDuration(screen+text, w.speed, w.minHz, w.maxHz)
	if w.duration < w.floor {
		w.duration = w.floor
	}

	// Reading direction left means the strip travels right-to-left.
	if w.direction == motion.DirectionLeft {
		w.from, w.to = screen, -text
	} else {
		w.from, w.to = -text, screen
	}
	w.start = now
	w.active = true
	return true
}

// CycleDuration reports the duration of one sweep, for telemetry. Zero until
// the first restart.
func (w *sweepDrive) CycleDuration() time.Duration { return w.duration }

func (w *sweepDrive) Step(now time.Time) (float64, bool) {
	if !w.active {
		if !w.restart(now) {
			return 0, false
		}
	}

	elapsed := now.Sub(w.start)
	if elapsed >= w.duration {
		// Reset-then-replay: one loop ends, the next starts at the edge.
		if !w.restart(now) {
			return w.from, false
		}
		elapsed = 0
	}

	progress := float64(elapsed) / float64(w.duration)
	offset := w.from + (w.to-w.from)*progress
	if !safety.Finite(offset) {
		return w.from, false
	}
	return offset, true
}
