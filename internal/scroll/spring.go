package scroll

import (
	"math"
	"time"

	"github.com/charmbracelet/harmonica"

	"github.com/relabs-tech/pov_wand/internal/safety"
)

// springDrive relaxes the offset toward a motion-nudged target with a damped
// spring instead of snapping, which keeps the strip readable through jittery
// hand motion. The default parameters (stiffness 200, damping 20, mass 0.5)
// work out to a critically damped response.
type springDrive struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
	target float64
}

func newSpringDrive(frameInterval time.Duration, stiffness, damping, mass, start float64) *springDrive {
	omega := math.Sqrt(stiffness / mass)
	zeta := damping / (2 * math.Sqrt(stiffness*mass))
	return &springDrive{
		spring: harmonica.NewSpring(frameInterval.Seconds(), omega, zeta),
		pos:    start,
		target: start,
	}
}

// SetTarget moves the equilibrium point. Non-finite targets are ignored so a
// bad sample can never poison the spring state.
func (s *springDrive) SetTarget(t float64) bool {
	if !safety.Finite(t) {
		return false
	}
	s.target = t
	return true
}

func (s *springDrive) Target() float64 { return s.target }

// Reset snaps the spring to a known position with zero velocity.
func (s *springDrive) Reset(pos float64) {
	s.pos = pos
	s.vel = 0
	s.target = pos
}

func (s *springDrive) Step(time.Time) (float64, bool) {
	pos, vel := s.spring.Update(s.pos, s.vel, s.target)
	if !safety.AllFinite(pos, vel) {
		// Hold the last valid position; the spring state is not advanced.
		return s.pos, true
	}
	s.pos = pos
	s.vel = vel
	return s.pos, true
}
