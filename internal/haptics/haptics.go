package haptics

import "log"

// Driver is the haptic collaborator. Calls are fire-and-forget: haptic
// feedback is a non-critical enhancement, so failures are swallowed by the
// implementations and never reach the callers.
type Driver interface {
	// Tick is a short metronome pulse.
	Tick()
	// Success marks calibration completion.
	Success()
	// Warning marks a tempo excursion.
	Warning()
}

// Noop discards every haptic request. Used when no haptic hardware is
// configured and in tests.
type Noop struct{}

func (Noop) Tick()    {}
func (Noop) Success() {}
func (Noop) Warning() {}

// Logger writes haptic events to the log instead of hardware. Handy on a
// desk without a buzzer wired up.
type Logger struct{}

func (Logger) Tick()    { log.Println("haptics: tick") }
func (Logger) Success() { log.Println("haptics: success") }
func (Logger) Warning() { log.Println("haptics: warning") }
