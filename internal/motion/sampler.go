// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/pov_wand/internal/pubsub"
)

// Sampler turns a raw sensor source into a smoothed velocity/direction state
// and broadcasts both raw samples and derived state. It owns no calibration
// bookkeeping; the calibration controller is the single owner of that state
// and subscribes here like any other consumer.
type Sampler struct {
	src  Source
	opts Options

	mu        sync.Mutex
	ring      []float64
	ringIdx   int
	ringCount int
	lastAt    time.Time
	velocity  float64
	direction Direction
	processed int
	running   bool
	stop      chan struct{}
	readErrs  int

	samples *pubsub.Registry[Sample]
	states  *pubsub.Registry[State]
}

// New creates a sampler over src. Zero option fields take defaults.
func New(src Source, opts Options) *Sampler {
	o := opts.withDefaults()
	return &Sampler{
		src:       src,
		opts:      o,
		ring:      make([]float64, o.Window),
		direction: DirectionStationary,
		samples:   pubsub.NewRegistry[Sample](),
		states:    pubsub.NewRegistry[State](),
	}
}

// Initialize probes the source for availability and permission. It never
// returns an error: failures reduce to false so the caller can fall back.
func (s *Sampler) Initialize() (available, permitted bool) {
	p, ok := s.src.(Prober)
	if !ok {
		return true, true
	}
	return p.Probe()
}

// Start begins pulling samples at the configured interval. Redundant calls
// are no-ops. A cold start clears the velocity ring, the last timestamp and
// the direction, so a new session never inherits stale history.
func (s *Sampler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.resetHistoryLocked()
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	go s.run(stop)
}

func (s *Sampler) run(stop chan struct{}) {
	ticker := time.NewTicker(s.opts.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sample, err := s.src.Next()
			if err != nil {
				// Transient read errors are swallowed; monitoring
				// continues on the next tick. Log the first of a burst.
				s.mu.Lock()
				s.readErrs++
				n := s.readErrs
				s.mu.Unlock()
				if n == 1 {
					log.Printf("sampler: read error: %v", err)
				}
				continue
			}
			s.mu.Lock()
			s.readErrs = 0
			s.mu.Unlock()
			s.Process(sample)
		}
	}
}

// Process ingests one reading: raw subscribers always see it, the derived
// state only advances when the inter-sample gap is sane. Exposed so replay
// and test harnesses can pump samples without a ticker.
func (s *Sampler) Process(sample Sample) {
	s.samples.Publish(sample)

	s.mu.Lock()
	if s.lastAt.IsZero() {
		s.lastAt = sample.At
		s.mu.Unlock()
		return
	}
	delta := sample.At.Sub(s.lastAt)
	s.lastAt = sample.At
	if delta <= 0 || delta >= s.opts.MaxDelta {
		// Out-of-order or gapped reading: drop the derivation, keep the
		// stream alive.
		s.mu.Unlock()
		return
	}

	mag := s.opts.RotWeight*math.Abs(sample.RotZ) + s.opts.AccelWeight*math.Abs(sample.Ax)
	s.ring[s.ringIdx] = mag
	s.ringIdx = (s.ringIdx + 1) % len(s.ring)
	if s.ringCount < len(s.ring) {
		s.ringCount++
	}
	sum := 0.0
	for i := 0; i < s.ringCount; i++ {
		sum += s.ring[i]
	}
	s.velocity = sum / float64(s.ringCount)

	switch {
	case math.Abs(sample.RotZ) < s.opts.DirectionThreshold:
		s.direction = DirectionStationary
	case sample.RotZ > 0:
		s.direction = DirectionRight
	default:
		s.direction = DirectionLeft
	}

	s.processed++
	state := State{
		Velocity:  s.velocity,
		Direction: s.direction,
		Samples:   s.processed,
		At:        sample.At,
	}
	s.mu.Unlock()

	s.states.Publish(state)
}

// SubscribeSamples registers a raw-sample listener and starts monitoring if
// it is not already running. Registering the same id twice is a no-op.
func (s *Sampler) SubscribeSamples(id string, fn func(Sample)) {
	s.samples.Subscribe(id, fn)
	s.Start()
}

// UnsubscribeSamples removes one raw listener; when the last raw listener is
// gone the sensor stream stops automatically.
func (s *Sampler) UnsubscribeSamples(id string) {
	s.samples.Unsubscribe(id)
	if s.samples.Len() == 0 {
		s.stopStream()
	}
}

// SubscribeState registers a derived-state listener. State listeners do not
// affect the stream lifecycle.
func (s *Sampler) SubscribeState(id string, fn func(State)) {
	s.states.Subscribe(id, fn)
}

// UnsubscribeState removes a derived-state listener.
func (s *Sampler) UnsubscribeState(id string) {
	s.states.Unsubscribe(id)
}

// Velocity returns the current smoothed velocity estimate.
func (s *Sampler) Velocity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.velocity
}

// Direction returns the current classified direction.
func (s *Sampler) Direction() Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direction
}

// State returns a full snapshot of the derived state.
func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Velocity:  s.velocity,
		Direction: s.direction,
		Samples:   s.processed,
		At:        s.lastAt,
	}
}

// Reset clears the velocity history and direction without stopping the
// sensor stream. This is the recalibration hook.
func (s *Sampler) Reset() {
	s.mu.Lock()
	s.resetHistoryLocked()
	s.mu.Unlock()
}

func (s *Sampler) resetHistoryLocked() {
	for i := range s.ring {
		s.ring[i] = 0
	}
	s.ringIdx = 0
	s.ringCount = 0
	s.lastAt = time.Time{}
	s.velocity = 0
	s.direction = DirectionStationary
	s.processed = 0
}

func (s *Sampler) stopStream() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()
}

// Stop is the full teardown: the stream halts, all listeners and history are
// cleared. Safe to call repeatedly.
func (s *Sampler) Stop() {
	s.stopStream()
	s.samples.Clear()
	s.states.Clear()
	s.Reset()
}

// Running reports whether the sample stream is active.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
