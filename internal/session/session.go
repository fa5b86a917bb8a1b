// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session owns the lifecycle of one display run: brightness, the
// scroll driver underneath it, the auto-off watchdog and the user-facing
// notices. A Session is single-use; a new run builds a new Session.
package session

import (
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/pov_wand/internal/config"
	"github.com/relabs-tech/pov_wand/internal/haptics"
	"github.com/relabs-tech/pov_wand/internal/pubsub"
	"github.com/relabs-tech/pov_wand/internal/scroll"
)

// Brightness abstracts the display brightness control. The session pushes
// the panel to maximum for the duration of the run and restores the prior
// level on teardown. Failures are logged and never abort the run.
type Brightness interface {
	Current() (float64, error)
	SetMax() error
	Restore() error
}

// NoopBrightness satisfies Brightness for surfaces without a controllable
// backlight.
type NoopBrightness struct{}

func (NoopBrightness) Current() (float64, error) { return 1, nil }
func (NoopBrightness) SetMax() error             { return nil }
func (NoopBrightness) Restore() error            { return nil }

// StopReason records why a session ended.
type StopReason string

const (
	StopUser    StopReason = "user"
	StopAutoOff StopReason = "auto-off"
)

// EventType tags session events.
type EventType string

const (
	EventFallback EventType = "fallback"
	EventStopped  EventType = "stopped"
)

// Event is a user-facing session notice.
type Event struct {
	Type     EventType             `json:"type"`
	Fallback scroll.FallbackReason `json:"fallback_reason,omitempty"`
	Stop     StopReason            `json:"stop_reason,omitempty"`
	At       time.Time             `json:"at"`
}

// Options tunes the session.
type Options struct {
	AutoOff time.Duration
}

// OptionsFromConfig builds session options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AutoOff: time.Duration(cfg.AutoOffTimeoutMS) * time.Millisecond,
	}
}

// Session composes the scroll driver with brightness control, haptics and
// the auto-off watchdog.
type Session struct {
	driver     *scroll.Driver
	brightness Brightness
	hap        haptics.Driver
	opts       Options

	mu           sync.Mutex
	running      bool
	stopped      bool
	watchdog     *time.Timer
	fallbackSeen bool

	events *pubsub.Registry[Event]
}

// New wires a session over its collaborators. Nil brightness and haptics
// are replaced with no-ops.
func New(driver *scroll.Driver, brightness Brightness, hap haptics.Driver, opts Options) *Session {
	if brightness == nil {
		brightness = NoopBrightness{}
	}
	if hap == nil {
		hap = haptics.Noop{}
	}
	return &Session{
		driver:     driver,
		brightness: brightness,
		hap:        hap,
		opts:       opts,
		events:     pubsub.NewRegistry[Event](),
	}
}

// Subscribe registers a listener for session events.
func (s *Session) Subscribe(id string, fn func(Event)) { s.events.Subscribe(id, fn) }

// Unsubscribe removes a listener.
func (s *Session) Unsubscribe(id string) { s.events.Unsubscribe(id) }

// Start raises brightness, starts the driver and arms the auto-off
// watchdog. Redundant calls are no-ops.
func (s *Session) Start() {
	s.mu.Lock()
	if s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.running = true
	if s.opts.AutoOff > 0 {
		s.watchdog = time.AfterFunc(s.opts.AutoOff, func() {
			log.Printf("session: auto-off after %v of display", s.opts.AutoOff)
			s.stopWith(StopAutoOff)
		})
	}
	s.mu.Unlock()

	if err := s.brightness.SetMax(); err != nil {
		log.Printf("session: raising brightness: %v", err)
	}

	s.driver.SubscribeNotices("session", s.onNotice)
	s.driver.Start()
	s.hap.Tick()
}

// onNotice forwards driver fallback notices as session events, at most once
// per session.
func (s *Session) onNotice(n scroll.Notice) {
	if !n.Fallback {
		return
	}
	s.mu.Lock()
	if s.fallbackSeen {
		s.mu.Unlock()
		return
	}
	s.fallbackSeen = true
	s.mu.Unlock()

	s.events.Publish(Event{Type: EventFallback, Fallback: n.Reason, At: time.Now()})
}

// Stop ends the session on user request. Safe to call repeatedly.
func (s *Session) Stop() { s.stopWith(StopUser) }

func (s *Session) stopWith(reason StopReason) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
	s.mu.Unlock()

	s.driver.Stop()
	s.driver.UnsubscribeNotices("session")
	if err := s.brightness.Restore(); err != nil {
		log.Printf("session: restoring brightness: %v", err)
	}

	s.events.Publish(Event{Type: EventStopped, Stop: reason, At: time.Now()})
}

// Running reports whether the session is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
