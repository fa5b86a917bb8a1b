// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
	// peak rotation rate and acceleration of the synthetic swing
	rotAmp   float64
	accelAmp float64
	period   time.Duration
}

// NewMockSource creates a motion source that synthesizes a smooth
// left-right wand swing. Used for demo mode and tests.
func NewMockSource(rotAmp, accelAmp float64, period time.Duration) Source {
	if period <= 0 {
		period = 2 * time.Second
	}
	return &mockSource{
		start:    time.Now(),
		rotAmp:   rotAmp,
		accelAmp: accelAmp,
		period:   period,
	}
}

func (m *mockSource) Next() (Sample, error) {
	now := time.Now()
	phase := 2 * math.Pi * float64(now.Sub(m.start)) / float64(m.period)

	return Sample{
		Ax:   m.accelAmp * math.Cos(phase),
		Ay:   0,
		Az:   1, // gravity
		RotZ: m.rotAmp * math.Sin(phase),
		At:   now,
	}, nil
}
