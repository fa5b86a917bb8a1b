// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package safety

import (
	"math"
	"time"
)

// Package safety keeps every animated cycle inside a flicker-safe frequency
// band. Scrolling a short strip fast enough to read as a POV afterimage puts
// the repeat frequency of the sweep in photosensitivity-relevant territory,
// so every computed duration passes through here before it reaches an
// animation driver.

// DefaultDuration is returned when SafeDuration is asked for a duration with
// degenerate inputs (non-positive distance or speed).
const DefaultDuration = time.Second

// FrequencyFromDuration converts a cycle duration into its repeat frequency
// in Hz. Non-positive durations yield 0.
func FrequencyFromDuration(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(time.Second) / float64(d)
}

// ClampFrequency clamps hz into [minHz, maxHz].
func ClampFrequency(hz, minHz, maxHz float64) float64 {
	if hz < minHz {
		return minHz
	}
	if hz > maxHz {
		return maxHz
	}
	return hz
}

// IsFrequencySafe reports whether hz lies inside [minHz, maxHz].
func IsFrequencySafe(hz, minHz, maxHz float64) bool {
	return hz >= minHz && hz <= maxHz
}

// SafeDuration computes the sweep duration for the given travel distance and
// speed, then clamps the implied repeat frequency into [minHz, maxHz] and
// converts back. The result is always positive and finite, and
// FrequencyFromDuration of the result always lies inside the band.
func SafeDuration(distancePx, speedPxPerSec, minHz, maxHz float64) time.Duration {
	if distancePx <= 0 || speedPxPerSec <= 0 ||
		!AllFinite(distancePx, speedPxPerSec) {
		return DefaultDuration
	}

	rawMs := distancePx / speedPxPerSec * 1000.0
	hz := 1000.0 / rawMs
	hz = ClampFrequency(hz, minHz, maxHz)
	safeMs := 1000.0 / hz
	return time.Duration(safeMs * float64(time.Millisecond))
}

// SafeSpeedMultiplier estimates the travel distance for a message of textLen
// characters on a screen of screenWidth pixels using the charWidth heuristic,
// and checks the repeat frequency the requested baseSpeed would produce. If
// the frequency is already inside the band, baseSpeed is returned unchanged;
// otherwise the speed that lands exactly on the clamped frequency is
// returned. The result is never negative or non-finite.
func SafeSpeedMultiplier(baseSpeed float64, textLen int, screenWidth, charWidth, minHz, maxHz float64) float64 {
	if baseSpeed <= 0 || !Finite(baseSpeed) {
		return 0
	}
	distance := float64(textLen)*charWidth + screenWidth
	if distance <= 0 || !Finite(distance) {
		return baseSpeed
	}

	hz := baseSpeed / distance
	if IsFrequencySafe(hz, minHz, maxHz) {
		return baseSpeed
	}
	return ClampFrequency(hz, minHz, maxHz) * distance
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite reports whether every value is finite.
func AllFinite(vs ...float64) bool {
	for _, v := range vs {
		if !Finite(v) {
			return false
		}
	}
	return true
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampAbs limits the magnitude of v to ceil, preserving sign.
func ClampAbs(v, ceil float64) float64 {
	if v > ceil {
		return ceil
	}
	if v < -ceil {
		return -ceil
	}
	return v
}
