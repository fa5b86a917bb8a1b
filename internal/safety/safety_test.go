package safety

import (
	"math"
	"testing"
	"time"
)

func TestFrequencyFromDuration(t *testing.T) {
	if got := FrequencyFromDuration(0); got != 0 {
		t.Errorf("expected 0 Hz for zero duration, got %v", got)
	}
	if got := FrequencyFromDuration(-time.Second); got != 0 {
		t.Errorf("expected 0 Hz for negative duration, got %v", got)
	}
	if got := FrequencyFromDuration(50 * time.Millisecond); got != 20 {
		t.Errorf("expected 20 Hz for 50ms, got %v", got)
	}
	if got := FrequencyFromDuration(time.Second); got != 1 {
		t.Errorf("expected 1 Hz for 1s, got %v", got)
	}
}

func TestClampFrequency(t *testing.T) {
	cases := []struct {
		hz, want float64
	}{
		{1, 15},
		{15, 15},
		{20, 20},
		{25, 25},
		{100, 25},
	}
	for _, c := range cases {
		if got := ClampFrequency(c.hz, 15, 25); got != c.want {
			t.Errorf("ClampFrequency(%v): expected %v, got %v", c.hz, c.want, got)
		}
	}
}

func TestIsFrequencySafe(t *testing.T) {
	if IsFrequencySafe(14.99, 15, 25) {
		t.Error("14.99 Hz should be unsafe")
	}
	if !IsFrequencySafe(15, 15, 25) {
		t.Error("15 Hz should be safe (closed lower bound)")
	}
	if !IsFrequencySafe(25, 15, 25) {
		t.Error("25 Hz should be safe (closed upper bound)")
	}
	if IsFrequencySafe(25.01, 15, 25) {
		t.Error("25.01 Hz should be unsafe")
	}
}

// TestSafeDuration_FrequencyClampProperty checks that for all positive
// distance/speed pairs, the implied repeat frequency of the returned
// duration lies inside the safe band.
func TestSafeDuration_FrequencyClampProperty(t *testing.T) {
	distances := []float64{1, 10, 200, 600, 1e4, 1e7}
	speeds := []float64{0.1, 1, 50, 200, 5000, 1e6}

	for _, d := range distances {
		for _, s := range speeds {
			dur := SafeDuration(d, s, 15, 25)
			if dur <= 0 {
				t.Fatalf("SafeDuration(%v, %v) returned non-positive duration %v", d, s, dur)
			}
			hz := FrequencyFromDuration(dur)
			// Allow a hair of float slack from the ms round trip.
			if hz < 15-1e-6 || hz > 25+1e-6 {
				t.Errorf("SafeDuration(%v, %v) implies %v Hz, outside [15, 25]", d, s, hz)
			}
		}
	}
}

func TestSafeDuration_DegenerateInputs(t *testing.T) {
	cases := []struct {
		name            string
		distance, speed float64
	}{
		{"zero distance", 0, 200},
		{"negative distance", -10, 200},
		{"zero speed", 600, 0},
		{"negative speed", 600, -5},
		{"NaN distance", math.NaN(), 200},
		{"Inf speed", 600, math.Inf(1)},
	}
	for _, c := range cases {
		if got := SafeDuration(c.distance, c.speed, 15, 25); got != DefaultDuration {
			t.Errorf("%s: expected default duration, got %v", c.name, got)
		}
	}
}

func TestSafeSpeedMultiplier_InBandUnchanged(t *testing.T) {
	// distance = 10*20 + 400 = 600 px; 600px * 20Hz = 12000 px/s sits at
	// 20 Hz, inside the band, so the speed passes through unchanged.
	speed := 12000.0
	if got := SafeSpeedMultiplier(speed, 10, 400, 20, 15, 25); got != speed {
		t.Errorf("expected in-band speed %v unchanged, got %v", speed, got)
	}
}

func TestSafeSpeedMultiplier_ClampsOutOfBand(t *testing.T) {
	// 200 px/s over 600 px is 0.33 Hz, far below the band; the returned
	// speed must land exactly on the lower bound.
	got := SafeSpeedMultiplier(200, 10, 400, 20, 15, 25)
	wantDistance := 10.0*20 + 400
	if hz := got / wantDistance; math.Abs(hz-15) > 1e-9 {
		t.Errorf("expected clamped speed at 15 Hz, got %v Hz", hz)
	}

	// An absurdly fast speed clamps to the upper bound.
	got = SafeSpeedMultiplier(1e6, 10, 400, 20, 15, 25)
	if hz := got / wantDistance; math.Abs(hz-25) > 1e-9 {
		t.Errorf("expected clamped speed at 25 Hz, got %v Hz", hz)
	}
}

func TestSafeSpeedMultiplier_Monotonic(t *testing.T) {
	prev := 0.0
	for speed := 100.0; speed <= 1e5; speed *= 1.5 {
		got := SafeSpeedMultiplier(speed, 8, 400, 20, 15, 25)
		if got < prev {
			t.Fatalf("multiplier not monotonic: speed %v gave %v after %v", speed, got, prev)
		}
		if got < 0 || !Finite(got) {
			t.Fatalf("multiplier invalid for speed %v: %v", speed, got)
		}
		prev = got
	}
}

func TestSafeSpeedMultiplier_BadInputs(t *testing.T) {
	if got := SafeSpeedMultiplier(-1, 10, 400, 20, 15, 25); got != 0 {
		t.Errorf("negative speed: expected 0, got %v", got)
	}
	if got := SafeSpeedMultiplier(math.NaN(), 10, 400, 20, 15, 25); got != 0 {
		t.Errorf("NaN speed: expected 0, got %v", got)
	}
}

func TestNumericGuards(t *testing.T) {
	if Finite(math.NaN()) || Finite(math.Inf(-1)) {
		t.Error("NaN/Inf reported finite")
	}
	if !AllFinite(1, 2, 3) {
		t.Error("finite values reported non-finite")
	}
	if AllFinite(1, math.NaN()) {
		t.Error("NaN slipped through AllFinite")
	}
	if got := Clamp(5, 0, 3); got != 3 {
		t.Errorf("Clamp(5,0,3): expected 3, got %v", got)
	}
	if got := Clamp(-5, 0, 3); got != 0 {
		t.Errorf("Clamp(-5,0,3): expected 0, got %v", got)
	}
	if got := ClampAbs(-1500, 1000); got != -1000 {
		t.Errorf("ClampAbs(-1500,1000): expected -1000, got %v", got)
	}
	if got := ClampAbs(700, 1000); got != 700 {
		t.Errorf("ClampAbs(700,1000): expected 700, got %v", got)
	}
}
