package sensors

import (
	"testing"

	"github.com/relabs-tech/pov_wand/internal/config"
)

func testGPS() *GPSSource {
	cfg := config.Default()
	cfg.GPSSpeedFloor = 0.5
	cfg.GPSCourseMinDeg = 2.0
	g := NewGPSSource(cfg)
	g.port = nopCloser{}
	return g
}

type nopCloser struct{}

func (nopCloser) Read([]byte) (int, error) { return 0, nil }
func (nopCloser) Close() error             { return nil }

func TestCourseDelta(t *testing.T) {
	cases := []struct {
		cur, prev, want float64
	}{
		{10, 5, 5},
		{5, 10, -5},
		{350, 10, -20},
		{10, 350, 20},
		{180, 0, 180},
	}
	for _, c := range cases {
		if got := courseDelta(c.cur, c.prev); got != c.want {
			t.Errorf("courseDelta(%v, %v) = %v, want %v", c.cur, c.prev, got, c.want)
		}
	}
}

func TestGPS_StationaryBelowFloor(t *testing.T) {
	g := testGPS()
	g.apply(0.2, 90)

	s, err := g.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if s.RotZ != 0 || s.Ax != 0 {
		t.Errorf("expected stationary sample below floor, got %+v", s)
	}
}

func TestGPS_SpeedDrivesSampleMagnitude(t *testing.T) {
	g := testGPS()
	g.apply(4.0, 90)

	s, err := g.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if s.Ax != 4.0 || s.RotZ != 4.0 {
		t.Errorf("expected speed-scaled sample, got %+v", s)
	}
}

func TestGPS_TurnFlipsDirection(t *testing.T) {
	g := testGPS()
	g.apply(4.0, 90)
	g.apply(4.0, 80) // 10 degrees left

	s, _ := g.Next()
	if s.RotZ != -4.0 {
		t.Errorf("expected left turn to flip rotation sign, got %v", s.RotZ)
	}

	// Small wobble holds the direction.
	g.apply(4.0, 81)
	s, _ = g.Next()
	if s.RotZ != -4.0 {
		t.Errorf("expected direction held through wobble, got %v", s.RotZ)
	}

	g.apply(4.0, 100) // 19 degrees right
	s, _ = g.Next()
	if s.RotZ != 4.0 {
		t.Errorf("expected right turn to flip rotation sign, got %v", s.RotZ)
	}
}

func TestGPS_NextBeforeProbeFails(t *testing.T) {
	g := NewGPSSource(config.Default())
	if _, err := g.Next(); err == nil {
		t.Fatal("expected error before probe")
	}
}
