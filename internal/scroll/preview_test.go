package scroll

import (
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/pov_wand/internal/motion"
)

func testPreview() *Preview {
	opts := testDriverOptions()
	opts.FrameInterval = 5 * time.Millisecond
	return NewPreview(opts)
}

func TestPreview_LoopsWithinBounds(t *testing.T) {
	p := testPreview()
	var mu sync.Mutex
	var frames []Frame
	p.SubscribeFrames("t", func(f Frame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
	})

	p.SetMessage(100, 2000, motion.DirectionLeft)
	defer p.Stop()
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(frames) == 0 {
		t.Fatal("expected preview frames")
	}
	for _, f := range frames {
		if f.Offset < -100 || f.Offset > 400 {
			t.Fatalf("preview offset %v outside [-100, 400]", f.Offset)
		}
	}
}

func TestPreview_SetMessageRestartsLoop(t *testing.T) {
	p := testPreview()
	p.opts.MinHz = 0.001
	p.opts.MaxHz = 1000
	p.SetMessage(100, 200, motion.DirectionLeft)
	defer p.Stop()
	time.Sleep(20 * time.Millisecond)
	first := p.CycleDuration()

	p.SetMessage(300, 200, motion.DirectionLeft)
	time.Sleep(20 * time.Millisecond)
	second := p.CycleDuration()

	if first == 0 || second == 0 {
		t.Fatalf("expected non-zero cycle durations, got %v and %v", first, second)
	}
	if second <= first {
		t.Errorf("longer text should sweep longer, got %v then %v", first, second)
	}
}

func TestPreview_CycleDurationMatchesSpeed(t *testing.T) {
	p := testPreview()
	p.opts.MinHz = 0.001
	p.opts.MaxHz = 1000
	p.SetMessage(200, 200, motion.DirectionLeft)
	defer p.Stop()
	time.Sleep(20 * time.Millisecond)

	// (400 + 200) px at 200 px/s with a wide-open safety band.
	if got := p.CycleDuration(); got != 3*time.Second {
		t.Errorf("expected 3s cycle, got %v", got)
	}
}

func TestPreview_StopResetsAndRevives(t *testing.T) {
	p := testPreview()
	p.SetMessage(100, 2000, motion.DirectionLeft)
	time.Sleep(50 * time.Millisecond)

	p.Stop()
	p.Stop()
	if off := p.Offset(); off != 400 {
		t.Errorf("expected offset back at start edge 400 after stop, got %v", off)
	}

	p.SetMessage(100, 2000, motion.DirectionLeft)
	defer p.Stop()
	time.Sleep(50 * time.Millisecond)
	if off := p.Offset(); off == 400 {
		t.Error("expected preview to resume after stop")
	}
}

func TestPreview_SpeedCorrectedIntoBand(t *testing.T) {
	p := testPreview()
	p.SetMessage(100, 2000, motion.DirectionLeft)
	defer p.Stop()

	// 2000 px/s over 500 px repeats at 4 Hz, below the 15 Hz band edge.
	// The effective speed must land exactly on the edge: 15 Hz * 500 px.
	if got := p.Speed(); got != 7500 {
		t.Errorf("expected corrected speed 7500, got %v", got)
	}

	p.opts.MinHz = 0.001
	p.opts.MaxHz = 1000
	p.SetMessage(100, 2000, motion.DirectionLeft)
	if got := p.Speed(); got != 2000 {
		t.Errorf("expected in-band speed kept at 2000, got %v", got)
	}
}

func TestPreview_ZeroSpeedFallsBackToBase(t *testing.T) {
	p := testPreview()
	p.opts.MinHz = 0.001
	p.opts.MaxHz = 1000
	p.SetMessage(200, 0, motion.DirectionRight)
	defer p.Stop()
	time.Sleep(20 * time.Millisecond)

	if got := p.CycleDuration(); got != 3*time.Second {
		t.Errorf("expected base-speed 3s cycle, got %v", got)
	}
}
