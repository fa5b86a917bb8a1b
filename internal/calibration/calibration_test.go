package calibration

import (
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/pov_wand/internal/motion"
)

type recordingHaptics struct {
	mu        sync.Mutex
	ticks     int
	successes int
	warnings  int
}

func (r *recordingHaptics) Tick() {
	r.mu.Lock()
	r.ticks++
	r.mu.Unlock()
}
func (r *recordingHaptics) Success() {
	r.mu.Lock()
	r.successes++
	r.mu.Unlock()
}
func (r *recordingHaptics) Warning() {
	r.mu.Lock()
	r.warnings++
	r.mu.Unlock()
}
func (r *recordingHaptics) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks, r.successes, r.warnings
}

func testOptions() Options {
	return Options{
		Duration:          time.Second,
		SamplesNeeded:     10,
		VelocityThreshold: 0.5,
		DefaultDirection:  motion.DirectionRight,
		MetronomeInterval: 500 * time.Millisecond,
		TempoThrottle:     500 * time.Millisecond,
		SlowThreshold:     2.0,
		FastThreshold:     8.0,
	}
}

func TestClassifyTempo_Boundaries(t *testing.T) {
	cases := []struct {
		velocity float64
		want     Tempo
	}{
		{1.99, TempoTooSlow},
		{2.0, TempoOK}, // threshold edge closed on the OK side
		{5.0, TempoOK},
		{8.0, TempoOK}, // threshold edge closed on the OK side
		{8.01, TempoTooFast},
	}
	for _, c := range cases {
		if got := ClassifyTempo(c.velocity, 2.0, 8.0); got != c.want {
			t.Errorf("ClassifyTempo(%v): expected %s, got %s", c.velocity, c.want, got)
		}
	}
}

func TestController_EarlyCompletion(t *testing.T) {
	hap := &recordingHaptics{}
	c := New(hap, testOptions())
	c.Start()

	// Ten samples of 1.0 (above the 0.5 threshold) complete calibration
	// immediately, well before the 1s timeout.
	for i := 0; i < 10; i++ {
		c.AddSample(1.0, motion.DirectionLeft)
	}

	st := c.State()
	if !st.Calibrated || st.Calibrating {
		t.Fatalf("expected calibrated state, got %+v", st)
	}
	if st.Progress != 1 {
		t.Errorf("expected progress 1, got %v", st.Progress)
	}
	if st.Data == nil {
		t.Fatal("expected calibration data")
	}
	if st.Data.Speed != 1.0 {
		t.Errorf("expected settled speed 1.0, got %v", st.Data.Speed)
	}
	if st.Data.Direction != motion.DirectionLeft {
		t.Errorf("expected direction left, got %s", st.Data.Direction)
	}
	if _, successes, _ := hap.counts(); successes != 1 {
		t.Errorf("expected exactly one success haptic, got %d", successes)
	}
}

func TestController_EarlyCompletionStationaryFallsBack(t *testing.T) {
	c := New(nil, testOptions())
	c.Start()
	for i := 0; i < 10; i++ {
		c.AddSample(1.0, motion.DirectionStationary)
	}
	if d := c.Data(); d == nil || d.Direction != motion.DirectionRight {
		t.Errorf("expected stationary trigger to fall back to right, got %+v", d)
	}
}

func TestController_TimeoutCompletion(t *testing.T) {
	opts := testOptions()
	opts.Duration = 50 * time.Millisecond
	c := New(nil, opts)
	c.Start()

	// Too few samples and all below threshold: only the timeout completes.
	c.AddSample(0.1, motion.DirectionStationary)
	c.AddSample(0.2, motion.DirectionStationary)

	time.Sleep(120 * time.Millisecond)

	st := c.State()
	if !st.Calibrated {
		t.Fatal("expected timeout to complete calibration")
	}
	if st.Data == nil {
		t.Fatal("expected calibration data from timeout path")
	}
	if st.Data.Direction != motion.DirectionRight {
		t.Errorf("expected direction defaulted to right, got %s", st.Data.Direction)
	}
	want := (0.1 + 0.2) / 2
	if diff := st.Data.Speed - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected speed %v, got %v", want, st.Data.Speed)
	}
}

func TestController_TimeoutWithNoSamples(t *testing.T) {
	opts := testOptions()
	opts.Duration = 40 * time.Millisecond
	c := New(nil, opts)
	c.Start()
	time.Sleep(100 * time.Millisecond)

	if d := c.Data(); d == nil || d.Speed != 0 || d.Direction != motion.DirectionRight {
		t.Errorf("expected zero-speed right-direction data, got %+v", d)
	}
}

func TestController_StartWhileCalibratingIsNoop(t *testing.T) {
	c := New(nil, testOptions())
	c.Start()
	for i := 0; i < 5; i++ {
		c.AddSample(1.0, motion.DirectionLeft)
	}
	c.Start() // must not clear accumulated samples
	for i := 0; i < 5; i++ {
		c.AddSample(1.0, motion.DirectionLeft)
	}
	if st := c.State(); !st.Calibrated {
		t.Error("expected completion from 10 total samples; redundant Start must not reset the run")
	}
}

func TestController_AddSampleOutsideCalibrationIsNoop(t *testing.T) {
	c := New(nil, testOptions())
	c.AddSample(5.0, motion.DirectionLeft)
	if st := c.State(); st.Calibrating || st.Calibrated || st.Progress != 0 {
		t.Errorf("expected idle state, got %+v", st)
	}
}

func TestController_StopCalibrationProducesNoData(t *testing.T) {
	c := New(nil, testOptions())
	c.Start()
	c.AddSample(1.0, motion.DirectionLeft)
	c.StopCalibration()

	st := c.State()
	if st.Calibrating || st.Calibrated {
		t.Errorf("expected idle after stop, got %+v", st)
	}
	if st.Data != nil {
		t.Error("stop must not produce calibration data")
	}

	// The cancelled run's timeout must never fire afterwards.
	time.Sleep(1100 * time.Millisecond)
	if d := c.Data(); d != nil {
		t.Error("stale timeout produced data after stop")
	}
}

func TestController_ProgressTracksSamples(t *testing.T) {
	c := New(nil, testOptions())
	c.Start()
	c.AddSample(0.1, motion.DirectionStationary)
	if p := c.State().Progress; p != 0.1 {
		t.Errorf("expected progress 0.1 after one sample, got %v", p)
	}
	for i := 0; i < 30; i++ {
		c.AddSample(0.1, motion.DirectionStationary) // below threshold, never completes early
	}
	if p := c.State().Progress; p != 1 {
		t.Errorf("expected progress capped at 1, got %v", p)
	}
}

func TestController_MetronomeTicksDuringCalibration(t *testing.T) {
	hap := &recordingHaptics{}
	opts := testOptions()
	opts.Duration = 300 * time.Millisecond
	opts.MetronomeInterval = 100 * time.Millisecond
	c := New(hap, opts)
	c.Start()
	time.Sleep(400 * time.Millisecond)

	ticks, successes, _ := hap.counts()
	// Immediate tick plus two to three periodic ones before completion.
	if ticks < 2 {
		t.Errorf("expected at least 2 metronome ticks, got %d", ticks)
	}
	if successes != 1 {
		t.Errorf("expected one completion haptic, got %d", successes)
	}
	// No further ticks after completion.
	time.Sleep(250 * time.Millisecond)
	after, _, _ := hap.counts()
	if after != ticks {
		t.Errorf("metronome kept ticking after completion: %d -> %d", ticks, after)
	}
}

func TestController_MetronomeDisabled(t *testing.T) {
	hap := &recordingHaptics{}
	opts := testOptions()
	opts.Duration = 100 * time.Millisecond
	opts.MetronomeInterval = 20 * time.Millisecond
	c := New(hap, opts)
	c.SetMetronomeEnabled(false)
	c.Start()
	time.Sleep(200 * time.Millisecond)

	if ticks, _, _ := hap.counts(); ticks != 0 {
		t.Errorf("expected no metronome ticks when disabled, got %d", ticks)
	}
}

func TestController_UpdateTempoNotifiesOnChangeOnly(t *testing.T) {
	c := New(nil, testOptions())
	c.Start()
	for i := 0; i < 10; i++ {
		c.AddSample(5.0, motion.DirectionLeft) // completes with tempo OK
	}

	var broadcasts []State
	c.Subscribe("t", func(s State) { broadcasts = append(broadcasts, s) })

	c.UpdateTempo(5.0) // still OK: no broadcast
	c.UpdateTempo(6.0) // still OK: no broadcast
	if len(broadcasts) != 0 {
		t.Fatalf("expected no broadcasts while classification unchanged, got %d", len(broadcasts))
	}

	c.UpdateTempo(9.0) // OK -> too-fast
	if len(broadcasts) != 1 {
		t.Fatalf("expected 1 broadcast on change, got %d", len(broadcasts))
	}
	if broadcasts[0].Tempo != TempoTooFast {
		t.Errorf("expected too-fast, got %s", broadcasts[0].Tempo)
	}

	c.UpdateTempo(1.0) // too-fast -> too-slow
	if len(broadcasts) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(broadcasts))
	}
}

func TestController_TempoHapticThrottled(t *testing.T) {
	hap := &recordingHaptics{}
	opts := testOptions()
	opts.TempoThrottle = 200 * time.Millisecond
	c := New(hap, opts)
	c.Start()
	for i := 0; i < 10; i++ {
		c.AddSample(5.0, motion.DirectionLeft)
	}

	// Rapid alternation changes classification every call, but the haptic
	// must fire at most once per throttle window.
	c.UpdateTempo(9.0)
	c.UpdateTempo(1.0)
	c.UpdateTempo(9.0)
	if _, _, warnings := hap.counts(); warnings != 1 {
		t.Fatalf("expected 1 throttled warning haptic, got %d", warnings)
	}

	time.Sleep(250 * time.Millisecond)
	c.UpdateTempo(1.0)
	if _, _, warnings := hap.counts(); warnings != 2 {
		t.Errorf("expected next warning after throttle window, got %d", warnings)
	}
}

func TestController_UpdateTempoBeforeCalibrationIsNoop(t *testing.T) {
	c := New(nil, testOptions())
	var broadcasts int
	c.Subscribe("t", func(State) { broadcasts++ })
	c.UpdateTempo(9.0)
	if broadcasts != 0 {
		t.Errorf("expected no tempo broadcasts before calibration, got %d", broadcasts)
	}
}

func TestController_RecalibrateReplacesData(t *testing.T) {
	c := New(nil, testOptions())
	c.Start()
	for i := 0; i < 10; i++ {
		c.AddSample(1.0, motion.DirectionLeft)
	}
	first := c.Data()

	c.Recalibrate()
	if st := c.State(); !st.Calibrating || st.Calibrated {
		t.Fatalf("expected fresh calibrating state, got %+v", st)
	}
	for i := 0; i < 10; i++ {
		c.AddSample(3.0, motion.DirectionRight)
	}
	second := c.Data()
	if second == nil || second == first {
		t.Fatal("expected new calibration data")
	}
	if second.Speed != 3.0 || second.Direction != motion.DirectionRight {
		t.Errorf("unexpected recalibrated data: %+v", second)
	}
}

func TestController_ResetClearsEverything(t *testing.T) {
	c := New(nil, testOptions())
	c.Start()
	for i := 0; i < 10; i++ {
		c.AddSample(1.0, motion.DirectionLeft)
	}
	c.Reset()
	c.Reset() // idempotent

	st := c.State()
	if st.Calibrating || st.Calibrated || st.Data != nil || st.Progress != 0 {
		t.Errorf("expected fully idle state after reset, got %+v", st)
	}
}

func TestController_BroadcastsFullSnapshots(t *testing.T) {
	c := New(nil, testOptions())
	var states []State
	c.Subscribe("t", func(s State) { states = append(states, s) })

	c.Start()
	c.AddSample(0.1, motion.DirectionStationary)
	c.StopCalibration()

	if len(states) != 3 {
		t.Fatalf("expected 3 broadcasts (start, sample, stop), got %d", len(states))
	}
	if !states[0].Calibrating {
		t.Error("first broadcast should show calibrating")
	}
	if states[1].Progress != 0.1 {
		t.Errorf("second broadcast should show progress 0.1, got %v", states[1].Progress)
	}
	if states[2].Calibrating {
		t.Error("final broadcast should show idle")
	}
}
