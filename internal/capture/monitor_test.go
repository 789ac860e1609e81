package capture

import (
	"sync/atomic"
	"testing"
	"time"

	audiomock "github.com/pulpa-work/pulpa/pkg/audio/mock"
)

// newTestMonitor returns a started monitor whose sampling loop never ticks on
// its own, so tests drive sample() deterministically.
func newTestMonitor(t *testing.T, silence time.Duration, stops *atomic.Int32) (*Monitor, *audiomock.Analyzer) {
	t.Helper()
	analyzer := &audiomock.Analyzer{}
	m := NewMonitor(MonitorConfig{
		SilenceThreshold: 0.3,
		SilenceDuration:  silence,
		SampleInterval:   time.Hour,
		OnAutoStop:       func() { stops.Add(1) },
	})
	m.Start(analyzer)
	t.Cleanup(m.Stop)
	return m, analyzer
}

// loud yields a smoothed level well above the 0.3 test threshold within one
// sample; quiet decays below it after a few samples.
var (
	loud  = []byte{255, 255, 255, 255}
	quiet = []byte{3, 3, 3, 3}
)

func confirmSpeech(m *Monitor, analyzer *audiomock.Analyzer) {
	analyzer.SetFrequencyData(loud)
	for i := 0; i < speechConfirmSamples; i++ {
		m.sample()
	}
}

func drainToSilence(m *Monitor, analyzer *audiomock.Analyzer) {
	analyzer.SetFrequencyData(quiet)
	// Smoothing halves the level each sample; a handful of quiet samples
	// brings it under threshold and starts the silence timer.
	for i := 0; i < 10; i++ {
		m.sample()
	}
}

func TestMonitorAutoStopsAfterSustainedSilence(t *testing.T) {
	t.Parallel()

	var stops atomic.Int32
	m, analyzer := newTestMonitor(t, 20*time.Millisecond, &stops)

	confirmSpeech(m, analyzer)
	drainToSilence(m, analyzer)

	deadline := time.After(time.Second)
	for stops.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("auto-stop never fired after sustained silence")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Further silence must not fire again.
	drainToSilence(m, analyzer)
	time.Sleep(60 * time.Millisecond)
	if got := stops.Load(); got != 1 {
		t.Fatalf("auto-stop fired %d times, want exactly 1", got)
	}
}

func TestMonitorDebounceRejectsLoneSpike(t *testing.T) {
	t.Parallel()

	var stops atomic.Int32
	m, analyzer := newTestMonitor(t, 20*time.Millisecond, &stops)

	analyzer.SetFrequencyData(quiet)
	for i := 0; i < 5; i++ {
		m.sample()
	}
	// One isolated loud sample must not confirm speech.
	analyzer.SetFrequencyData(loud)
	m.sample()
	drainToSilence(m, analyzer)

	time.Sleep(60 * time.Millisecond)
	if got := stops.Load(); got != 0 {
		t.Fatalf("auto-stop fired %d times after a lone spike, want 0", got)
	}
}

func TestMonitorNoTimerBeforeSpeechConfirmed(t *testing.T) {
	t.Parallel()

	var stops atomic.Int32
	m, analyzer := newTestMonitor(t, 20*time.Millisecond, &stops)

	// A recording that is silent from the start never auto-stops.
	drainToSilence(m, analyzer)
	time.Sleep(60 * time.Millisecond)
	if got := stops.Load(); got != 0 {
		t.Fatalf("auto-stop fired %d times without confirmed speech, want 0", got)
	}
}

func TestMonitorSkipsEmptyReadings(t *testing.T) {
	t.Parallel()

	var stops atomic.Int32
	m, analyzer := newTestMonitor(t, 20*time.Millisecond, &stops)

	confirmSpeech(m, analyzer)

	// Mid-teardown the analyzer reports no data; those samples must be
	// skipped, not counted as silence.
	analyzer.SetFrequencyData(nil)
	for i := 0; i < 10; i++ {
		m.sample()
	}
	time.Sleep(60 * time.Millisecond)
	if got := stops.Load(); got != 0 {
		t.Fatalf("auto-stop fired %d times on empty readings, want 0", got)
	}
}

func TestMonitorSpeechCancelsPendingTimer(t *testing.T) {
	t.Parallel()

	var stops atomic.Int32
	m, analyzer := newTestMonitor(t, 50*time.Millisecond, &stops)

	confirmSpeech(m, analyzer)
	drainToSilence(m, analyzer)
	// Re-confirm speech before the window elapses.
	confirmSpeech(m, analyzer)

	time.Sleep(100 * time.Millisecond)
	if got := stops.Load(); got != 0 {
		t.Fatalf("auto-stop fired %d times despite resumed speech, want 0", got)
	}
}

func TestMonitorLevelsStayNormalized(t *testing.T) {
	t.Parallel()

	var levels []float64
	analyzer := &audiomock.Analyzer{}
	m := NewMonitor(MonitorConfig{
		SilenceThreshold: 0.3,
		SilenceDuration:  time.Second,
		SampleInterval:   time.Hour,
		OnLevel:          func(l float64) { levels = append(levels, l) },
		OnAutoStop:       func() {},
	})
	m.Start(analyzer)
	defer m.Stop()

	analyzer.SetFrequencyData(loud)
	for i := 0; i < 8; i++ {
		m.sample()
	}
	analyzer.SetFrequencyData(quiet)
	for i := 0; i < 8; i++ {
		m.sample()
	}

	if len(levels) != 16 {
		t.Fatalf("got %d level samples, want 16", len(levels))
	}
	for i, l := range levels {
		if l < 0 || l > 1 {
			t.Errorf("level[%d] = %v, want within [0, 1]", i, l)
		}
	}
	// First loud sample is smoothed against a zero previous level.
	if levels[0] >= levels[1] {
		t.Errorf("smoothing did not ramp up: levels[0]=%v levels[1]=%v", levels[0], levels[1])
	}
}

func TestMonitorStopIsIdempotentAndCancelsTimer(t *testing.T) {
	t.Parallel()

	var stops atomic.Int32
	m, analyzer := newTestMonitor(t, 20*time.Millisecond, &stops)

	confirmSpeech(m, analyzer)
	drainToSilence(m, analyzer)

	m.Stop()
	m.Stop()

	time.Sleep(60 * time.Millisecond)
	if got := stops.Load(); got != 0 {
		t.Fatalf("auto-stop fired %d times after Stop, want 0", got)
	}
}
