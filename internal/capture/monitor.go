// Package capture owns the microphone for the duration of one voice turn: it
// accumulates encoder chunks, tracks elapsed recording time, and watches the
// live signal level to end the turn automatically after sustained silence or
// a hard duration ceiling.
package capture

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pulpa-work/pulpa/pkg/audio"
)

// speechConfirmSamples is the number of consecutive above-threshold samples
// required to confirm speech. Lone spikes never confirm.
const speechConfirmSamples = 3

// defaultSampleInterval approximates a display-refresh sampling cadence.
const defaultSampleInterval = 16 * time.Millisecond

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// SilenceThreshold is the smoothed level (0..1) a sample must exceed to
	// count as speech.
	SilenceThreshold float64

	// SilenceDuration is how long silence must persist after confirmed
	// speech before OnAutoStop fires.
	SilenceDuration time.Duration

	// SampleInterval is the sampling cadence. Zero picks the default.
	SampleInterval time.Duration

	// OnLevel, if set, receives every smoothed level sample.
	OnLevel func(level float64)

	// OnAutoStop is invoked exactly once per Start when sustained silence is
	// detected. Required.
	OnAutoStop func()

	// Logger for detection events. Nil picks slog.Default.
	Logger *slog.Logger
}

// Monitor derives a smoothed energy level from an audio.Analyzer and decides
// when sustained silence should end the current recording.
//
// Detection is debounced: speech is confirmed only after three consecutive
// above-threshold samples, and any below-threshold sample decrements the hit
// counter (floored at zero). Once speech has been confirmed, a silence timer
// starts on the next below-threshold sample; re-confirmed speech cancels it.
type Monitor struct {
	cfg      MonitorConfig
	logger   *slog.Logger
	analyzer audio.Analyzer

	mu          sync.Mutex
	prevLevel   float64
	hits        int
	confirmed   bool
	silenceTmr  *time.Timer
	autoStopped bool
	stopped     bool
	done        chan struct{}
}

// NewMonitor returns an unstarted Monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = defaultSampleInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{cfg: cfg, logger: logger}
}

// Start begins the sampling loop over the given analyzer. The monitor borrows
// the analyzer; the caller keeps ownership of the underlying stream.
func (m *Monitor) Start(analyzer audio.Analyzer) {
	m.mu.Lock()
	m.analyzer = analyzer
	m.prevLevel = 0
	m.hits = 0
	m.confirmed = false
	m.autoStopped = false
	m.stopped = false
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go m.loop(done)
}

func (m *Monitor) loop(done chan struct{}) {
	t := time.NewTicker(m.cfg.SampleInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			m.sample()
		}
	}
}

// sample processes one analyzer reading. Zero-length or all-zero readings are
// skipped rather than treated as silence; they appear mid-teardown and must
// not trigger a spurious auto-stop.
func (m *Monitor) sample() {
	m.mu.Lock()
	analyzer := m.analyzer
	m.mu.Unlock()
	if analyzer == nil {
		return
	}

	bins := analyzer.FrequencyData()
	if len(bins) == 0 {
		return
	}
	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	if sum == 0 {
		return
	}

	level := float64(sum) / float64(len(bins)) / 255

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	smoothed := (level + m.prevLevel) / 2
	m.prevLevel = smoothed

	if smoothed > m.cfg.SilenceThreshold {
		if m.hits < speechConfirmSamples {
			m.hits++
		}
		if m.hits >= speechConfirmSamples {
			if !m.confirmed {
				m.confirmed = true
				m.logger.Debug("speech confirmed", "level", smoothed)
			}
			if m.silenceTmr != nil {
				m.silenceTmr.Stop()
				m.silenceTmr = nil
			}
		}
	} else {
		if m.hits > 0 {
			m.hits--
		}
		if m.confirmed && m.silenceTmr == nil {
			m.silenceTmr = time.AfterFunc(m.cfg.SilenceDuration, m.onSilenceElapsed)
		}
	}

	onLevel := m.cfg.OnLevel
	m.mu.Unlock()

	if onLevel != nil {
		onLevel(smoothed)
	}
}

// onSilenceElapsed fires when the silence window runs out without speech
// being re-confirmed.
func (m *Monitor) onSilenceElapsed() {
	m.mu.Lock()
	if m.stopped || m.autoStopped {
		m.mu.Unlock()
		return
	}
	m.autoStopped = true
	m.silenceTmr = nil
	m.mu.Unlock()

	m.logger.Debug("silence detected, requesting auto-stop")
	m.cfg.OnAutoStop()
}

// Stop cancels the sampling loop and any pending silence timer. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	if m.silenceTmr != nil {
		m.silenceTmr.Stop()
		m.silenceTmr = nil
	}
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	m.analyzer = nil
	m.mu.Unlock()
}
