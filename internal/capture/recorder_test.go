package capture_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pulpa-work/pulpa/internal/capture"
	"github.com/pulpa-work/pulpa/pkg/audio"
	audiomock "github.com/pulpa-work/pulpa/pkg/audio/mock"
)

// collector gathers delivered WAV blobs behind a mutex.
type collector struct {
	mu    sync.Mutex
	blobs [][]byte
}

func (c *collector) add(wav []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blobs = append(c.blobs, wav)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blobs)
}

func (c *collector) first() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.blobs) == 0 {
		return nil
	}
	return c.blobs[0]
}

func newTestRecorder(dev *audiomock.Device, out *collector, maxTurn time.Duration) *capture.Recorder {
	return capture.NewRecorder(dev, capture.Config{
		SampleRate:       48000,
		Channels:         1,
		TimeSlice:        10 * time.Millisecond,
		SilenceThreshold: 0.3,
		SilenceDuration:  time.Minute,
		MaxTurnDuration:  maxTurn,
		OnAudio:          out.add,
	})
}

func TestRecorderDeliversWAVOnStop(t *testing.T) {
	t.Parallel()

	dev := &audiomock.Device{}
	out := &collector{}
	rec := newTestRecorder(dev, out, time.Minute)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !rec.Recording() {
		t.Fatal("Recording() = false after Start")
	}

	pcm := bytes.Repeat([]byte{0x01, 0x02}, 480)
	dev.OpenStream.PushFrame(audio.Frame{Data: pcm, SampleRate: 48000, Channels: 1})
	dev.OpenStream.PushFrame(audio.Frame{Data: pcm, SampleRate: 48000, Channels: 1})

	rec.Stop(true)

	if got := out.count(); got != 1 {
		t.Fatalf("delivered %d blobs, want 1", got)
	}
	wav := out.first()
	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("blob does not start with RIFF header: % x", wav[:4])
	}
	if want := 44 + 2*len(pcm); len(wav) != want {
		t.Errorf("blob length = %d, want %d", len(wav), want)
	}
	if rec.Recording() {
		t.Error("Recording() = true after Stop")
	}
}

func TestRecorderStopIsIdempotent(t *testing.T) {
	t.Parallel()

	dev := &audiomock.Device{}
	out := &collector{}
	rec := newTestRecorder(dev, out, time.Minute)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	dev.OpenStream.PushFrame(audio.Frame{Data: []byte{1, 2, 3, 4}, SampleRate: 48000, Channels: 1})
	stream := dev.OpenStream

	rec.Stop(true)
	rec.Stop(true)
	rec.Stop(false)

	if got := out.count(); got != 1 {
		t.Errorf("delivered %d blobs after repeated Stop, want 1", got)
	}
	if got := stream.CloseCount(); got != 1 {
		t.Errorf("stream closed %d times, want 1", got)
	}
}

func TestRecorderDiscardsWithoutProcess(t *testing.T) {
	t.Parallel()

	dev := &audiomock.Device{}
	out := &collector{}
	rec := newTestRecorder(dev, out, time.Minute)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	dev.OpenStream.PushFrame(audio.Frame{Data: []byte{1, 2}, SampleRate: 48000, Channels: 1})

	rec.Stop(false)

	if got := out.count(); got != 0 {
		t.Errorf("delivered %d blobs with process=false, want 0", got)
	}
}

func TestRecorderSkipsDeliveryWithoutChunks(t *testing.T) {
	t.Parallel()

	dev := &audiomock.Device{}
	out := &collector{}
	rec := newTestRecorder(dev, out, time.Minute)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rec.Stop(true)

	if got := out.count(); got != 0 {
		t.Errorf("delivered %d blobs without captured audio, want 0", got)
	}
}

func TestRecorderRejectsConcurrentStart(t *testing.T) {
	t.Parallel()

	dev := &audiomock.Device{}
	out := &collector{}
	rec := newTestRecorder(dev, out, time.Minute)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer rec.Stop(false)

	if err := rec.Start(context.Background()); !errors.Is(err, capture.ErrAlreadyRecording) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRecording", err)
	}
}

// gatedDevice blocks Open until the gate closes, so a test can hold one
// Start mid-open while issuing another.
type gatedDevice struct {
	*audiomock.Device
	gate chan struct{}
}

func (d *gatedDevice) Open(ctx context.Context, cfg audio.StreamConfig) (audio.Stream, error) {
	<-d.gate
	return d.Device.Open(ctx, cfg)
}

func TestRecorderRejectsStartWhileOpening(t *testing.T) {
	t.Parallel()

	dev := &gatedDevice{Device: &audiomock.Device{}, gate: make(chan struct{})}
	out := &collector{}
	rec := capture.NewRecorder(dev, capture.Config{
		SampleRate:       48000,
		Channels:         1,
		TimeSlice:        10 * time.Millisecond,
		SilenceThreshold: 0.3,
		SilenceDuration:  time.Minute,
		MaxTurnDuration:  time.Minute,
		OnAudio:          out.add,
	})

	firstDone := make(chan error, 1)
	go func() { firstDone <- rec.Start(context.Background()) }()

	// Let the first Start reach the blocked device open.
	time.Sleep(20 * time.Millisecond)

	if err := rec.Start(context.Background()); !errors.Is(err, capture.ErrAlreadyRecording) {
		t.Errorf("Start() during open error = %v, want ErrAlreadyRecording", err)
	}

	close(dev.gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	defer rec.Stop(false)

	if got := len(dev.OpenCalls); got != 1 {
		t.Errorf("device opened %d times, want 1", got)
	}
}

func TestRecorderEnforcesMaxTurnDuration(t *testing.T) {
	t.Parallel()

	dev := &audiomock.Device{}
	out := &collector{}
	rec := newTestRecorder(dev, out, 150*time.Millisecond)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	dev.OpenStream.PushFrame(audio.Frame{Data: []byte{1, 2, 3, 4}, SampleRate: 48000, Channels: 1})

	deadline := time.After(2 * time.Second)
	for out.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("ceiling auto-stop never delivered audio")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	if rec.Recording() {
		t.Error("Recording() = true after ceiling auto-stop")
	}
}

func TestRecorderRequestPermissionDenied(t *testing.T) {
	t.Parallel()

	dev := &audiomock.Device{OpenErr: audio.ErrAccessDenied}
	out := &collector{}
	rec := newTestRecorder(dev, out, time.Minute)

	err := rec.RequestPermission(context.Background())
	if !errors.Is(err, audio.ErrAccessDenied) {
		t.Fatalf("RequestPermission() error = %v, want ErrAccessDenied", err)
	}
}

func TestRecorderRequestPermissionReleasesProbe(t *testing.T) {
	t.Parallel()

	dev := &audiomock.Device{}
	out := &collector{}
	rec := newTestRecorder(dev, out, time.Minute)

	if err := rec.RequestPermission(context.Background()); err != nil {
		t.Fatalf("RequestPermission() error = %v", err)
	}
	if got := dev.OpenStream.CloseCount(); got != 1 {
		t.Errorf("probe stream closed %d times, want 1", got)
	}
}
