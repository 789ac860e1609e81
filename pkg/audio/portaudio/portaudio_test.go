package portaudio

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pulpa-work/pulpa/pkg/audio"
)

func newTestStream(sliceLen int) *stream {
	return &stream{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		format:   audio.Format{SampleRate: 48000, Channels: 1},
		frames:   make(chan audio.Frame, 16),
		analyzer: &levelAnalyzer{},
		sliceLen: sliceLen,
		started:  time.Now(),
	}
}

func TestOnSamplesBuffersUntilSliceFull(t *testing.T) {
	s := newTestStream(4)

	s.onSamples([]int16{1, 2})
	select {
	case f := <-s.frames:
		t.Fatalf("frame emitted before slice was full: %d bytes", len(f.Data))
	default:
	}

	s.onSamples([]int16{3, 4})
	select {
	case f := <-s.frames:
		if len(f.Data) != 8 {
			t.Errorf("frame has %d bytes, want 8", len(f.Data))
		}
	default:
		t.Fatal("no frame emitted after slice filled")
	}
}

func TestFlushPendingEmitsPartialSlice(t *testing.T) {
	s := newTestStream(1000)

	s.onSamples([]int16{10, 20, 30})
	select {
	case <-s.frames:
		t.Fatal("partial slice emitted before flush")
	default:
	}

	s.flushPending()

	select {
	case f := <-s.frames:
		want := int16ToLE([]int16{10, 20, 30})
		if len(f.Data) != len(want) {
			t.Fatalf("tail frame has %d bytes, want %d", len(f.Data), len(want))
		}
		for i := range want {
			if f.Data[i] != want[i] {
				t.Fatalf("tail frame byte %d = %#x, want %#x", i, f.Data[i], want[i])
			}
		}
	default:
		t.Fatal("flush emitted no frame for buffered samples")
	}

	if len(s.pending) != 0 {
		t.Errorf("pending not cleared after flush: %d samples", len(s.pending))
	}
}

func TestFlushPendingWithNothingBufferedIsSilent(t *testing.T) {
	s := newTestStream(1000)
	s.flushPending()
	select {
	case f := <-s.frames:
		t.Fatalf("empty flush emitted a %d-byte frame", len(f.Data))
	default:
	}
}
