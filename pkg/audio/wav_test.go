package audio_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pulpa-work/pulpa/pkg/audio"
)

func TestEncodeWAVHeader(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	out, err := audio.EncodeWAV(pcm, audio.Format{SampleRate: 48000, Channels: 1})
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if len(out) != 44+len(pcm) {
		t.Fatalf("blob length = %d, want %d", len(out), 44+len(pcm))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE magic: %q %q", out[0:4], out[8:12])
	}
	if got := binary.LittleEndian.Uint16(out[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 48000 {
		t.Errorf("sample rate = %d, want 48000", got)
	}
	if got := binary.LittleEndian.Uint32(out[28:32]); got != 96000 {
		t.Errorf("byte rate = %d, want 96000", got)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data chunk size = %d, want %d", got, len(pcm))
	}
	if !bytes.Equal(out[44:], pcm) {
		t.Error("payload does not match input PCM")
	}
}

func TestEncodeWAVRejectsInvalidFormat(t *testing.T) {
	if _, err := audio.EncodeWAV(nil, audio.Format{SampleRate: 0, Channels: 1}); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := audio.EncodeWAV(nil, audio.Format{SampleRate: 48000, Channels: 0}); err == nil {
		t.Error("expected error for zero channels")
	}
}
