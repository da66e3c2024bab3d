package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

// pcmSine generates n samples of a full-scale sine wave as 16-bit LE PCM.
func pcmSine(n int, amplitude float64) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := amplitude * math.Sin(2*math.Pi*float64(i)/64) * 32767
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

func TestNewChunker_InvalidParams(t *testing.T) {
	t.Parallel()

	if _, err := NewChunker(0, 1, time.Second); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := NewChunker(16000, 0, time.Second); err == nil {
		t.Error("expected error for zero channels")
	}
	if _, err := NewChunker(16000, 1, 0); err == nil {
		t.Error("expected error for zero duration")
	}
}

func TestChunker_AssemblesFixedChunks(t *testing.T) {
	t.Parallel()

	c, err := NewChunker(16000, 1, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	// 16000 samples/s mono 16-bit → 32000 bytes per chunk. Push in uneven
	// frames and expect chunks only once a full second has accumulated.
	frame := make([]byte, 12_800)
	var chunks []Chunk
	for i := 0; i < 5; i++ { // 64000 bytes total → exactly 2 chunks
		chunks = append(chunks, c.Push(frame)...)
	}

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	for _, ch := range chunks {
		if len(ch.PCM) != 32000 {
			t.Errorf("chunk has %d bytes, want 32000", len(ch.PCM))
		}
		if ch.Duration != time.Second {
			t.Errorf("chunk duration %v, want 1s", ch.Duration)
		}
	}
}

func TestChunker_OversizedFrameYieldsMultipleChunks(t *testing.T) {
	t.Parallel()

	c, err := NewChunker(16000, 1, 250*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	// One second of audio in a single frame → four 250 ms chunks.
	chunks := c.Push(make([]byte, 32000))
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}
}

func TestChunker_FlushReturnsPartial(t *testing.T) {
	t.Parallel()

	c, err := NewChunker(16000, 1, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if got := c.Push(make([]byte, 16000)); got != nil {
		t.Fatalf("partial push produced %d chunks", len(got))
	}
	tail, ok := c.Flush()
	if !ok {
		t.Fatal("expected a partial chunk from Flush")
	}
	if tail.Duration != 500*time.Millisecond {
		t.Errorf("partial duration %v, want 500ms", tail.Duration)
	}
	if _, ok := c.Flush(); ok {
		t.Error("second Flush should be empty")
	}
}

func TestComputeRMS(t *testing.T) {
	t.Parallel()

	if got := ComputeRMS(nil); got != 0 {
		t.Errorf("RMS of empty PCM = %v, want 0", got)
	}
	if got := ComputeRMS(make([]byte, 640)); got != 0 {
		t.Errorf("RMS of digital silence = %v, want 0", got)
	}

	// A full-scale sine has RMS ≈ 1/√2.
	loud := ComputeRMS(pcmSine(640, 1.0))
	if math.Abs(loud-1/math.Sqrt2) > 0.01 {
		t.Errorf("full-scale sine RMS = %v, want ≈ %v", loud, 1/math.Sqrt2)
	}

	// Quiet audio stays well under the speech threshold used downstream.
	quiet := ComputeRMS(pcmSine(640, 0.001))
	if quiet >= 0.012 {
		t.Errorf("quiet sine RMS = %v, expected below 0.012", quiet)
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 320)
	wav := EncodeWAV(pcm, 16000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate field = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size field = %d, want %d", got, len(pcm))
	}
}
