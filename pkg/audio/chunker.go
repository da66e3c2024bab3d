package audio

import (
	"fmt"
	"math"
	"time"
)

// Chunker assembles raw PCM frames of arbitrary size into fixed-duration
// [Chunk] values. A capture callback pushes whatever frame sizes the device
// produces; complete chunks are returned as soon as enough samples have
// accumulated, each carrying its RMS loudness and duration.
//
// A Chunker is owned by the capture goroutine and is not safe for concurrent
// use.
type Chunker struct {
	sampleRate int
	channels   int
	chunkBytes int
	buf        []byte
}

// NewChunker creates a Chunker producing chunks of chunkDuration audio at the
// given sample rate and channel count. Returns an error when the parameters
// describe an empty chunk.
func NewChunker(sampleRate, channels int, chunkDuration time.Duration) (*Chunker, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: sample rate %d must be positive", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("audio: channel count %d must be positive", channels)
	}
	frames := int(float64(sampleRate) * chunkDuration.Seconds())
	if frames <= 0 {
		return nil, fmt.Errorf("audio: chunk duration %v too short for %d Hz", chunkDuration, sampleRate)
	}
	return &Chunker{
		sampleRate: sampleRate,
		channels:   channels,
		chunkBytes: frames * channels * (bitsPerSample / 8),
	}, nil
}

// Push appends a PCM frame to the internal buffer and returns every complete
// chunk it now holds, in capture order. Most calls return nil; a frame larger
// than the chunk size can yield several chunks at once.
func (c *Chunker) Push(frame []byte) []Chunk {
	c.buf = append(c.buf, frame...)

	var chunks []Chunk
	for len(c.buf) >= c.chunkBytes {
		pcm := make([]byte, c.chunkBytes)
		copy(pcm, c.buf[:c.chunkBytes])
		c.buf = c.buf[c.chunkBytes:]

		chunks = append(chunks, c.makeChunk(pcm))
	}
	if len(chunks) > 0 && len(c.buf) == 0 {
		// Release the drained backing array instead of pinning it.
		c.buf = nil
	}
	return chunks
}

// Flush returns whatever partial chunk is buffered, or false when the buffer
// is empty. Called when capture stops so trailing audio is not lost.
func (c *Chunker) Flush() (Chunk, bool) {
	if len(c.buf) == 0 {
		return Chunk{}, false
	}
	pcm := c.buf
	c.buf = nil
	return c.makeChunk(pcm), true
}

func (c *Chunker) makeChunk(pcm []byte) Chunk {
	return Chunk{
		PCM:        pcm,
		SampleRate: c.sampleRate,
		Channels:   c.channels,
		Duration:   pcmDuration(len(pcm), c.sampleRate, c.channels),
		RMS:        ComputeRMS(pcm),
		Captured:   time.Now(),
	}
}

// ComputeRMS returns the root-mean-square amplitude of 16-bit little-endian
// PCM, normalised so a full-scale signal measures 1.0. An empty or odd-length
// tail contributes nothing.
func ComputeRMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sample := int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8)
		f := float64(sample) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(n))
}

// pcmDuration converts a PCM byte count to its play time.
func pcmDuration(bytes, sampleRate, channels int) time.Duration {
	bytesPerSecond := sampleRate * channels * (bitsPerSample / 8)
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(float64(bytes) / float64(bytesPerSecond) * float64(time.Second))
}
