// Package audio provides the chunking primitives between a capture backend
// and the transcription pipeline: fixed-duration chunk assembly from raw PCM
// frames, per-chunk RMS loudness, and WAV encoding for upload to batch
// transcription APIs.
//
// The capture device itself (microphone, system loopback, remote stream) is
// an external collaborator — it only needs to deliver 16-bit little-endian
// signed PCM frames to a [Chunker].
package audio

import "time"

// bitsPerSample is fixed at 16 for the signed little-endian PCM this package
// works with.
const bitsPerSample = 16

// Chunk is one fixed-duration slice of captured audio, the atomic unit handed
// to transcription. RMS and Duration are computed at assembly time so the
// downstream boundary detector never has to touch the samples.
type Chunk struct {
	// PCM is 16-bit little-endian signed audio data.
	PCM []byte

	// SampleRate in Hz (e.g., 16000 for STT input).
	SampleRate int

	// Channels is the channel count of PCM. 1 for microphone capture.
	Channels int

	// Duration is the wall-clock time the chunk represents.
	Duration time.Duration

	// RMS is the root-mean-square amplitude of the chunk normalised to
	// [0, 1], where 1 corresponds to a full-scale 16-bit signal.
	RMS float64

	// Captured marks when the last frame of the chunk arrived.
	Captured time.Time
}

// Seconds returns the chunk duration as a float, convenient for feeding the
// boundary detector.
func (c Chunk) Seconds() float64 {
	return c.Duration.Seconds()
}
