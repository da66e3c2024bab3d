package audio

import "encoding/binary"

// EncodeWAV wraps raw 16-bit little-endian PCM in a canonical 44-byte RIFF
// header. Batch transcription endpoints accept this directly as a .wav
// upload.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const headerSize = 44

	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	out := make([]byte, headerSize+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))

	copy(out[44:], pcm)
	return out
}

// WAV returns the chunk encoded as a WAV file.
func (c Chunk) WAV() []byte {
	return EncodeWAV(c.PCM, c.SampleRate, c.Channels)
}
