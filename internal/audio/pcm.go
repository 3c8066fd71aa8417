package audio

import (
	"encoding/binary"
	"math"
)

// FrameDecoder turns little-endian float32 frames into samples. Frames need not
// align to 4 bytes; a trailing partial sample is held for the next frame.
type FrameDecoder struct {
	partial []byte
}

// Decode returns the complete samples available after appending frame.
func (d *FrameDecoder) Decode(frame []byte) []float32 {
	data := frame
	if len(d.partial) > 0 {
		data = append(d.partial, frame...)
		d.partial = nil
	}

	n := len(data) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}

	if rem := len(data) % 4; rem > 0 {
		d.partial = append([]byte(nil), data[n*4:]...)
	}
	return samples
}

// Pending is the number of bytes held from an incomplete sample.
func (d *FrameDecoder) Pending() int { return len(d.partial) }

// EncodeFloat32LE serializes samples as little-endian float32.
func EncodeFloat32LE(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

// Float32ToLinear16 converts samples in [-1, 1] to 16-bit little-endian PCM,
// clamping out-of-range values.
func Float32ToLinear16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*math.MaxInt16)))
	}
	return out
}

// Linear16ToFloat32 converts 16-bit little-endian PCM to samples in [-1, 1].
// A trailing odd byte is ignored.
func Linear16ToFloat32(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		out[i] = float32(sample) / math.MaxInt16
	}
	return out
}
