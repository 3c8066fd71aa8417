// Package audio holds the streaming chunker and PCM helpers.
package audio

import (
	"errors"
	"time"
)

// Chunker accumulates streamed samples into fixed-size windows. It is not safe
// for concurrent use; each streaming session owns one.
type Chunker struct {
	chunkSize int
	overlap   int
	buf       []float32
	// carried counts leading samples of buf that were already emitted as the
	// tail of the previous chunk.
	carried int
}

// NewChunker sizes windows from a duration at the session's sample rate. overlap
// is the trailing window of each chunk kept as leading context for the next one.
func NewChunker(sampleRate int, chunkDuration, overlap time.Duration) (*Chunker, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	size := SamplesFor(sampleRate, chunkDuration)
	if size < 1 {
		return nil, errors.New("chunk duration too short for sample rate")
	}
	keep := SamplesFor(sampleRate, overlap)
	if keep < 0 || keep >= size {
		return nil, errors.New("overlap must be shorter than chunk duration")
	}
	return &Chunker{
		chunkSize: size,
		overlap:   keep,
		buf:       make([]float32, 0, size*2),
	}, nil
}

// SamplesFor converts a duration to a sample count at sampleRate.
func SamplesFor(sampleRate int, d time.Duration) int {
	return int(int64(sampleRate) * int64(d) / int64(time.Second))
}

// ChunkSize is the number of samples in a full chunk.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Len is the number of buffered samples, including carried overlap.
func (c *Chunker) Len() int { return len(c.buf) }

// Absorb appends samples and returns every full chunk now available, oldest first.
// Returned chunks do not alias the internal buffer.
func (c *Chunker) Absorb(samples []float32) [][]float32 {
	c.buf = append(c.buf, samples...)

	var chunks [][]float32
	for len(c.buf) >= c.chunkSize {
		chunk := make([]float32, c.chunkSize)
		copy(chunk, c.buf[:c.chunkSize])
		chunks = append(chunks, chunk)

		n := copy(c.buf, c.buf[c.chunkSize-c.overlap:])
		c.buf = c.buf[:n]
		c.carried = c.overlap
	}
	return chunks
}

// Flush returns whatever remains, even if shorter than a chunk, and empties the
// buffer. It returns nil when nothing beyond carried overlap is buffered.
func (c *Chunker) Flush() []float32 {
	defer c.Reset()
	if len(c.buf) <= c.carried {
		return nil
	}
	rest := make([]float32, len(c.buf))
	copy(rest, c.buf)
	return rest
}

// Reset drops all buffered samples.
func (c *Chunker) Reset() {
	c.buf = c.buf[:0]
	c.carried = 0
}
