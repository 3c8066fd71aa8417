package audio

import (
	"math/rand"
	"testing"
	"time"
)

func ramp(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func newTestChunker(t *testing.T, sampleRate int, chunk, overlap time.Duration) *Chunker {
	t.Helper()
	c, err := NewChunker(sampleRate, chunk, overlap)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}
	return c
}

func TestNewChunker(t *testing.T) {
	c := newTestChunker(t, 16000, 2*time.Second, 0)
	if c.ChunkSize() != 32000 {
		t.Errorf("Expected 32000 samples, got %d", c.ChunkSize())
	}

	if _, err := NewChunker(0, time.Second, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := NewChunker(16000, time.Second, time.Second); err == nil {
		t.Error("Expected error for overlap equal to chunk duration")
	}
	if _, err := NewChunker(10, time.Millisecond, 0); err == nil {
		t.Error("Expected error for sub-sample chunk")
	}
}

func TestAbsorbConservesSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		c := newTestChunker(t, 100, 70*time.Millisecond, 0) // 7 samples
		total := rng.Intn(200)
		input := ramp(0, total)

		var emitted []float32
		for pos := 0; pos < total; {
			n := rng.Intn(15)
			if pos+n > total {
				n = total - pos
			}
			for _, chunk := range c.Absorb(input[pos : pos+n]) {
				if len(chunk) != c.ChunkSize() {
					t.Fatalf("Chunk of %d samples, want %d", len(chunk), c.ChunkSize())
				}
				emitted = append(emitted, chunk...)
			}
			pos += n
		}
		emitted = append(emitted, c.Flush()...)

		if len(emitted) != total {
			t.Fatalf("trial %d: emitted %d samples, want %d", trial, len(emitted), total)
		}
		for i, s := range emitted {
			if s != float32(i) {
				t.Fatalf("trial %d: sample %d out of order: %v", trial, i, s)
			}
		}
	}
}

func TestAbsorbIsAssociative(t *testing.T) {
	input := ramp(0, 23)

	whole := newTestChunker(t, 100, 50*time.Millisecond, 0)
	wholeChunks := whole.Absorb(input)

	split := newTestChunker(t, 100, 50*time.Millisecond, 0)
	var splitChunks [][]float32
	for _, part := range [][]float32{input[:3], input[3:4], input[4:17], input[17:]} {
		splitChunks = append(splitChunks, split.Absorb(part)...)
	}

	if len(wholeChunks) != len(splitChunks) {
		t.Fatalf("Chunk counts differ: %d vs %d", len(wholeChunks), len(splitChunks))
	}
	if whole.Len() != split.Len() || whole.Len() != 3 {
		t.Errorf("Residuals differ: %d vs %d", whole.Len(), split.Len())
	}

	a, b := whole.Flush(), split.Flush()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Residual sample %d differs", i)
		}
	}
}

func TestExactChunkLeavesNothingToFlush(t *testing.T) {
	c := newTestChunker(t, 16000, time.Second, 0)
	chunks := c.Absorb(make([]float32, 16000))
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if rest := c.Flush(); rest != nil {
		t.Errorf("Expected empty flush, got %d samples", len(rest))
	}
}

func TestFlushEmptiesBuffer(t *testing.T) {
	c := newTestChunker(t, 100, 100*time.Millisecond, 0)
	if c.Flush() != nil {
		t.Error("Flush of empty chunker should be nil")
	}

	c.Absorb(ramp(0, 4))
	rest := c.Flush()
	if len(rest) != 4 {
		t.Fatalf("Expected 4 samples, got %d", len(rest))
	}
	if c.Len() != 0 || c.Flush() != nil {
		t.Error("Buffer should be empty after flush")
	}
}

func TestChunksDoNotAliasBuffer(t *testing.T) {
	c := newTestChunker(t, 100, 50*time.Millisecond, 0)
	chunks := c.Absorb(ramp(0, 7))
	c.Absorb(ramp(100, 5))
	if chunks[0][0] != 0 {
		t.Error("Emitted chunk was modified by later absorb")
	}
}

func TestOverlapCarriesTail(t *testing.T) {
	c := newTestChunker(t, 100, 50*time.Millisecond, 20*time.Millisecond) // 5 samples, keep 2
	chunks := c.Absorb(ramp(0, 11))

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	want := [][]float32{{0, 1, 2, 3, 4}, {3, 4, 5, 6, 7}, {6, 7, 8, 9, 10}}
	for i, chunk := range chunks {
		for j := range chunk {
			if chunk[j] != want[i][j] {
				t.Fatalf("chunk %d = %v, want %v", i, chunk, want[i])
			}
		}
	}

	// Only the carried overlap remains, so there is nothing new to flush.
	if rest := c.Flush(); rest != nil {
		t.Errorf("Expected empty flush, got %v", rest)
	}

	c.Absorb(ramp(0, 5))
	c.Absorb([]float32{42})
	rest := c.Flush()
	if len(rest) != 3 || rest[2] != 42 {
		t.Errorf("Expected carried tail plus new sample, got %v", rest)
	}
}
