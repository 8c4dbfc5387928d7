package pricing

import "math/rand/v2"

// DefaultBlockSize is the number of draws served by one Stream block.
const DefaultBlockSize = 1 << 14

// NormalSource yields standard normal variates. *rand.Rand from both
// math/rand and math/rand/v2 satisfies it.
type NormalSource interface {
	NormFloat64() float64
}

// Stream is a seeded random stream cut into fixed-size blocks. Block b is
// generated by its own PCG keyed on (seed, b), so any block can be produced
// without replaying the ones before it. Draw i of the stream is draw
// i%BlockSize of block i/BlockSize.
type Stream struct {
	seed      uint64
	blockSize int
}

// NewStream returns a stream with DefaultBlockSize blocks.
func NewStream(seed uint64) Stream {
	return Stream{seed: seed, blockSize: DefaultBlockSize}
}

// WithBlockSize returns a copy of s with a different block size. Values
// below 1 keep the current size.
func (s Stream) WithBlockSize(n int) Stream {
	if n > 0 {
		s.blockSize = n
	}
	return s
}

func (s Stream) Seed() uint64 { return s.seed }

func (s Stream) BlockSize() int {
	if s.blockSize <= 0 {
		return DefaultBlockSize
	}
	return s.blockSize
}

// Block returns a fresh generator positioned at the start of block b.
func (s Stream) Block(b int) *rand.Rand {
	return rand.New(rand.NewPCG(s.seed, uint64(b)))
}

// blocks is the number of blocks needed to serve n draws.
func (s Stream) blocks(n int) int {
	bs := s.BlockSize()
	return (n + bs - 1) / bs
}

// Sequential returns a NormalSource that reads the stream draw by draw,
// moving to the next block once the current one is exhausted.
func (s Stream) Sequential() NormalSource {
	return &streamReader{s: s, rng: s.Block(0)}
}

type streamReader struct {
	s     Stream
	block int
	used  int
	rng   *rand.Rand
}

func (r *streamReader) NormFloat64() float64 {
	if r.used == r.s.BlockSize() {
		r.block++
		r.used = 0
		r.rng = r.s.Block(r.block)
	}
	r.used++
	return r.rng.NormFloat64()
}
