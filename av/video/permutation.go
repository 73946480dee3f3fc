package video

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/opd-ai/avscramble/key"
)

// ErrBlockSize indicates a permutation was requested for a size that is not
// a positive power of two.
var ErrBlockSize = errors.New("block size must be a positive power of two")

// Block is the half-open row range [Start, Start+Size). Size is a power of
// two.
type Block struct {
	Start int
	Size  int
}

// End returns the first row after the block.
func (b Block) End() int {
	return b.Start + b.Size
}

// Decompose splits height into power-of-two blocks following its binary
// representation, largest first. The blocks partition [0, height) and their
// sizes are strictly decreasing. A height of zero or less yields no blocks.
func Decompose(height int) []Block {
	if height <= 0 {
		return nil
	}
	blocks := make([]Block, 0, bits.OnesCount(uint(height)))
	start := 0
	for remaining := height; remaining > 0; {
		size := 1 << (bits.Len(uint(remaining)) - 1)
		blocks = append(blocks, Block{Start: start, Size: size})
		start += size
		remaining -= size
	}
	return blocks
}

// Permutation is the bijection r -> (offset + m*r) mod size on [0, size)
// for one block size and key, together with its closed-form inverse.
//
// All arithmetic is done modulo 2^64 and masked down to the block size,
// which is exact because size divides 2^64.
type Permutation struct {
	size       int
	mask       uint64
	offset     uint64
	multiplier uint64
	inverse    uint64
}

// NewPermutation builds the permutation for a block of the given size.
func NewPermutation(size int, k key.Key) (*Permutation, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrBlockSize, size)
	}
	m := uint64(k.Multiplier())
	return &Permutation{
		size:       size,
		mask:       uint64(size - 1),
		offset:     uint64(k.Offset),
		multiplier: m,
		inverse:    oddInverse(m),
	}, nil
}

// Size returns the block size.
func (p *Permutation) Size() int {
	return p.size
}

// Forward maps a block-relative row index to its scrambled position.
func (p *Permutation) Forward(r int) int {
	return int((p.offset + p.multiplier*uint64(r)) & p.mask)
}

// Inverse maps a scrambled block-relative position back to its origin.
// Forward(Inverse(r)) == r for every r in [0, Size()).
func (p *Permutation) Inverse(r int) int {
	return int((p.inverse * (uint64(r) - p.offset)) & p.mask)
}

// oddInverse returns x with m*x == 1 mod 2^64. m must be odd. Each Newton
// step doubles the number of correct low bits, starting from the 3 bits
// given by m*m == 1 mod 8.
func oddInverse(m uint64) uint64 {
	x := m
	for i := 0; i < 5; i++ {
		x *= 2 - m*x
	}
	return x
}
