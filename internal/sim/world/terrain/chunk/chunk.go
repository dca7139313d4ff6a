package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"voxelforge.dev/internal/sim/world/block"
)

// Volume is the number of cells in a chunk.
const Volume = Size * Size * Size

var ErrBadLength = errors.New("chunk: bad buffer length")

// Chunk is a dense 16x16x16 block grid, indexed y*256 + z*16 + x.
// The zero value is an all-air chunk.
type Chunk struct {
	blocks [Volume]block.Type
}

func New() *Chunk { return &Chunk{} }

func index(x, y, z int) int {
	return y*Size*Size + z*Size + x
}

func (c *Chunk) Get(x, y, z int) block.Type {
	return c.blocks[index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b block.Type) {
	c.blocks[index(x, y, z)] = b
}

// InBounds reports whether local coordinates address a cell of a chunk.
func InBounds(x, y, z int) bool {
	return x >= 0 && x < Size && y >= 0 && y < Size && z >= 0 && z < Size
}

func (c *Chunk) IsEmpty() bool {
	for _, b := range c.blocks {
		if b != block.Air {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (c *Chunk) Clone() *Chunk {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Count returns how many cells hold b.
func (c *Chunk) Count(b block.Type) int {
	n := 0
	for _, v := range c.blocks {
		if v == b {
			n++
		}
	}
	return n
}

// Bytes returns the raw 4096-byte buffer in index order.
func (c *Chunk) Bytes() []byte {
	out := make([]byte, Volume)
	for i, b := range c.blocks {
		out[i] = byte(b)
	}
	return out
}

// Decode rebuilds a chunk from a raw buffer. Only the length is validated;
// unknown ids become air.
func Decode(buf []byte) (*Chunk, error) {
	if len(buf) != Volume {
		return nil, fmt.Errorf("%w: got %d want %d", ErrBadLength, len(buf), Volume)
	}
	c := &Chunk{}
	for i, id := range buf {
		c.blocks[i] = block.FromID(id)
	}
	return c, nil
}

func (c *Chunk) Digest() string {
	sum := sha256.Sum256(c.Bytes())
	return hex.EncodeToString(sum[:])
}
