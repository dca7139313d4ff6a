package store

import (
	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

// GetBlock reads a world cell. Cells of non-resident chunks read as air.
func (s *ChunkStore) GetBlock(x, y, z int) block.Type {
	ch, ok := s.chunks[chunk.CoordOf(x, y, z)]
	if !ok {
		return block.Air
	}
	lx, ly, lz := chunk.LocalOf(x, y, z)
	return ch.Get(lx, ly, lz)
}

// SetBlock writes a world cell and marks its chunk dirty. It reports false
// when the owning chunk is not resident.
func (s *ChunkStore) SetBlock(x, y, z int, b block.Type) bool {
	c := chunk.CoordOf(x, y, z)
	ch, ok := s.chunks[c]
	if !ok {
		return false
	}
	lx, ly, lz := chunk.LocalOf(x, y, z)
	ch.Set(lx, ly, lz, b)
	s.dirty[c] = struct{}{}
	return true
}

// Neighbors returns the resident face neighbours of c in +X,-X,+Y,-Y,+Z,-Z
// order; missing entries are nil.
func (s *ChunkStore) Neighbors(c chunk.Coord) [6]*chunk.Chunk {
	var out [6]*chunk.Chunk
	for i, n := range c.Neighbors() {
		out[i] = s.chunks[n]
	}
	return out
}
