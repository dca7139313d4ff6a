// Package store holds the resident chunk data and tracks which chunks have
// unsaved edits. It is not safe for concurrent use; the world loop owns it.
package store

import (
	"sort"

	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

type ChunkStore struct {
	chunks map[chunk.Coord]*chunk.Chunk
	dirty  map[chunk.Coord]struct{}
}

func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: map[chunk.Coord]*chunk.Chunk{},
		dirty:  map[chunk.Coord]struct{}{},
	}
}

func (s *ChunkStore) Get(c chunk.Coord) (*chunk.Chunk, bool) {
	ch, ok := s.chunks[c]
	return ch, ok
}

func (s *ChunkStore) Has(c chunk.Coord) bool {
	_, ok := s.chunks[c]
	return ok
}

func (s *ChunkStore) Len() int { return len(s.chunks) }

// Put installs chunk data for c, replacing anything already there.
// Freshly loaded data is clean.
func (s *ChunkStore) Put(c chunk.Coord, ch *chunk.Chunk) {
	s.chunks[c] = ch
	delete(s.dirty, c)
}

// Remove evicts c and forgets any pending edits.
func (s *ChunkStore) Remove(c chunk.Coord) {
	delete(s.chunks, c)
	delete(s.dirty, c)
}

// Clear drops every chunk.
func (s *ChunkStore) Clear() {
	s.chunks = map[chunk.Coord]*chunk.Chunk{}
	s.dirty = map[chunk.Coord]struct{}{}
}

// Keys returns resident coordinates in a stable order.
func (s *ChunkStore) Keys() []chunk.Coord {
	keys := make([]chunk.Coord, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sortCoords(keys)
	return keys
}

// MarkDirty flags a resident chunk as needing a save. Unknown coordinates are ignored.
func (s *ChunkStore) MarkDirty(c chunk.Coord) {
	if _, ok := s.chunks[c]; ok {
		s.dirty[c] = struct{}{}
	}
}

func (s *ChunkStore) ClearDirty(c chunk.Coord) { delete(s.dirty, c) }

func (s *ChunkStore) IsDirty(c chunk.Coord) bool {
	_, ok := s.dirty[c]
	return ok
}

func (s *ChunkStore) DirtyLen() int { return len(s.dirty) }

func (s *ChunkStore) DirtyKeys() []chunk.Coord {
	keys := make([]chunk.Coord, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	sortCoords(keys)
	return keys
}

func sortCoords(keys []chunk.Coord) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].Z < keys[j].Z
	})
}
