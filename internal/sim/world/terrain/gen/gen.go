// Package gen turns a chunk coordinate and a noise source into block data.
// Generation is pure: the same seed and coordinate always give the same chunk.
package gen

import (
	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
	"voxelforge.dev/internal/sim/world/terrain/noise"
)

const (
	subsurfaceDepth = 4
	clayMinY        = 60
)

// columns caches per-column height and biome for one chunk.
type columns struct {
	height [chunk.Size][chunk.Size]int
	biome  [chunk.Size][chunk.Size]noise.Biome
}

func sampleColumns(c chunk.Coord, src *noise.Source) *columns {
	cols := &columns{}
	bx, _, bz := c.Origin()
	for z := 0; z < chunk.Size; z++ {
		for x := 0; x < chunk.Size; x++ {
			cols.height[z][x] = src.Height(bx+x, bz+z)
			cols.biome[z][x] = src.BiomeAt(bx+x, bz+z)
		}
	}
	return cols
}

// Generate builds the chunk at c.
func Generate(c chunk.Coord, src *noise.Source) *chunk.Chunk {
	ch := chunk.New()
	cols := sampleColumns(c, src)
	fill(ch, c, cols)
	carve(ch, c, cols, src)
	placeTrees(ch, c, cols, src)
	placeTallGrass(ch, c, cols, src)
	return ch
}

// SurfaceHeight is the terrain height of a column, for spawn placement.
func SurfaceHeight(src *noise.Source, x, z int) int {
	return src.Height(x, z)
}

func baseBlock(wy, h int, biome noise.Biome) block.Type {
	desert := biome == noise.Desert
	switch {
	case wy < 0:
		return block.Air
	case wy == 0:
		return block.Bedrock
	case wy > h:
		if wy <= noise.SeaLevel {
			return block.Water
		}
		return block.Air
	case wy == h && h >= noise.SeaLevel:
		if desert {
			return block.Sand
		}
		return block.Grass
	case wy > h-subsurfaceDepth && wy < h:
		if desert {
			return block.Sandstone
		}
		return block.Dirt
	case wy == h:
		// Underwater surface.
		if desert {
			return block.Sand
		}
		return block.Dirt
	}
	return block.Stone
}

func fill(ch *chunk.Chunk, c chunk.Coord, cols *columns) {
	_, by, _ := c.Origin()
	for y := 0; y < chunk.Size; y++ {
		wy := by + y
		for z := 0; z < chunk.Size; z++ {
			for x := 0; x < chunk.Size; x++ {
				ch.Set(x, y, z, baseBlock(wy, cols.height[z][x], cols.biome[z][x]))
			}
		}
	}
}

func carve(ch *chunk.Chunk, c chunk.Coord, cols *columns, src *noise.Source) {
	bx, by, bz := c.Origin()
	for y := 0; y < chunk.Size; y++ {
		wy := by + y
		for z := 0; z < chunk.Size; z++ {
			for x := 0; x < chunk.Size; x++ {
				wx, wz := bx+x, bz+z
				cur := ch.Get(x, y, z)

				if cur.IsCarveable() && src.IsCave(wx, wy, wz, cols.height[z][x]) {
					ch.Set(x, y, z, block.Air)
					continue
				}
				if cur == block.Stone {
					if src.IsGravel(wx, wy, wz) {
						ch.Set(x, y, z, block.Gravel)
						continue
					}
					if ore, ok := src.Ore(wx, wy, wz); ok {
						ch.Set(x, y, z, ore)
					}
				}
				if (cur == block.Sand || cur == block.Dirt) && wy >= clayMinY && wy <= noise.SeaLevel && src.IsClay(wx, wz) {
					ch.Set(x, y, z, block.Clay)
				}
			}
		}
	}
}

func placeTallGrass(ch *chunk.Chunk, c chunk.Coord, cols *columns, src *noise.Source) {
	bx, by, bz := c.Origin()
	for z := 0; z < chunk.Size; z++ {
		for x := 0; x < chunk.Size; x++ {
			if cols.biome[z][x] != noise.Plains {
				continue
			}
			h := cols.height[z][x]
			if h < noise.SeaLevel {
				continue
			}
			ls := h - by
			if ls < 0 || ls+1 >= chunk.Size {
				continue
			}
			if ch.Get(x, ls, z) != block.Grass || ch.Get(x, ls+1, z) != block.Air {
				continue
			}
			if src.GrassScatter(bx+x, bz+z) > 0.6 {
				ch.Set(x, ls+1, z, block.TallGrass)
			}
		}
	}
}
