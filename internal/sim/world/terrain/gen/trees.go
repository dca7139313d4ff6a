package gen

import (
	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/logic/mathx"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
	"voxelforge.dev/internal/sim/world/terrain/noise"
)

const (
	treeGrid     = 7
	treeCell     = 3
	treeMargin   = 2
	treeMinNoise = 0.2
	birchVariety = 0.4
	oakRadius    = 2
	birchRadius  = 1
	canopyBelow  = 2
	canopyAbove  = 1
)

// Tree describes a tree shape rooted on a surface block.
type Tree struct {
	Log, Leaves block.Type
	Trunk       int
	Radius      int
}

// LeafRadius is the canopy radius at a height offset from the root.
func (t Tree) LeafRadius(dy int) int {
	if dy >= t.Trunk && t.Radius > 1 {
		return 1
	}
	return t.Radius
}

// Canopy calls fn for every leaf offset of the tree, bottom layer first.
// Corners are skipped and the trunk column is left to the log.
func (t Tree) Canopy(fn func(dx, dy, dz int)) {
	for dy := t.Trunk - canopyBelow; dy <= t.Trunk+canopyAbove; dy++ {
		r := t.LeafRadius(dy)
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				if mathx.AbsInt(dx) == r && mathx.AbsInt(dz) == r {
					continue
				}
				if dx == 0 && dz == 0 && dy <= t.Trunk {
					continue
				}
				fn(dx, dy, dz)
			}
		}
	}
}

func treeFor(density, variety float64) Tree {
	if variety > birchVariety {
		return Tree{Log: block.BirchLog, Leaves: block.BirchLeaves, Trunk: 5 + int(density*10)%3, Radius: birchRadius}
	}
	return Tree{Log: block.OakLog, Leaves: block.OakLeaves, Trunk: 5 + int(density*10)%2, Radius: oakRadius}
}

// SaplingTree is the tree a grown sapling turns into. roll picks the trunk
// height; grown trees always use the wide canopy.
func SaplingTree(sapling block.Type, roll uint64) (Tree, bool) {
	switch sapling {
	case block.OakSapling:
		return Tree{Log: block.OakLog, Leaves: block.OakLeaves, Trunk: 5 + int(roll%2), Radius: oakRadius}, true
	case block.BirchSapling:
		return Tree{Log: block.BirchLog, Leaves: block.BirchLeaves, Trunk: 5 + int(roll%3), Radius: oakRadius}, true
	}
	return Tree{}, false
}

// placeTrees roots at most one tree per 7x7 grid cell. Only blocks inside the
// chunk being generated are written.
func placeTrees(ch *chunk.Chunk, c chunk.Coord, cols *columns, src *noise.Source) {
	bx, by, bz := c.Origin()
	for z := treeMargin; z < chunk.Size-treeMargin; z++ {
		for x := treeMargin; x < chunk.Size-treeMargin; x++ {
			if cols.biome[z][x] != noise.Plains {
				continue
			}
			h := cols.height[z][x]
			if h < noise.SeaLevel {
				continue
			}
			wx, wz := bx+x, bz+z
			density := src.TreeDensity(mathx.FloorDiv(wx, treeGrid), mathx.FloorDiv(wz, treeGrid))
			if density < treeMinNoise {
				continue
			}
			if mathx.Mod(wx, treeGrid) != treeCell || mathx.Mod(wz, treeGrid) != treeCell {
				continue
			}
			ls := h - by
			if ls < 0 || ls >= chunk.Size {
				continue
			}
			if ch.Get(x, ls, z) != block.Grass {
				continue
			}

			t := treeFor(density, src.TreeVariety(wx, wz))
			for dy := 1; dy <= t.Trunk; dy++ {
				if ly := ls + dy; ly < chunk.Size {
					ch.Set(x, ly, z, t.Log)
				}
			}
			t.Canopy(func(dx, dy, dz int) {
				lx, ly, lz := x+dx, ls+dy, z+dz
				if !chunk.InBounds(lx, ly, lz) {
					return
				}
				if ch.Get(lx, ly, lz) == block.Air {
					ch.Set(lx, ly, lz, t.Leaves)
				}
			})
		}
	}
}
