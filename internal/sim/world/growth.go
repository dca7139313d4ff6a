package world

import (
	"sort"

	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/logic/mathx"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
	"voxelforge.dev/internal/sim/world/terrain/gen"
)

const (
	saplingMinSeconds = 60
	saplingMaxSeconds = 180
	cropMinSeconds    = 20
	cropMaxSeconds    = 40

	// Cells directly above a sapling that must be clear before it grows.
	saplingClearance = 6
	canopyReach      = 2
)

// growthTimer draws a countdown in [lo,hi) seconds, keyed by position and
// tick so a replay yields the same schedule.
func (w *World) growthTimer(p BlockPos, nowTick uint64, lo, hi float64) float64 {
	return mathx.Between(w.noise.Seed()+int64(nowTick), p.X, p.Y, p.Z, lo, hi)
}

// scanGrowth registers saplings and unripe crops in a freshly loaded chunk.
// Positions already tracked keep their timer.
func (w *World) scanGrowth(c chunk.Coord, ch *chunk.Chunk) {
	bx, by, bz := c.Origin()
	for y := 0; y < chunk.Size; y++ {
		for z := 0; z < chunk.Size; z++ {
			for x := 0; x < chunk.Size; x++ {
				b := ch.Get(x, y, z)
				p := BlockPos{X: bx + x, Y: by + y, Z: bz + z}
				switch {
				case b.IsSapling():
					w.trackSapling(p)
				case b.IsGrowingCrop():
					w.trackCrop(p)
				}
			}
		}
	}
}

func (w *World) trackSapling(p BlockPos) {
	if _, ok := w.saplings[p]; !ok {
		w.saplings[p] = w.growthTimer(p, 0, saplingMinSeconds, saplingMaxSeconds)
	}
}

func (w *World) trackCrop(p BlockPos) {
	if _, ok := w.crops[p]; !ok {
		w.crops[p] = w.growthTimer(p, 0, cropMinSeconds, cropMaxSeconds)
	}
}

// tickGrowth advances every tracked timer by dt seconds. Timers in chunks
// that are not resident are paused.
func (w *World) tickGrowth(dt float64, nowTick uint64) int {
	grown := 0
	for _, p := range sortedPositions(w.saplings) {
		if !w.chunks.Has(p.chunk()) {
			continue
		}
		b := w.blockAt(p)
		if !b.IsSapling() {
			delete(w.saplings, p)
			continue
		}
		left := w.saplings[p] - dt
		if left > 0 {
			w.saplings[p] = left
			continue
		}
		if w.growTree(p, b, nowTick) {
			delete(w.saplings, p)
			grown++
			continue
		}
		w.saplings[p] = w.growthTimer(p, nowTick, saplingMinSeconds, saplingMaxSeconds)
	}

	for _, p := range sortedPositions(w.crops) {
		if !w.chunks.Has(p.chunk()) {
			continue
		}
		b := w.blockAt(p)
		if !b.IsGrowingCrop() {
			delete(w.crops, p)
			continue
		}
		left := w.crops[p] - dt
		if left > 0 {
			w.crops[p] = left
			continue
		}
		if w.blockAt(BlockPos{X: p.X, Y: p.Y + 1, Z: p.Z}) != block.Air {
			w.crops[p] = w.growthTimer(p, nowTick, cropMinSeconds, cropMaxSeconds)
			continue
		}
		next, _ := b.NextCropStage()
		w.setBlock(p, next)
		grown++
		if next.IsGrowingCrop() {
			w.crops[p] = w.growthTimer(p, nowTick, cropMinSeconds, cropMaxSeconds)
		} else {
			delete(w.crops, p)
		}
	}
	w.totals.grown += uint64(grown)
	return grown
}

// growTree replaces the sapling at p with a full tree. It fails without
// touching anything when a chunk the tree would reach is not resident or
// the space above the sapling is blocked.
func (w *World) growTree(p BlockPos, sapling block.Type, nowTick uint64) bool {
	t, ok := gen.SaplingTree(sapling, mathx.Hash3(w.noise.Seed()+int64(nowTick), p.X, p.Y, p.Z))
	if !ok {
		return false
	}
	if !w.regionResident(
		BlockPos{X: p.X - canopyReach, Y: p.Y, Z: p.Z - canopyReach},
		BlockPos{X: p.X + canopyReach, Y: p.Y + t.Trunk, Z: p.Z + canopyReach},
	) {
		return false
	}
	for dy := 1; dy <= saplingClearance; dy++ {
		b := w.blockAt(BlockPos{X: p.X, Y: p.Y + dy, Z: p.Z})
		if b != block.Air && !b.IsSapling() {
			return false
		}
	}

	// The tree is rooted on the ground cell below the sapling.
	root := BlockPos{X: p.X, Y: p.Y - 1, Z: p.Z}
	for dy := 1; dy <= t.Trunk; dy++ {
		w.setBlock(BlockPos{X: root.X, Y: root.Y + dy, Z: root.Z}, t.Log)
	}
	t.Canopy(func(dx, dy, dz int) {
		lp := BlockPos{X: root.X + dx, Y: root.Y + dy, Z: root.Z + dz}
		if w.blockAt(lp) == block.Air {
			w.setBlock(lp, t.Leaves)
		}
	})
	return true
}

// regionResident reports whether every chunk overlapping the inclusive box
// lo..hi is resident.
func (w *World) regionResident(lo, hi BlockPos) bool {
	a := lo.chunk()
	b := hi.chunk()
	for y := a.Y; y <= b.Y; y++ {
		for z := a.Z; z <= b.Z; z++ {
			for x := a.X; x <= b.X; x++ {
				if !w.chunks.Has(chunk.Coord{X: x, Y: y, Z: z}) {
					return false
				}
			}
		}
	}
	return true
}

func sortedPositions(m map[BlockPos]float64) []BlockPos {
	out := make([]BlockPos, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})
	return out
}
