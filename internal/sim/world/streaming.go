package world

import (
	"errors"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"voxelforge.dev/internal/persistence/chunkfile"
	"voxelforge.dev/internal/persistence/indexdb"
	"voxelforge.dev/internal/sim/world/logic/mathx"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
	"voxelforge.dev/internal/sim/world/terrain/gen"
)

// viewerChunk maps a viewer position to the chunk containing it.
func viewerChunk(p mgl32.Vec3) chunk.Coord {
	return chunk.CoordOf(
		int(math.Floor(float64(p[0]))),
		int(math.Floor(float64(p[1]))),
		int(math.Floor(float64(p[2]))),
	)
}

// stream runs one unload/load pass around the current viewer.
func (w *World) stream(nowTick uint64, e *TickLogEntry) {
	vc := viewerChunk(w.viewer)
	e.ViewerChunk = [3]int{vc.X, vc.Y, vc.Z}

	var far []chunk.Coord
	for c := range w.renderables {
		if mathx.ChebyshevXZ(c.X, c.Z, vc.X, vc.Z) > w.cfg.DespawnDistance {
			far = append(far, c)
		}
	}
	sortCoords(far)
	for _, c := range far {
		if w.unload(c, nowTick) {
			e.Unloaded++
		}
	}

	cands := w.loadCandidates(vc)
	n := len(cands)
	if n > w.cfg.MaxLoadsPerTick {
		n = w.cfg.MaxLoadsPerTick
	}
	for _, c := range cands[:n] {
		if w.load(c, nowTick) {
			e.FromDisk++
		} else {
			e.Generated++
		}
		e.Loaded++
	}
	w.pendingLoads = len(cands) - n
	e.PendingLoads = w.pendingLoads
}

// loadCandidates lists the non-resident coordinates within render distance,
// nearest first by squared XZ distance.
func (w *World) loadCandidates(vc chunk.Coord) []chunk.Coord {
	r := w.cfg.RenderDistance
	var out []chunk.Coord
	for dz := -r; dz <= r; dz++ {
		for dx := -r; dx <= r; dx++ {
			for y := 0; y < w.cfg.WorldHeightChunks; y++ {
				c := chunk.Coord{X: vc.X + dx, Y: y, Z: vc.Z + dz}
				if !w.chunks.Has(c) {
					out = append(out, c)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di := mathx.DistSqXZ(out[i].X, out[i].Z, vc.X, vc.Z)
		dj := mathx.DistSqXZ(out[j].X, out[j].Z, vc.X, vc.Z)
		if di != dj {
			return di < dj
		}
		return coordLess(out[i], out[j])
	})
	return out
}

// load makes c resident and reports whether the data came from disk.
func (w *World) load(c chunk.Coord, nowTick uint64) bool {
	ch, fromDisk := w.readOrGenerate(c, nowTick)
	w.chunks.Put(c, ch)
	w.spawnRenderable(c)
	// Faces shared with already resident neighbours were closed off while
	// this chunk was missing.
	for _, n := range c.Neighbors() {
		w.tagMesh(n)
	}
	w.scanGrowth(c, ch)
	return fromDisk
}

func (w *World) readOrGenerate(c chunk.Coord, nowTick uint64) (*chunk.Chunk, bool) {
	if w.files != nil {
		ch, err := w.files.Load(c)
		switch {
		case err == nil:
			w.totals.fromDisk++
			return ch, true
		case errors.Is(err, chunkfile.ErrNotFound):
		case errors.Is(err, chunkfile.ErrCorrupt):
			w.totals.corrupt++
			w.log.Printf("chunk %v: %v; regenerating", c, err)
			w.recordFault(c, nowTick, indexdb.FaultCorrupt, err)
		default:
			w.log.Printf("chunk %v: read failed: %v; regenerating", c, err)
			w.recordFault(c, nowTick, indexdb.FaultReadError, err)
		}
	}
	w.totals.generated++
	return gen.Generate(c, w.noise), false
}

// unload evicts c, persisting it first when dirty. A failed write keeps the
// chunk resident and dirty so the next tick retries.
func (w *World) unload(c chunk.Coord, nowTick uint64) bool {
	if w.chunks.IsDirty(c) {
		if err := w.saveChunk(c, nowTick); err != nil {
			return false
		}
	}
	w.destroyRenderable(c)
	w.chunks.Remove(c)
	return true
}

func (w *World) spawnRenderable(c chunk.Coord) {
	w.renderables[c] = &Renderable{ID: uuid.New(), Coord: c}
	w.tagMesh(c)
}

// destroyRenderable drops the handle; a build still in flight for it is
// discarded when polled.
func (w *World) destroyRenderable(c chunk.Coord) {
	delete(w.renderables, c)
	delete(w.meshQueue, c)
}

func coordLess(a, b chunk.Coord) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Z < b.Z
}

func sortCoords(cs []chunk.Coord) {
	sort.Slice(cs, func(i, j int) bool { return coordLess(cs[i], cs[j]) })
}
