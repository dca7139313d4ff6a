package world

import (
	"github.com/google/uuid"

	"voxelforge.dev/internal/sim/world/mesh"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

// tagMesh marks a resident chunk's renderable for rebuilding. Non-resident
// coordinates are ignored.
func (w *World) tagMesh(c chunk.Coord) {
	r := w.renderables[c]
	if r == nil {
		return
	}
	r.NeedsMesh = true
	w.meshQueue[c] = struct{}{}
}

// requestRemesh tags the chunk owning p and every neighbour whose shared
// face p touches.
func (w *World) requestRemesh(p BlockPos) {
	c := p.chunk()
	w.tagMesh(c)
	lx, ly, lz := chunk.LocalOf(p.X, p.Y, p.Z)
	if lx == 0 {
		w.tagMesh(c.Neighbor(chunk.NegX))
	} else if lx == chunk.Size-1 {
		w.tagMesh(c.Neighbor(chunk.PosX))
	}
	if ly == 0 {
		w.tagMesh(c.Neighbor(chunk.NegY))
	} else if ly == chunk.Size-1 {
		w.tagMesh(c.Neighbor(chunk.PosY))
	}
	if lz == 0 {
		w.tagMesh(c.Neighbor(chunk.NegZ))
	} else if lz == chunk.Size-1 {
		w.tagMesh(c.Neighbor(chunk.PosZ))
	}
}

// dispatchMeshes snapshots every tagged chunk and its resident neighbours
// into a background build. All-air chunks get an empty mesh immediately.
func (w *World) dispatchMeshes(nowTick uint64) (submitted, applied int) {
	if len(w.meshQueue) == 0 {
		return 0, 0
	}
	coords := make([]chunk.Coord, 0, len(w.meshQueue))
	for c := range w.meshQueue {
		coords = append(coords, c)
	}
	sortCoords(coords)
	for _, c := range coords {
		delete(w.meshQueue, c)
		r := w.renderables[c]
		if r == nil || !r.NeedsMesh {
			continue
		}
		ch, ok := w.chunks.Get(c)
		if !ok {
			continue
		}
		r.NeedsMesh = false
		if ch.IsEmpty() {
			// Supersedes every build submitted so far.
			w.applyMesh(r, &mesh.Mesh{}, w.meshes.Generation(), nowTick)
			applied++
			continue
		}
		w.meshes.Submit(r.ID, c, ch, mesh.Neighbors(w.chunks.Neighbors(c)))
		submitted++
	}
	return submitted, applied
}

// pollMeshes attaches finished builds without waiting for running ones.
func (w *World) pollMeshes(nowTick uint64) int {
	return w.meshes.Poll(func(id uuid.UUID, gen uint64, c chunk.Coord, m *mesh.Mesh) bool {
		return w.attachMesh(id, gen, c, m, nowTick)
	})
}

// attachMesh applies a finished build unless its renderable is gone or
// already holds a mesh from a newer build.
func (w *World) attachMesh(id uuid.UUID, gen uint64, c chunk.Coord, m *mesh.Mesh, nowTick uint64) bool {
	r := w.renderables[c]
	if r == nil || r.ID != id || gen <= r.MeshGen {
		return false
	}
	w.applyMesh(r, m, gen, nowTick)
	return true
}

func (w *World) applyMesh(r *Renderable, m *mesh.Mesh, gen, nowTick uint64) {
	r.Mesh = m
	r.MeshGen = gen
	r.Version++
	if w.meshSink == nil {
		return
	}
	ev := MeshEvent{
		Tick:       nowTick,
		EntityID:   r.ID,
		Coord:      r.Coord,
		Version:    r.Version,
		Vertices:   m.VertexCount(),
		Triangles:  m.TriangleCount(),
		Quads:      m.Quads,
		Billboards: m.Billboards,
	}
	select {
	case w.meshSink <- ev:
	default:
		// Drop if the sink is backed up.
	}
}
