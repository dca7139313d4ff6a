package world

import (
	"testing"

	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/mesh"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

func queued(w *World) map[chunk.Coord]bool {
	out := map[chunk.Coord]bool{}
	for c := range w.meshQueue {
		out[c] = true
	}
	return out
}

func TestRequestRemeshTagsBoundaryNeighbours(t *testing.T) {
	w := newTestWorld(t, nil)
	drainLoads(t, w, viewerAt(0, 0))
	w.StepOnce(viewerAt(0, 0))
	if len(w.meshQueue) != 0 {
		t.Fatalf("queue not drained: %d", len(w.meshQueue))
	}

	cases := []struct {
		name string
		pos  BlockPos
		want []chunk.Coord
	}{
		{"interior", BlockPos{X: 5, Y: 5, Z: 5}, []chunk.Coord{{}}},
		{"edge x+ z-", BlockPos{X: 15, Y: 5, Z: 0}, []chunk.Coord{{}, {X: 1}, {Z: -1}}},
		{"top face", BlockPos{X: 4, Y: 15, Z: 4}, []chunk.Coord{{}, {Y: 1}}},
		{"negative side", BlockPos{X: -16, Y: 3, Z: 3}, []chunk.Coord{{X: -1}}},
		{"missing neighbour", BlockPos{X: 31, Y: 3, Z: 3}, []chunk.Coord{{X: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w.meshQueue = map[chunk.Coord]struct{}{}
			w.RequestRemesh(tc.pos)
			got := queued(w)
			if len(got) != len(tc.want) {
				t.Fatalf("tagged %v want %v", got, tc.want)
			}
			for _, c := range tc.want {
				if !got[c] || !w.renderables[c].NeedsMesh {
					t.Fatalf("chunk %v not tagged (got %v)", c, got)
				}
			}
		})
	}
}

func TestMeshesAttachAndNotify(t *testing.T) {
	w := newTestWorld(t, nil)
	sink := make(chan MeshEvent, 1024)
	w.SetMeshSink(sink)
	v := viewerAt(0, 0)
	drainLoads(t, w, v)
	drainMeshes(t, w, v)

	if len(sink) == 0 {
		t.Fatalf("no mesh events")
	}
	ev := <-sink
	r := w.renderables[ev.Coord]
	if r == nil {
		t.Fatalf("event for unknown chunk %v", ev.Coord)
	}
	// The bottom layer holds bedrock and terrain, so it cannot be empty.
	bottom := w.renderables[chunk.Coord{}]
	if bottom.Mesh.Empty() {
		t.Fatalf("bottom chunk mesh is empty")
	}

	before := bottom.Version
	if err := w.WriteBlock(BlockPos{X: 8, Y: 15, Z: 8}, block.Glass); err != nil {
		t.Fatalf("write: %v", err)
	}
	drainMeshes(t, w, v)
	if bottom.Version <= before {
		t.Fatalf("edited chunk was not remeshed")
	}
}

func TestEmptyChunkMeshesImmediately(t *testing.T) {
	w := newTestWorld(t, nil)
	c := chunk.Coord{X: 5, Y: 9, Z: 5}
	residentEmpty(w, c)
	sub, applied := w.dispatchMeshes(0)
	if sub != 0 || applied != 1 {
		t.Fatalf("submitted=%d applied=%d", sub, applied)
	}
	r := w.renderables[c]
	if r.Mesh == nil || !r.Mesh.Empty() || r.NeedsMesh {
		t.Fatalf("renderable=%+v", r)
	}
}

func TestOlderBuildNeverReplacesNewerMesh(t *testing.T) {
	w := newTestWorld(t, nil)
	c := chunk.Coord{X: 5, Y: 9, Z: 5}
	residentEmpty(w, c)
	r := w.renderables[c]

	if !w.attachMesh(r.ID, 7, c, &mesh.Mesh{Quads: 2}, 1) {
		t.Fatalf("newer build was not applied")
	}
	if w.attachMesh(r.ID, 6, c, &mesh.Mesh{Quads: 1}, 2) {
		t.Fatalf("older build finishing late was applied")
	}
	if w.attachMesh(r.ID, 7, c, &mesh.Mesh{Quads: 3}, 2) {
		t.Fatalf("same build applied twice")
	}
	if r.Mesh.Quads != 2 || r.MeshGen != 7 || r.Version != 1 {
		t.Fatalf("renderable=%+v", r)
	}
}

func TestEmptyMeshSupersedesBuildInFlight(t *testing.T) {
	w := newTestWorld(t, nil)
	c := chunk.Coord{X: 5, Y: 9, Z: 5}
	ch := residentEmpty(w, c)
	ch.Set(3, 3, 3, block.Stone)
	w.tagMesh(c)
	if sub, _ := w.dispatchMeshes(0); sub != 1 {
		t.Fatalf("submitted=%d", sub)
	}
	inflight := w.meshes.Generation()

	ch.Set(3, 3, 3, block.Air)
	w.tagMesh(c)
	if _, applied := w.dispatchMeshes(1); applied != 1 {
		t.Fatalf("empty chunk not applied")
	}
	r := w.renderables[c]
	if w.attachMesh(r.ID, inflight, c, &mesh.Mesh{Quads: 6}, 2) {
		t.Fatalf("stale stone mesh replaced the empty one")
	}
	if !r.Mesh.Empty() {
		t.Fatalf("mesh=%+v", r.Mesh)
	}
}
