package world

import (
	"os"
	"testing"

	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

func TestStreamingConvergesToRenderSet(t *testing.T) {
	w := newTestWorld(t, nil)
	v := viewerAt(0, 0)

	e := w.StepOnce(v)
	if e.Loaded != 4 {
		t.Fatalf("first tick loaded %d, want load cap 4", e.Loaded)
	}
	for _, c := range []chunk.Coord{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}} {
		if !w.chunks.Has(c) {
			t.Fatalf("nearest chunk %v not loaded first", c)
		}
	}

	drainLoads(t, w, v)
	want := map[chunk.Coord]bool{}
	for z := -1; z <= 1; z++ {
		for x := -1; x <= 1; x++ {
			for y := 0; y < 2; y++ {
				want[chunk.Coord{X: x, Y: y, Z: z}] = true
			}
		}
	}
	keys := w.chunks.Keys()
	if len(keys) != len(want) {
		t.Fatalf("resident=%d want %d", len(keys), len(want))
	}
	for _, c := range keys {
		if !want[c] {
			t.Fatalf("unexpected resident chunk %v", c)
		}
		if _, ok := w.renderables[c]; !ok {
			t.Fatalf("chunk %v has no renderable", c)
		}
	}
	if len(w.renderables) != len(keys) {
		t.Fatalf("renderables=%d chunks=%d", len(w.renderables), len(keys))
	}

	e = w.StepOnce(v)
	if e.Loaded != 0 || e.Unloaded != 0 {
		t.Fatalf("stationary viewer churned: %+v", e)
	}
}

func TestStreamingHysteresis(t *testing.T) {
	w := newTestWorld(t, nil)
	drainLoads(t, w, viewerAt(0, 0))

	// One chunk over: the trailing column is inside the despawn band.
	drainLoads(t, w, viewerAt(1, 0))
	if !w.chunks.Has(chunk.Coord{X: -1, Y: 0, Z: 0}) {
		t.Fatalf("chunk inside despawn band was unloaded")
	}
	if w.chunks.Len() != 24 {
		t.Fatalf("resident=%d want 24", w.chunks.Len())
	}

	drainLoads(t, w, viewerAt(3, 0))
	if w.chunks.Has(chunk.Coord{X: -1, Y: 0, Z: 0}) || w.chunks.Has(chunk.Coord{X: 0, Y: 1, Z: 1}) {
		t.Fatalf("far chunks still resident")
	}
	if !w.chunks.Has(chunk.Coord{X: 1, Y: 0, Z: 0}) {
		t.Fatalf("chunk at despawn distance was unloaded")
	}
	for c := range w.renderables {
		if !w.chunks.Has(c) {
			t.Fatalf("renderable without chunk at %v", c)
		}
	}
}

func TestEvictionPersistsDirtyChunk(t *testing.T) {
	w := newTestWorld(t, nil)
	drainLoads(t, w, viewerAt(0, 0))

	p := BlockPos{X: 3, Y: 5, Z: 3}
	if err := w.WriteBlock(p, block.Glass); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := chunk.Coord{}
	if !w.chunks.IsDirty(c) {
		t.Fatalf("edit did not mark chunk dirty")
	}

	w.StepOnce(viewerAt(10, 0))
	if w.chunks.Has(c) {
		t.Fatalf("chunk not evicted")
	}
	if !w.files.Exists(c) {
		t.Fatalf("dirty chunk was not written on eviction")
	}
	if w.files.Exists(chunk.Coord{X: 1}) {
		t.Fatalf("clean chunk was written")
	}

	drainLoads(t, w, viewerAt(0, 0))
	if got := w.ReadBlock(p); got != block.Glass {
		t.Fatalf("reloaded block=%v want GLASS", got)
	}
	if w.chunks.IsDirty(c) {
		t.Fatalf("reloaded chunk should be clean")
	}
	if w.totals.fromDisk == 0 {
		t.Fatalf("chunk was regenerated instead of read")
	}
}

func TestFailedSaveKeepsChunkResidentAndDirty(t *testing.T) {
	w := newTestWorld(t, nil)
	drainLoads(t, w, viewerAt(0, 0))
	if err := w.WriteBlock(BlockPos{X: 1, Y: 1, Z: 1}, block.Planks); err != nil {
		t.Fatalf("write: %v", err)
	}

	root := w.files.Root()
	if err := os.RemoveAll(root); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.WriteFile(root, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("block dir: %v", err)
	}

	c := chunk.Coord{}
	w.StepOnce(viewerAt(10, 0))
	if !w.chunks.Has(c) || !w.chunks.IsDirty(c) {
		t.Fatalf("failed save dropped the chunk or its dirty flag")
	}
	if _, ok := w.renderables[c]; !ok {
		t.Fatalf("renderable destroyed despite failed save")
	}
	if w.totals.saveFailures == 0 {
		t.Fatalf("save failure not counted")
	}

	if err := os.Remove(root); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	w.StepOnce(viewerAt(10, 0))
	if w.chunks.Has(c) {
		t.Fatalf("chunk not evicted after retry")
	}
	if !w.files.Exists(c) {
		t.Fatalf("retry did not write the chunk")
	}
}

func TestCorruptChunkFileRegenerates(t *testing.T) {
	w := newTestWorld(t, nil)
	c := chunk.Coord{}
	if err := os.WriteFile(w.files.Path(c), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	drainLoads(t, w, viewerAt(0, 0))
	if !w.chunks.Has(c) {
		t.Fatalf("corrupt chunk not regenerated")
	}
	if w.totals.corrupt != 1 {
		t.Fatalf("corrupt=%d want 1", w.totals.corrupt)
	}
}

func TestSameSeedSameState(t *testing.T) {
	a := newTestWorld(t, nil)
	b := newTestWorld(t, nil)
	drainLoads(t, a, viewerAt(0, 0))
	drainLoads(t, b, viewerAt(0, 0))
	if a.stateDigest() != b.stateDigest() {
		t.Fatalf("digests differ for identical seeds")
	}
	c := newTestWorld(t, func(cfg *Config) { cfg.Seed = 43 })
	drainLoads(t, c, viewerAt(0, 0))
	if a.stateDigest() == c.stateDigest() {
		t.Fatalf("different seeds produced the same digest")
	}
}

func TestViewerChunkUsesFloor(t *testing.T) {
	got := viewerChunk([3]float32{-0.5, 3, 15.9})
	if got != (chunk.Coord{X: -1, Y: 0, Z: 0}) {
		t.Fatalf("viewerChunk=%v", got)
	}
}
