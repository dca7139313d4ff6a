package world

import (
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"voxelforge.dev/internal/persistence/chunkfile"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

func newTestWorld(t *testing.T, mut func(*Config)) *World {
	t.Helper()
	files, err := chunkfile.Open(filepath.Join(t.TempDir(), "chunks"))
	if err != nil {
		t.Fatalf("chunkfile: %v", err)
	}
	cfg := Config{
		Seed:              42,
		RenderDistance:    1,
		DespawnDistance:   2,
		MaxLoadsPerTick:   4,
		WorldHeightChunks: 2,
		TickRateHz:        20,
		MeshWorkers:       2,
		Files:             files,
		Logger:            log.New(io.Discard, "", 0),
	}
	if mut != nil {
		mut(&cfg)
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

// viewerAt places the viewer in the middle of chunk column (cx, cz).
func viewerAt(cx, cz int) mgl32.Vec3 {
	return mgl32.Vec3{float32(cx*chunk.Size + 8), 20, float32(cz*chunk.Size + 8)}
}

// drainLoads steps until the load queue is empty.
func drainLoads(t *testing.T, w *World, v mgl32.Vec3) {
	t.Helper()
	for i := 0; i < 100; i++ {
		w.StepOnce(v)
		if w.pendingLoads == 0 {
			return
		}
	}
	t.Fatalf("load queue did not drain")
}

// drainMeshes steps until every renderable has a mesh and nothing is queued.
func drainMeshes(t *testing.T, w *World, v mgl32.Vec3) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		w.StepOnce(v)
		if w.meshes.InFlight() == 0 && len(w.meshQueue) == 0 && allMeshed(w) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("meshes did not settle")
		}
		time.Sleep(time.Millisecond)
	}
}

func allMeshed(w *World) bool {
	for _, r := range w.renderables {
		if r.Mesh == nil {
			return false
		}
	}
	return true
}

// residentEmpty makes c resident as an all-air chunk with a renderable.
func residentEmpty(w *World, c chunk.Coord) *chunk.Chunk {
	ch := chunk.New()
	w.chunks.Put(c, ch)
	w.spawnRenderable(c)
	return ch
}
