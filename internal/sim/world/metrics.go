package world

import "voxelforge.dev/internal/sim/world/meshsched"

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`
	Seed int64  `json:"seed"`

	Viewer      [3]float32 `json:"viewer"`
	ViewerChunk [3]int     `json:"viewer_chunk"`

	LoadedChunks int `json:"loaded_chunks"`
	DirtyChunks  int `json:"dirty_chunks"`
	PendingLoads int `json:"pending_loads"`
	MeshQueue    int `json:"mesh_queue"`

	Saplings int `json:"saplings"`
	Crops    int `json:"crops"`

	ChunksGenerated uint64 `json:"chunks_generated"`
	ChunksFromDisk  uint64 `json:"chunks_from_disk"`
	CorruptLoads    uint64 `json:"corrupt_loads"`
	ChunksSaved     uint64 `json:"chunks_saved"`
	SaveFailures    uint64 `json:"save_failures"`
	Grown           uint64 `json:"grown"`

	Mesh meshsched.Stats `json:"mesh"`

	StepMS float64 `json:"step_ms"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics(e TickLogEntry, stepMS float64) {
	w.metrics.Store(WorldMetrics{
		Tick:            e.Tick,
		Seed:            w.noise.Seed(),
		Viewer:          e.Viewer,
		ViewerChunk:     e.ViewerChunk,
		LoadedChunks:    e.Resident,
		DirtyChunks:     e.Dirty,
		PendingLoads:    w.pendingLoads,
		MeshQueue:       len(w.meshQueue),
		Saplings:        len(w.saplings),
		Crops:           len(w.crops),
		ChunksGenerated: w.totals.generated,
		ChunksFromDisk:  w.totals.fromDisk,
		CorruptLoads:    w.totals.corrupt,
		ChunksSaved:     w.totals.saved,
		SaveFailures:    w.totals.saveFailures,
		Grown:           w.totals.grown,
		Mesh:            w.meshes.Stats(),
		StepMS:          stepMS,
	})
}
