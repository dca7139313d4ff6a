package world

import (
	"errors"
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"voxelforge.dev/internal/persistence/chunkfile"
	"voxelforge.dev/internal/persistence/indexdb"
	"voxelforge.dev/internal/persistence/snapshot"
	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/mesh"
	"voxelforge.dev/internal/sim/world/meshsched"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
	"voxelforge.dev/internal/sim/world/terrain/gen"
	"voxelforge.dev/internal/sim/world/terrain/noise"
	"voxelforge.dev/internal/sim/world/terrain/store"
)

var (
	ErrNotResident  = errors.New("chunk not resident")
	ErrUnknownBlock = errors.New("unknown block type")
	ErrStopped      = errors.New("world stopped")
)

// BlockPos is a world cell position.
type BlockPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (p BlockPos) chunk() chunk.Coord { return chunk.CoordOf(p.X, p.Y, p.Z) }

// Renderable is the handle a resident chunk is drawn through. Its mesh is
// nil between tagging and the first completed build.
type Renderable struct {
	ID        uuid.UUID
	Coord     chunk.Coord
	NeedsMesh bool
	Mesh      *mesh.Mesh
	Version   uint64
	// MeshGen is the build generation of Mesh. Builds older than it are
	// discarded when they finish.
	MeshGen uint64
}

// MeshEvent is emitted whenever a finished mesh is attached to a renderable.
type MeshEvent struct {
	Tick       uint64
	EntityID   uuid.UUID
	Coord      chunk.Coord
	Version    uint64
	Vertices   int
	Triangles  int
	Quads      int
	Billboards int
}

// World owns the resident voxel data and everything derived from it.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg Config
	log *log.Logger

	noise  *noise.Source
	chunks *store.ChunkStore
	files  *chunkfile.Dir
	index  *indexdb.SQLiteIndex
	meshes *meshsched.Scheduler

	renderables map[chunk.Coord]*Renderable
	meshQueue   map[chunk.Coord]struct{}

	saplings map[BlockPos]float64
	crops    map[BlockPos]float64

	viewer       mgl32.Vec3
	lastAutosave uint64
	pendingLoads int
	totals       totals

	tick    atomic.Uint64
	metrics atomic.Value

	viewerIn   chan mgl32.Vec3
	blockReq   chan blockReq
	stateReq   chan stateReq
	saveReq    chan saveReq
	newGameReq chan newGameReq
	observeReq chan observeReq
	stop       chan struct{}
	stopOnce   sync.Once

	// Optional sinks (may be nil). Implemented in internal/persistence/* and
	// internal/transport/ws.
	tickLogger  TickLogger
	auditLogger AuditLogger
	meshSink    chan<- MeshEvent
	sessionSink chan<- snapshot.SessionV1
}

type totals struct {
	generated    uint64
	fromDisk     uint64
	corrupt      uint64
	saved        uint64
	saveFailures uint64
	grown        uint64
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// TickLogEntry summarizes one tick. Idle ticks are not logged.
type TickLogEntry struct {
	Tick          uint64     `json:"tick"`
	Viewer        [3]float32 `json:"viewer"`
	ViewerChunk   [3]int     `json:"viewer_chunk"`
	Loaded        int        `json:"loaded"`
	Unloaded      int        `json:"unloaded"`
	Generated     int        `json:"generated"`
	FromDisk      int        `json:"from_disk"`
	PendingLoads  int        `json:"pending_loads"`
	MeshSubmitted int        `json:"mesh_submitted"`
	MeshApplied   int        `json:"mesh_applied"`
	Grown         int        `json:"grown,omitempty"`
	Saved         int        `json:"saved,omitempty"`
	SaveFailed    int        `json:"save_failed,omitempty"`
	Edits         int        `json:"edits,omitempty"`
	Resident      int        `json:"resident"`
	Dirty         int        `json:"dirty"`
}

func (e TickLogEntry) idle() bool {
	return e.Loaded == 0 && e.Unloaded == 0 && e.MeshSubmitted == 0 && e.MeshApplied == 0 &&
		e.Grown == 0 && e.Saved == 0 && e.SaveFailed == 0 && e.Edits == 0
}

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Actor  string `json:"actor"`
	Action string `json:"action"` // e.g. "SET_BLOCK"
	Pos    [3]int `json:"pos"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

func New(cfg Config) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	w := &World{
		cfg:         cfg,
		log:         cfg.Logger,
		noise:       noise.New(cfg.Seed),
		chunks:      store.NewChunkStore(),
		files:       cfg.Files,
		index:       cfg.Index,
		meshes:      meshsched.New(cfg.MeshWorkers),
		renderables: map[chunk.Coord]*Renderable{},
		meshQueue:   map[chunk.Coord]struct{}{},
		saplings:    map[BlockPos]float64{},
		crops:       map[BlockPos]float64{},
		viewerIn:    make(chan mgl32.Vec3, 64),
		blockReq:    make(chan blockReq, 256),
		stateReq:    make(chan stateReq, 16),
		saveReq:     make(chan saveReq, 4),
		newGameReq:  make(chan newGameReq, 4),
		observeReq:  make(chan observeReq, 16),
		stop:        make(chan struct{}),
	}
	w.viewer = w.spawnPoint()
	if w.index != nil {
		_ = w.index.SetMeta("seed", formatSeed(cfg.Seed))
	}
	return w, nil
}

// spawnPoint is just above the terrain at the world origin column.
func (w *World) spawnPoint() mgl32.Vec3 {
	h := gen.SurfaceHeight(w.noise, 0, 0)
	return mgl32.Vec3{0.5, float32(h + 2), 0.5}
}

// Close releases the mesh workers. Call after Run has returned.
func (w *World) Close() {
	w.meshes.Close()
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

// Seed is the active world seed. Loop goroutine only, or while stopped.
func (w *World) Seed() int64 { return w.noise.Seed() }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) SetTickLogger(l TickLogger)                  { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                { w.auditLogger = l }
func (w *World) SetMeshSink(ch chan<- MeshEvent)             { w.meshSink = ch }
func (w *World) SetSessionSink(ch chan<- snapshot.SessionV1) { w.sessionSink = ch }

// Renderable returns the handle for a resident chunk. Loop goroutine only.
func (w *World) Renderable(c chunk.Coord) (*Renderable, bool) {
	r, ok := w.renderables[c]
	return r, ok
}

func (w *World) blockAt(p BlockPos) block.Type {
	return w.chunks.GetBlock(p.X, p.Y, p.Z)
}
