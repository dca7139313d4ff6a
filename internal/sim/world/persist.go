package world

import (
	"fmt"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"voxelforge.dev/internal/persistence/indexdb"
	"voxelforge.dev/internal/persistence/snapshot"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
	"voxelforge.dev/internal/sim/world/terrain/noise"
)

// saveChunk writes a resident chunk and clears its dirty flag only once the
// write succeeded. Without a chunk directory there is nothing to write and
// the flag is simply cleared.
func (w *World) saveChunk(c chunk.Coord, nowTick uint64) error {
	ch, ok := w.chunks.Get(c)
	if !ok {
		return ErrNotResident
	}
	if w.files == nil {
		w.chunks.ClearDirty(c)
		return nil
	}
	n, err := w.files.Save(c, ch)
	if err != nil {
		w.totals.saveFailures++
		w.log.Printf("chunk %v: save failed: %v", c, err)
		w.recordFault(c, nowTick, indexdb.FaultWriteError, err)
		return fmt.Errorf("save chunk %v: %w", c, err)
	}
	w.chunks.ClearDirty(c)
	w.totals.saved++
	if w.cfg.Mirror != nil {
		w.cfg.Mirror.Enqueue(w.files.Path(c))
	}
	if w.index != nil {
		w.index.RecordSave(indexdb.SaveRow{Coord: c, Tick: nowTick, Bytes: n, Digest: ch.Digest()})
	}
	return nil
}

// SaveResult reports the outcome of a dirty-chunk sweep.
type SaveResult struct {
	Saved  int `json:"saved"`
	Failed int `json:"failed"`
}

// saveDirty writes every dirty chunk. Failures stay dirty.
func (w *World) saveDirty(nowTick uint64) SaveResult {
	var res SaveResult
	for _, c := range w.chunks.DirtyKeys() {
		if err := w.saveChunk(c, nowTick); err != nil {
			res.Failed++
			continue
		}
		res.Saved++
	}
	return res
}

func (w *World) recordFault(c chunk.Coord, nowTick uint64, kind string, err error) {
	if w.index == nil {
		return
	}
	w.index.RecordFault(indexdb.FaultRow{Coord: c, Tick: nowTick, Kind: kind, Detail: err.Error()})
}

// autosave persists dirty chunks and publishes the session state every
// AutosaveSeconds.
func (w *World) autosave(nowTick uint64) SaveResult {
	every := w.cfg.autosaveEveryTicks()
	if every == 0 || nowTick == 0 || nowTick-w.lastAutosave < every {
		return SaveResult{}
	}
	w.lastAutosave = nowTick
	res := w.saveDirty(nowTick)
	if res.Failed > 0 {
		w.log.Printf("autosave: saved=%d failed=%d", res.Saved, res.Failed)
	}
	if w.sessionSink != nil {
		select {
		case w.sessionSink <- w.ExportSession():
		default:
			// Drop if the writer is backed up; the next autosave catches up.
		}
	}
	return res
}

// Shutdown writes every dirty chunk. Call after Run has returned.
func (w *World) Shutdown() SaveResult {
	return w.saveDirty(w.tick.Load())
}

// newGame discards the current world: renderables, resident chunks, growth
// timers and every persisted chunk file. Generation restarts from seed.
// With an archiver configured the outgoing game is saved and archived first;
// if archiving fails nothing is discarded.
func (w *World) newGame(seed int64) error {
	if w.cfg.Archiver != nil && w.files != nil {
		if res := w.saveDirty(w.tick.Load()); res.Failed > 0 {
			return fmt.Errorf("new game: %d chunks could not be saved for archiving", res.Failed)
		}
		dir, err := w.cfg.Archiver.ArchiveGame(w.tick.Load(), w.noise.Seed(), seed)
		if err != nil {
			return fmt.Errorf("archive game: %w", err)
		}
		w.log.Printf("new game: archived previous game to %s", dir)
	}
	for c := range w.renderables {
		w.destroyRenderable(c)
	}
	w.chunks.Clear()
	w.saplings = map[BlockPos]float64{}
	w.crops = map[BlockPos]float64{}
	w.pendingLoads = 0

	if w.files != nil {
		n, err := w.files.Reset()
		if err != nil {
			return fmt.Errorf("reset chunk files: %w", err)
		}
		w.log.Printf("new game: removed %d chunk files", n)
	}
	w.noise = noise.New(seed)
	w.cfg.Seed = seed
	w.viewer = w.spawnPoint()
	if w.index != nil {
		_ = w.index.SetMeta("seed", formatSeed(seed))
	}
	w.log.Printf("new game: seed=%d", seed)
	return nil
}

// ExportSession captures the non-chunk state needed to resume this world.
func (w *World) ExportSession() snapshot.SessionV1 {
	s := snapshot.SessionV1{
		Header: snapshot.Header{Version: snapshot.Version, WorldID: w.cfg.ID, Tick: w.tick.Load()},
		Seed:   w.noise.Seed(),
		Viewer: [3]float32{w.viewer[0], w.viewer[1], w.viewer[2]},
	}
	for _, p := range sortedPositions(w.saplings) {
		s.Saplings = append(s.Saplings, snapshot.TimerV1{Pos: [3]int{p.X, p.Y, p.Z}, Remaining: w.saplings[p]})
	}
	for _, p := range sortedPositions(w.crops) {
		s.Crops = append(s.Crops, snapshot.TimerV1{Pos: [3]int{p.X, p.Y, p.Z}, Remaining: w.crops[p]})
	}
	return s
}

// ImportSession restores a previously exported session. It must be called
// before Run, while no chunks are resident.
func (w *World) ImportSession(s snapshot.SessionV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported session version %d", s.Header.Version)
	}
	if w.chunks.Len() != 0 {
		return fmt.Errorf("import session: %d chunks already resident", w.chunks.Len())
	}
	if s.Seed != w.noise.Seed() {
		w.noise = noise.New(s.Seed)
		w.cfg.Seed = s.Seed
	}
	w.tick.Store(s.Header.Tick)
	w.lastAutosave = s.Header.Tick
	w.viewer = mgl32.Vec3{s.Viewer[0], s.Viewer[1], s.Viewer[2]}
	w.saplings = make(map[BlockPos]float64, len(s.Saplings))
	for _, t := range s.Saplings {
		w.saplings[BlockPos{X: t.Pos[0], Y: t.Pos[1], Z: t.Pos[2]}] = t.Remaining
	}
	w.crops = make(map[BlockPos]float64, len(s.Crops))
	for _, t := range s.Crops {
		w.crops[BlockPos{X: t.Pos[0], Y: t.Pos[1], Z: t.Pos[2]}] = t.Remaining
	}
	if w.index != nil {
		_ = w.index.SetMeta("seed", formatSeed(s.Seed))
	}
	return nil
}

func formatSeed(seed int64) string { return strconv.FormatInt(seed, 10) }
