// Package meshsched runs mesh builds on a worker pool and hands finished
// meshes back to the world loop without blocking it.
package meshsched

import (
	"runtime"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"voxelforge.dev/internal/sim/world/mesh"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

type task struct {
	id     uuid.UUID
	gen    uint64
	coord  chunk.Coord
	result pond.Result[*mesh.Mesh]
}

// Scheduler owns the in-flight mesh tasks. Submit and Poll must be called
// from a single goroutine; only the builds themselves run on the pool.
type Scheduler struct {
	pool     pond.ResultPool[*mesh.Mesh]
	inflight []task

	submitted atomic.Uint64
	applied   atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	pending   atomic.Int64
}

// Stats is a point-in-time copy of the scheduler counters.
type Stats struct {
	Submitted uint64 `json:"submitted"`
	Applied   uint64 `json:"applied"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
	InFlight  int64  `json:"in_flight"`
}

// New creates a scheduler with the given worker count; workers <= 0 uses
// one worker per CPU.
func New(workers int) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scheduler{pool: pond.NewResultPool[*mesh.Mesh](workers)}
}

// Submit queues a build for entity id and returns its generation. Generations
// increase with every submit, so a caller can tell an older build that
// finishes late from a newer one. The chunk and its neighbours are copied
// before Submit returns, so callers may keep mutating them.
func (s *Scheduler) Submit(id uuid.UUID, c chunk.Coord, ch *chunk.Chunk, nb mesh.Neighbors) uint64 {
	snap := ch.Clone()
	var nbSnap mesh.Neighbors
	for i, n := range nb {
		if n != nil {
			nbSnap[i] = n.Clone()
		}
	}
	r := s.pool.Submit(func() *mesh.Mesh {
		return mesh.Build(snap, nbSnap)
	})
	gen := s.submitted.Inc()
	s.inflight = append(s.inflight, task{id: id, gen: gen, coord: c, result: r})
	s.pending.Inc()
	return gen
}

// Generation is the generation of the most recent Submit.
func (s *Scheduler) Generation() uint64 { return s.submitted.Load() }

// Poll hands every finished mesh to apply, oldest submit first, and keeps
// unfinished tasks. apply returns false when the entity no longer exists or
// already holds a newer mesh; such results are counted as dropped. Poll never
// waits for a running build.
func (s *Scheduler) Poll(apply func(id uuid.UUID, gen uint64, c chunk.Coord, m *mesh.Mesh) bool) int {
	n := 0
	keep := s.inflight[:0]
	for _, t := range s.inflight {
		select {
		case <-t.result.Done():
		default:
			keep = append(keep, t)
			continue
		}
		s.pending.Dec()
		m, err := t.result.Wait()
		if err != nil {
			s.failed.Inc()
			continue
		}
		if apply(t.id, t.gen, t.coord, m) {
			s.applied.Inc()
			n++
		} else {
			s.dropped.Inc()
		}
	}
	for i := len(keep); i < len(s.inflight); i++ {
		s.inflight[i] = task{}
	}
	s.inflight = keep
	return n
}

// InFlight reports the number of submitted builds not yet polled.
func (s *Scheduler) InFlight() int { return len(s.inflight) }

func (s *Scheduler) Stats() Stats {
	return Stats{
		Submitted: s.submitted.Load(),
		Applied:   s.applied.Load(),
		Dropped:   s.dropped.Load(),
		Failed:    s.failed.Load(),
		InFlight:  s.pending.Load(),
	}
}

// Close waits for running builds and releases the pool. Results still in
// flight are discarded.
func (s *Scheduler) Close() {
	s.pool.StopAndWait()
	s.inflight = nil
	s.pending.Store(0)
}
