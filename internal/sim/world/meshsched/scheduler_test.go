package meshsched

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/mesh"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

func pollUntil(t *testing.T, s *Scheduler, apply func(uuid.UUID, uint64, chunk.Coord, *mesh.Mesh) bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.InFlight() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("mesh tasks did not finish")
		}
		s.Poll(apply)
		time.Sleep(time.Millisecond)
	}
}

func TestSubmitPollApplies(t *testing.T) {
	s := New(2)
	defer s.Close()

	ch := chunk.New()
	ch.Set(1, 1, 1, block.Stone)
	id := uuid.New()
	s.Submit(id, chunk.Coord{}, ch, mesh.Neighbors{})

	// Mutating after submit must not affect the build.
	ch.Set(8, 8, 8, block.Stone)

	var got *mesh.Mesh
	pollUntil(t, s, func(gotID uuid.UUID, _ uint64, c chunk.Coord, m *mesh.Mesh) bool {
		if gotID != id {
			t.Fatalf("id=%v want %v", gotID, id)
		}
		got = m
		return true
	})
	if got == nil || got.Quads != 6 {
		t.Fatalf("mesh=%+v", got)
	}
	st := s.Stats()
	if st.Submitted != 1 || st.Applied != 1 || st.Dropped != 0 || st.InFlight != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestOrphanedResultsAreDropped(t *testing.T) {
	s := New(1)
	defer s.Close()

	live := uuid.New()
	gone := uuid.New()
	ch := chunk.New()
	ch.Set(0, 0, 0, block.Dirt)
	s.Submit(live, chunk.Coord{X: 1}, ch, mesh.Neighbors{})
	s.Submit(gone, chunk.Coord{X: 2}, ch, mesh.Neighbors{})

	applied := map[uuid.UUID]bool{}
	pollUntil(t, s, func(id uuid.UUID, _ uint64, _ chunk.Coord, _ *mesh.Mesh) bool {
		if id == gone {
			return false
		}
		applied[id] = true
		return true
	})
	if !applied[live] || applied[gone] {
		t.Fatalf("applied=%v", applied)
	}
	st := s.Stats()
	if st.Applied != 1 || st.Dropped != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestPollWithNothingInFlight(t *testing.T) {
	s := New(1)
	defer s.Close()
	if n := s.Poll(func(uuid.UUID, uint64, chunk.Coord, *mesh.Mesh) bool { return true }); n != 0 {
		t.Fatalf("n=%d", n)
	}
}

func TestGenerationsIncreasePerSubmit(t *testing.T) {
	s := New(1)
	defer s.Close()

	id := uuid.New()
	ch := chunk.New()
	ch.Set(0, 0, 0, block.Dirt)
	g1 := s.Submit(id, chunk.Coord{}, ch, mesh.Neighbors{})
	ch.Set(5, 0, 0, block.Dirt)
	g2 := s.Submit(id, chunk.Coord{}, ch, mesh.Neighbors{})
	if g1 == 0 || g2 <= g1 || s.Generation() != g2 {
		t.Fatalf("g1=%d g2=%d generation=%d", g1, g2, s.Generation())
	}

	quads := map[uint64]int{}
	pollUntil(t, s, func(_ uuid.UUID, gen uint64, _ chunk.Coord, m *mesh.Mesh) bool {
		quads[gen] = m.Quads
		return true
	})
	if quads[g1] != 6 || quads[g2] != 12 {
		t.Fatalf("quads by generation=%v", quads)
	}
}
