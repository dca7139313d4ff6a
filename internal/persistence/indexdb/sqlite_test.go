package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

func TestSQLiteIndex_RecordsSavesAndFaults(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "index.db")

	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c := chunk.Coord{X: 3, Y: 4, Z: -5}
	idx.RecordSave(SaveRow{Coord: c, Tick: 10, Bytes: 120, Digest: "aa"})
	idx.RecordSave(SaveRow{Coord: c, Tick: 20, Bytes: 130, Digest: "bb"})
	idx.RecordFault(FaultRow{Coord: c, Tick: 21, Kind: FaultCorrupt, Detail: "bad magic"})
	if err := idx.SetMeta("seed", "42"); err != nil {
		t.Fatalf("set meta: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	row, saves, ok, err := idx.LastSave(ctx, c)
	if err != nil || !ok {
		t.Fatalf("last save: ok=%v err=%v", ok, err)
	}
	if row.Tick != 20 || row.Bytes != 130 || row.Digest != "bb" || saves != 2 {
		t.Fatalf("row=%+v saves=%d", row, saves)
	}
	faults, err := idx.Faults(ctx, c)
	if err != nil {
		t.Fatalf("faults: %v", err)
	}
	if len(faults) != 1 || faults[0].Kind != FaultCorrupt {
		t.Fatalf("faults=%+v", faults)
	}
	if _, _, ok, err := idx.LastSave(ctx, chunk.Coord{}); err != nil || ok {
		t.Fatalf("unexpected row for unsaved chunk: ok=%v err=%v", ok, err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	var seed string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key='seed'`).Scan(&seed); err != nil {
		t.Fatalf("query meta: %v", err)
	}
	if seed != "42" {
		t.Fatalf("seed=%q", seed)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.RecordSave(SaveRow{Tick: 1})
	s.RecordSave(SaveRow{Tick: 2})
	s.RecordFault(FaultRow{Tick: 2})

	st := s.Stats()
	if st.DroppedTotal != 2 {
		t.Fatalf("DroppedTotal=%d want 2", st.DroppedTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_NilIsNoop(t *testing.T) {
	var s *SQLiteIndex
	s.RecordSave(SaveRow{})
	s.RecordFault(FaultRow{})
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush on nil: %v", err)
	}
	if st := s.Stats(); st.QueueCapacity != 0 {
		t.Fatalf("stats on nil: %+v", st)
	}
}
