// Package indexdb keeps a queryable SQLite record of chunk saves and load
// faults. It is a secondary index: the chunk files stay the source of truth.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/atomic"
	_ "modernc.org/sqlite"

	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqSave reqKind = iota + 1
	reqFault
	reqFlush
)

type req struct {
	kind  reqKind
	save  SaveRow
	fault FaultRow
	done  chan struct{}
}

// SaveRow describes one successful chunk write.
type SaveRow struct {
	Coord  chunk.Coord
	Tick   uint64
	Bytes  int
	Digest string
}

// FaultRow describes a chunk that could not be loaded or saved.
type FaultRow struct {
	Coord  chunk.Coord
	Tick   uint64
	Kind   string
	Detail string
}

const (
	FaultCorrupt    = "corrupt"
	FaultReadError  = "read_error"
	FaultWriteError = "write_error"
)

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 8192),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunk_saves (
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			digest TEXT NOT NULL,
			saves INTEGER NOT NULL DEFAULT 1,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (cx, cy, cz)
		);`,
		`CREATE TABLE IF NOT EXISTS chunk_faults (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_faults_pos ON chunk_faults(cx, cz, cy);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// SetMeta stores a key/value pair synchronously (e.g. the world seed).
func (s *SQLiteIndex) SetMeta(key, value string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, key, value)
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordSave queues a save row. It never blocks; rows are dropped when the
// writer falls behind.
func (s *SQLiteIndex) RecordSave(r SaveRow) {
	s.enqueue(req{kind: reqSave, save: r})
}

func (s *SQLiteIndex) RecordFault(r FaultRow) {
	s.enqueue(req{kind: reqFault, fault: r})
}

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Inc()
	}
}

// Flush blocks until every queued row is committed or ctx ends.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DroppedTotal  uint64 `json:"dropped_total"`
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DroppedTotal:  s.dropped.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	upsertSave, _ := s.db.Prepare(`INSERT INTO chunk_saves(cx,cy,cz,tick,bytes,digest,saves,recorded_at) VALUES(?,?,?,?,?,?,1,?)
		ON CONFLICT(cx,cy,cz) DO UPDATE SET tick=excluded.tick, bytes=excluded.bytes, digest=excluded.digest,
		saves=chunk_saves.saves+1, recorded_at=excluded.recorded_at`)
	insertFault, _ := s.db.Prepare(`INSERT INTO chunk_faults(tick,cx,cy,cz,kind,detail,recorded_at) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		if upsertSave != nil {
			_ = upsertSave.Close()
		}
		if insertFault != nil {
			_ = insertFault.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		switch r.kind {
		case reqSave:
			sv := r.save
			if upsertSave == nil {
				break
			}
			if _, err := tx.Stmt(upsertSave).Exec(sv.Coord.X, sv.Coord.Y, sv.Coord.Z, int64(sv.Tick), sv.Bytes, sv.Digest, now); err != nil {
				rollback()
				continue
			}
			opCount++
		case reqFault:
			f := r.fault
			if insertFault == nil {
				break
			}
			if _, err := tx.Stmt(insertFault).Exec(int64(f.Tick), f.Coord.X, f.Coord.Y, f.Coord.Z, f.Kind, f.Detail, now); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
