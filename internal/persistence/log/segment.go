// Package log persists the tick and audit streams as zstd-compressed JSONL.
// Files are cut by tick window rather than wall clock, so a run always
// produces the same file names and a reader can seek to the segment that
// holds a tick.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"voxelforge.dev/internal/sim/world"
)

const (
	TickKind  = "ticks"
	AuditKind = "audit"

	// DefaultSegmentTicks is one hour at 20 Hz.
	DefaultSegmentTicks = 72000
)

func segmentName(kind string, start uint64) string {
	return fmt.Sprintf("%s-%012d.jsonl.zst", kind, start)
}

// segmentWriter appends records to the segment covering each record's tick.
// Ticks only move forward, so a segment is reopened at most when a process
// restarts inside it; the file is opened for append and gains a new frame.
type segmentWriter[T any] struct {
	dir    string
	kind   string
	span   uint64
	tickOf func(T) uint64

	mu    sync.Mutex
	start uint64
	f     *os.File
	enc   *zstd.Encoder
	w     *bufio.Writer
}

func newSegmentWriter[T any](worldDir, kind string, span uint64, tickOf func(T) uint64) *segmentWriter[T] {
	if span == 0 {
		span = DefaultSegmentTicks
	}
	return &segmentWriter[T]{
		dir:    filepath.Join(worldDir, "logs"),
		kind:   kind,
		span:   span,
		tickOf: tickOf,
	}
}

func (s *segmentWriter[T]) append(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.tickOf(v) / s.span * s.span
	if s.w == nil || start != s.start {
		if err := s.openLocked(start); err != nil {
			return err
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *segmentWriter[T]) openLocked(start uint64) error {
	if err := s.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, segmentName(s.kind, start)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	s.f, s.enc, s.start = f, enc, start
	s.w = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (s *segmentWriter[T]) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *segmentWriter[T]) closeLocked() error {
	if s.w == nil {
		return nil
	}
	var err error
	if ferr := s.w.Flush(); ferr != nil {
		err = ferr
	}
	if cerr := s.enc.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := s.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.f, s.enc, s.w = nil, nil, nil
	return err
}

// TickLog records one entry per non-idle tick for replay.
type TickLog struct{ seg *segmentWriter[world.TickLogEntry] }

func NewTickLog(worldDir string, segmentTicks uint64) *TickLog {
	return &TickLog{seg: newSegmentWriter(worldDir, TickKind, segmentTicks,
		func(e world.TickLogEntry) uint64 { return e.Tick })}
}

func (l *TickLog) WriteTick(e world.TickLogEntry) error { return l.seg.append(e) }
func (l *TickLog) Close() error                         { return l.seg.close() }

// AuditLog records block edits made through the runtime API.
type AuditLog struct{ seg *segmentWriter[world.AuditEntry] }

func NewAuditLog(worldDir string, segmentTicks uint64) *AuditLog {
	return &AuditLog{seg: newSegmentWriter(worldDir, AuditKind, segmentTicks,
		func(e world.AuditEntry) uint64 { return e.Tick })}
}

func (l *AuditLog) WriteAudit(e world.AuditEntry) error { return l.seg.append(e) }
func (l *AuditLog) Close() error                        { return l.seg.close() }
