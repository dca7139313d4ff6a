package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"voxelforge.dev/internal/sim/world"
)

func TestTickLogRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLog(dir, 0)
	for i := uint64(1); i <= 3; i++ {
		if err := l.WriteTick(world.TickLogEntry{Tick: i, Loaded: int(i)}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var got []world.TickLogEntry
	err := ScanTicks(filepath.Join(dir, "logs"), 0, func(e world.TickLogEntry) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 3 || got[2].Tick != 3 || got[2].Loaded != 3 {
		t.Fatalf("got=%+v", got)
	}
}

func TestSegmentsCutByTickWindow(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLog(dir, 10)
	for _, tick := range []uint64{3, 9, 10, 14, 25} {
		if err := l.WriteTick(world.TickLogEntry{Tick: tick}); err != nil {
			t.Fatalf("write %d: %v", tick, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	logs := filepath.Join(dir, "logs")
	segs, err := Segments(logs, TickKind)
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	if len(segs) != 3 || segs[0].Start != 0 || segs[1].Start != 10 || segs[2].Start != 20 {
		t.Fatalf("segments=%+v", segs)
	}
	if filepath.Base(segs[1].Path) != "ticks-000000000010.jsonl.zst" {
		t.Fatalf("name=%s", filepath.Base(segs[1].Path))
	}

	var ticks []uint64
	err = ScanTicks(logs, 12, func(e world.TickLogEntry) error {
		ticks = append(ticks, e.Tick)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(ticks) != 2 || ticks[0] != 14 || ticks[1] != 25 {
		t.Fatalf("ticks from 12 = %v", ticks)
	}
}

func TestAuditLogAppendsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	for i, actor := range []string{"first", "second"} {
		l := NewAuditLog(dir, 0)
		if err := l.WriteAudit(world.AuditEntry{Tick: uint64(i + 1), Actor: actor, Action: "SET_BLOCK"}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	var actors []string
	err := ScanAudit(filepath.Join(dir, "logs"), 0, func(e world.AuditEntry) error {
		actors = append(actors, e.Actor)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(actors) != 2 || actors[0] != "first" || actors[1] != "second" {
		t.Fatalf("actors=%v", actors)
	}
}

func TestScanStopsEarly(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLog(dir, 0)
	for i := uint64(1); i <= 5; i++ {
		if err := l.WriteTick(world.TickLogEntry{Tick: i}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	_ = l.Close()

	n := 0
	err := ScanTicks(filepath.Join(dir, "logs"), 0, func(e world.TickLogEntry) error {
		n++
		if e.Tick == 2 {
			return ErrStop
		}
		return nil
	})
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestScanReportsBadLine(t *testing.T) {
	logs := filepath.Join(t.TempDir(), "logs")
	if err := os.MkdirAll(logs, 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(filepath.Join(logs, segmentName(AuditKind, 0)))
	if err != nil {
		t.Fatal(err)
	}
	enc, _ := zstd.NewWriter(f)
	_, _ = enc.Write([]byte("{\"tick\":1}\nnot json\n"))
	_ = enc.Close()
	_ = f.Close()

	err = ScanAudit(logs, 0, func(world.AuditEntry) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("err=%v", err)
	}
}
