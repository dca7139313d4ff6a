package main

import (
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	persistlog "voxelforge.dev/internal/persistence/log"
	"voxelforge.dev/internal/sim/world"
)

func testConfig() world.Config {
	return world.Config{
		Seed:              99,
		RenderDistance:    1,
		DespawnDistance:   2,
		MaxLoadsPerTick:   3,
		WorldHeightChunks: 1,
		TickRateHz:        20,
		MeshWorkers:       1,
		Logger:            log.New(io.Discard, "", 0),
	}
}

func TestReplayMatchesRecordedStreaming(t *testing.T) {
	dir := t.TempDir()

	rec, err := world.New(testConfig())
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	defer rec.Close()
	ticks := persistlog.NewTickLog(dir, 0)
	rec.SetTickLogger(ticks)

	path := []mgl32.Vec3{{8, 40, 8}, {40, 40, 8}, {72, 40, 8}, {72, 40, 72}, {-40, 40, -40}}
	for _, p := range path {
		for i := 0; i < 8; i++ {
			rec.StepOnce(p)
		}
	}
	if err := ticks.Close(); err != nil {
		t.Fatalf("close tick log: %v", err)
	}

	logs := filepath.Join(dir, "logs")
	segs, err := persistlog.Segments(logs, persistlog.TickKind)
	if err != nil || len(segs) == 0 {
		t.Fatalf("tick segments: %v (%d)", err, len(segs))
	}

	fresh, err := world.New(testConfig())
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	defer fresh.Close()
	res, err := replay(fresh, logs, 0, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Checked == 0 {
		t.Fatalf("no ticks checked")
	}
	if res.Resident != rec.Metrics().LoadedChunks {
		t.Fatalf("resident after replay=%d, recorded=%d", res.Resident, rec.Metrics().LoadedChunks)
	}
}

func TestReplayDetectsDifferentLoadBudget(t *testing.T) {
	dir := t.TempDir()

	rec, err := world.New(testConfig())
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	defer rec.Close()
	ticks := persistlog.NewTickLog(dir, 0)
	rec.SetTickLogger(ticks)
	for i := 0; i < 6; i++ {
		rec.StepOnce(mgl32.Vec3{8, 40, 8})
	}
	if err := ticks.Close(); err != nil {
		t.Fatalf("close tick log: %v", err)
	}

	cfg := testConfig()
	cfg.MaxLoadsPerTick = 9
	other, err := world.New(cfg)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	defer other.Close()
	if _, err := replay(other, filepath.Join(dir, "logs"), 0, 0); err == nil {
		t.Fatalf("expected a streaming mismatch with a different load budget")
	}
}
