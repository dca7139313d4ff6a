package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"voxelforge.dev/internal/persistence/chunkfile"
	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
	"voxelforge.dev/internal/sim/world/terrain/noise"
)

func TestHistogramCoversVolume(t *testing.T) {
	ch := chunk.New()
	for x := 0; x < chunk.Size; x++ {
		ch.Set(x, 0, 0, block.Stone)
	}
	hist := histogram(ch)
	if len(hist) != 2 {
		t.Fatalf("got %d entries, want 2", len(hist))
	}
	if hist[0].Block != block.Air || hist[1].Block != block.Stone || hist[1].Count != chunk.Size {
		t.Fatalf("histogram %+v", hist)
	}
	total := 0
	for _, bc := range hist {
		total += bc.Count
	}
	if total != chunk.Volume {
		t.Fatalf("total=%d, want %d", total, chunk.Volume)
	}
}

func TestLoadOrGeneratePrefersDisk(t *testing.T) {
	files, err := chunkfile.Open(filepath.Join(t.TempDir(), "chunks"))
	if err != nil {
		t.Fatalf("chunkfile: %v", err)
	}
	src := noise.New(5)
	c := chunk.Coord{X: 1, Y: 2, Z: -1}

	_, origin, err := loadOrGenerate(files, src, c)
	if err != nil || origin != "generated" {
		t.Fatalf("origin=%q err=%v, want generated", origin, err)
	}

	saved := chunk.New()
	saved.Set(1, 1, 1, block.Glass)
	if _, err := files.Save(c, saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, origin, err := loadOrGenerate(files, src, c)
	if err != nil || origin != "disk" {
		t.Fatalf("origin=%q err=%v, want disk", origin, err)
	}
	if got.Get(1, 1, 1) != block.Glass {
		t.Fatalf("loaded chunk does not match saved data")
	}
}

func TestPrintHeightMapDrawsEveryColumn(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	printHeightMap(&buf, noise.New(1), chunk.Coord{})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != chunk.Size+1 {
		t.Fatalf("got %d lines, want %d", len(lines), chunk.Size+1)
	}
	for _, l := range lines[1:] {
		if n := len(strings.Fields(l)); n != chunk.Size {
			t.Fatalf("row has %d cells, want %d: %q", n, chunk.Size, l)
		}
	}
}
