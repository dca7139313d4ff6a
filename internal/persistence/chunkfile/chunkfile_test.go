package chunkfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "chunks"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c := chunk.Coord{X: -2, Y: 3, Z: 7}
	ch := chunk.New()
	ch.Set(0, 0, 0, block.Bedrock)
	ch.Set(15, 15, 15, block.WheatStage2)
	ch.Set(4, 9, 1, block.Chest)

	n, err := d.Save(c, ch)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if n <= 0 {
		t.Fatalf("compressed size=%d", n)
	}
	if filepath.Base(d.Path(c)) != "chunk_-2_3_7.bin.zst" {
		t.Fatalf("path=%s", d.Path(c))
	}
	got, err := d.Load(c)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(got.Bytes(), ch.Bytes()) {
		t.Fatalf("round trip mismatch")
	}
	if _, err := os.Stat(d.Path(c) + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestLoadMissing(t *testing.T) {
	d, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := d.Load(chunk.Coord{X: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	d, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c := chunk.Coord{X: 1, Y: 1, Z: 1}
	if err := os.WriteFile(d.Path(c), []byte("definitely not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Load(c); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err=%v want ErrCorrupt", err)
	}
}

func TestRemove(t *testing.T) {
	d, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c := chunk.Coord{}
	if _, err := d.Save(c, chunk.New()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !d.Exists(c) {
		t.Fatalf("expected file to exist")
	}
	if err := d.Remove(c); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := d.Remove(c); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if d.Exists(c) {
		t.Fatalf("file still exists")
	}
}

func TestReset(t *testing.T) {
	d, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for x := 0; x < 3; x++ {
		if _, err := d.Save(chunk.Coord{X: x}, chunk.New()); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	keep := filepath.Join(d.Root(), "notes.txt")
	if err := os.WriteFile(keep, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	n, err := d.Reset()
	if err != nil || n != 3 {
		t.Fatalf("reset n=%d err=%v", n, err)
	}
	if d.Exists(chunk.Coord{X: 1}) {
		t.Fatalf("chunk file survived reset")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("unrelated file removed: %v", err)
	}
}
