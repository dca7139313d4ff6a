package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"voxelforge.dev/internal/persistence/chunkfile"
	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

func TestArchiveGameCopiesChunksAndSession(t *testing.T) {
	worldDir := t.TempDir()
	files, err := chunkfile.Open(filepath.Join(worldDir, "chunks"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ch := chunk.New()
	ch.Set(1, 2, 3, block.Glass)
	for x := 0; x < 2; x++ {
		if _, err := files.Save(chunk.Coord{X: x}, ch); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(worldDir, sessionFile), []byte("session"), 0o644); err != nil {
		t.Fatalf("write session: %v", err)
	}

	a := New(worldDir, files)
	var emitted []string
	a.OnFile = func(p string) { emitted = append(emitted, p) }

	dir, err := a.ArchiveGame(120, 7, 8)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if filepath.Base(dir) != "game_001" {
		t.Fatalf("dir=%s", dir)
	}
	// Two chunks, the session and meta.json.
	if len(emitted) != 4 {
		t.Fatalf("emitted %v", emitted)
	}

	archived, err := chunkfile.Open(filepath.Join(dir, "chunks"))
	if err != nil {
		t.Fatalf("open archived: %v", err)
	}
	got, err := archived.Load(chunk.Coord{X: 1})
	if err != nil {
		t.Fatalf("load archived: %v", err)
	}
	if !bytes.Equal(got.Bytes(), ch.Bytes()) {
		t.Fatalf("archived chunk differs")
	}

	// Wiping the live files leaves the archive intact.
	if _, err := files.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !archived.Exists(chunk.Coord{X: 0}) {
		t.Fatalf("archive lost after reset")
	}

	list, err := a.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Chunks != 2 || !list[0].Session || list[0].Seed != 7 || list[0].NextSeed != 8 {
		t.Fatalf("list=%+v", list)
	}
}

func TestArchiveGameNumbersSequentially(t *testing.T) {
	worldDir := t.TempDir()
	a := New(worldDir, nil)
	for want := 1; want <= 3; want++ {
		dir, err := a.ArchiveGame(uint64(want), 1, 2)
		if err != nil {
			t.Fatalf("archive: %v", err)
		}
		list, _ := a.List()
		if len(list) != want || list[want-1].Game != want {
			t.Fatalf("after %s list=%+v", dir, list)
		}
	}
}

func TestListWithoutArchives(t *testing.T) {
	list, err := New(t.TempDir(), nil).List()
	if err != nil || len(list) != 0 {
		t.Fatalf("list=%v err=%v", list, err)
	}
}
