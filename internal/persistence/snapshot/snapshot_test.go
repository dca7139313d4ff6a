package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world", "session.snap.zst")
	in := SessionV1{
		Header:   Header{Version: Version, WorldID: "w1", Tick: 900},
		Seed:     42,
		Viewer:   [3]float32{1.5, 80, -3},
		Saplings: []TimerV1{{Pos: [3]int{1, 65, 2}, Remaining: 61.5}},
		Crops:    []TimerV1{{Pos: [3]int{-4, 70, 9}, Remaining: 20}},
	}
	if err := Write(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
	out, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Seed != 42 || out.Header.Tick != 900 || out.Viewer != in.Viewer {
		t.Fatalf("out=%+v", out)
	}
	if len(out.Saplings) != 1 || out.Saplings[0] != in.Saplings[0] {
		t.Fatalf("saplings=%+v", out.Saplings)
	}
	if len(out.Crops) != 1 || out.Crops[0] != in.Crops[0] {
		t.Fatalf("crops=%+v", out.Crops)
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.snap.zst")
	if err := Write(path, SessionV1{Header: Header{Version: 7}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatalf("expected version error")
	}
}
