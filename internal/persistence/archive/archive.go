// Package archive keeps a copy of a world's persisted chunks before a new
// game wipes them.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"voxelforge.dev/internal/persistence/chunkfile"
)

const sessionFile = "session.snap.zst"

type Meta struct {
	Game      int    `json:"game"`
	EndTick   uint64 `json:"end_tick"`
	Seed      int64  `json:"seed"`
	NextSeed  int64  `json:"next_seed"`
	Chunks    int    `json:"chunks"`
	Session   bool   `json:"session"`
	CreatedAt string `json:"created_at"`
}

// Archiver copies `worldDir/chunks` and the session snapshot into
// `worldDir/archives/game_<NNN>/`.
type Archiver struct {
	worldDir string
	files    *chunkfile.Dir

	// OnFile is called for every file written into an archive (may be nil).
	OnFile func(path string)
}

func New(worldDir string, files *chunkfile.Dir) *Archiver {
	return &Archiver{worldDir: worldDir, files: files}
}

func (a *Archiver) Root() string { return filepath.Join(a.worldDir, "archives") }

// ArchiveGame snapshots the current on-disk game. It returns the archive
// directory.
func (a *Archiver) ArchiveGame(endTick uint64, seed, nextSeed int64) (string, error) {
	game, err := a.nextGame()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(a.Root(), fmt.Sprintf("game_%03d", game))
	chunksDir := filepath.Join(dir, "chunks")
	if err := os.MkdirAll(chunksDir, 0o755); err != nil {
		return "", err
	}

	meta := Meta{
		Game:      game,
		EndTick:   endTick,
		Seed:      seed,
		NextSeed:  nextSeed,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if a.files != nil {
		matches, err := filepath.Glob(filepath.Join(a.files.Root(), "chunk_*.bin.zst"))
		if err != nil {
			return "", err
		}
		sort.Strings(matches)
		for _, src := range matches {
			dst := filepath.Join(chunksDir, filepath.Base(src))
			if err := copyFile(src, dst); err != nil {
				return "", fmt.Errorf("archive %s: %w", filepath.Base(src), err)
			}
			a.emit(dst)
			meta.Chunks++
		}
	}

	src := filepath.Join(a.worldDir, sessionFile)
	if _, err := os.Stat(src); err == nil {
		dst := filepath.Join(dir, sessionFile)
		if err := copyFile(src, dst); err != nil {
			return "", fmt.Errorf("archive session: %w", err)
		}
		a.emit(dst)
		meta.Session = true
	}

	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	metaPath := filepath.Join(dir, "meta.json")
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		return "", err
	}
	a.emit(metaPath)
	return dir, nil
}

// List returns the metadata of every archived game, oldest first.
func (a *Archiver) List() ([]Meta, error) {
	entries, err := os.ReadDir(a.Root())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Meta
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "game_") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(a.Root(), e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var m Meta
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Game < out[j].Game })
	return out, nil
}

func (a *Archiver) nextGame() (int, error) {
	entries, err := os.ReadDir(a.Root())
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}
	next := 1
	for _, e := range entries {
		var n int
		if _, err := fmt.Sscanf(e.Name(), "game_%d", &n); err == nil && n >= next {
			next = n + 1
		}
	}
	return next, nil
}

func (a *Archiver) emit(path string) {
	if a.OnFile != nil {
		a.OnFile(path)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
