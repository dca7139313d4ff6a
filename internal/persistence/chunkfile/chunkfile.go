// Package chunkfile stores one zstd-compressed file per chunk holding the raw
// 4096-byte block buffer.
package chunkfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

var (
	// ErrNotFound means no file exists for the coordinate.
	ErrNotFound = errors.New("chunkfile: not found")
	// ErrCorrupt means a file exists but could not be decoded.
	ErrCorrupt = errors.New("chunkfile: corrupt")
)

type Dir struct {
	root string
}

func Open(root string) (*Dir, error) {
	if root == "" {
		return nil, fmt.Errorf("empty chunk dir")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Root() string { return d.root }

func FileName(c chunk.Coord) string {
	return fmt.Sprintf("chunk_%d_%d_%d.bin.zst", c.X, c.Y, c.Z)
}

func (d *Dir) Path(c chunk.Coord) string {
	return filepath.Join(d.root, FileName(c))
}

func (d *Dir) Exists(c chunk.Coord) bool {
	_, err := os.Stat(d.Path(c))
	return err == nil
}

// Save writes the chunk atomically (temp file + rename) and returns the
// compressed size.
func (d *Dir) Save(c chunk.Coord, ch *chunk.Chunk) (int, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, err
	}
	if _, err := enc.Write(ch.Bytes()); err != nil {
		_ = enc.Close()
		return 0, fmt.Errorf("compress %v: %w", c, err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("compress %v: %w", c, err)
	}

	path := d.Path(c)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	return buf.Len(), nil
}

// Load reads a chunk. A missing file yields ErrNotFound; undecodable content
// yields an error wrapping ErrCorrupt.
func (d *Dir) Load(c chunk.Coord) (*chunk.Chunk, error) {
	f, err := os.Open(d.Path(c))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrCorrupt, c, err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(io.LimitReader(dec, chunk.Volume+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrCorrupt, c, err)
	}
	ch, err := chunk.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %v", ErrCorrupt, c, err)
	}
	return ch, nil
}

// Remove deletes the file for c if present.
func (d *Dir) Remove(c chunk.Coord) error {
	err := os.Remove(d.Path(c))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Reset deletes every chunk file under the root and returns how many were
// removed. Other files are left alone.
func (d *Dir) Reset() (int, error) {
	matches, err := filepath.Glob(filepath.Join(d.root, "chunk_*.bin.zst"))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range matches {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return n, err
		}
		n++
	}
	return n, nil
}
