// Package snapshot persists the session state that is not chunk data: the
// seed, the tick counter, the last viewer position and the growth timers.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SessionV1 struct {
	Header Header `json:"header"`

	Seed   int64      `json:"seed"`
	Viewer [3]float32 `json:"viewer"`

	Saplings []TimerV1 `json:"saplings"`
	Crops    []TimerV1 `json:"crops"`
}

// TimerV1 is a growth timer keyed by world position.
type TimerV1 struct {
	Pos       [3]int  `json:"pos"`
	Remaining float64 `json:"remaining"`
}

// Write stores the session as a JSON header line followed by a gob body,
// zstd-compressed. The file is replaced atomically.
func Write(path string, s SessionV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeFile(tmp, s); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeFile(path string, s SessionV1) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(s.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&s); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func Read(path string) (SessionV1, error) {
	var s SessionV1
	f, err := os.Open(path)
	if err != nil {
		return s, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return s, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// The header line is informational; gob carries the header too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return s, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&s); err != nil {
		return s, fmt.Errorf("gob decode: %w", err)
	}
	if s.Header.Version != Version {
		return s, fmt.Errorf("unsupported session version %d", s.Header.Version)
	}
	return s, nil
}
