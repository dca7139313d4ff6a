package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"voxelforge.dev/internal/sim/world"
)

// ErrStop ends a scan early without error.
var ErrStop = errors.New("log: stop scan")

type Segment struct {
	Path  string
	Start uint64
}

// Segments lists the kind's segment files in dir, oldest first. Files that do
// not follow the naming scheme are ignored.
func Segments(dir, kind string) ([]Segment, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Segment
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		num, ok := strings.CutPrefix(e.Name(), kind+"-")
		if !ok {
			continue
		}
		num, ok = strings.CutSuffix(num, ".jsonl.zst")
		if !ok {
			continue
		}
		start, err := strconv.ParseUint(num, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Segment{Path: filepath.Join(dir, e.Name()), Start: start})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// ScanTicks calls fn for every logged tick at or after fromTick, in order.
func ScanTicks(dir string, fromTick uint64, fn func(world.TickLogEntry) error) error {
	return scan(dir, TickKind, fromTick, func(e world.TickLogEntry) uint64 { return e.Tick }, fn)
}

// ScanAudit calls fn for every audit entry at or after fromTick, in write order.
func ScanAudit(dir string, fromTick uint64, fn func(world.AuditEntry) error) error {
	return scan(dir, AuditKind, fromTick, func(e world.AuditEntry) uint64 { return e.Tick }, fn)
}

func scan[T any](dir, kind string, fromTick uint64, tickOf func(T) uint64, fn func(T) error) error {
	segs, err := Segments(dir, kind)
	if err != nil {
		return err
	}
	for i, seg := range segs {
		// Everything in this segment is older than the next one's start.
		if i+1 < len(segs) && segs[i+1].Start <= fromTick {
			continue
		}
		err := scanFile(seg.Path, func(v T) error {
			if tickOf(v) < fromTick {
				return nil
			}
			return fn(v)
		})
		if errors.Is(err, ErrStop) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(seg.Path), err)
		}
	}
	return nil
}

func scanFile[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return sc.Err()
}
