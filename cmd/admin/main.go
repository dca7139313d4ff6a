package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"voxelforge.dev/internal/persistence/chunkfile"
	persistlog "voxelforge.dev/internal/persistence/log"
	"voxelforge.dev/internal/sim/world"
	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rollback":
			rollbackCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		}
		if rc, ok := remoteCmds[os.Args[1]]; ok {
			remoteCmd(os.Args[1], rc, os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// remote describes a subcommand served by a running server's admin API.
type remote struct {
	method  string
	path    string
	timeout time.Duration
}

var remoteCmds = map[string]remote{
	"state":    {http.MethodGet, "/admin/v1/state", 5 * time.Second},
	"archives": {http.MethodGet, "/admin/v1/archives", 5 * time.Second},
	"save":     {http.MethodPost, "/admin/v1/save", 30 * time.Second},
	// Saving and archiving the old game can take a while.
	"new_game": {http.MethodPost, "/admin/v1/new_game", 2 * time.Minute},
}

func remoteCmd(name string, rc remote, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	seed := fs.String("seed", "", "new_game seed (default: server picks one)")
	_ = fs.Parse(args)

	var body []byte
	if name == "new_game" {
		var err error
		if body, err = newGameBody(*seed); err != nil {
			fmt.Fprintln(os.Stderr, "bad -seed:", err)
			os.Exit(2)
		}
	}
	status, out, err := callAdmin(&http.Client{Timeout: rc.timeout}, *baseURL, rc, body)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	fmt.Println(strings.TrimSpace(string(out)))
	if status/100 != 2 {
		os.Exit(1)
	}
}

func newGameBody(seed string) ([]byte, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return []byte("{}"), nil
	}
	n, err := strconv.ParseInt(seed, 10, 64)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]int64{"seed": n})
}

func callAdmin(cl *http.Client, baseURL string, rc remote, body []byte) (int, []byte, error) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + rc.path
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(rc.method, u, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := cl.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, _ := filepath.Glob(filepath.Join(*dataDir, e.Name(), "chunks", "chunk_*.bin.zst"))
		fmt.Printf("%s\tchunks=%d\n", e.Name(), len(n))
	}
}

// rollbackCmd reverts audited block edits directly in the chunk files. The
// server must not be running against the same data directory.
func rollbackCmd(args []string) {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "overworld", "world id")
	aabb := fs.String("aabb", "", "AABB filter: x1,y1,z1:x2,y2,z2 (required)")
	sinceTick := fs.Uint64("since_tick", 0, "rollback changes since tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "rollback changes up to tick (inclusive, 0 = no limit)")
	dryRun := fs.Bool("dry_run", false, "report matching edits without writing chunks")
	_ = fs.Parse(args)

	if strings.TrimSpace(*aabb) == "" {
		fmt.Fprintln(os.Stderr, "missing -aabb")
		os.Exit(2)
	}
	min, max, err := parseAABB(*aabb)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -aabb:", err)
		os.Exit(2)
	}
	endTick := *toTick
	if endTick == 0 {
		endTick = ^uint64(0)
	}

	worldDir := filepath.Join(*dataDir, *worldID)
	recs, err := readAudit(filepath.Join(worldDir, "logs"), *sinceTick, endTick, min, max)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	if len(recs) == 0 {
		fmt.Println("no matching audit entries; nothing to rollback")
		return
	}
	if *dryRun {
		for _, r := range recs {
			printJSON(r.Entry)
		}
		return
	}

	files, err := chunkfile.Open(filepath.Join(worldDir, "chunks"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open chunks:", err)
		os.Exit(1)
	}
	res, err := applyRollback(files, recs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rollback:", err)
		os.Exit(1)
	}
	fmt.Printf("rollback ok: world=%s aabb=%s since=%d entries=%d applied=%d skipped=%d chunks=%d\n",
		*worldID, *aabb, *sinceTick, len(recs), res.Applied, res.Skipped, res.Chunks)
}

type auditRec struct {
	Seq   uint64
	Entry world.AuditEntry
}

func readAudit(dir string, sinceTick, toTick uint64, min, max [3]int) ([]auditRec, error) {
	out := make([]auditRec, 0, 1024)
	var seq uint64
	err := persistlog.ScanAudit(dir, sinceTick, func(e world.AuditEntry) error {
		seq++
		if e.Action == "SET_BLOCK" && e.Tick <= toTick && withinAABB(e.Pos, min, max) {
			out = append(out, auditRec{Seq: seq, Entry: e})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse chronological apply: highest tick first; for same tick use reverse read order.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entry.Tick != out[j].Entry.Tick {
			return out[i].Entry.Tick > out[j].Entry.Tick
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

type rollbackResult struct {
	Applied int
	Skipped int
	Chunks  int
}

// applyRollback restores each record's previous block. Records must already
// be in reverse chronological order so the oldest "from" value wins.
func applyRollback(files *chunkfile.Dir, recs []auditRec) (rollbackResult, error) {
	var res rollbackResult
	loaded := map[chunk.Coord]*chunk.Chunk{}
	missing := map[chunk.Coord]bool{}

	for _, r := range recs {
		p := r.Entry.Pos
		c := chunk.CoordOf(p[0], p[1], p[2])
		from, ok := block.Parse(r.Entry.From)
		if !ok || missing[c] {
			res.Skipped++
			continue
		}
		ch := loaded[c]
		if ch == nil {
			var err error
			ch, err = files.Load(c)
			if errors.Is(err, chunkfile.ErrNotFound) {
				// Never saved: the edit was lost with the chunk, nothing to revert.
				missing[c] = true
				res.Skipped++
				continue
			}
			if err != nil {
				return res, fmt.Errorf("load %s: %w", c, err)
			}
			loaded[c] = ch
		}
		lx, ly, lz := chunk.LocalOf(p[0], p[1], p[2])
		ch.Set(lx, ly, lz, from)
		res.Applied++
	}

	coords := make([]chunk.Coord, 0, len(loaded))
	for c := range loaded {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		a, b := coords[i], coords[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	for _, c := range coords {
		if _, err := files.Save(c, loaded[c]); err != nil {
			return res, fmt.Errorf("save %s: %w", c, err)
		}
		res.Chunks++
	}
	return res, nil
}

func withinAABB(pos [3]int, min, max [3]int) bool {
	return pos[0] >= min[0] && pos[0] <= max[0] &&
		pos[1] >= min[1] && pos[1] <= max[1] &&
		pos[2] >= min[2] && pos[2] <= max[2]
}

func parseAABB(s string) (min, max [3]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 3; i++ {
		if a[i] <= b[i] {
			min[i], max[i] = a[i], b[i]
		} else {
			min[i], max[i] = b[i], a[i]
		}
	}
	return min, max, nil
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
