package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voxelforge.dev/internal/persistence/archive"
	"voxelforge.dev/internal/persistence/indexdb"
	"voxelforge.dev/internal/persistence/r2s3"
	"voxelforge.dev/internal/sim/world"
	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
	"voxelforge.dev/internal/transport/observer"
	"voxelforge.dev/internal/transport/ws"
)

const adminTimeout = 5 * time.Second

type adminAPI struct {
	world    *world.World
	worldID  string
	index    *indexdb.SQLiteIndex
	viewers  *ws.Server
	observer *observer.Server
	archives *archive.Archiver
	mirror   *r2s3.Mirror
}

func (a *adminAPI) register(mux *http.ServeMux, enableAdmin bool) {
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", a.handleMetrics)
	if !enableAdmin {
		return
	}
	// Local-only admin endpoints.
	mux.HandleFunc("/admin/v1/state", loopbackOnly(a.handleState))
	mux.HandleFunc("/admin/v1/block", loopbackOnly(a.handleBlock))
	mux.HandleFunc("/admin/v1/chunk", loopbackOnly(a.handleChunk))
	mux.HandleFunc("/admin/v1/save", loopbackOnly(a.handleSave))
	mux.HandleFunc("/admin/v1/new_game", loopbackOnly(a.handleNewGame))
	mux.HandleFunc("/admin/v1/archives", loopbackOnly(a.handleArchives))
	if a.observer != nil {
		mux.HandleFunc("/admin/v1/observer/bootstrap", a.observer.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", a.observer.WSHandler())
	}
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func (a *adminAPI) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	m := a.world.Metrics()
	tick := a.world.CurrentTick()
	if m.Tick != 0 {
		tick = m.Tick
	}
	id := a.worldID

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP voxelforge_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_world_tick gauge\n")
	fmt.Fprintf(rw, "voxelforge_world_tick{world=%q} %d\n", id, tick)

	fmt.Fprintf(rw, "# HELP voxelforge_world_chunks Chunk counts by state.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_world_chunks gauge\n")
	fmt.Fprintf(rw, "voxelforge_world_chunks{world=%q,state=%q} %d\n", id, "resident", m.LoadedChunks)
	fmt.Fprintf(rw, "voxelforge_world_chunks{world=%q,state=%q} %d\n", id, "dirty", m.DirtyChunks)
	fmt.Fprintf(rw, "voxelforge_world_chunks{world=%q,state=%q} %d\n", id, "pending_load", m.PendingLoads)
	fmt.Fprintf(rw, "voxelforge_world_chunks{world=%q,state=%q} %d\n", id, "pending_mesh", m.MeshQueue)

	fmt.Fprintf(rw, "# HELP voxelforge_world_growth_timers Active growth timers.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_world_growth_timers gauge\n")
	fmt.Fprintf(rw, "voxelforge_world_growth_timers{world=%q,kind=%q} %d\n", id, "sapling", m.Saplings)
	fmt.Fprintf(rw, "voxelforge_world_growth_timers{world=%q,kind=%q} %d\n", id, "crop", m.Crops)

	fmt.Fprintf(rw, "# HELP voxelforge_chunk_ops_total Chunk lifecycle operations.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_chunk_ops_total counter\n")
	fmt.Fprintf(rw, "voxelforge_chunk_ops_total{world=%q,op=%q} %d\n", id, "generated", m.ChunksGenerated)
	fmt.Fprintf(rw, "voxelforge_chunk_ops_total{world=%q,op=%q} %d\n", id, "loaded", m.ChunksFromDisk)
	fmt.Fprintf(rw, "voxelforge_chunk_ops_total{world=%q,op=%q} %d\n", id, "corrupt", m.CorruptLoads)
	fmt.Fprintf(rw, "voxelforge_chunk_ops_total{world=%q,op=%q} %d\n", id, "saved", m.ChunksSaved)
	fmt.Fprintf(rw, "voxelforge_chunk_ops_total{world=%q,op=%q} %d\n", id, "save_failed", m.SaveFailures)
	fmt.Fprintf(rw, "voxelforge_chunk_ops_total{world=%q,op=%q} %d\n", id, "grown", m.Grown)

	fmt.Fprintf(rw, "# HELP voxelforge_mesh_jobs_total Mesh jobs by outcome.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_mesh_jobs_total counter\n")
	fmt.Fprintf(rw, "voxelforge_mesh_jobs_total{world=%q,outcome=%q} %d\n", id, "submitted", m.Mesh.Submitted)
	fmt.Fprintf(rw, "voxelforge_mesh_jobs_total{world=%q,outcome=%q} %d\n", id, "applied", m.Mesh.Applied)
	fmt.Fprintf(rw, "voxelforge_mesh_jobs_total{world=%q,outcome=%q} %d\n", id, "dropped", m.Mesh.Dropped)
	fmt.Fprintf(rw, "voxelforge_mesh_jobs_total{world=%q,outcome=%q} %d\n", id, "failed", m.Mesh.Failed)

	fmt.Fprintf(rw, "# HELP voxelforge_mesh_in_flight Mesh jobs running on the worker pool.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_mesh_in_flight gauge\n")
	fmt.Fprintf(rw, "voxelforge_mesh_in_flight{world=%q} %d\n", id, m.Mesh.InFlight)

	fmt.Fprintf(rw, "# HELP voxelforge_world_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE voxelforge_world_step_ms gauge\n")
	fmt.Fprintf(rw, "voxelforge_world_step_ms{world=%q} %.3f\n", id, m.StepMS)

	if a.viewers != nil {
		fmt.Fprintf(rw, "# HELP voxelforge_viewer_sessions Connected viewer sessions.\n")
		fmt.Fprintf(rw, "# TYPE voxelforge_viewer_sessions gauge\n")
		fmt.Fprintf(rw, "voxelforge_viewer_sessions{world=%q} %d\n", id, a.viewers.Sessions())
	}

	if a.index != nil {
		s := a.index.Stats()
		fmt.Fprintf(rw, "# HELP voxelforge_index_queue_depth Save index write queue depth.\n")
		fmt.Fprintf(rw, "# TYPE voxelforge_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "voxelforge_index_queue_depth %d\n", s.QueueDepth)

		fmt.Fprintf(rw, "# HELP voxelforge_index_dropped_total Index rows dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE voxelforge_index_dropped_total counter\n")
		fmt.Fprintf(rw, "voxelforge_index_dropped_total %d\n", s.DroppedTotal)
	}

	if a.mirror != nil {
		s := a.mirror.Stats()
		fmt.Fprintf(rw, "# HELP voxelforge_mirror_queue_depth Files waiting for upload.\n")
		fmt.Fprintf(rw, "# TYPE voxelforge_mirror_queue_depth gauge\n")
		fmt.Fprintf(rw, "voxelforge_mirror_queue_depth %d\n", s.QueueDepth)

		fmt.Fprintf(rw, "# HELP voxelforge_mirror_files_total Mirrored files by outcome.\n")
		fmt.Fprintf(rw, "# TYPE voxelforge_mirror_files_total counter\n")
		fmt.Fprintf(rw, "voxelforge_mirror_files_total{outcome=%q} %d\n", "uploaded", s.UploadedTotal)
		fmt.Fprintf(rw, "voxelforge_mirror_files_total{outcome=%q} %d\n", "failed", s.FailedTotal)
		fmt.Fprintf(rw, "voxelforge_mirror_files_total{outcome=%q} %d\n", "coalesced", s.CoalescedTotal)
		fmt.Fprintf(rw, "voxelforge_mirror_files_total{outcome=%q} %d\n", "dropped", s.DroppedTotal)
	}
}

func (a *adminAPI) handleArchives(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if a.archives == nil {
		writeJSON(rw, http.StatusOK, []archive.Meta{})
		return
	}
	list, err := a.archives.List()
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []archive.Meta{}
	}
	writeJSON(rw, http.StatusOK, list)
}

func (a *adminAPI) handleState(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()
	st, err := a.world.RequestState(ctx)
	if err != nil {
		writeError(rw, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(rw, http.StatusOK, struct {
		State   world.StateSummary `json:"state"`
		Metrics world.WorldMetrics `json:"metrics"`
	}{State: st, Metrics: a.world.Metrics()})
}

type setBlockBody struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	Block string `json:"block"`
	Actor string `json:"actor"`
}

func (a *adminAPI) handleBlock(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()

	switch r.Method {
	case http.MethodGet:
		xyz, err := queryInts(r, "x", "y", "z")
		if err != nil {
			writeError(rw, http.StatusBadRequest, err)
			return
		}
		resp, err := a.world.RequestBlock(ctx, world.BlockPos{X: xyz[0], Y: xyz[1], Z: xyz[2]})
		if err != nil {
			writeError(rw, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(rw, http.StatusOK, resp)
	case http.MethodPost:
		var body setBlockBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(rw, http.StatusBadRequest, fmt.Errorf("bad json: %w", err))
			return
		}
		b, ok := block.Parse(body.Block)
		if !ok {
			writeError(rw, http.StatusBadRequest, fmt.Errorf("%w: %q", world.ErrUnknownBlock, body.Block))
			return
		}
		actor := strings.TrimSpace(body.Actor)
		if actor == "" {
			actor = "admin"
		}
		resp, err := a.world.RequestSetBlock(ctx, world.BlockPos{X: body.X, Y: body.Y, Z: body.Z}, b, actor)
		switch {
		case errors.Is(err, world.ErrNotResident):
			writeError(rw, http.StatusConflict, err)
		case err != nil:
			writeError(rw, http.StatusServiceUnavailable, err)
		default:
			writeJSON(rw, http.StatusOK, resp)
		}
	default:
		rw.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *adminAPI) handleChunk(rw http.ResponseWriter, r *http.Request) {
	if a.index == nil {
		writeError(rw, http.StatusNotFound, errors.New("index disabled"))
		return
	}
	xyz, err := queryInts(r, "cx", "cy", "cz")
	if err != nil {
		writeError(rw, http.StatusBadRequest, err)
		return
	}
	c := chunk.Coord{X: xyz[0], Y: xyz[1], Z: xyz[2]}

	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()
	if err := a.index.Flush(ctx); err != nil {
		writeError(rw, http.StatusServiceUnavailable, err)
		return
	}
	last, saves, ok, err := a.index.LastSave(ctx, c)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err)
		return
	}
	faults, err := a.index.Faults(ctx, c)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err)
		return
	}

	type faultJSON struct {
		Tick   uint64 `json:"tick"`
		Kind   string `json:"kind"`
		Detail string `json:"detail"`
	}
	out := struct {
		Coord    [3]int      `json:"coord"`
		Saved    bool        `json:"saved"`
		Saves    int         `json:"saves"`
		LastTick uint64      `json:"last_tick,omitempty"`
		Bytes    int         `json:"bytes,omitempty"`
		Digest   string      `json:"digest,omitempty"`
		Faults   []faultJSON `json:"faults"`
	}{
		Coord:  xyz,
		Saved:  ok,
		Saves:  saves,
		Faults: []faultJSON{},
	}
	if ok {
		out.LastTick = last.Tick
		out.Bytes = last.Bytes
		out.Digest = last.Digest
	}
	for _, f := range faults {
		out.Faults = append(out.Faults, faultJSON{Tick: f.Tick, Kind: f.Kind, Detail: f.Detail})
	}
	writeJSON(rw, http.StatusOK, out)
}

func (a *adminAPI) handleSave(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()
	res, err := a.world.RequestSave(ctx)
	if err != nil {
		writeError(rw, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": res.Failed == 0, "saved": res.Saved, "failed": res.Failed})
}

func (a *adminAPI) handleNewGame(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Seed *int64 `json:"seed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(rw, http.StatusBadRequest, fmt.Errorf("bad json: %w", err))
		return
	}
	seed := time.Now().UnixNano()
	if body.Seed != nil {
		seed = *body.Seed
	}
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()
	if err := a.world.RequestNewGame(ctx, seed); err != nil {
		writeError(rw, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "seed": seed})
}

func queryInts(r *http.Request, keys ...string) ([3]int, error) {
	var out [3]int
	q := r.URL.Query()
	for i, k := range keys {
		v, err := strconv.Atoi(strings.TrimSpace(q.Get(k)))
		if err != nil {
			return out, fmt.Errorf("bad %s: %q", k, q.Get(k))
		}
		out[i] = v
	}
	return out, nil
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, err error) {
	writeJSON(rw, status, map[string]any{"ok": false, "error": err.Error()})
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
