package world

import (
	"context"
	"sort"

	"voxelforge.dev/internal/sim/world/logic/mathx"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

// ChunkView is one resident chunk as seen by an observer. Blocks is nil when
// the caller already knows Digest.
type ChunkView struct {
	Coord  chunk.Coord
	Digest string
	Blocks []byte
}

// Observation is a read-only slice of the world around the viewer.
type Observation struct {
	Tick        uint64
	Viewer      [3]float32
	ViewerChunk chunk.Coord
	Chunks      []ChunkView
}

type observeReq struct {
	Radius int
	Max    int
	Known  map[chunk.Coord]string
	Resp   chan Observation
}

// RequestObserve lists up to max resident chunks within radius (Chebyshev,
// XZ) of the viewer chunk, nearest first. Chunks whose digest matches known
// come back without block data. known is only read, and only until the call
// returns.
func (w *World) RequestObserve(ctx context.Context, radius, max int, known map[chunk.Coord]string) (Observation, error) {
	req := observeReq{Radius: radius, Max: max, Known: known, Resp: make(chan Observation, 1)}
	if err := send(ctx, w.stop, w.observeReq, req); err != nil {
		return Observation{}, err
	}
	return recv(ctx, w.stop, req.Resp)
}

func (w *World) handleObserve(req observeReq) {
	vc := viewerChunk(w.viewer)
	var coords []chunk.Coord
	for _, c := range w.chunks.Keys() {
		if mathx.ChebyshevXZ(c.X, c.Z, vc.X, vc.Z) <= req.Radius {
			coords = append(coords, c)
		}
	}
	sort.Slice(coords, func(i, j int) bool {
		di := mathx.DistSqXZ(coords[i].X, coords[i].Z, vc.X, vc.Z)
		dj := mathx.DistSqXZ(coords[j].X, coords[j].Z, vc.X, vc.Z)
		if di != dj {
			return di < dj
		}
		return coordLess(coords[i], coords[j])
	})
	if req.Max > 0 && len(coords) > req.Max {
		coords = coords[:req.Max]
	}

	obs := Observation{
		Tick:        w.tick.Load(),
		Viewer:      [3]float32{w.viewer[0], w.viewer[1], w.viewer[2]},
		ViewerChunk: vc,
		Chunks:      make([]ChunkView, 0, len(coords)),
	}
	for _, c := range coords {
		ch, _ := w.chunks.Get(c)
		v := ChunkView{Coord: c, Digest: ch.Digest()}
		if req.Known[c] != v.Digest {
			v.Blocks = ch.Bytes()
		}
		obs.Chunks = append(obs.Chunks, v)
	}
	req.Resp <- obs
}
