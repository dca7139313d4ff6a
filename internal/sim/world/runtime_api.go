package world

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"

	"voxelforge.dev/internal/sim/world/block"
)

// ReadBlock, WriteBlock and RequestRemesh are the gameplay-facing services.
// They must be called from the world loop goroutine (or while stopped);
// other goroutines use the Request* variants below.

// ReadBlock returns the block at p; cells of non-resident chunks read as air.
func (w *World) ReadBlock(p BlockPos) block.Type { return w.blockAt(p) }

// WriteBlock sets the block at p, marks its chunk dirty and requests a
// remesh of every chunk the cell borders.
func (w *World) WriteBlock(p BlockPos, b block.Type) error {
	if !b.Valid() {
		return ErrUnknownBlock
	}
	if !w.setBlock(p, b) {
		return ErrNotResident
	}
	switch {
	case b.IsSapling():
		w.trackSapling(p)
	case b.IsGrowingCrop():
		w.trackCrop(p)
	}
	return nil
}

// RequestRemesh tags the chunk owning p and any chunk sharing a face at p.
func (w *World) RequestRemesh(p BlockPos) { w.requestRemesh(p) }

func (w *World) setBlock(p BlockPos, b block.Type) bool {
	if !w.chunks.SetBlock(p.X, p.Y, p.Z, b) {
		return false
	}
	w.requestRemesh(p)
	return true
}

type blockReq struct {
	Pos   BlockPos
	Write bool
	Block block.Type
	Actor string
	Resp  chan BlockResp
}

type BlockResp struct {
	Pos      BlockPos `json:"pos"`
	Block    string   `json:"block"`
	Previous string   `json:"previous,omitempty"`
	Err      error    `json:"-"`
}

// StateSummary is an on-demand view computed on the loop goroutine.
type StateSummary struct {
	WorldID     string     `json:"world_id"`
	Tick        uint64     `json:"tick"`
	Seed        int64      `json:"seed"`
	Viewer      [3]float32 `json:"viewer"`
	Resident    int        `json:"resident"`
	Dirty       int        `json:"dirty"`
	Meshed      int        `json:"meshed"`
	Saplings    int        `json:"saplings"`
	Crops       int        `json:"crops"`
	StateDigest string     `json:"state_digest"`
}

type stateReq struct {
	Resp chan StateSummary
}

type saveReq struct {
	Resp chan SaveResult
}

type newGameReq struct {
	Seed int64
	Resp chan error
}

// SetViewer queues a new viewer position; the latest one wins at the next
// tick. It never blocks.
func (w *World) SetViewer(p mgl32.Vec3) {
	select {
	case w.viewerIn <- p:
	default:
		// Drop the oldest queued position.
		select {
		case <-w.viewerIn:
		default:
		}
		select {
		case w.viewerIn <- p:
		default:
		}
	}
}

func (w *World) RequestBlock(ctx context.Context, p BlockPos) (BlockResp, error) {
	return w.requestBlock(ctx, blockReq{Pos: p})
}

// RequestSetBlock applies a block edit at the next tick boundary.
func (w *World) RequestSetBlock(ctx context.Context, p BlockPos, b block.Type, actor string) (BlockResp, error) {
	if !b.Valid() {
		return BlockResp{}, ErrUnknownBlock
	}
	return w.requestBlock(ctx, blockReq{Pos: p, Write: true, Block: b, Actor: actor})
}

func (w *World) requestBlock(ctx context.Context, req blockReq) (BlockResp, error) {
	req.Resp = make(chan BlockResp, 1)
	if err := send(ctx, w.stop, w.blockReq, req); err != nil {
		return BlockResp{}, err
	}
	resp, err := recv(ctx, w.stop, req.Resp)
	if err != nil {
		return BlockResp{}, err
	}
	return resp, resp.Err
}

func (w *World) RequestState(ctx context.Context) (StateSummary, error) {
	req := stateReq{Resp: make(chan StateSummary, 1)}
	if err := send(ctx, w.stop, w.stateReq, req); err != nil {
		return StateSummary{}, err
	}
	return recv(ctx, w.stop, req.Resp)
}

// RequestSave writes every dirty chunk now.
func (w *World) RequestSave(ctx context.Context) (SaveResult, error) {
	req := saveReq{Resp: make(chan SaveResult, 1)}
	if err := send(ctx, w.stop, w.saveReq, req); err != nil {
		return SaveResult{}, err
	}
	return recv(ctx, w.stop, req.Resp)
}

// RequestNewGame replaces the world at the next tick boundary.
func (w *World) RequestNewGame(ctx context.Context, seed int64) error {
	req := newGameReq{Seed: seed, Resp: make(chan error, 1)}
	if err := send(ctx, w.stop, w.newGameReq, req); err != nil {
		return err
	}
	err, rerr := recv(ctx, w.stop, req.Resp)
	if rerr != nil {
		return rerr
	}
	return err
}

func send[T any](ctx context.Context, stop <-chan struct{}, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recv[T any](ctx context.Context, stop <-chan struct{}, ch <-chan T) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case <-stop:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (w *World) handleBlockRead(req blockReq) {
	req.Resp <- BlockResp{Pos: req.Pos, Block: w.blockAt(req.Pos).String()}
}

func (w *World) handleBlockWrite(req blockReq, nowTick uint64) {
	prev := w.blockAt(req.Pos)
	resp := BlockResp{Pos: req.Pos, Block: req.Block.String(), Previous: prev.String()}
	if err := w.WriteBlock(req.Pos, req.Block); err != nil {
		resp.Err = err
	} else if w.auditLogger != nil {
		_ = w.auditLogger.WriteAudit(AuditEntry{
			Tick:   nowTick,
			Actor:  req.Actor,
			Action: "SET_BLOCK",
			Pos:    [3]int{req.Pos.X, req.Pos.Y, req.Pos.Z},
			From:   prev.String(),
			To:     req.Block.String(),
		})
	}
	req.Resp <- resp
}

func (w *World) handleStateReq(req stateReq) {
	meshed := 0
	for _, r := range w.renderables {
		if r.Mesh != nil {
			meshed++
		}
	}
	req.Resp <- StateSummary{
		WorldID:     w.cfg.ID,
		Tick:        w.tick.Load(),
		Seed:        w.noise.Seed(),
		Viewer:      [3]float32{w.viewer[0], w.viewer[1], w.viewer[2]},
		Resident:    w.chunks.Len(),
		Dirty:       w.chunks.DirtyLen(),
		Meshed:      meshed,
		Saplings:    len(w.saplings),
		Crops:       len(w.crops),
		StateDigest: w.stateDigest(),
	}
}
