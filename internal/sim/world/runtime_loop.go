package world

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingWrites []blockReq
	var pendingNewGames []newGameReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case p := <-w.viewerIn:
			w.viewer = p
		case req := <-w.blockReq:
			if req.Write {
				pendingWrites = append(pendingWrites, req)
			} else {
				w.handleBlockRead(req)
			}
		case req := <-w.stateReq:
			w.handleStateReq(req)
		case req := <-w.observeReq:
			w.handleObserve(req)
		case req := <-w.saveReq:
			req.Resp <- w.saveDirty(w.tick.Load())
		case req := <-w.newGameReq:
			pendingNewGames = append(pendingNewGames, req)
		case <-ticker.C:
			w.stepInternal(pendingNewGames, pendingWrites)
			pendingNewGames = pendingNewGames[:0]
			pendingWrites = pendingWrites[:0]
		}
	}
}

// Stop makes Run return. It is safe to call more than once.
func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// StepOnce sets the viewer and advances the world by a single tick using the
// same ordering as Run. It is meant for tests and offline tools and must not
// be used while Run is active.
func (w *World) StepOnce(viewer mgl32.Vec3) TickLogEntry {
	w.viewer = viewer
	return w.stepInternal(nil, nil)
}
