package world

import "time"

// stepInternal runs one tick: world replacement, queued edits, streaming,
// growth, mesh dispatch and polling, then autosave.
func (w *World) stepInternal(newGames []newGameReq, writes []blockReq) TickLogEntry {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	for _, req := range newGames {
		err := w.newGame(req.Seed)
		if req.Resp != nil {
			req.Resp <- err
		}
	}
	for _, req := range writes {
		w.handleBlockWrite(req, nowTick)
	}

	e := TickLogEntry{
		Tick:   nowTick,
		Viewer: [3]float32{w.viewer[0], w.viewer[1], w.viewer[2]},
		Edits:  len(writes),
	}
	w.stream(nowTick, &e)
	e.Grown = w.tickGrowth(1/float64(w.cfg.TickRateHz), nowTick)

	submitted, immediate := w.dispatchMeshes(nowTick)
	e.MeshSubmitted = submitted
	e.MeshApplied = immediate + w.pollMeshes(nowTick)

	res := w.autosave(nowTick)
	e.Saved = res.Saved
	e.SaveFailed = res.Failed

	e.Resident = w.chunks.Len()
	e.Dirty = w.chunks.DirtyLen()

	if w.tickLogger != nil && !e.idle() {
		_ = w.tickLogger.WriteTick(e)
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	w.publishMetrics(e, stepMS)
	w.tick.Add(1)
	return e
}
