// Command replay re-drives chunk streaming from a recorded tick log and checks
// that a fresh world with the same seed and tuning loads and evicts the same
// chunks on every logged tick.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	persistlog "voxelforge.dev/internal/persistence/log"
	"voxelforge.dev/internal/sim/tuning"
	"voxelforge.dev/internal/sim/world"
)

func main() {
	var (
		logsDir    = flag.String("logs", "", "dir containing ticks-*.jsonl.zst")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "tuning.yaml used by the recorded server")
		seed       = flag.Int64("seed", 0, "world seed (default: tuning seed)")
		fromTick   = flag.Uint64("from_tick", 0, "first recorded tick to replay (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "last recorded tick to replay (inclusive, optional)")
	)
	flag.Parse()

	if *logsDir == "" {
		fmt.Fprintln(os.Stderr, "missing -logs")
		os.Exit(2)
	}
	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			tune.Seed = *seed
		}
	})

	w, err := world.New(world.Config{
		ID:                "replay",
		Seed:              tune.Seed,
		RenderDistance:    tune.RenderDistance,
		DespawnDistance:   tune.DespawnDistance,
		MaxLoadsPerTick:   tune.MaxLoadsPerTick,
		WorldHeightChunks: tune.WorldHeightChunks,
		TickRateHz:        tune.TickRateHz,
		MeshWorkers:       tune.MeshWorkers,
		Logger:            log.New(io.Discard, "", 0),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}
	defer w.Close()

	segs, err := persistlog.Segments(*logsDir, persistlog.TickKind)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list ticks:", err)
		os.Exit(1)
	}
	if len(segs) == 0 {
		fmt.Fprintln(os.Stderr, "no tick segments found in", *logsDir)
		os.Exit(1)
	}

	res, err := replay(w, *logsDir, *fromTick, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks first=%d last=%d resident=%d seed=%d\n",
		res.Checked, res.FirstTick, res.LastTick, res.Resident, w.Seed())
}

type replayResult struct {
	Checked   int
	FirstTick uint64
	LastTick  uint64
	Resident  int
}

// replay steps w once per logged entry. Ticks that were not logged changed
// no residency, so skipping them keeps the streaming sequence intact.
func replay(w *world.World, logsDir string, fromTick, toTick uint64) (replayResult, error) {
	var res replayResult
	err := persistlog.ScanTicks(logsDir, fromTick, func(entry world.TickLogEntry) error {
		if toTick != 0 && entry.Tick > toTick {
			return persistlog.ErrStop
		}
		got := w.StepOnce(mgl32.Vec3(entry.Viewer))
		if got.Loaded != entry.Loaded || got.Unloaded != entry.Unloaded || got.Resident != entry.Resident {
			return fmt.Errorf("streaming mismatch at tick %d: got loaded=%d unloaded=%d resident=%d want loaded=%d unloaded=%d resident=%d",
				entry.Tick, got.Loaded, got.Unloaded, got.Resident, entry.Loaded, entry.Unloaded, entry.Resident)
		}
		if res.Checked == 0 {
			res.FirstTick = entry.Tick
		}
		res.Checked++
		res.LastTick = entry.Tick
		res.Resident = got.Resident
		return nil
	})
	return res, err
}
