package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"voxelforge.dev/internal/observerproto"
	"voxelforge.dev/internal/persistence/archive"
	"voxelforge.dev/internal/persistence/chunkfile"
	"voxelforge.dev/internal/persistence/indexdb"
	persistlog "voxelforge.dev/internal/persistence/log"
	"voxelforge.dev/internal/persistence/r2s3"
	"voxelforge.dev/internal/persistence/snapshot"
	"voxelforge.dev/internal/protocol"
	"voxelforge.dev/internal/sim/tuning"
	"voxelforge.dev/internal/sim/world"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
	"voxelforge.dev/internal/transport/observer"
	"voxelforge.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "overworld", "world id")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (missing file means defaults)")
		dataDir    = flag.String("data", "", "runtime data directory (default: tuning data_dir)")
		seed       = flag.Int64("seed", 0, "world seed for a fresh world (default: tuning seed)")
		render     = flag.Int("render", 0, "render distance in chunks (default: tuning render_distance)")
		workers    = flag.Int("mesh_workers", -1, "mesh worker count (0 = NumCPU, default: tuning mesh_workers)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite save index")
		fresh      = flag.Bool("fresh", false, "ignore the saved session and start from the seed")
		keepGames  = flag.Bool("archive", true, "archive the on-disk world before a new game wipes it")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			tune.Seed = *seed
		case "render":
			tune.RenderDistance = *render
			tune.DespawnDistance = 0
		case "mesh_workers":
			tune.MeshWorkers = *workers
		case "data":
			tune.DataDir = *dataDir
		}
	})
	tune.Normalize()
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	worldDir := filepath.Join(tune.DataDir, *worldID)
	files, err := chunkfile.Open(filepath.Join(worldDir, "chunks"))
	if err != nil {
		logger.Fatalf("open chunk dir: %v", err)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}

	var mirror *r2s3.Mirror
	var fileMirror world.FileMirror
	if cfg, ok := r2s3.ConfigFromEnv(); ok {
		client, err := r2s3.New(cfg)
		if err != nil {
			logger.Fatalf("s3 mirror: %v", err)
		}
		mirror = r2s3.NewMirror(client, tune.DataDir, os.Getenv("VF_S3_PREFIX"), 2, 2048,
			log.New(os.Stdout, "[mirror] ", log.LstdFlags|log.Lmicroseconds))
		fileMirror = mirror
		logger.Printf("mirroring %s to bucket %s", tune.DataDir, cfg.Bucket)
	}

	var archiver *archive.Archiver
	var gameArchiver world.GameArchiver
	if *keepGames {
		archiver = archive.New(worldDir, files)
		if mirror != nil {
			archiver.OnFile = mirror.Enqueue
		}
		gameArchiver = archiver
	}

	w, err := world.New(world.Config{
		ID:                *worldID,
		Seed:              tune.Seed,
		RenderDistance:    tune.RenderDistance,
		DespawnDistance:   tune.DespawnDistance,
		MaxLoadsPerTick:   tune.MaxLoadsPerTick,
		WorldHeightChunks: tune.WorldHeightChunks,
		TickRateHz:        tune.TickRateHz,
		MeshWorkers:       tune.MeshWorkers,
		AutosaveSeconds:   tune.AutosaveSeconds,
		Files:             files,
		Index:             idx,
		Logger:            log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds),
		Archiver:          gameArchiver,
		Mirror:            fileMirror,
	})
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	defer w.Close()

	sessionPath := filepath.Join(worldDir, "session.snap.zst")
	if !*fresh {
		if err := resumeSession(w, sessionPath); err != nil {
			logger.Fatalf("resume session: %v", err)
		}
	}
	startSeed := w.Seed()

	ctx, cancel := signalContext()
	defer cancel()

	segmentTicks := uint64(tune.TickRateHz) * 3600
	tickLog := persistlog.NewTickLog(worldDir, segmentTicks)
	auditLog := persistlog.NewAuditLog(worldDir, segmentTicks)
	defer tickLog.Close()
	defer auditLog.Close()
	w.SetTickLogger(tickLog)
	w.SetAuditLogger(auditLog)

	sessionCh := make(chan snapshot.SessionV1, 2)
	w.SetSessionSink(sessionCh)
	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-sessionCh:
				if err := snapshot.Write(sessionPath, s); err != nil {
					logger.Printf("session write: %v", err)
					continue
				}
				mirror.Enqueue(sessionPath)
			}
		}
	}()

	meshCh := make(chan world.MeshEvent, 1024)
	w.SetMeshSink(meshCh)
	viewers := ws.NewServer(w, protocol.WorldParams{
		WorldID:           *worldID,
		TickRateHz:        w.TickRateHz(),
		ChunkSize:         [3]int{chunk.Size, chunk.Size, chunk.Size},
		RenderDistance:    tune.RenderDistance,
		DespawnDistance:   tune.DespawnDistance,
		WorldHeightChunks: tune.WorldHeightChunks,
	}, logger)
	go viewers.Pump(ctx, meshCh)

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	observers := observer.NewServer(w, observerproto.WorldParams{
		TickRateHz:        w.TickRateHz(),
		ChunkSize:         [3]int{chunk.Size, chunk.Size, chunk.Size},
		WorldHeightChunks: tune.WorldHeightChunks,
		RenderDistance:    tune.RenderDistance,
		DespawnDistance:   tune.DespawnDistance,
	}, logger)

	api := &adminAPI{
		world:    w,
		worldID:  *worldID,
		index:    idx,
		viewers:  viewers,
		observer: observers,
		archives: archiver,
		mirror:   mirror,
	}
	mux := http.NewServeMux()
	api.register(mux, envBool("VF_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()))
	if envBool("VF_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (VF_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/viewer", viewers.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s world=%s seed=%d data=%s", *addr, *worldID, startSeed, worldDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}

	// The loop has exited once worldDone closes, so the final save runs on
	// this goroutine without racing the tick.
	w.Stop()
	<-worldDone
	<-sessionDone
	res := w.Shutdown()
	if err := snapshot.Write(sessionPath, w.ExportSession()); err != nil {
		logger.Printf("final session write: %v", err)
	} else {
		mirror.Enqueue(sessionPath)
	}
	mirror.Close()
	logger.Printf("shutdown: saved=%d failed=%d tick=%d", res.Saved, res.Failed, w.CurrentTick())
}

func resumeSession(w *world.World, path string) error {
	s, err := snapshot.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if s.Header.WorldID != "" && s.Header.WorldID != w.ID() {
		return fmt.Errorf("session world id mismatch: flag=%s session=%s", w.ID(), s.Header.WorldID)
	}
	return w.ImportSession(s)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
