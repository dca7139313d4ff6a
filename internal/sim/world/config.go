package world

import (
	"fmt"
	"log"
	"os"

	"voxelforge.dev/internal/persistence/chunkfile"
	"voxelforge.dev/internal/persistence/indexdb"
)

type Config struct {
	ID   string
	Seed int64

	// Streaming distances are Chebyshev distances in chunks on the XZ plane.
	RenderDistance    int
	DespawnDistance   int
	MaxLoadsPerTick   int
	WorldHeightChunks int

	TickRateHz      int
	MeshWorkers     int
	AutosaveSeconds int

	// Optional collaborators (may be nil). Without Files the world is
	// memory-only and evicted edits are lost.
	Files  *chunkfile.Dir
	Index  *indexdb.SQLiteIndex
	Logger *log.Logger

	// Archiver, when set, receives the on-disk game before NewGame wipes it.
	Archiver GameArchiver
	// Mirror is told about every chunk file written.
	Mirror FileMirror
}

type GameArchiver interface {
	ArchiveGame(endTick uint64, seed, nextSeed int64) (string, error)
}

type FileMirror interface {
	Enqueue(path string)
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "overworld"
	}
	if c.RenderDistance <= 0 {
		c.RenderDistance = 16
	}
	if c.DespawnDistance <= 0 {
		c.DespawnDistance = c.RenderDistance + 2
	}
	if c.MaxLoadsPerTick <= 0 {
		c.MaxLoadsPerTick = 8
	}
	if c.WorldHeightChunks <= 0 {
		c.WorldHeightChunks = 16
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.AutosaveSeconds <= 0 {
		c.AutosaveSeconds = 30
	}
	if c.Logger == nil {
		c.Logger = log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds)
	}
}

func (c *Config) validate() error {
	if c.DespawnDistance <= c.RenderDistance {
		return fmt.Errorf("despawn distance %d must exceed render distance %d", c.DespawnDistance, c.RenderDistance)
	}
	return nil
}

func (c *Config) autosaveEveryTicks() uint64 {
	return uint64(c.AutosaveSeconds) * uint64(c.TickRateHz)
}
