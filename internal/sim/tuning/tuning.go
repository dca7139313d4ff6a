package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Seed int64 `yaml:"seed"`

	RenderDistance    int `yaml:"render_distance"`
	DespawnDistance   int `yaml:"despawn_distance"`
	MaxLoadsPerTick   int `yaml:"max_loads_per_tick"`
	WorldHeightChunks int `yaml:"world_height_chunks"`

	TickRateHz      int `yaml:"tick_rate_hz"`
	MeshWorkers     int `yaml:"mesh_workers"`
	AutosaveSeconds int `yaml:"autosave_seconds"`

	DataDir string `yaml:"data_dir"`
}

func Defaults() Tuning {
	return Tuning{
		RenderDistance:    16,
		DespawnDistance:   18,
		MaxLoadsPerTick:   8,
		WorldHeightChunks: 16,
		TickRateHz:        20,
		AutosaveSeconds:   30,
		DataDir:           "./data",
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Normalize replaces non-positive values with defaults.
func (t *Tuning) Normalize() {
	d := Defaults()
	if t.RenderDistance <= 0 {
		t.RenderDistance = d.RenderDistance
	}
	if t.DespawnDistance <= 0 {
		t.DespawnDistance = t.RenderDistance + 2
	}
	if t.MaxLoadsPerTick <= 0 {
		t.MaxLoadsPerTick = d.MaxLoadsPerTick
	}
	if t.WorldHeightChunks <= 0 {
		t.WorldHeightChunks = d.WorldHeightChunks
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.MeshWorkers < 0 {
		t.MeshWorkers = 0
	}
	if t.AutosaveSeconds <= 0 {
		t.AutosaveSeconds = d.AutosaveSeconds
	}
	if t.DataDir == "" {
		t.DataDir = d.DataDir
	}
}

func (t Tuning) Validate() error {
	if t.DespawnDistance <= t.RenderDistance {
		return errors.New("despawn_distance must exceed render_distance")
	}
	if t.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz)
	}
	return nil
}
