// Package noise holds the seeded noise fields that drive terrain generation.
// A Source is immutable after New and safe for concurrent use.
package noise

import (
	"math"

	perlin "github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"

	"voxelforge.dev/internal/sim/world/block"
)

const (
	BaseHeight      = 64
	HeightAmplitude = 30
	SeaLevel        = 63

	terrainFrequency = 0.005
	biomeFrequency   = 0.002
	desertThreshold  = 0.3

	cheeseFrequency    = 0.02
	cheeseThreshold    = 0.45
	cheeseSurfaceGuard = 4
	spaghettiScale     = 0.04
	spaghettiThreshold = 0.15
	noodleScale        = 0.08
	noodleThreshold    = 0.08

	oreScale        = 0.1
	gravelScale     = 0.05
	gravelThreshold = 0.7
	gravelMaxY      = 60
	clayScale       = 0.08
	clayThreshold   = 0.5
	grassScale      = 0.3
)

type Biome uint8

const (
	Plains Biome = iota
	Desert
)

func (b Biome) String() string {
	if b == Desert {
		return "DESERT"
	}
	return "PLAINS"
}

type oreBand struct {
	kind           block.Type
	min, max, peak int
	k              float64
}

// Checked in this order; the first accepted ore wins.
var oreBands = [4]oreBand{
	{kind: block.DiamondOre, min: 5, max: 16, peak: 8, k: 0.35},
	{kind: block.GoldOre, min: 5, max: 30, peak: 12, k: 0.45},
	{kind: block.IronOre, min: 5, max: 54, peak: 28, k: 0.68},
	{kind: block.CoalOre, min: 5, max: 95, peak: 48, k: 0.82},
}

// Peak magnitudes of a single go-perlin octave. The library does not scale
// its output to [-1,1]; 3D is measured over a large sample.
const (
	peak2D = math.Sqrt2 / 2
	peak3D = 0.7
)

// field is a perlin field rescaled so every octave count spans [-1,1].
type field struct {
	p    *perlin.Perlin
	span float64
}

// fbm builds a fractal field: each octave doubles frequency and halves amplitude.
func fbm(octaves int32, seed int64) field {
	span := 0.0
	for i, amp := int32(0), 1.0; i < octaves; i, amp = i+1, amp/2 {
		span += amp
	}
	return field{p: perlin.NewPerlin(2, 2, octaves, seed), span: span}
}

func single(seed int64) field {
	return fbm(1, seed)
}

func (f field) at2(x, z float64) float64 {
	return clampUnit(f.p.Noise2D(x, z) / (f.span * peak2D))
}

func (f field) at3(x, y, z float64) float64 {
	return clampUnit(f.p.Noise3D(x, y, z) / (f.span * peak3D))
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

type Source struct {
	seed int64

	height field
	biome  opensimplex.Noise

	cheese     field
	spaghettiA field
	spaghettiB field
	noodleA    field
	noodleB    field

	trees  field
	ores   [4]field
	gravel field
	clay   field
	grass  field
}

func New(seed int64) *Source {
	s := &Source{
		seed:       seed,
		height:     fbm(3, seed),
		biome:      opensimplex.New(seed + 1),
		cheese:     fbm(2, seed+10),
		spaghettiA: single(seed + 20),
		spaghettiB: single(seed + 21),
		noodleA:    single(seed + 30),
		noodleB:    single(seed + 31),
		trees:      single(seed + 3),
		gravel:     single(seed + 40),
		clay:       single(seed + 41),
		grass:      single(seed + 42),
	}
	for i := range s.ores {
		s.ores[i] = single(seed + 50 + int64(i))
	}
	return s
}

func (s *Source) Seed() int64 { return s.seed }

// Height is the terrain surface y of a column.
func (s *Source) Height(x, z int) int {
	v := s.height.at2(float64(x)*terrainFrequency, float64(z)*terrainFrequency)
	return int(BaseHeight + v*HeightAmplitude)
}

func (s *Source) BiomeTemperature(x, z int) float64 {
	return s.biome.Eval2(float64(x)*biomeFrequency, float64(z)*biomeFrequency)
}

func (s *Source) BiomeAt(x, z int) Biome {
	if s.BiomeTemperature(x, z) > desertThreshold {
		return Desert
	}
	return Plains
}

// IsCave reports whether a cell is carved out by any of the three cave
// families. Cells at or below y=0 are never carved.
func (s *Source) IsCave(x, y, z, surface int) bool {
	if y <= 0 {
		return false
	}
	fx, fy, fz := float64(x), float64(y), float64(z)

	// Chambers keep a crust below the surface.
	if y <= surface-cheeseSurfaceGuard {
		if s.cheese.at3(fx*cheeseFrequency, fy*cheeseFrequency, fz*cheeseFrequency) > cheeseThreshold {
			return true
		}
	}
	if y > surface {
		return false
	}
	a := s.spaghettiA.at3(fx*spaghettiScale, fy*spaghettiScale, fz*spaghettiScale)
	b := s.spaghettiB.at3(fx*spaghettiScale, fy*spaghettiScale, fz*spaghettiScale)
	if math.Abs(a)+math.Abs(b) < spaghettiThreshold {
		return true
	}
	a = s.noodleA.at3(fx*noodleScale, fy*noodleScale, fz*noodleScale)
	b = s.noodleB.at3(fx*noodleScale, fy*noodleScale, fz*noodleScale)
	return math.Abs(a)+math.Abs(b) < noodleThreshold
}

// TriangularWeight is 0 outside [min,max], 1 at peak, linear in between.
func TriangularWeight(y, min, max, peak int) float64 {
	if y < min || y > max {
		return 0
	}
	if y <= peak {
		return float64(y-min) / float64(peak-min)
	}
	return float64(max-y) / float64(max-peak)
}

// Ore returns the ore that replaces stone at a cell, if any.
func (s *Source) Ore(x, y, z int) (block.Type, bool) {
	for i, band := range oreBands {
		w := TriangularWeight(y, band.min, band.max, band.peak)
		if w <= 0 {
			continue
		}
		d := s.ores[i].at3(float64(x)*oreScale, float64(y)*oreScale, float64(z)*oreScale)
		if d > 1-w*band.k {
			return band.kind, true
		}
	}
	return block.Air, false
}

func (s *Source) IsGravel(x, y, z int) bool {
	if y >= gravelMaxY {
		return false
	}
	return s.gravel.at3(float64(x)*gravelScale, float64(y)*gravelScale, float64(z)*gravelScale) > gravelThreshold
}

func (s *Source) IsClay(x, z int) bool {
	return s.clay.at2(float64(x)*clayScale, float64(z)*clayScale) > clayThreshold
}

func (s *Source) GrassScatter(x, z int) float64 {
	return s.grass.at2(float64(x)*grassScale, float64(z)*grassScale)
}

// TreeDensity samples the tree field at a tree-grid cell.
func (s *Source) TreeDensity(gridX, gridZ int) float64 {
	return s.trees.at2(float64(gridX)*1.5, float64(gridZ)*1.5)
}

// TreeVariety samples the tree field at a world column; high values pick birch.
func (s *Source) TreeVariety(x, z int) float64 {
	return s.trees.at2(float64(x)*0.7, float64(z)*0.7)
}
