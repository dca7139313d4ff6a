// Package mesh converts chunk block data into triangle lists: greedy-merged
// cube faces plus crossed billboards for decorations.
package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

// Neighbors holds the resident face neighbours of a chunk in
// +X, -X, +Y, -Y, +Z, -Z order. Nil entries read as air.
type Neighbors [6]*chunk.Chunk

// Mesh is a triangle list in chunk-local space.
// UV0 is tiled across merged quads; UV1 carries the atlas tile origin so the
// shader can wrap UV0 inside its tile.
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UV0       []mgl32.Vec2
	UV1       []mgl32.Vec2
	Indices   []uint32

	// Quads is the number of cube-face quads; Billboards the number of crossed decorations.
	Quads      int
	Billboards int
}

func (m *Mesh) VertexCount() int   { return len(m.Positions) }
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }
func (m *Mesh) Empty() bool        { return len(m.Positions) == 0 }

func (m *Mesh) pushVertex(p, n mgl32.Vec3, uv0, uv1 mgl32.Vec2) {
	m.Positions = append(m.Positions, p)
	m.Normals = append(m.Normals, n)
	m.UV0 = append(m.UV0, uv0)
	m.UV1 = append(m.UV1, uv1)
}

// Bounds returns the axis-aligned box of all vertices.
func (m *Mesh) Bounds() (lo, hi mgl32.Vec3) {
	if len(m.Positions) == 0 {
		return
	}
	lo, hi = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		for i := 0; i < 3; i++ {
			if p[i] < lo[i] {
				lo[i] = p[i]
			}
			if p[i] > hi[i] {
				hi[i] = p[i]
			}
		}
	}
	return
}
