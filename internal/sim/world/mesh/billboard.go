package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

const billboardInset = 0.15

var billboardNormal = mgl32.Vec3{0, 1, 0}

func emitBillboards(m *Mesh, c *chunk.Chunk) {
	for y := 0; y < size; y++ {
		for z := 0; z < size; z++ {
			for x := 0; x < size; x++ {
				if b := c.Get(x, y, z); b.IsNonCube() {
					emitCross(m, float32(x), float32(y), float32(z), b)
				}
			}
		}
	}
}

// emitCross adds two diagonal quads through the cell, each drawn from both sides.
func emitCross(m *Mesh, bx, by, bz float32, b block.Type) {
	uv := block.FaceUVsTiled(b, block.South, 1, 1)
	bl, br, tr, tl := uv[0], uv[1], uv[2], uv[3]
	origin := block.TileOrigin(b, block.South)

	const lo, hi = billboardInset, 1 - billboardInset
	q1 := [4]mgl32.Vec3{
		{bx + lo, by, bz + lo},
		{bx + hi, by, bz + hi},
		{bx + hi, by + 1, bz + hi},
		{bx + lo, by + 1, bz + lo},
	}
	q2 := [4]mgl32.Vec3{
		{bx + hi, by, bz + lo},
		{bx + lo, by, bz + hi},
		{bx + lo, by + 1, bz + hi},
		{bx + hi, by + 1, bz + lo},
	}
	front := [4]mgl32.Vec2{bl, br, tr, tl}
	back := [4]mgl32.Vec2{br, bl, tl, tr}

	side := func(q [4]mgl32.Vec3, uvs [4]mgl32.Vec2, isFront bool) {
		base := uint32(len(m.Positions))
		for i := range q {
			m.pushVertex(q[i], billboardNormal, uvs[i], origin)
		}
		if isFront {
			m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
		} else {
			m.Indices = append(m.Indices, base, base+2, base+1, base, base+3, base+2)
		}
	}
	side(q1, front, true)
	side(q1, back, false)
	side(q2, front, true)
	side(q2, back, false)
	m.Billboards++
}
