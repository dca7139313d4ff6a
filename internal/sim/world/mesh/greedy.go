package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelforge.dev/internal/sim/world/block"
	"voxelforge.dev/internal/sim/world/terrain/chunk"
)

const size = chunk.Size

type faceDir struct {
	face   block.Face
	axis   int
	uAxis  int
	vAxis  int
	back   bool // face points toward -axis
	flip   bool // reverse triangle winding
	across chunk.Direction
}

var faceDirs = [6]faceDir{
	{face: block.East, axis: 0, uAxis: 2, vAxis: 1, back: false, flip: true, across: chunk.PosX},
	{face: block.West, axis: 0, uAxis: 2, vAxis: 1, back: true, flip: true, across: chunk.NegX},
	{face: block.Top, axis: 1, uAxis: 0, vAxis: 2, back: false, flip: true, across: chunk.PosY},
	{face: block.Bottom, axis: 1, uAxis: 0, vAxis: 2, back: true, flip: true, across: chunk.NegY},
	{face: block.South, axis: 2, uAxis: 0, vAxis: 1, back: false, flip: false, across: chunk.PosZ},
	{face: block.North, axis: 2, uAxis: 0, vAxis: 1, back: true, flip: false, across: chunk.NegZ},
}

func (d *faceDir) at(c *chunk.Chunk, a, u, v int) block.Type {
	var p [3]int
	p[d.axis] = a
	p[d.uAxis] = u
	p[d.vAxis] = v
	return c.Get(p[0], p[1], p[2])
}

// neighbor returns the block on the far side of the face at (slice,u,v),
// reading the neighbour chunk's boundary slice when the face is on the edge.
func (d *faceDir) neighbor(c *chunk.Chunk, nb *Neighbors, slice, u, v int) block.Type {
	if d.back {
		if slice > 0 {
			return d.at(c, slice-1, u, v)
		}
		if n := nb[d.across]; n != nil {
			return d.at(n, size-1, u, v)
		}
		return block.Air
	}
	if slice < size-1 {
		return d.at(c, slice+1, u, v)
	}
	if n := nb[d.across]; n != nil {
		return d.at(n, 0, u, v)
	}
	return block.Air
}

// FaceVisible reports whether b shows a face toward other.
func FaceVisible(b, other block.Type) bool {
	if b == block.Air || b.IsNonCube() {
		return false
	}
	if !b.IsSolid() && !b.IsTransparent() {
		return false
	}
	if other == block.Air {
		return true
	}
	if b.IsSolid() && !b.IsTransparent() && other.IsTransparent() {
		return true
	}
	return b.IsTransparent() && b != other
}

// Build meshes c against its neighbours. It never fails; an empty or fully
// enclosed chunk gives a mesh with no vertices.
func Build(c *chunk.Chunk, nb Neighbors) *Mesh {
	m := &Mesh{}
	if c == nil || c.IsEmpty() {
		return m
	}
	var mask [size][size]block.Type
	for i := range faceDirs {
		d := &faceDirs[i]
		for slice := 0; slice < size; slice++ {
			for v := 0; v < size; v++ {
				for u := 0; u < size; u++ {
					b := d.at(c, slice, u, v)
					if FaceVisible(b, d.neighbor(c, &nb, slice, u, v)) {
						mask[v][u] = b
					} else {
						mask[v][u] = block.Air
					}
				}
			}
			mergeSlice(m, d, slice, &mask)
		}
	}
	emitBillboards(m, c)
	return m
}

// mergeSlice consumes the mask row by row, growing each run first along u and
// then along v. Transparent cells are always emitted alone.
func mergeSlice(m *Mesh, d *faceDir, slice int, mask *[size][size]block.Type) {
	for v := 0; v < size; v++ {
		for u := 0; u < size; {
			b := mask[v][u]
			if b == block.Air {
				u++
				continue
			}
			w, h := 1, 1
			if !b.IsTransparent() {
				for u+w < size && mask[v][u+w] == b {
					w++
				}
			grow:
				for v+h < size {
					for du := 0; du < w; du++ {
						if mask[v+h][u+du] != b {
							break grow
						}
					}
					h++
				}
			}
			for dv := 0; dv < h; dv++ {
				for du := 0; du < w; du++ {
					mask[v+dv][u+du] = block.Air
				}
			}
			emitQuad(m, d, slice, u, v, w, h, b)
			u += w
		}
	}
}

func emitQuad(m *Mesh, d *faceDir, slice, u, v, w, h int, b block.Type) {
	plane := float32(slice + 1)
	if d.back {
		plane = float32(slice)
	}
	corner := func(cu, cv int) mgl32.Vec3 {
		var p mgl32.Vec3
		p[d.axis] = plane
		p[d.uAxis] = float32(cu)
		p[d.vAxis] = float32(cv)
		return p
	}
	u0, v0, u1, v1 := u, v, u+w, v+h

	uv := block.FaceUVsTiled(b, d.face, w, h)
	bl, br, tr, tl := uv[0], uv[1], uv[2], uv[3]
	origin := block.TileOrigin(b, d.face)
	normal := d.face.Normal()

	base := uint32(len(m.Positions))
	if d.back {
		m.pushVertex(corner(u0, v0), normal, bl, origin)
		m.pushVertex(corner(u0, v1), normal, tl, origin)
		m.pushVertex(corner(u1, v1), normal, tr, origin)
		m.pushVertex(corner(u1, v0), normal, br, origin)
	} else {
		m.pushVertex(corner(u0, v0), normal, bl, origin)
		m.pushVertex(corner(u1, v0), normal, br, origin)
		m.pushVertex(corner(u1, v1), normal, tr, origin)
		m.pushVertex(corner(u0, v1), normal, tl, origin)
	}
	if d.flip {
		m.Indices = append(m.Indices, base, base+2, base+1, base, base+3, base+2)
	} else {
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	m.Quads++
}
