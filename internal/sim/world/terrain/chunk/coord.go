package chunk

import (
	"fmt"

	"voxelforge.dev/internal/sim/world/logic/mathx"
)

// Size is the edge length of a chunk in blocks.
const Size = 16

// Coord addresses a chunk; it covers world cells [c*16, c*16+16) on every axis.
type Coord struct {
	X, Y, Z int
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z) }

func (c Coord) Add(dx, dy, dz int) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// Origin returns the world position of local (0,0,0).
func (c Coord) Origin() (int, int, int) {
	return c.X * Size, c.Y * Size, c.Z * Size
}

// Direction indexes the six face neighbours in the order +X, -X, +Y, -Y, +Z, -Z.
type Direction int

const (
	PosX Direction = iota
	NegX
	PosY
	NegY
	PosZ
	NegZ
)

var neighborOffsets = [6][3]int{
	{1, 0, 0},
	{-1, 0, 0},
	{0, 1, 0},
	{0, -1, 0},
	{0, 0, 1},
	{0, 0, -1},
}

// Neighbor returns the chunk adjacent across the given face.
func (c Coord) Neighbor(d Direction) Coord {
	o := neighborOffsets[d]
	return c.Add(o[0], o[1], o[2])
}

// Neighbors returns the six face neighbours in Direction order.
func (c Coord) Neighbors() [6]Coord {
	var out [6]Coord
	for i := range out {
		out[i] = c.Neighbor(Direction(i))
	}
	return out
}

// CoordOf returns the chunk holding a world cell (floor division, so -1 maps to chunk -1).
func CoordOf(wx, wy, wz int) Coord {
	return Coord{
		X: mathx.FloorDiv(wx, Size),
		Y: mathx.FloorDiv(wy, Size),
		Z: mathx.FloorDiv(wz, Size),
	}
}

// LocalOf returns the cell offset of a world position within its chunk.
func LocalOf(wx, wy, wz int) (int, int, int) {
	return mathx.Mod(wx, Size), mathx.Mod(wy, Size), mathx.Mod(wz, Size)
}
