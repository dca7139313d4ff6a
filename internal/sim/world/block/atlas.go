package block

import "github.com/go-gl/mathgl/mgl32"

// AtlasTiles is the number of tiles per row (and column) of the texture atlas.
const AtlasTiles = 16

type Face uint8

const (
	Top Face = iota
	Bottom
	North
	South
	East
	West
)

func (f Face) String() string {
	switch f {
	case Top:
		return "TOP"
	case Bottom:
		return "BOTTOM"
	case North:
		return "NORTH"
	case South:
		return "SOUTH"
	case East:
		return "EAST"
	case West:
		return "WEST"
	}
	return "UNKNOWN"
}

// Normal is the outward unit normal of the face. North faces -Z.
func (f Face) Normal() mgl32.Vec3 {
	switch f {
	case Top:
		return mgl32.Vec3{0, 1, 0}
	case Bottom:
		return mgl32.Vec3{0, -1, 0}
	case North:
		return mgl32.Vec3{0, 0, -1}
	case South:
		return mgl32.Vec3{0, 0, 1}
	case East:
		return mgl32.Vec3{1, 0, 0}
	case West:
		return mgl32.Vec3{-1, 0, 0}
	}
	return mgl32.Vec3{}
}

// TextureIndex returns the atlas tile used for one face of a block.
func TextureIndex(t Type, f Face) int {
	switch t {
	case Stone:
		return 0
	case Dirt:
		return 1
	case Grass:
		switch f {
		case Top:
			return 2
		case Bottom:
			return 1
		}
		return 3
	case Cobblestone:
		return 4
	case Planks:
		return 5
	case Sand:
		return 6
	case Gravel:
		return 7
	case OakLog:
		if f == Top || f == Bottom {
			return 8
		}
		return 9
	case OakLeaves:
		return 10
	case Glass:
		return 11
	case CoalOre:
		return 12
	case IronOre:
		return 13
	case GoldOre:
		return 14
	case DiamondOre:
		return 15
	case Bedrock:
		return 16
	case Water:
		return 17
	case CraftingTable:
		switch f {
		case Top:
			return 18
		case Bottom:
			return 5
		}
		return 19
	case Furnace:
		switch f {
		case Top, Bottom:
			return 20
		case North:
			return 21
		}
		return 22
	case Snow:
		return 23
	case Clay:
		return 24
	case Sandstone:
		switch f {
		case Top:
			return 25
		case Bottom:
			return 26
		}
		return 27
	case BirchLog:
		if f == Top || f == Bottom {
			return 28
		}
		return 29
	case BirchLeaves:
		return 30
	case Chest:
		switch f {
		case Top:
			return 33
		case Bottom:
			return 5
		case North:
			return 31
		}
		return 32
	case Bed:
		switch f {
		case Top:
			return 34
		case Bottom:
			return 5
		}
		return 35
	case DoorBottom, DoorBottomOpen:
		return 41
	case DoorTop, DoorTopOpen:
		return 40
	case OakSapling:
		return 42
	case BirchSapling:
		return 43
	case Farmland:
		if f == Top {
			return 44
		}
		return 1
	case WheatStage0:
		return 45
	case WheatStage1:
		return 46
	case WheatStage2:
		return 47
	case WheatStage3:
		return 48
	case Torch:
		return 49
	case TallGrass:
		return 50
	}
	return 0
}

// TileUVs returns [uMin, vMin, uMax, vMax] for an atlas tile.
func TileUVs(index int) [4]float32 {
	const size = float32(1) / AtlasTiles
	col := float32(index % AtlasTiles)
	row := float32(index / AtlasTiles)
	uMin := col * size
	vMin := row * size
	return [4]float32{uMin, vMin, uMin + size, vMin + size}
}

// FaceUVsTiled returns bottom-left, bottom-right, top-right, top-left UVs for a
// face spanning w by h tiles. The shader wraps them back into the tile using
// the tile origin.
func FaceUVsTiled(t Type, f Face, w, h int) [4]mgl32.Vec2 {
	r := TileUVs(TextureIndex(t, f))
	const size = float32(1) / AtlasTiles
	uMin, vMin := r[0], r[1]
	uMax := uMin + size*float32(w)
	vMax := vMin + size*float32(h)
	return [4]mgl32.Vec2{
		{uMin, vMax},
		{uMax, vMax},
		{uMax, vMin},
		{uMin, vMin},
	}
}

// TileOrigin is the unscaled (uMin, vMin) of the tile used by a face.
func TileOrigin(t Type, f Face) mgl32.Vec2 {
	r := TileUVs(TextureIndex(t, f))
	return mgl32.Vec2{r[0], r[1]}
}
