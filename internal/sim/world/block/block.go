// Package block is the fixed block-id vocabulary shared by generation,
// storage and meshing. Ids are persisted, so existing values never change.
package block

type Type uint8

const (
	Air Type = iota
	Stone
	Dirt
	Grass
	Cobblestone
	Planks
	Sand
	Gravel
	OakLog
	OakLeaves
	Glass
	CoalOre
	IronOre
	GoldOre
	DiamondOre
	Bedrock
	Water
	CraftingTable
	Furnace
	Torch
	Snow
	Clay
	Sandstone
	BirchLog
	BirchLeaves
	TallGrass
	Chest
	Bed
	DoorBottom
	DoorTop
	DoorBottomOpen
	DoorTopOpen
	OakSapling
	BirchSapling
	Farmland
	WheatStage0
	WheatStage1
	WheatStage2
	WheatStage3

	count
)

var names = [count]string{
	"AIR", "STONE", "DIRT", "GRASS", "COBBLESTONE", "PLANKS", "SAND", "GRAVEL",
	"OAK_LOG", "OAK_LEAVES", "GLASS", "COAL_ORE", "IRON_ORE", "GOLD_ORE", "DIAMOND_ORE",
	"BEDROCK", "WATER", "CRAFTING_TABLE", "FURNACE", "TORCH", "SNOW", "CLAY", "SANDSTONE",
	"BIRCH_LOG", "BIRCH_LEAVES", "TALL_GRASS", "CHEST", "BED",
	"DOOR_BOTTOM", "DOOR_TOP", "DOOR_BOTTOM_OPEN", "DOOR_TOP_OPEN",
	"OAK_SAPLING", "BIRCH_SAPLING", "FARMLAND",
	"WHEAT_STAGE_0", "WHEAT_STAGE_1", "WHEAT_STAGE_2", "WHEAT_STAGE_3",
}

// FromID decodes a persisted id. Unknown ids decode to Air.
func FromID(id byte) Type {
	if Type(id) >= count {
		return Air
	}
	return Type(id)
}

func (t Type) Valid() bool { return t < count }

func (t Type) String() string {
	if t >= count {
		return "AIR"
	}
	return names[t]
}

// Names returns every block name indexed by id.
func Names() []string {
	out := make([]string, count)
	copy(out, names[:])
	return out
}

// Parse resolves a block name (as printed by String) to its type.
func Parse(name string) (Type, bool) {
	for i, n := range names {
		if n == name {
			return Type(i), true
		}
	}
	return Air, false
}

func (t Type) IsSolid() bool {
	switch t {
	case Stone, Dirt, Grass, Cobblestone, Planks, Sand, Gravel, OakLog, OakLeaves, Glass,
		CoalOre, IronOre, GoldOre, DiamondOre, Bedrock, CraftingTable, Furnace, Snow, Clay,
		Sandstone, BirchLog, BirchLeaves, Chest, Bed, DoorBottom, DoorTop, Farmland:
		return true
	}
	return false
}

func (t Type) IsTransparent() bool {
	switch t {
	case Air, Water, Glass, OakLeaves, BirchLeaves, Torch, TallGrass,
		DoorBottom, DoorTop, DoorBottomOpen, DoorTopOpen,
		OakSapling, BirchSapling, WheatStage0, WheatStage1, WheatStage2, WheatStage3:
		return true
	}
	return false
}

// IsNonCube reports blocks drawn as crossed billboards instead of cube faces.
func (t Type) IsNonCube() bool {
	switch t {
	case Torch, TallGrass, OakSapling, BirchSapling, WheatStage0, WheatStage1, WheatStage2, WheatStage3:
		return true
	}
	return false
}

// IsCarveable reports natural terrain that cave noise may replace with air.
func (t Type) IsCarveable() bool {
	switch t {
	case Stone, Dirt, Grass, Sand, Sandstone, Gravel:
		return true
	}
	return false
}

func (t Type) IsSapling() bool { return t == OakSapling || t == BirchSapling }

// IsGrowingCrop reports wheat that has not reached its final stage.
func (t Type) IsGrowingCrop() bool {
	return t == WheatStage0 || t == WheatStage1 || t == WheatStage2
}

// NextCropStage returns the following wheat stage.
func (t Type) NextCropStage() (Type, bool) {
	switch t {
	case WheatStage0:
		return WheatStage1, true
	case WheatStage1:
		return WheatStage2, true
	case WheatStage2:
		return WheatStage3, true
	}
	return t, false
}
