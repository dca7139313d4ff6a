package chunk

import (
	"bytes"
	"errors"
	"testing"

	"voxelforge.dev/internal/sim/world/block"
)

func TestIndexIsYMajor(t *testing.T) {
	c := New()
	c.Set(1, 2, 3, block.Stone)
	buf := c.Bytes()
	if buf[2*256+3*16+1] != byte(block.Stone) {
		t.Fatalf("expected y*256+z*16+x layout")
	}
}

func TestRoundTrip(t *testing.T) {
	c := New()
	for i := 0; i < Volume; i++ {
		x, y, z := i%Size, i/(Size*Size), (i/Size)%Size
		c.Set(x, y, z, block.Type(i%39))
	}
	got, err := Decode(c.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for y := 0; y < Size; y++ {
		for z := 0; z < Size; z++ {
			for x := 0; x < Size; x++ {
				if got.Get(x, y, z) != c.Get(x, y, z) {
					t.Fatalf("mismatch at %d,%d,%d", x, y, z)
				}
			}
		}
	}
	if !bytes.Equal(got.Bytes(), c.Bytes()) {
		t.Fatalf("buffers differ")
	}
}

func TestDecodeUnknownIDsBecomeAir(t *testing.T) {
	buf := make([]byte, Volume)
	buf[0] = 200
	buf[1] = byte(block.Dirt)
	c, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Get(0, 0, 0) != block.Air {
		t.Fatalf("unknown id should be air, got %v", c.Get(0, 0, 0))
	}
	if c.Get(1, 0, 0) != block.Dirt {
		t.Fatalf("got %v", c.Get(1, 0, 0))
	}
}

func TestDecodeBadLength(t *testing.T) {
	if _, err := Decode(make([]byte, 100)); !errors.Is(err, ErrBadLength) {
		t.Fatalf("err=%v want ErrBadLength", err)
	}
}

func TestIsEmptyAndClone(t *testing.T) {
	c := New()
	if !c.IsEmpty() {
		t.Fatalf("new chunk should be empty")
	}
	cp := c.Clone()
	c.Set(15, 15, 15, block.Torch)
	if c.IsEmpty() {
		t.Fatalf("chunk with torch should not be empty")
	}
	if !cp.IsEmpty() {
		t.Fatalf("clone must not share storage")
	}
}

func TestCoordOfNegative(t *testing.T) {
	cases := []struct {
		x, y, z int
		want    Coord
		lx      int
	}{
		{0, 0, 0, Coord{0, 0, 0}, 0},
		{-1, 5, 17, Coord{-1, 0, 1}, 15},
		{-16, -17, 15, Coord{-1, -2, 0}, 0},
		{-17, 0, 0, Coord{-2, 0, 0}, 15},
	}
	for _, c := range cases {
		if got := CoordOf(c.x, c.y, c.z); got != c.want {
			t.Fatalf("CoordOf(%d,%d,%d)=%v want %v", c.x, c.y, c.z, got, c.want)
		}
		if lx, _, _ := LocalOf(c.x, c.y, c.z); lx != c.lx {
			t.Fatalf("LocalOf x=%d got %d want %d", c.x, lx, c.lx)
		}
	}
}

func TestNeighborsOrder(t *testing.T) {
	n := Coord{0, 0, 0}.Neighbors()
	want := [6]Coord{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	if n != want {
		t.Fatalf("neighbors=%v want %v", n, want)
	}
}
