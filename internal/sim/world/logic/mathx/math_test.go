package mathx

import "testing"

func TestFloorDivAndMod(t *testing.T) {
	cases := []struct {
		a, b, q, m int
	}{
		{0, 16, 0, 0},
		{15, 16, 0, 15},
		{16, 16, 1, 0},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{-17, 16, -2, 15},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.q {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.q)
		}
		if got := Mod(c.a, c.b); got != c.m {
			t.Fatalf("Mod(%d,%d)=%d want %d", c.a, c.b, got, c.m)
		}
	}
}

func TestChebyshevXZ(t *testing.T) {
	if d := ChebyshevXZ(0, 0, 3, -5); d != 5 {
		t.Fatalf("d=%d want 5", d)
	}
	if d := DistSqXZ(0, 0, 3, -4); d != 25 {
		t.Fatalf("dsq=%d want 25", d)
	}
}

func TestBetweenRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := Between(42, i, -i, i*3, 60, 180)
		if v < 60 || v >= 180 {
			t.Fatalf("value %f out of range", v)
		}
		if v != Between(42, i, -i, i*3, 60, 180) {
			t.Fatalf("not deterministic")
		}
	}
}
