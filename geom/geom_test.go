package geom

import (
	"errors"
	"math"
	"testing"
)

func TestUnion_Empty(t *testing.T) {
	// WHAT: Union of no boxes fails.
	// WHY: An enclosing box of nothing is undefined; callers must catch it.
	_, err := Union()
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("union empty: err = %v, want ErrEmptyInput", err)
	}
}

func TestUnion_Single(t *testing.T) {
	b := Box{X: 10, Y: 20, W: 30, H: 40}
	got, err := Union(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != b {
		t.Errorf("union single: got %+v, want %+v", got, b)
	}
}

func TestUnion_Disjoint(t *testing.T) {
	// WHAT: Union spans both boxes including the gap between them.
	got, err := Union(Box{X: 0, Y: 0, W: 10, H: 10}, Box{X: 100, Y: 50, W: 20, H: 20})
	if err != nil {
		t.Fatal(err)
	}
	want := Box{X: 0, Y: 0, W: 120, H: 70}
	if got != want {
		t.Errorf("union: got %+v, want %+v", got, want)
	}
}

func TestDistance_Overlap(t *testing.T) {
	// WHAT: Overlapping boxes have zero distance.
	a := Box{X: 0, Y: 0, W: 100, H: 100}
	b := Box{X: 50, Y: 50, W: 100, H: 100}
	if d := Distance(a, b); d != 0 {
		t.Errorf("distance overlap: got %f, want 0", d)
	}
}

func TestDistance_Touch(t *testing.T) {
	// WHAT: Boxes sharing an edge are at distance zero.
	a := Box{X: 0, Y: 0, W: 100, H: 100}
	b := Box{X: 100, Y: 0, W: 100, H: 100}
	if d := Distance(a, b); d != 0 {
		t.Errorf("distance touch: got %f, want 0", d)
	}
}

func TestDistance_HorizontalGap(t *testing.T) {
	// WHAT: Side-by-side boxes report the gap width, not a diagonal.
	// WHY: Wide product cards separated by a 20px gutter must read as
	// 20 apart regardless of their heights.
	a := Box{X: 0, Y: 0, W: 300, H: 400}
	b := Box{X: 320, Y: 0, W: 300, H: 400}
	if d := Distance(a, b); d != 20 {
		t.Errorf("distance gap: got %f, want 20", d)
	}
}

func TestDistance_Diagonal(t *testing.T) {
	// WHAT: Corner-separated boxes report the corner-to-corner gap.
	a := Box{X: 0, Y: 0, W: 10, H: 10}
	b := Box{X: 13, Y: 14, W: 10, H: 10}
	want := math.Hypot(3, 4)
	if d := Distance(a, b); math.Abs(d-want) > 1e-9 {
		t.Errorf("distance diagonal: got %f, want %f", d, want)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Box{X: 5, Y: 7, W: 11, H: 3}
	b := Box{X: 200, Y: 90, W: 40, H: 60}
	if Distance(a, b) != Distance(b, a) {
		t.Error("distance is not symmetric")
	}
}

func TestExpand_ClampsNegative(t *testing.T) {
	// WHAT: Shrinking past zero clamps dimensions instead of going negative.
	b := Box{X: 0, Y: 0, W: 10, H: 10}
	got := b.Expand(-20)
	if got.W != 0 || got.H != 0 {
		t.Errorf("expand clamp: got %+v, want zero size", got)
	}
}

func TestContains(t *testing.T) {
	outer := Box{X: 0, Y: 0, W: 100, H: 100}
	if !outer.Contains(Box{X: 10, Y: 10, W: 20, H: 20}) {
		t.Error("inner box should be contained")
	}
	if outer.Contains(Box{X: 90, Y: 90, W: 20, H: 20}) {
		t.Error("overhanging box should not be contained")
	}
	// Edges inclusive: an identical box contains itself.
	if !outer.Contains(outer) {
		t.Error("box should contain itself")
	}
}
