// Package geom provides the bounding-box math shared by the association
// engine: axis-aligned boxes, enclosing unions, and gap-based distance
// between boxes. All functions are pure and operate on viewport-relative
// coordinates; callers must compare boxes from a single layout snapshot.
package geom

import (
	"errors"
	"math"
)

// ErrEmptyInput is returned by Union when called with no boxes.
var ErrEmptyInput = errors.New("geom: empty input")

// Box is an axis-aligned rectangle. W and H are never negative for boxes
// produced by this package; a zero-area box is valid but callers ranking
// boxes must never prefer it over a non-degenerate one.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the X coordinate of the box's right edge.
func (b Box) Right() float64 { return b.X + b.W }

// Bottom returns the Y coordinate of the box's bottom edge.
func (b Box) Bottom() float64 { return b.Y + b.H }

// Area returns the box area in square units.
func (b Box) Area() float64 { return b.W * b.H }

// Empty reports whether the box has zero area.
func (b Box) Empty() bool { return b.W <= 0 || b.H <= 0 }

// Expand grows the box by m units on every side. Negative m shrinks; the
// result is clamped to zero width/height.
func (b Box) Expand(m float64) Box {
	out := Box{X: b.X - m, Y: b.Y - m, W: b.W + 2*m, H: b.H + 2*m}
	if out.W < 0 {
		out.W = 0
	}
	if out.H < 0 {
		out.H = 0
	}
	return out
}

// Contains reports whether other lies entirely inside b (edges inclusive).
func (b Box) Contains(other Box) bool {
	return other.X >= b.X && other.Y >= b.Y &&
		other.Right() <= b.Right() && other.Bottom() <= b.Bottom()
}

// Union returns the smallest box containing every argument.
// Returns ErrEmptyInput when called with no boxes.
func Union(boxes ...Box) (Box, error) {
	if len(boxes) == 0 {
		return Box{}, ErrEmptyInput
	}
	minX, minY := boxes[0].X, boxes[0].Y
	maxX, maxY := boxes[0].Right(), boxes[0].Bottom()
	for _, b := range boxes[1:] {
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.Right())
		maxY = math.Max(maxY, b.Bottom())
	}
	return Box{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, nil
}

// Distance returns the Euclidean gap between the nearest edges of a and b.
// Overlapping or touching boxes report 0. Two wide boxes separated only by
// a thin vertical gap report that gap's width, not a diagonal through their
// centers, which is what makes the metric usable for adjacency tests on
// listing grids.
func Distance(a, b Box) float64 {
	dx := math.Max(0, math.Max(a.X-b.Right(), b.X-a.Right()))
	dy := math.Max(0, math.Max(a.Y-b.Bottom(), b.Y-a.Bottom()))
	return math.Hypot(dx, dy)
}
