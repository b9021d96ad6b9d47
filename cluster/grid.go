package cluster

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/hazyhaar/swatchmatch/geom"
	"github.com/hazyhaar/swatchmatch/pagetree"
)

// BandTolerance is how far apart two coordinates may be and still share a
// row or column band. Listing grids are pixel-aligned; a few units absorb
// sub-pixel rounding.
const BandTolerance = 4.0

// Grid describes a detected listing-grid layout. Advisory only: it tunes
// distance thresholds but is never required for a correct association.
type Grid struct {
	Columns int
	Rows    int
	Spacing float64
}

// DetectGrid infers a grid layout from product image positions: rows are
// bands of shared top coordinate, columns bands of shared left coordinate,
// spacing the median gap between horizontally adjacent images in a row.
// Returns nil for fewer than two images or when no two images share a row,
// since without horizontal adjacency there is no grid to speak of.
func DetectGrid(snap *pagetree.Snapshot, images []pagetree.Element) *Grid {
	if len(images) < 2 {
		return nil
	}
	boxes := make([]geom.Box, len(images))
	tops := make([]float64, len(images))
	lefts := make([]float64, len(images))
	for i, el := range images {
		boxes[i] = snap.Box(el)
		tops[i] = boxes[i].Y
		lefts[i] = boxes[i].X
	}

	rowOf, rows := band(tops, BandTolerance)
	_, cols := band(lefts, BandTolerance)

	// Gaps between horizontally adjacent images within each row band.
	byRow := make(map[int][]geom.Box)
	for i, r := range rowOf {
		byRow[r] = append(byRow[r], boxes[i])
	}
	var gaps []float64
	for _, row := range byRow {
		if len(row) < 2 {
			continue
		}
		sort.Slice(row, func(i, j int) bool { return row[i].X < row[j].X })
		for i := 1; i < len(row); i++ {
			if g := row[i].X - row[i-1].Right(); g >= 0 {
				gaps = append(gaps, g)
			}
		}
	}
	if len(gaps) == 0 {
		return nil
	}
	sort.Float64s(gaps)
	spacing := stat.Quantile(0.5, stat.Empirical, gaps, nil)

	return &Grid{Columns: cols, Rows: rows, Spacing: spacing}
}

// band assigns each value to a coordinate band of width tol and returns
// the per-value band index plus the band count.
func band(vals []float64, tol float64) ([]int, int) {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })

	out := make([]int, len(vals))
	bandID := 0
	start := vals[idx[0]]
	for n, i := range idx {
		if n > 0 && vals[i]-start > tol {
			bandID++
			start = vals[i]
		}
		out[i] = bandID
	}
	return out, bandID + 1
}
