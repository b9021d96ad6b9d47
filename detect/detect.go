// Package detect locates the selected swatch inside a resolved product
// container. Detection runs as an ordered list of tier strategies, highest
// priority first; the first tier producing a spatially validated candidate
// wins and lower tiers are never consulted. Within a tier, the candidate
// closest to the source image wins, ties broken by document order.
package detect

import (
	"errors"
	"sort"

	"github.com/hazyhaar/swatchmatch/diag"
	"github.com/hazyhaar/swatchmatch/geom"
	"github.com/hazyhaar/swatchmatch/pagetree"
)

// ErrNoValidCandidate is returned when every tier either found nothing or
// found only candidates that failed spatial validation.
var ErrNoValidCandidate = errors.New("detect: no valid candidate")

// Params configures detection and validation.
type Params struct {
	// MaxSwatchDistance is the hard ceiling on the gap between a candidate
	// and the source image. Candidates beyond it are rejected outright.
	MaxSwatchDistance float64
}

// Candidate is one ranked swatch candidate.
type Candidate struct {
	Element     pagetree.Element
	Tier        int
	Distance    float64
	HasDistance bool
}

// Strategy is one detection tier: a name, a priority, and a pure finder.
// Strategies are plain ordered values, not a type hierarchy; adding a tier
// means appending to DefaultStrategies.
type Strategy struct {
	Name string
	Tier int
	Find func(snap *pagetree.Snapshot, container, image pagetree.Element) []pagetree.Element
}

// DefaultStrategies returns the detection tiers in priority order:
//
//	1 selection-state hints (checked inputs, aria markers)
//	2 selected/active class markers
//	3 layout-relative scan around the image
//	4 remaining structural heuristics (color-bearing small controls)
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "selection-state", Tier: 1, Find: findSelectionState},
		{Name: "class-marker", Tier: 2, Find: findClassMarkers},
		{Name: "layout-relative", Tier: 3, Find: findLayoutRelative},
		{Name: "structural", Tier: 4, Find: findStructural},
	}
}

// Detect runs the tiers against a resolved container. Candidates failing
// spatial validation are dropped with a CandidateRejected event; a tier
// whose candidates all fail falls through to the next one.
func Detect(snap *pagetree.Snapshot, container, image pagetree.Element, p Params, emit diag.Func) (*Candidate, error) {
	imgBox := snap.Box(image)

	for _, s := range DefaultStrategies() {
		found := s.Find(snap, container, image)
		var valid []Candidate
		for _, el := range found {
			if el == image {
				continue
			}
			if reason := Validate(snap, el, container, image, p); reason != "" {
				emit(diag.Event{
					Kind:      diag.CandidateRejected,
					Image:     diag.Describe(snap, image),
					Candidate: diag.Describe(snap, el),
					Tier:      s.Tier,
					Reason:    reason,
				})
				continue
			}
			valid = append(valid, Candidate{
				Element:     el,
				Tier:        s.Tier,
				Distance:    geom.Distance(snap.Box(el), imgBox),
				HasDistance: true,
			})
		}
		if len(valid) == 0 {
			continue
		}
		// Closest wins; document order breaks exact ties. Multiple matches
		// usually mean the container is too large, so an arbitrary pick
		// here would leak a neighbour's swatch.
		sort.SliceStable(valid, func(a, b int) bool {
			if valid[a].Distance != valid[b].Distance {
				return valid[a].Distance < valid[b].Distance
			}
			return valid[a].Element.Index() < valid[b].Element.Index()
		})
		return &valid[0], nil
	}
	return nil, ErrNoValidCandidate
}

// selectionStateSelectors are exact structural hints for a selected
// variant, most reliable first.
var selectionStateSelectors = []string{
	"input[checked]",
	"[aria-selected=true]",
	"[aria-checked=true]",
	"[data-selected=true]",
}

// findSelectionState matches explicit selection markers. A checked input
// rendered invisibly (zero box) stands in for its visible wrapper, so the
// wrapper is returned when it looks like a swatch.
func findSelectionState(snap *pagetree.Snapshot, container, _ pagetree.Element) []pagetree.Element {
	var out []pagetree.Element
	seen := map[pagetree.Element]bool{}
	for _, sel := range selectionStateSelectors {
		for _, el := range pagetree.Query(container, sel) {
			if snap.Box(el).Empty() {
				if p := el.Parent(); p != nil && pagetree.IsSwatchLike(snap, p) {
					el = p
				} else {
					continue
				}
			}
			if !seen[el] {
				seen[el] = true
				out = append(out, el)
			}
		}
	}
	return out
}

// selectedClassMarkers are the class names listing pages commonly put on
// the active variant.
var selectedClassMarkers = map[string]bool{
	"selected":        true,
	"active":          true,
	"current":         true,
	"checked":         true,
	"is-selected":     true,
	"is-active":       true,
	"swatch-selected": true,
	"color-selected":  true,
}

func findClassMarkers(snap *pagetree.Snapshot, container, _ pagetree.Element) []pagetree.Element {
	var out []pagetree.Element
	pagetree.Walk(container, func(el pagetree.Element) bool {
		if !pagetree.IsSwatchLike(snap, el) {
			return true
		}
		for _, c := range el.Classes() {
			if selectedClassMarkers[c] {
				out = append(out, el)
				break
			}
		}
		return true
	})
	return out
}

// Layout-relative tolerances: swatches sit in a band above, below, or
// beside the image. The vertical band scales with the image but is capped.
const (
	maxVerticalTolerance = 150.0
	horizontalTolerance  = 50.0
)

func findLayoutRelative(snap *pagetree.Snapshot, container, image pagetree.Element) []pagetree.Element {
	imgBox := snap.Box(image)
	vTol := imgBox.H * 0.5
	if vTol > maxVerticalTolerance {
		vTol = maxVerticalTolerance
	}

	var out []pagetree.Element
	pagetree.Walk(container, func(el pagetree.Element) bool {
		if el == image || !pagetree.IsSwatchLike(snap, el) {
			return true
		}
		box := snap.Box(el)
		dx := horizontalGap(box, imgBox)
		dy := verticalGap(box, imgBox)
		if dx <= horizontalTolerance && dy <= vTol {
			out = append(out, el)
		}
		return true
	})
	return out
}

// findStructural is the last tier: small square-ish controls carrying a
// resolvable indicator color. Candidates whose color cannot be told apart
// from the container's own background are dropped; an invisible indicator
// cannot be the selected marker.
func findStructural(snap *pagetree.Snapshot, container, _ pagetree.Element) []pagetree.Element {
	containerColor, hasContainerColor := IndicatorColor(container)

	var out []pagetree.Element
	pagetree.Walk(container, func(el pagetree.Element) bool {
		if el == container || !pagetree.IsSwatchLike(snap, el) {
			return true
		}
		c, ok := IndicatorColor(el)
		if !ok {
			switch el.Tag() {
			case "button", "input", "a":
				if squareish(snap.Box(el)) {
					out = append(out, el)
				}
			}
			return true
		}
		if hasContainerColor && !Distinct(c, containerColor) {
			return true
		}
		out = append(out, el)
		return true
	})
	return out
}

func squareish(b geom.Box) bool {
	if b.H <= 0 {
		return false
	}
	ratio := b.W / b.H
	return ratio >= 0.5 && ratio <= 2.0
}

func horizontalGap(a, b geom.Box) float64 {
	if a.X > b.Right() {
		return a.X - b.Right()
	}
	if b.X > a.Right() {
		return b.X - a.Right()
	}
	return 0
}

func verticalGap(a, b geom.Box) float64 {
	if a.Y > b.Bottom() {
		return a.Y - b.Bottom()
	}
	if b.Y > a.Bottom() {
		return b.Y - a.Bottom()
	}
	return 0
}
