// Package resolve finds the smallest plausible single-product boundary
// around an image. Three ordered phases: semantic hint selectors, spatial
// clustering, and cautious ancestor traversal. The first phase to produce
// a validated container wins; exhausting all three is a per-image failure,
// never a page-scan failure.
package resolve

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hazyhaar/swatchmatch/cluster"
	"github.com/hazyhaar/swatchmatch/diag"
	"github.com/hazyhaar/swatchmatch/geom"
	"github.com/hazyhaar/swatchmatch/pagetree"
)

// ErrContainerNotFound is returned when all three phases are exhausted.
var ErrContainerNotFound = errors.New("resolve: container not found")

// Phase names the strategy that produced a container.
type Phase string

const (
	PhaseSemantic  Phase = "semantic"
	PhaseClustered Phase = "clustered"
	PhaseTraversed Phase = "traversed"
)

// Container area must stay proportionate to the image it wraps: below 1x
// it cannot enclose the image, above 5x it has swallowed neighbours.
const (
	minAreaRatio = 1.0
	maxAreaRatio = 5.0
)

// maxOtherLargeImages inside a semantic container before it is considered
// a multi-product section.
const maxOtherLargeImages = 3

// maxTraversalDepth bounds the ancestor walk of the last-resort phase.
const maxTraversalDepth = 8

// Merge-distance bounds for proximity clustering. A detected grid tunes
// the value between these; without one the default holds.
const (
	defaultMergeDistance = 80.0
	minMergeDistance     = 40.0
	maxMergeDistance     = 120.0
)

// Params configures container resolution. The orchestrator fills it from
// the public association config.
type Params struct {
	// HintSelectors are structural hint selectors, most specific first.
	HintSelectors []string
	// ClusterRadius bounds both the element gather around the image and
	// cluster acceptance in the clustering phase.
	ClusterRadius float64
	// MinSeparation is the distance every competing product image must
	// keep from the source image for an ancestor to be accepted.
	MinSeparation float64
	// MaxViewportRatio caps container width relative to the viewport.
	MaxViewportRatio float64
}

// Container is a resolved product boundary plus the validation metadata
// that justified accepting it.
type Container struct {
	Element          pagetree.Element
	Phase            Phase
	ViewportRatio    float64
	AreaRatio        float64
	OtherLargeImages int
}

// Resolve runs the three phases in order and returns the first validated
// container. The phases are plain ordered variants, not a type hierarchy;
// extending the resolver means appending to this list.
func Resolve(snap *pagetree.Snapshot, image pagetree.Element, p Params, emit diag.Func) (*Container, error) {
	root := pagetree.Root(image)
	viewport := snap.Viewport(image)

	phases := []struct {
		name Phase
		run  func() *Container
	}{
		{PhaseSemantic, func() *Container { return semantic(snap, root, image, viewport, p, emit) }},
		{PhaseClustered, func() *Container { return clustered(snap, root, image, viewport, p, emit) }},
		{PhaseTraversed, func() *Container { return traversed(snap, root, image, viewport, p, emit) }},
	}
	for _, ph := range phases {
		if c := ph.run(); c != nil {
			emit(diag.Event{
				Kind:      diag.ContainerResolved,
				Image:     diag.Describe(snap, image),
				Container: diag.Describe(snap, c.Element),
				Phase:     string(c.Phase),
			})
			return c, nil
		}
	}
	return nil, ErrContainerNotFound
}

// semantic tries each hint selector in order and accepts the first match
// that is an ancestor of the image and passes size validation.
func semantic(snap *pagetree.Snapshot, root, image pagetree.Element, viewport geom.Box, p Params, emit diag.Func) *Container {
	ancestors := map[pagetree.Element]bool{}
	for _, a := range pagetree.Ancestors(image) {
		ancestors[a] = true
	}

	for _, sel := range p.HintSelectors {
		for _, match := range pagetree.Query(root, sel) {
			if !ancestors[match] {
				continue
			}
			c, reason := validateSize(snap, match, image, viewport, p)
			if c == nil {
				emit(diag.Event{
					Kind:      diag.ContainerRejected,
					Image:     diag.Describe(snap, image),
					Container: diag.Describe(snap, match),
					Phase:     string(PhaseSemantic),
					Reason:    reason,
				})
				continue
			}
			c.Phase = PhaseSemantic
			return c
		}
	}
	return nil
}

// clustered gathers elements around the image, groups them by proximity,
// and derives the minimal container of the best valid cluster. Ambiguous
// clusters are skipped in favour of the next nearest, per the fall-through
// policy; exhausting them falls through to traversal.
func clustered(snap *pagetree.Snapshot, root, image pagetree.Element, viewport geom.Box, p Params, emit diag.Func) *Container {
	candidates := gather(snap, root, image, viewport, p)
	if len(candidates) == 0 {
		return nil
	}

	merge := defaultMergeDistance
	if g := cluster.DetectGrid(snap, pageImages(snap, root)); g != nil {
		merge = g.Spacing * 0.8
		if merge < minMergeDistance {
			merge = minMergeDistance
		}
		if merge > maxMergeDistance {
			merge = maxMergeDistance
		}
	}

	clusters := cluster.Build(snap, candidates, merge)
	for i := range clusters {
		emit(diag.Event{
			Kind:    diag.ClusterFormed,
			Image:   diag.Describe(snap, image),
			Members: len(clusters[i].Members),
		})
	}

	// Nearest first; ties prefer the cluster with fewer images. The
	// containing cluster has distance zero and sorts to the front.
	imgBox := snap.Box(image)
	sort.SliceStable(clusters, func(a, b int) bool {
		da := geom.Distance(clusters[a].Bounds, imgBox)
		db := geom.Distance(clusters[b].Bounds, imgBox)
		if da != db {
			return da < db
		}
		return len(clusters[a].Images(snap)) < len(clusters[b].Images(snap))
	})

	// Each cluster is evaluated exactly once; a rejection falls through to
	// the next nearest instead of revisiting earlier ones.
	for i := range clusters {
		c := &clusters[i]
		if !c.Contains(image) && geom.Distance(c.Bounds, imgBox) > p.ClusterRadius {
			continue
		}
		if err := cluster.Validate(snap, c, viewport.W, p.MaxViewportRatio); err != nil {
			emit(diag.Event{
				Kind:    diag.ContainerRejected,
				Image:   diag.Describe(snap, image),
				Phase:   string(PhaseClustered),
				Members: len(c.Members),
				Reason:  err.Error(),
			})
			continue
		}
		el, err := cluster.MinimalContainer(c.Members)
		if err != nil {
			continue
		}
		out, _ := validateSize(snap, el, image, viewport, p)
		if out == nil {
			// The cluster itself validated; keep the container but record
			// its metadata without gating on the semantic-phase area and
			// image-count limits. The width cap still binds: an over-wide
			// container widens the swatch search area across products.
			out = describe(snap, el, image, viewport)
			if viewport.W > 0 && out.ViewportRatio > p.MaxViewportRatio {
				emit(diag.Event{
					Kind:      diag.ContainerRejected,
					Image:     diag.Describe(snap, image),
					Container: diag.Describe(snap, el),
					Phase:     string(PhaseClustered),
					Reason:    fmt.Sprintf("width %.0f%% of viewport exceeds %.0f%%", out.ViewportRatio*100, p.MaxViewportRatio*100),
				})
				continue
			}
		}
		out.Phase = PhaseClustered
		return out
	}
	return nil
}

// traversed walks ancestors of the image. An ancestor qualifies when it
// holds at least one swatch-like element, stays within the viewport width
// cap, and every competing large image on the page keeps the minimum
// separation from the source image.
func traversed(snap *pagetree.Snapshot, root, image pagetree.Element, viewport geom.Box, p Params, emit diag.Func) *Container {
	others := pageImages(snap, root)
	imgBox := snap.Box(image)

	anc := image
	for depth := 0; depth < maxTraversalDepth; depth++ {
		anc = anc.Parent()
		if anc == nil {
			return nil
		}
		if !hasSwatchLike(snap, anc) {
			continue
		}
		separated := true
		for _, other := range others {
			if other == image {
				continue
			}
			if geom.Distance(snap.Box(other), imgBox) <= p.MinSeparation {
				separated = false
				break
			}
		}
		if !separated {
			emit(diag.Event{
				Kind:      diag.ContainerRejected,
				Image:     diag.Describe(snap, image),
				Container: diag.Describe(snap, anc),
				Phase:     string(PhaseTraversed),
				Reason:    "competing image within minimum separation",
			})
			continue
		}
		c := describe(snap, anc, image, viewport)
		if viewport.W > 0 && c.ViewportRatio > p.MaxViewportRatio {
			emit(diag.Event{
				Kind:      diag.ContainerRejected,
				Image:     diag.Describe(snap, image),
				Container: diag.Describe(snap, anc),
				Phase:     string(PhaseTraversed),
				Reason:    fmt.Sprintf("width %.0f%% of viewport exceeds %.0f%%", c.ViewportRatio*100, p.MaxViewportRatio*100),
			})
			continue
		}
		c.Phase = PhaseTraversed
		return c
	}
	return nil
}

// gather collects clustering candidates near the image: within the radius,
// not an ancestor or wrapper, with real extent. The radius cap keeps the
// quadratic cluster merge bounded on large pages.
func gather(snap *pagetree.Snapshot, root, image pagetree.Element, viewport geom.Box, p Params) []pagetree.Element {
	ancestors := map[pagetree.Element]bool{}
	for _, a := range pagetree.Ancestors(image) {
		ancestors[a] = true
	}
	imgBox := snap.Box(image)
	var out []pagetree.Element
	pagetree.Walk(root, func(el pagetree.Element) bool {
		if el == root || ancestors[el] {
			return true
		}
		box := snap.Box(el)
		if box.Empty() {
			return true
		}
		if viewport.W > 0 && box.W > viewport.W*p.MaxViewportRatio {
			return true // section wrapper, would chain unrelated products
		}
		if geom.Distance(box, imgBox) <= p.ClusterRadius {
			out = append(out, el)
		}
		return true
	})
	return out
}

// pageImages returns all large product images on the page.
func pageImages(snap *pagetree.Snapshot, root pagetree.Element) []pagetree.Element {
	var out []pagetree.Element
	pagetree.Walk(root, func(el pagetree.Element) bool {
		if pagetree.IsLargeImage(snap, el) {
			out = append(out, el)
		}
		return true
	})
	return out
}

func hasSwatchLike(snap *pagetree.Snapshot, container pagetree.Element) bool {
	found := false
	pagetree.Walk(container, func(el pagetree.Element) bool {
		if found {
			return false
		}
		if el != container && pagetree.IsSwatchLike(snap, el) {
			found = true
			return false
		}
		return true
	})
	return found
}

// validateSize applies the single-product size checks: width within the
// viewport ratio, area proportionate to the source image, and few enough
// competing large images inside. Returns the container with its metadata,
// or nil plus the rejection reason.
func validateSize(snap *pagetree.Snapshot, el, image pagetree.Element, viewport geom.Box, p Params) (*Container, string) {
	c := describe(snap, el, image, viewport)
	if viewport.W > 0 && c.ViewportRatio > p.MaxViewportRatio {
		return nil, fmt.Sprintf("width %.0f%% of viewport exceeds %.0f%%", c.ViewportRatio*100, p.MaxViewportRatio*100)
	}
	if c.AreaRatio < minAreaRatio || c.AreaRatio > maxAreaRatio {
		return nil, fmt.Sprintf("area ratio %.2f outside [%.0f, %.0f]", c.AreaRatio, minAreaRatio, maxAreaRatio)
	}
	if c.OtherLargeImages > maxOtherLargeImages {
		return nil, fmt.Sprintf("%d competing images inside", c.OtherLargeImages)
	}
	return c, ""
}

// describe computes a container's validation metadata without gating.
func describe(snap *pagetree.Snapshot, el, image pagetree.Element, viewport geom.Box) *Container {
	box := snap.Box(el)
	imgBox := snap.Box(image)

	c := &Container{Element: el}
	if viewport.W > 0 {
		c.ViewportRatio = box.W / viewport.W
	}
	if imgBox.Area() > 0 {
		c.AreaRatio = box.Area() / imgBox.Area()
	}
	pagetree.Walk(el, func(d pagetree.Element) bool {
		if d != image && pagetree.IsLargeImage(snap, d) {
			c.OtherLargeImages++
		}
		return true
	})
	return c
}
