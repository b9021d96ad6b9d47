// Package associate is the public entry point of the swatch association
// engine. Given a product image in a positioned-element tree, it drives
// container resolution, tier detection, and spatial validation, and
// returns one association result.
//
// The engine is synchronous and holds no state across calls: repeated
// invocations on an unchanged tree snapshot return identical results, and
// calls for different images may run concurrently. Any caching of results
// belongs to the host, keyed by its own tree-mutation epoch; the engine
// has no way to detect staleness of a structure it does not own.
package associate

import (
	"errors"

	"github.com/hazyhaar/swatchmatch/detect"
	"github.com/hazyhaar/swatchmatch/diag"
	"github.com/hazyhaar/swatchmatch/pagetree"
	"github.com/hazyhaar/swatchmatch/resolve"
)

// Result is one association. Swatch is nil and Tier -1 when no swatch
// could be resolved for the image; per-image failure is an expected
// outcome, not an error.
type Result struct {
	Image       pagetree.Element
	Swatch      pagetree.Element
	Tier        int
	Distance    float64
	HasDistance bool
}

// Resolve associates one product image with its selected swatch. Every
// failure mode (no container, no candidate, candidates all rejected) is
// absorbed into a null result so a single bad image never aborts a page
// batch.
func Resolve(image pagetree.Element, cfg Config) Result {
	cfg.defaults()
	emit := cfg.OnEvent
	snap := pagetree.NewSnapshot()

	null := Result{Image: image, Tier: -1}
	if image == nil {
		return null
	}

	container, err := resolve.Resolve(snap, image, resolve.Params{
		HintSelectors:    cfg.StructuralHintSelectors,
		ClusterRadius:    cfg.ClusterRadius,
		MinSeparation:    cfg.MinSeparation,
		MaxViewportRatio: cfg.MaxContainerViewportRatio,
	}, emit)
	if err != nil {
		emit(diag.Event{
			Kind:   diag.AssociationFailed,
			Image:  diag.Describe(snap, image),
			Reason: err.Error(),
		})
		return null
	}

	cand, err := detect.Detect(snap, container.Element, image, detect.Params{
		MaxSwatchDistance: cfg.MaxSwatchDistance,
	}, emit)
	if err != nil {
		if !errors.Is(err, detect.ErrNoValidCandidate) {
			// Detection only fails with ErrNoValidCandidate today; any
			// future error kind still degrades to a null association.
			emit(diag.Event{Kind: diag.AssociationFailed, Image: diag.Describe(snap, image), Reason: err.Error()})
			return null
		}
		emit(diag.Event{
			Kind:      diag.AssociationFailed,
			Image:     diag.Describe(snap, image),
			Container: diag.Describe(snap, container.Element),
			Reason:    err.Error(),
		})
		return null
	}

	emit(diag.Event{
		Kind:      diag.AssociationSucceeded,
		Image:     diag.Describe(snap, image),
		Container: diag.Describe(snap, container.Element),
		Candidate: diag.Describe(snap, cand.Element),
		Phase:     string(container.Phase),
		Tier:      cand.Tier,
		Distance:  diag.Dist(cand.Distance),
	})
	return Result{
		Image:       image,
		Swatch:      cand.Element,
		Tier:        cand.Tier,
		Distance:    cand.Distance,
		HasDistance: cand.HasDistance,
	}
}

// ResolveAll associates every image, isolating failures per image.
func ResolveAll(images []pagetree.Element, cfg Config) []Result {
	out := make([]Result, len(images))
	for i, img := range images {
		out[i] = Resolve(img, cfg)
	}
	return out
}

// PageImages returns the large product images under root, in document
// order. Hosts use it to seed ResolveAll.
func PageImages(root pagetree.Element) []pagetree.Element {
	snap := pagetree.NewSnapshot()
	var out []pagetree.Element
	pagetree.Walk(root, func(el pagetree.Element) bool {
		if pagetree.IsLargeImage(snap, el) {
			out = append(out, el)
		}
		return true
	})
	return out
}
