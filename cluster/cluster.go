// Package cluster groups positioned elements by spatial proximity and
// derives product boundaries from the groups: transitive proximity merge,
// grid-pattern detection on listing pages, minimal enclosing containers,
// and cluster validation against the one-image-per-product rule.
package cluster

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/swatchmatch/geom"
	"github.com/hazyhaar/swatchmatch/pagetree"
)

// ErrAmbiguousCluster marks a cluster holding more than one image-like
// element. Such clusters span multiple products and must never be used as
// a container source.
var ErrAmbiguousCluster = errors.New("cluster: more than one image-like element")

// MaxViewportRatio is the default cap on a valid cluster's width relative
// to the viewport. Anything wider is a page section, not a single product.
const MaxViewportRatio = 0.60

// Cluster is a set of spatially co-located elements plus their enclosing
// box. Members keep document order.
type Cluster struct {
	Members []pagetree.Element
	Bounds  geom.Box
}

// Images returns the image-like members.
func (c *Cluster) Images(snap *pagetree.Snapshot) []pagetree.Element {
	var out []pagetree.Element
	for _, m := range c.Members {
		if pagetree.IsImageLike(snap, m) {
			out = append(out, m)
		}
	}
	return out
}

// Contains reports whether el is a member.
func (c *Cluster) Contains(el pagetree.Element) bool {
	for _, m := range c.Members {
		if m == el {
			return true
		}
	}
	return false
}

// Build merges candidates whose pairwise gap distance is at most
// maxDistance into clusters. The merge is transitive: A near B and B near
// C puts all three in one cluster even if A and C are far apart. Connected
// components over the implicit proximity graph, computed with union-find;
// candidate sets are capped upstream to tens or low hundreds of elements,
// so the quadratic edge scan stays cheap.
func Build(snap *pagetree.Snapshot, candidates []pagetree.Element, maxDistance float64) []Cluster {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]] // path halving
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	boxes := make([]geom.Box, n)
	for i, el := range candidates {
		boxes[i] = snap.Box(el)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if geom.Distance(boxes[i], boxes[j]) <= maxDistance {
				union(i, j)
			}
		}
	}

	// Group by root, preserving candidate (document) order within groups.
	order := make(map[int]int)
	var clusters []Cluster
	for i, el := range candidates {
		r := find(i)
		idx, ok := order[r]
		if !ok {
			idx = len(clusters)
			order[r] = idx
			clusters = append(clusters, Cluster{})
		}
		clusters[idx].Members = append(clusters[idx].Members, el)
	}
	for i := range clusters {
		memberBoxes := make([]geom.Box, len(clusters[i].Members))
		for j, m := range clusters[i].Members {
			memberBoxes[j] = snap.Box(m)
		}
		b, err := geom.Union(memberBoxes...)
		if err != nil {
			continue // unreachable: every cluster has at least one member
		}
		clusters[i].Bounds = b
	}
	return clusters
}

// MinimalContainer returns the lowest common structural ancestor of all
// elements. Guaranteed to exist for a non-empty set drawn from one tree.
func MinimalContainer(elements []pagetree.Element) (pagetree.Element, error) {
	if len(elements) == 0 {
		return nil, fmt.Errorf("cluster: minimal container: %w", geom.ErrEmptyInput)
	}
	if len(elements) == 1 {
		if p := elements[0].Parent(); p != nil {
			return p, nil
		}
		return elements[0], nil
	}

	// Chains run root-first; the LCA is the last position where all agree.
	chains := make([][]pagetree.Element, len(elements))
	for i, el := range elements {
		chains[i] = append(pagetree.Ancestors(el), el)
	}
	var lca pagetree.Element
	for depth := 0; ; depth++ {
		var at pagetree.Element
		for i, chain := range chains {
			if depth >= len(chain) {
				at = nil
				break
			}
			if i == 0 {
				at = chain[depth]
				continue
			}
			if chain[depth] != at {
				at = nil
				break
			}
		}
		if at == nil {
			break
		}
		lca = at
	}
	if lca == nil {
		return nil, fmt.Errorf("cluster: elements do not share a tree")
	}
	// The LCA may be one of the elements itself; the container must
	// enclose all of them strictly, so step to its parent in that case.
	for _, el := range elements {
		if el == lca {
			if p := lca.Parent(); p != nil {
				return p, nil
			}
			break
		}
	}
	return lca, nil
}

// Closest picks the cluster for an image: the one containing it, or the
// nearest one by gap distance within maxRadius. Ties prefer the cluster
// with fewer image members, favouring single-product groups. Returns nil
// when nothing qualifies.
func Closest(snap *pagetree.Snapshot, image pagetree.Element, clusters []Cluster, maxRadius float64) *Cluster {
	for i := range clusters {
		if clusters[i].Contains(image) {
			return &clusters[i]
		}
	}
	imgBox := snap.Box(image)
	best := -1
	var bestDist float64
	var bestImages int
	for i := range clusters {
		d := geom.Distance(clusters[i].Bounds, imgBox)
		if d > maxRadius {
			continue
		}
		imgs := len(clusters[i].Images(snap))
		if best < 0 || d < bestDist || (d == bestDist && imgs < bestImages) {
			best, bestDist, bestImages = i, d, imgs
		}
	}
	if best < 0 {
		return nil
	}
	return &clusters[best]
}

// Validate checks that a cluster can stand for exactly one product:
// exactly one image-like member, at least one supporting element next to
// it, and a bounding box no wider than maxRatio of the viewport. A
// non-positive maxRatio falls back to MaxViewportRatio.
func Validate(snap *pagetree.Snapshot, c *Cluster, viewportWidth, maxRatio float64) error {
	if maxRatio <= 0 {
		maxRatio = MaxViewportRatio
	}
	images := len(c.Images(snap))
	if images > 1 {
		return fmt.Errorf("%w: %d images", ErrAmbiguousCluster, images)
	}
	if images == 0 {
		return fmt.Errorf("cluster: no image-like element")
	}
	if len(c.Members) < 2 {
		return fmt.Errorf("cluster: no supporting elements")
	}
	if viewportWidth > 0 && c.Bounds.W > viewportWidth*maxRatio {
		return fmt.Errorf("cluster: bounds %.0f wider than %.0f%% of viewport", c.Bounds.W, maxRatio*100)
	}
	return nil
}
