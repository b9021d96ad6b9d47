// Package pagetree abstracts the host's positioned-element tree behind a
// read-only capability. The association engine only ever reads tags,
// attributes, layout boxes, and structural links; it never creates,
// destroys, or mutates elements. Handles are borrowed for the duration of
// one association call and must not be retained past it.
//
// Two providers ship with the package: an in-memory node tree built from
// flat RawNode records (used by the rod-backed live capture and by tests),
// and a static HTML adapter over golang.org/x/net/html for documents whose
// geometry is carried in inline styles.
package pagetree

import (
	"strings"

	"github.com/hazyhaar/swatchmatch/geom"
)

// Element is a read-only handle to one positioned node. Implementations
// must be pointer-shaped so that two handles to the same node compare equal
// with ==, and Index must return a stable document-order position used for
// deterministic tiebreaks.
type Element interface {
	// Tag returns the lowercase tag name ("img", "div", ...).
	Tag() string
	// Classes returns the element's class list, split on whitespace.
	Classes() []string
	// Attr returns a named attribute and whether it is present.
	Attr(name string) (string, bool)
	// Box returns the layout rectangle, viewport-relative. Callers inside
	// one association call must read it through a Snapshot so each box is
	// observed at most once per call.
	Box() geom.Box
	// Parent returns the structural parent, or nil at the root.
	Parent() Element
	// Children returns the structural children in document order.
	Children() []Element
	// Index returns the element's document-order position.
	Index() int
}

// Large-image thresholds. An element this size is treated as a product
// photo rather than a thumbnail or icon when counting competing images.
const (
	LargeImageArea  = 10000.0
	LargeImageWidth = 100.0
)

// minImageArea filters out tracking pixels and icon-sized images.
const minImageArea = 2500.0

// IsImageLike reports whether el is a product-image candidate: an img or
// picture tag, an explicit img role, or an element carrying an inline
// background-image, with a box big enough to rule out icons. Boxes are
// read through snap so classification never re-reads live layout.
func IsImageLike(snap *Snapshot, el Element) bool {
	if el == nil {
		return false
	}
	if snap.Box(el).Area() < minImageArea {
		return false
	}
	switch el.Tag() {
	case "img", "picture":
		return true
	}
	if role, ok := el.Attr("role"); ok && role == "img" {
		return true
	}
	if style, ok := el.Attr("style"); ok && strings.Contains(style, "background-image") {
		return true
	}
	return false
}

// IsLargeImage reports whether el is image-like and big enough to count as
// a competing product photo during container validation.
func IsLargeImage(snap *Snapshot, el Element) bool {
	if !IsImageLike(snap, el) {
		return false
	}
	box := snap.Box(el)
	return box.Area() >= LargeImageArea || box.W >= LargeImageWidth
}

// Swatch-size ceiling. Variant indicators are small controls; anything
// bigger is a card, a thumbnail, or a photo.
const maxSwatchSide = 100.0

// IsSwatchLike reports whether el could be a variant indicator: a small
// non-image element with real extent. Deliberately permissive; the tier
// detector and spatial validator narrow the set further.
func IsSwatchLike(snap *Snapshot, el Element) bool {
	if el == nil {
		return false
	}
	box := snap.Box(el)
	if box.Empty() || box.W > maxSwatchSide || box.H > maxSwatchSide {
		return false
	}
	return !IsImageLike(snap, el)
}

// HasClass reports whether el carries the given class name.
func HasClass(el Element, name string) bool {
	for _, c := range el.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

// Walk visits el and all its descendants in document order. Returning
// false from fn stops descent into that subtree.
func Walk(el Element, fn func(Element) bool) {
	if el == nil {
		return
	}
	if !fn(el) {
		return
	}
	for _, c := range el.Children() {
		Walk(c, fn)
	}
}

// Root ascends parent links to the tree root.
func Root(el Element) Element {
	for el != nil && el.Parent() != nil {
		el = el.Parent()
	}
	return el
}

// Ancestors returns el's ancestor chain from the root down to el's parent.
func Ancestors(el Element) []Element {
	var chain []Element
	for p := el.Parent(); p != nil; p = p.Parent() {
		chain = append(chain, p)
	}
	// Reverse so the root comes first; callers rely on it for LCA search.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
