package pagetree

import "github.com/hazyhaar/swatchmatch/geom"

// Snapshot caches layout boxes for the duration of one association call.
// Hosts backed by a live layout engine can reflow between reads; routing
// every read through one Snapshot guarantees the engine never observes a
// mixture of pre- and post-reflow geometry within a single call.
//
// A Snapshot is not safe for concurrent use; create one per call.
type Snapshot struct {
	boxes map[Element]geom.Box
}

// NewSnapshot creates an empty call-scoped box cache.
func NewSnapshot() *Snapshot {
	return &Snapshot{boxes: make(map[Element]geom.Box)}
}

// Box returns el's layout box, reading it from the element at most once.
func (s *Snapshot) Box(el Element) geom.Box {
	if b, ok := s.boxes[el]; ok {
		return b
	}
	b := el.Box()
	s.boxes[el] = b
	return b
}

// Viewport returns the box of el's tree root, which providers size to the
// viewport.
func (s *Snapshot) Viewport(el Element) geom.Box {
	return s.Box(Root(el))
}
