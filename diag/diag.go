// Package diag defines the diagnostic events emitted by the association
// engine. Events are purely observational: the engine's outcome never
// depends on whether anything is listening. Sinks that serialise or
// persist events live in the sink package; this package only carries the
// data types shared between the engine internals and its consumers.
package diag

import (
	"github.com/hazyhaar/swatchmatch/geom"
	"github.com/hazyhaar/swatchmatch/pagetree"
)

// Kind tags an Event.
type Kind string

const (
	ContainerResolved    Kind = "container_resolved"
	ContainerRejected    Kind = "container_rejected"
	ClusterFormed        Kind = "cluster_formed"
	CandidateRejected    Kind = "candidate_rejected"
	AssociationSucceeded Kind = "association_succeeded"
	AssociationFailed    Kind = "association_failed"
)

// ElementInfo is the serialisable description of one element. Events carry
// these instead of live handles so sinks can outlive the borrowed tree.
type ElementInfo struct {
	Tag     string   `json:"tag"`
	Index   int      `json:"index"`
	Box     geom.Box `json:"box"`
	Classes []string `json:"classes,omitempty"`
}

// Describe captures an element's identity and geometry through the
// call-scoped snapshot. Returns nil for a nil element.
func Describe(snap *pagetree.Snapshot, el pagetree.Element) *ElementInfo {
	if el == nil {
		return nil
	}
	return &ElementInfo{
		Tag:     el.Tag(),
		Index:   el.Index(),
		Box:     snap.Box(el),
		Classes: el.Classes(),
	}
}

// Event is one diagnostic record. Which fields are set depends on Kind.
type Event struct {
	Kind      Kind         `json:"kind"`
	Image     *ElementInfo `json:"image,omitempty"`
	Container *ElementInfo `json:"container,omitempty"`
	Candidate *ElementInfo `json:"candidate,omitempty"`
	Phase     string       `json:"phase,omitempty"`
	Tier      int          `json:"tier,omitempty"`
	Distance  *float64     `json:"distance,omitempty"`
	Members   int          `json:"members,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// Func receives events. A nil Func is never invoked by the engine; the
// orchestrator substitutes Nop before fanning out.
type Func func(Event)

// Nop discards all events.
func Nop(Event) {}

// Dist wraps a distance value for an Event.
func Dist(v float64) *float64 { return &v }
