package pagetree

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/swatchmatch/geom"
)

// RawNode is the flat wire form of one positioned element, as produced by
// live-capture providers (a single page.Eval in the rod provider dumps the
// whole tree as []RawNode). Parent is the index of the parent node, -1 for
// the root. Nodes must arrive in document order.
type RawNode struct {
	Index  int               `json:"index"`
	Parent int               `json:"parent"`
	Tag    string            `json:"tag"`
	Attrs  map[string]string `json:"attrs"`
	Box    geom.Box          `json:"box"`
}

// node is the in-memory Element implementation shared by FromNodes and the
// static HTML adapter.
type node struct {
	tag      string
	attrs    map[string]string
	box      geom.Box
	parent   *node
	children []*node
	index    int
}

func (n *node) Tag() string { return n.tag }

func (n *node) Classes() []string {
	return strings.Fields(n.attrs["class"])
}

func (n *node) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

func (n *node) Box() geom.Box { return n.box }

func (n *node) Parent() Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) Children() []Element {
	out := make([]Element, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *node) Index() int { return n.index }

// FromNodes builds an element tree from flat document-order records.
// Exactly one node must have Parent == -1; every other Parent must refer
// to an earlier index.
func FromNodes(raw []RawNode) (Element, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("pagetree: no nodes")
	}
	nodes := make([]*node, len(raw))
	var root *node
	for i, r := range raw {
		attrs := r.Attrs
		if attrs == nil {
			attrs = map[string]string{}
		}
		n := &node{
			tag:   strings.ToLower(r.Tag),
			attrs: attrs,
			box:   r.Box,
			index: r.Index,
		}
		nodes[i] = n
		if r.Parent < 0 {
			if root != nil {
				return nil, fmt.Errorf("pagetree: multiple roots at index %d", r.Index)
			}
			root = n
			continue
		}
		if r.Parent >= i {
			return nil, fmt.Errorf("pagetree: node %d references parent %d out of order", r.Index, r.Parent)
		}
		p := nodes[r.Parent]
		n.parent = p
		p.children = append(p.children, n)
	}
	if root == nil {
		return nil, fmt.Errorf("pagetree: no root node")
	}
	return root, nil
}
