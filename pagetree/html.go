package pagetree

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/swatchmatch/geom"
)

// ParseOptions controls the static HTML adapter.
type ParseOptions struct {
	// Viewport is the box assigned to the document root. Elements without
	// their own geometry inherit a zero box, not the viewport.
	Viewport geom.Box
}

// ParseHTML builds an element tree from a static HTML document whose
// geometry is carried in markup: either a data-box="x,y,w,h" attribute or
// absolute inline style (left/top/width/height in px). Live pages should
// use a provider that reads computed layout instead; this adapter exists
// for fixtures, snapshots saved by crawlers, and server-rendered documents
// that position product cards inline.
func ParseHTML(r io.Reader, opts ParseOptions) (Element, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("pagetree: parse html: %w", err)
	}

	idx := 0
	var build func(n *html.Node, parent *node) *node
	build = func(n *html.Node, parent *node) *node {
		el := &node{
			tag:    strings.ToLower(n.Data),
			attrs:  attrMap(n),
			parent: parent,
			index:  idx,
		}
		idx++
		el.box = boxFromAttrs(el.attrs)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			el.children = append(el.children, build(c, el))
		}
		return el
	}

	rootNode := findElement(doc, "html")
	if rootNode == nil {
		return nil, fmt.Errorf("pagetree: document has no html element")
	}
	root := build(rootNode, nil)
	if root.box.Empty() {
		root.box = opts.Viewport
	}
	return root, nil
}

func attrMap(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[strings.ToLower(a.Key)] = a.Val
	}
	return m
}

// boxFromAttrs resolves an element's box from data-box or inline style.
func boxFromAttrs(attrs map[string]string) geom.Box {
	if raw, ok := attrs["data-box"]; ok {
		if b, ok := parseBoxList(raw); ok {
			return b
		}
	}
	style, ok := attrs["style"]
	if !ok {
		return geom.Box{}
	}
	var b geom.Box
	for _, decl := range strings.Split(style, ";") {
		key, val, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		px, err := parsePx(strings.TrimSpace(val))
		if err != nil {
			continue
		}
		switch strings.TrimSpace(strings.ToLower(key)) {
		case "left":
			b.X = px
		case "top":
			b.Y = px
		case "width":
			b.W = px
		case "height":
			b.H = px
		}
	}
	return b
}

func parseBoxList(raw string) (geom.Box, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return geom.Box{}, false
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Box{}, false
		}
		vals[i] = v
	}
	return geom.Box{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, true
}

func parsePx(v string) (float64, error) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
