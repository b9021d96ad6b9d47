package pagetree

import (
	"strings"
	"testing"

	"github.com/hazyhaar/swatchmatch/geom"
)

func grid(t *testing.T) Element {
	t.Helper()
	root, err := FromNodes([]RawNode{
		{Index: 0, Parent: -1, Tag: "html", Box: geom.Box{W: 1280, H: 800}},
		{Index: 1, Parent: 0, Tag: "div", Attrs: map[string]string{"class": "product-grid", "id": "listing"}, Box: geom.Box{W: 1280, H: 600}},
		{Index: 2, Parent: 1, Tag: "li", Attrs: map[string]string{"class": "product-card", "data-product-id": "p1"}, Box: geom.Box{X: 0, Y: 0, W: 300, H: 400}},
		{Index: 3, Parent: 2, Tag: "img", Box: geom.Box{X: 10, Y: 10, W: 280, H: 280}},
		{Index: 4, Parent: 2, Tag: "span", Attrs: map[string]string{"class": "swatch selected"}, Box: geom.Box{X: 10, Y: 330, W: 24, H: 24}},
		{Index: 5, Parent: 1, Tag: "li", Attrs: map[string]string{"class": "product-card", "data-product-id": "p2"}, Box: geom.Box{X: 320, Y: 0, W: 300, H: 400}},
		{Index: 6, Parent: 5, Tag: "img", Box: geom.Box{X: 330, Y: 10, W: 280, H: 280}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func TestFromNodes_Structure(t *testing.T) {
	// WHAT: Flat records become a linked tree with document-order indices.
	root := grid(t)
	if root.Tag() != "html" || root.Parent() != nil {
		t.Fatalf("bad root: %s", root.Tag())
	}
	cards := Query(root, ".product-card")
	if len(cards) != 2 {
		t.Fatalf("cards: got %d, want 2", len(cards))
	}
	if cards[0].Index() != 2 || cards[1].Index() != 5 {
		t.Errorf("document order: got %d,%d want 2,5", cards[0].Index(), cards[1].Index())
	}
	if cards[0].Children()[0].Parent() != cards[0] {
		t.Error("parent link broken")
	}
}

func TestFromNodes_Rejects(t *testing.T) {
	// WHAT: Forward parent references and missing roots are rejected.
	// WHY: Providers must emit document order; silent misordering would
	// corrupt every downstream tiebreak.
	if _, err := FromNodes(nil); err == nil {
		t.Error("empty input should fail")
	}
	_, err := FromNodes([]RawNode{
		{Index: 0, Parent: 1, Tag: "div"},
		{Index: 1, Parent: -1, Tag: "html"},
	})
	if err == nil {
		t.Error("forward parent reference should fail")
	}
}

func TestQuery_Selectors(t *testing.T) {
	root := grid(t)
	cases := []struct {
		sel  string
		want int
	}{
		{"img", 2},
		{".swatch", 1},
		{"#listing", 1},
		{"li.product-card", 2},
		{"li[data-product-id]", 2},
		{"li[data-product-id=p2]", 1},
		{".product-grid img", 2},
		{".product-card .swatch", 1},
		{".missing", 0},
	}
	for _, c := range cases {
		if got := len(Query(root, c.sel)); got != c.want {
			t.Errorf("query %q: got %d, want %d", c.sel, got, c.want)
		}
	}
}

func TestMatches_Self(t *testing.T) {
	root := grid(t)
	sw := Query(root, ".swatch")[0]
	if !Matches(sw, "span.selected") {
		t.Error("span.selected should match the swatch")
	}
	if Matches(sw, "div") {
		t.Error("div should not match a span")
	}
}

func TestClassification(t *testing.T) {
	// WHAT: img tags count as image-like, tiny boxes and swatches do not.
	root := grid(t)
	snap := NewSnapshot()
	img := Query(root, "img")[0]
	sw := Query(root, ".swatch")[0]
	if !IsImageLike(snap, img) || !IsLargeImage(snap, img) {
		t.Error("280x280 img should be a large image")
	}
	if IsImageLike(snap, sw) {
		t.Error("24x24 span should not be image-like")
	}
}

func TestParseHTML_Boxes(t *testing.T) {
	// WHAT: Inline style and data-box both resolve to layout boxes.
	doc := `<html><body>
		<div class="card" style="left: 10px; top: 20px; width: 300px; height: 400px">
			<img data-box="20,30,280,280">
		</div>
	</body></html>`
	root, err := ParseHTML(strings.NewReader(doc), ParseOptions{Viewport: geom.Box{W: 1280, H: 800}})
	if err != nil {
		t.Fatal(err)
	}
	if vb := root.Box(); vb.W != 1280 {
		t.Errorf("viewport: got %+v", vb)
	}
	card := Query(root, ".card")[0]
	if b := card.Box(); b != (geom.Box{X: 10, Y: 20, W: 300, H: 400}) {
		t.Errorf("style box: got %+v", b)
	}
	img := Query(root, "img")[0]
	if b := img.Box(); b != (geom.Box{X: 20, Y: 30, W: 280, H: 280}) {
		t.Errorf("data-box: got %+v", b)
	}
}

// countingElement wraps a node and counts Box reads.
type countingElement struct {
	Element
	reads *int
}

func (c countingElement) Box() geom.Box {
	*c.reads++
	return c.Element.Box()
}

func TestSnapshot_ReadsBoxOnce(t *testing.T) {
	// WHAT: A snapshot reads each element's box at most once.
	// WHY: Live layout can reflow between reads; mixing pre- and
	// post-reflow geometry inside one call breaks distance comparisons.
	root := grid(t)
	reads := 0
	el := countingElement{Element: Query(root, "img")[0], reads: &reads}
	snap := NewSnapshot()
	for i := 0; i < 5; i++ {
		snap.Box(el)
	}
	if reads != 1 {
		t.Errorf("box reads: got %d, want 1", reads)
	}
}

func TestAncestorsAndRoot(t *testing.T) {
	root := grid(t)
	sw := Query(root, ".swatch")[0]
	if Root(sw) != root {
		t.Error("root ascent failed")
	}
	chain := Ancestors(sw)
	if len(chain) != 3 || chain[0] != root {
		t.Fatalf("ancestors: got %d, want 3 starting at root", len(chain))
	}
}
