package associate

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/swatchmatch/diag"
	"github.com/hazyhaar/swatchmatch/geom"
	"github.com/hazyhaar/swatchmatch/pagetree"
)

// listingRow builds four product cards in a row, each with one image and
// one swatch 40 units below it. Cross-image gaps are 320, above the
// default 300 distance ceiling; same-pair gaps are 40.
func listingRow(t *testing.T) (pagetree.Element, []pagetree.Element, []pagetree.Element) {
	t.Helper()
	raw := []pagetree.RawNode{
		{Index: 0, Parent: -1, Tag: "html", Box: geom.Box{W: 1800, H: 900}},
	}
	var imgs, swatches []int
	idx := 1
	for i := 0; i < 4; i++ {
		x := float64(i) * 440
		card := idx
		raw = append(raw,
			pagetree.RawNode{Index: card, Parent: 0, Tag: "li", Attrs: map[string]string{"class": "product-card", "data-product-id": fmt.Sprintf("p%d", i+1)}, Box: geom.Box{X: x, Y: 0, W: 120, H: 190}},
			pagetree.RawNode{Index: card + 1, Parent: card, Tag: "img", Box: geom.Box{X: x, Y: 0, W: 120, H: 120}},
			pagetree.RawNode{Index: card + 2, Parent: card, Tag: "span", Box: geom.Box{X: x, Y: 160, W: 24, H: 24}},
		)
		imgs = append(imgs, card+1)
		swatches = append(swatches, card+2)
		idx += 3
	}
	root, err := pagetree.FromNodes(raw)
	if err != nil {
		t.Fatal(err)
	}
	var imgEls, swEls []pagetree.Element
	pagetree.Walk(root, func(el pagetree.Element) bool {
		for _, i := range imgs {
			if el.Index() == i {
				imgEls = append(imgEls, el)
			}
		}
		for _, s := range swatches {
			if el.Index() == s {
				swEls = append(swEls, el)
			}
		}
		return true
	})
	return root, imgEls, swEls
}

func TestResolve_UniquenessUnderSeparation(t *testing.T) {
	// WHAT: Four separated products each resolve to their own swatch,
	// never a neighbour's.
	// WHY: The core correctness guarantee of the engine: cross-pair
	// distances (>=320) exceed the ceiling, same-pair (40) do not.
	_, imgs, swatches := listingRow(t)

	results := ResolveAll(imgs, Config{MaxSwatchDistance: 300})
	if len(results) != 4 {
		t.Fatalf("results: got %d, want 4", len(results))
	}
	for i, r := range results {
		if r.Swatch == nil {
			t.Fatalf("image %d: no swatch resolved", i)
		}
		if r.Swatch != swatches[i] {
			t.Errorf("image %d: got swatch index %d, want %d", i, r.Swatch.Index(), swatches[i].Index())
		}
		if r.Tier != 3 {
			t.Errorf("image %d: tier = %d, want 3 (layout-relative)", i, r.Tier)
		}
		if !r.HasDistance || r.Distance != 40 {
			t.Errorf("image %d: distance = %f, want 40", i, r.Distance)
		}
	}
}

func TestResolve_Idempotent(t *testing.T) {
	// WHAT: Repeated calls on an unchanged tree return identical results.
	_, imgs, _ := listingRow(t)
	a := Resolve(imgs[1], Config{})
	b := Resolve(imgs[1], Config{})
	if a != b {
		t.Errorf("idempotence: %+v != %+v", a, b)
	}
}

func TestResolve_SemanticDetailPage(t *testing.T) {
	// WHAT: A detail page with a hint-matching container and one
	// selection marker resolves via the semantic phase at tier 1.
	root, err := pagetree.FromNodes([]pagetree.RawNode{
		{Index: 0, Parent: -1, Tag: "html", Box: geom.Box{W: 1280, H: 900}},
		{Index: 1, Parent: 0, Tag: "div", Attrs: map[string]string{"data-product-id": "p1"}, Box: geom.Box{X: 100, Y: 50, W: 600, H: 700}},
		{Index: 2, Parent: 1, Tag: "img", Box: geom.Box{X: 120, Y: 60, W: 480, H: 480}},
		{Index: 3, Parent: 1, Tag: "span", Attrs: map[string]string{"aria-selected": "true"}, Box: geom.Box{X: 120, Y: 580, W: 32, H: 32}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var phases []string
	cfg := Config{OnEvent: func(ev diag.Event) {
		if ev.Kind == diag.ContainerResolved {
			phases = append(phases, ev.Phase)
		}
	}}
	img := PageImages(root)[0]
	r := Resolve(img, cfg)
	if r.Swatch == nil || r.Swatch.Index() != 3 {
		t.Fatalf("swatch: got %+v, want index 3", r.Swatch)
	}
	if r.Tier != 1 {
		t.Errorf("tier: got %d, want 1", r.Tier)
	}
	if len(phases) != 1 || phases[0] != "semantic" {
		t.Errorf("phase: got %v, want [semantic]", phases)
	}
}

func TestResolve_DefectiveContainerRejected(t *testing.T) {
	// WHAT: A container wrapping two images and two swatches is rejected
	// by size validation and by cluster ambiguity; with the competing
	// image closer than the separation floor, resolution fails cleanly.
	root, err := pagetree.FromNodes([]pagetree.RawNode{
		{Index: 0, Parent: -1, Tag: "html", Box: geom.Box{W: 1000, H: 800}},
		{Index: 1, Parent: 0, Tag: "div", Attrs: map[string]string{"class": "product-card"}, Box: geom.Box{X: 0, Y: 0, W: 640, H: 400}},
		{Index: 2, Parent: 1, Tag: "img", Box: geom.Box{X: 0, Y: 0, W: 300, H: 300}},
		{Index: 3, Parent: 1, Tag: "img", Box: geom.Box{X: 340, Y: 0, W: 300, H: 300}},
		{Index: 4, Parent: 1, Tag: "span", Box: geom.Box{X: 0, Y: 320, W: 24, H: 24}},
		{Index: 5, Parent: 1, Tag: "span", Box: geom.Box{X: 340, Y: 320, W: 24, H: 24}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var failed bool
	cfg := Config{
		StructuralHintSelectors: []string{"div.product-card"},
		OnEvent: func(ev diag.Event) {
			if ev.Kind == diag.AssociationFailed {
				failed = true
			}
		},
	}
	img := PageImages(root)[0]
	r := Resolve(img, cfg)
	if r.Swatch != nil || r.Tier != -1 {
		t.Errorf("defective container: got swatch %v tier %d, want null association", r.Swatch, r.Tier)
	}
	if !failed {
		t.Error("expected an AssociationFailed event")
	}
}

func TestResolve_BareImage(t *testing.T) {
	// WHAT: An image with no supporting elements at all yields a null
	// association and never panics or propagates an error.
	root, err := pagetree.FromNodes([]pagetree.RawNode{
		{Index: 0, Parent: -1, Tag: "html", Box: geom.Box{W: 1280, H: 800}},
		{Index: 1, Parent: 0, Tag: "img", Box: geom.Box{X: 10, Y: 10, W: 300, H: 300}},
	})
	if err != nil {
		t.Fatal(err)
	}
	r := Resolve(PageImages(root)[0], Config{})
	if r.Swatch != nil || r.Tier != -1 || r.HasDistance {
		t.Errorf("bare image: got %+v, want null association", r)
	}
}

func TestResolve_OutcomeIndependentOfListener(t *testing.T) {
	// WHAT: Attaching an event listener never changes the outcome.
	_, imgs, _ := listingRow(t)
	quiet := Resolve(imgs[2], Config{})
	count := 0
	loud := Resolve(imgs[2], Config{OnEvent: func(diag.Event) { count++ }})
	if quiet.Swatch != loud.Swatch || quiet.Tier != loud.Tier {
		t.Error("listener changed the outcome")
	}
	if count == 0 {
		t.Error("listener saw no events")
	}
}

func TestResolve_NilImage(t *testing.T) {
	r := Resolve(nil, Config{})
	if r.Swatch != nil || r.Tier != -1 {
		t.Errorf("nil image: got %+v, want null association", r)
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.defaults()
	if cfg.ClusterRadius != 400 || cfg.MinSeparation != 200 ||
		cfg.MaxSwatchDistance != 300 || cfg.MaxContainerViewportRatio != 0.60 {
		t.Errorf("defaults: got %+v", cfg)
	}
	if len(cfg.StructuralHintSelectors) == 0 {
		t.Error("defaults: no hint selectors")
	}
	if cfg.OnEvent == nil {
		t.Error("defaults: nil OnEvent")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swatchmatch.yaml")
	data := []byte("structural_hint_selectors:\n  - \"li.card\"\nmax_swatch_distance: 250\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.StructuralHintSelectors) != 1 || cfg.StructuralHintSelectors[0] != "li.card" {
		t.Errorf("selectors: got %v", cfg.StructuralHintSelectors)
	}
	if cfg.MaxSwatchDistance != 250 {
		t.Errorf("max distance: got %f, want 250", cfg.MaxSwatchDistance)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
