package associate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/swatchmatch/diag"
)

// Config holds the recognised association options. The zero value is
// usable: defaults are applied on every Resolve call.
type Config struct {
	// StructuralHintSelectors are tried most-specific first by the
	// semantic phase of container resolution.
	StructuralHintSelectors []string `yaml:"structural_hint_selectors"`

	// ClusterRadius bounds element gathering and cluster acceptance
	// around an image, in px-equivalent units.
	ClusterRadius float64 `yaml:"cluster_radius"`

	// MinSeparation is the distance every competing product image must
	// keep from the source image before an ancestor is accepted as its
	// container.
	MinSeparation float64 `yaml:"min_separation"`

	// MaxSwatchDistance is the hard ceiling on the candidate-to-image
	// gap distance.
	MaxSwatchDistance float64 `yaml:"max_swatch_distance"`

	// MaxContainerViewportRatio caps container width relative to the
	// viewport.
	MaxContainerViewportRatio float64 `yaml:"max_container_viewport_ratio"`

	// OnEvent receives diagnostic events. Optional; the engine's outcome
	// never depends on whether anyone is listening.
	OnEvent diag.Func `yaml:"-"`
}

// defaultHintSelectors cover the product-card markup seen across common
// storefront platforms, precise product-scoped attributes before generic
// role markers.
var defaultHintSelectors = []string{
	"[data-product-id]",
	"[data-product-card]",
	"li.product-card",
	"li.product",
	"div.product-card",
	"div.product-tile",
	"article.product",
	"[role=listitem]",
	"li",
}

func (c *Config) defaults() {
	if len(c.StructuralHintSelectors) == 0 {
		c.StructuralHintSelectors = defaultHintSelectors
	}
	if c.ClusterRadius <= 0 {
		c.ClusterRadius = 400
	}
	if c.MinSeparation <= 0 {
		c.MinSeparation = 200
	}
	if c.MaxSwatchDistance <= 0 {
		c.MaxSwatchDistance = 300
	}
	if c.MaxContainerViewportRatio <= 0 {
		c.MaxContainerViewportRatio = 0.60
	}
	if c.OnEvent == nil {
		c.OnEvent = diag.Nop
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("associate: parse config %s: %w", path, err)
	}
	return cfg, nil
}
