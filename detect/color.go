package detect

import (
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/hazyhaar/swatchmatch/pagetree"
)

// minLabDistance is the perceptual threshold below which two indicator
// colors are considered the same. CIE Lab distance; 0.08 is roughly the
// point where adjacent swatches stop being tellable apart.
const minLabDistance = 0.08

// IndicatorColor resolves an element's declared indicator color from a
// data-color attribute or an inline background declaration. This reads
// markup only, so an element without a declared color simply has none.
func IndicatorColor(el pagetree.Element) (colorful.Color, bool) {
	if v, ok := el.Attr("data-color"); ok {
		if c, ok := parseCSSColor(v); ok {
			return c, true
		}
	}
	style, ok := el.Attr("style")
	if !ok {
		return colorful.Color{}, false
	}
	for _, decl := range strings.Split(style, ";") {
		key, val, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		switch strings.TrimSpace(strings.ToLower(key)) {
		case "background-color", "background":
			if c, ok := parseCSSColor(strings.TrimSpace(val)); ok {
				return c, true
			}
		}
	}
	return colorful.Color{}, false
}

// Distinct reports whether two colors are perceptually distinguishable.
func Distinct(a, b colorful.Color) bool {
	return a.DistanceLab(b) >= minLabDistance
}

// parseCSSColor handles the two forms swatch markup actually uses:
// hex (#rgb, #rrggbb) and rgb(r, g, b).
func parseCSSColor(v string) (colorful.Color, bool) {
	v = strings.TrimSpace(strings.ToLower(v))
	if strings.HasPrefix(v, "#") {
		if len(v) == 4 { // #rgb -> #rrggbb
			v = "#" + strings.Repeat(string(v[1]), 2) +
				strings.Repeat(string(v[2]), 2) +
				strings.Repeat(string(v[3]), 2)
		}
		c, err := colorful.Hex(v)
		if err != nil {
			return colorful.Color{}, false
		}
		return c, true
	}
	if strings.HasPrefix(v, "rgb(") && strings.HasSuffix(v, ")") {
		parts := strings.Split(v[4:len(v)-1], ",")
		if len(parts) != 3 {
			return colorful.Color{}, false
		}
		var ch [3]float64
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < 0 || n > 255 {
				return colorful.Color{}, false
			}
			ch[i] = float64(n) / 255
		}
		return colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, true
	}
	return colorful.Color{}, false
}
