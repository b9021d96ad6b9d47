package detect

import (
	"fmt"

	"github.com/hazyhaar/swatchmatch/geom"
	"github.com/hazyhaar/swatchmatch/pagetree"
)

// ContainerTolerance expands the container box before the containment
// check, admitting candidates whose effective hit area slightly exceeds
// their visual box (focus rings, padded labels).
const ContainerTolerance = 50.0

// Validate applies the two independent spatial checks to a candidate:
// containment in the expanded container box, and, when an image is given,
// the hard distance ceiling to it. Returns the rejection reason, or ""
// when the candidate passes both.
func Validate(snap *pagetree.Snapshot, candidate, container, image pagetree.Element, p Params) string {
	candBox := snap.Box(candidate)
	containerBox := snap.Box(container).Expand(ContainerTolerance)
	if !containerBox.Contains(candBox) {
		return "outside container bounds"
	}
	if image != nil {
		if d := geom.Distance(candBox, snap.Box(image)); d > p.MaxSwatchDistance {
			return fmt.Sprintf("distance %.0f exceeds ceiling %.0f", d, p.MaxSwatchDistance)
		}
	}
	return ""
}
