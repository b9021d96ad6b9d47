package pagetree

import "strings"

// Query returns all elements under root matching a structural hint
// selector, in document order. Supported subset:
//
//   - tag: "img", "li", "div"
//   - .class: ".swatch", ".product-card"
//   - #id: "#main-grid"
//   - tag.class: "li.product"
//   - tag#id: "div#listing"
//   - tag[attr]: "div[data-product-id]"
//   - tag[attr=val]: "input[type=radio]"
//   - combinations separated by space (descendant combinator)
//
// This is deliberately not a full CSS engine: hint selectors come from a
// curated configuration list, not from arbitrary stylesheets.
func Query(root Element, selector string) []Element {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}

	matches := matchSimple(root, parts[0])

	// Descendant combinator: filter each match's subtree through the next part.
	for i := 1; i < len(parts); i++ {
		var next []Element
		seen := map[Element]bool{}
		for _, parent := range matches {
			for _, m := range matchSimple(parent, parts[i]) {
				if m != parent && !seen[m] {
					seen[m] = true
					next = append(next, m)
				}
			}
		}
		matches = next
	}

	return matches
}

// Matches reports whether el itself matches a single (non-combinator)
// selector part.
func Matches(el Element, selector string) bool {
	return matchesSelector(el, parseSimpleSelector(selector))
}

func matchSimple(root Element, sel string) []Element {
	m := parseSimpleSelector(sel)
	var results []Element
	Walk(root, func(el Element) bool {
		if matchesSelector(el, m) {
			results = append(results, el)
		}
		return true
	})
	return results
}

type simpleSelector struct {
	tag     string
	id      string
	class   string
	attrKey string
	attrVal string
}

// parseSimpleSelector parses "tag.class", "#id", "tag[attr=val]", etc.
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.attrKey = attrPart[:eqIdx]
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.class = sel[idx+1:]
		sel = sel[:idx]
	}

	s.tag = sel
	return s
}

func matchesSelector(el Element, s simpleSelector) bool {
	if s.tag != "" && el.Tag() != s.tag {
		return false
	}

	if s.id != "" {
		if id, _ := el.Attr("id"); id != s.id {
			return false
		}
	}

	if s.class != "" && !HasClass(el, s.class) {
		return false
	}

	if s.attrKey != "" {
		val, ok := el.Attr(s.attrKey)
		if !ok {
			return false
		}
		if s.attrVal != "" && val != s.attrVal {
			return false
		}
	}

	return true
}
