// Package selector turns a live element reference into a stable,
// re-resolvable locator plus a short descriptive text used to pick one
// element when several share the same locator.
package selector

import (
	"fmt"
	"strings"

	"webreplay/backend/internal/dom"
)

// Options controls derivation.
type Options struct {
	// PreferInteractive substitutes the target with the nearest
	// interactive candidate before deriving, so a click recorded on a
	// <span> inside a <button> replays against the button.
	PreferInteractive bool
}

const maxDescriptiveText = 80

var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true,
	"textarea": true, "option": true, "label": true, "summary": true,
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "radio": true,
	"menuitem": true, "tab": true, "switch": true, "option": true,
	"combobox": true, "textbox": true,
}

// identifyingAttrs in priority order. id is handled separately since it
// yields the strongest locator form.
var identifyingAttrs = []string{"name", "aria-label", "data-testid", "href", "title", "alt", "placeholder"}

type relation int

const (
	relSelf relation = iota
	relAncestor
	relChild
)

// Derive produces a locator for el and descriptive text for
// disambiguation. It never fails: an element with no identifying
// attribute at all still gets a tag-name locator.
func Derive(el *dom.Node, opts Options) (string, string) {
	target := el
	if opts.PreferInteractive {
		target = interactiveCandidate(el)
	}

	identifying, rel := identifyingCandidate(target)
	locator := buildLocator(identifying)
	if identifying != target && rel == relAncestor {
		locator = locator + " " + simpleLocator(target)
	}
	return locator, descriptiveText(target)
}

// interactiveCandidate looks for the nearest interactive element, first
// among ancestors, then among descendants. An ancestor only qualifies
// when its box fully contains the target's box, which keeps an
// oversized unrelated wrapper from stealing the click; a descendant
// must conversely lie inside the target.
func interactiveCandidate(el *dom.Node) *dom.Node {
	if isInteractive(el) {
		return el
	}
	if anc := el.Closest(isInteractive); anc != nil && anc != el {
		if anc.Rect.Contains(el.Rect) {
			return anc
		}
	}
	if desc := el.FirstDescendant(isInteractive); desc != nil {
		if el.Rect.Contains(desc.Rect) {
			return desc
		}
	}
	return el
}

func isInteractive(n *dom.Node) bool {
	if interactiveTags[n.Tag] {
		return true
	}
	if interactiveRoles[strings.ToLower(n.Attr("role"))] {
		return true
	}
	return n.HasAttr("onclick") || n.HasAttr("tabindex")
}

// identifyingCandidate walks self, then ancestors, then descendants for
// the nearest element carrying an identifying attribute, classifying
// how it relates to the target.
func identifyingCandidate(el *dom.Node) (*dom.Node, relation) {
	if isIdentifying(el) {
		return el, relSelf
	}
	if anc := el.Closest(isIdentifying); anc != nil && anc != el {
		return anc, relAncestor
	}
	if desc := el.FirstDescendant(isIdentifying); desc != nil {
		return desc, relChild
	}
	return el, relSelf
}

func isIdentifying(n *dom.Node) bool {
	if n.ID() != "" {
		return true
	}
	for _, a := range identifyingAttrs {
		if n.Attr(a) != "" {
			return true
		}
	}
	return false
}

// buildLocator picks the strongest locator form available:
// id > name (scoped to the enclosing form) > other identifying
// attribute > class list > bare tag name.
func buildLocator(n *dom.Node) string {
	if id := n.ID(); id != "" {
		return "#" + id
	}
	if name := n.Attr("name"); name != "" {
		loc := fmt.Sprintf(`%s[name="%s"]`, n.Tag, name)
		if form := enclosingForm(n); form != nil && form != n {
			return formLocator(form) + " " + loc
		}
		return loc
	}
	for _, a := range identifyingAttrs {
		if v := n.Attr(a); v != "" {
			return fmt.Sprintf(`%s[%s="%s"]`, n.Tag, a, v)
		}
	}
	return simpleLocator(n)
}

// simpleLocator is the weak form used for the target half of a
// descendant locator: classes when present, tag name otherwise.
func simpleLocator(n *dom.Node) string {
	if classes := n.Classes(); len(classes) > 0 {
		return n.Tag + "." + strings.Join(classes, ".")
	}
	return n.Tag
}

func enclosingForm(n *dom.Node) *dom.Node {
	return n.Closest(func(c *dom.Node) bool { return c.Tag == "form" })
}

func formLocator(form *dom.Node) string {
	if id := form.ID(); id != "" {
		return "#" + id
	}
	if name := form.Attr("name"); name != "" {
		return fmt.Sprintf(`form[name="%s"]`, name)
	}
	return "form"
}

// descriptiveText returns trimmed text content, falling back to the
// most label-like attribute available.
func descriptiveText(n *dom.Node) string {
	text := n.TextContent()
	if text == "" {
		for _, a := range []string{"aria-label", "title", "placeholder", "value", "alt"} {
			if v := n.Attr(a); v != "" {
				text = v
				break
			}
		}
	}
	if runes := []rune(text); len(runes) > maxDescriptiveText {
		text = string(runes[:maxDescriptiveText])
	}
	return strings.TrimSpace(text)
}
