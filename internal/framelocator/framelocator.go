// Package framelocator maps between a window and the ordered chain of
// iframe locators that reaches it from the top window. An empty chain
// denotes the top window itself.
package framelocator

import (
	"log"

	"webreplay/backend/internal/dom"
	"webreplay/backend/internal/selector"
)

// ChainFrom walks upward from win through the parent relation,
// identifying at each level the iframe element in the parent document
// whose content window is the current one, and deriving its locator.
// The walk stops quietly when there is no parent or the parent is
// cross-origin: a partial chain up to the nearest origin boundary is
// still useful for everything below it.
func ChainFrom(win *dom.Window) []string {
	var chain []string
	visited := map[*dom.Window]bool{}
	cur := win
	for cur.Parent != nil && cur.Parent.SameOrigin(cur) {
		if visited[cur] {
			log.Printf("framelocator: frame tree cycle at %s, stopping", cur.Href)
			break
		}
		visited[cur] = true

		iframe := findEmbeddingIframe(cur.Parent, cur)
		if iframe == nil {
			break
		}
		loc, _ := selector.Derive(iframe, selector.Options{})
		chain = append([]string{loc}, chain...)
		cur = cur.Parent
	}
	return chain
}

// findEmbeddingIframe scans parent's document (shadow roots included)
// for the iframe whose content window is child, matching by window
// identity the way contentWindow comparison does.
func findEmbeddingIframe(parent *dom.Window, child *dom.Window) *dom.Node {
	var found *dom.Node
	var scan func(root *dom.Node)
	scan = func(root *dom.Node) {
		root.Walk(func(n *dom.Node) bool {
			if n.Shadow != nil {
				scan(n.Shadow.Root)
			}
			if n.Tag == "iframe" && n.ContentFrame == child {
				found = n
				return false
			}
			return found == nil
		})
	}
	scan(parent.Document)
	return found
}

// Resolve walks a chain top-down from the given window (the top window
// when from is nil) and returns the window it lands on. Unlike the
// upward walk, any broken link fails the whole resolution: a missing
// iframe or a cross-origin hop yields nil, never a partial result.
func Resolve(chain []string, from *dom.Window) *dom.Window {
	cur := from
	if cur == nil {
		return nil
	}
	for _, loc := range chain {
		iframe := resolveStep(cur, loc)
		if iframe == nil {
			log.Printf("framelocator: no iframe for locator %q in %s", loc, cur.Href)
			return nil
		}
		next := iframe.ContentFrame
		if next == nil || !next.SameOrigin(cur) {
			log.Printf("framelocator: frame %q not same-origin from %s", loc, cur.Href)
			return nil
		}
		cur = next
	}
	return cur
}

// resolveStep finds the iframe for one chain link inside cur's own
// document, shadow roots included but without descending into frames:
// each link crosses exactly one frame boundary.
func resolveStep(cur *dom.Window, loc string) *dom.Node {
	sel, err := dom.ParseSelector(loc)
	if err != nil {
		log.Printf("framelocator: bad locator %q: %v", loc, err)
		return nil
	}
	var found *dom.Node
	var scan func(root *dom.Node)
	scan = func(root *dom.Node) {
		root.Walk(func(n *dom.Node) bool {
			if n.Shadow != nil {
				scan(n.Shadow.Root)
			}
			if found == nil && n.Tag == "iframe" && sel.Matches(n) {
				found = n
				return false
			}
			return found == nil
		})
	}
	scan(cur.Document)
	return found
}
