// Package deepquery resolves locators to elements, traversing shadow
// roots and same-origin embedded frames transparently. Cross-origin
// frames are outside the reachable set by design: access errors are
// swallowed, never propagated.
package deepquery

import (
	"errors"
	"sync"

	"webreplay/backend/internal/dom"
)

// ErrNotFound reports a locator that matched nothing reachable.
var ErrNotFound = errors.New("no element matches locator")

// QueryAll returns every element matching locator reachable from the
// window's document: the plain selector matches unioned with the same
// query inside every shadow root and every same-origin frame, recursed.
func QueryAll(from *dom.Window, locator string) ([]*dom.Node, error) {
	return QueryAllFrom(from, from.Document, locator)
}

// QueryAllFrom is QueryAll rooted at an arbitrary node.
func QueryAllFrom(from *dom.Window, root *dom.Node, locator string) ([]*dom.Node, error) {
	sel, err := dom.ParseSelector(locator)
	if err != nil {
		return nil, err
	}
	var out []*dom.Node
	collect(from, root, sel, &out)
	return out, nil
}

// QueryOne returns the first match in traversal order.
func QueryOne(from *dom.Window, locator string) (*dom.Node, error) {
	matches, err := QueryAll(from, locator)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches[0], nil
}

func collect(from *dom.Window, root *dom.Node, sel dom.Selector, out *[]*dom.Node) {
	root.Walk(func(n *dom.Node) bool {
		if sel.Matches(n) {
			*out = append(*out, n)
		}
		if n.Shadow != nil {
			collect(from, n.Shadow.Root, sel, out)
		}
		if n.Tag == "iframe" && n.ContentFrame != nil {
			doc, err := n.ContentDocument(from)
			if err != nil {
				// Cross-origin: not reachable, not an error.
				return true
			}
			collect(from, doc, sel, out)
		}
		return true
	})
}

// ChildFrames returns the windows of every same-origin frame mounted
// directly in win's document, shadow roots included but without
// descending into the frames themselves. This is the broadcast fan-out
// set of the messaging layer.
func ChildFrames(from *dom.Window, win *dom.Window) []*dom.Window {
	var frames []*dom.Window
	var scan func(root *dom.Node)
	scan = func(root *dom.Node) {
		root.Walk(func(n *dom.Node) bool {
			if n.Shadow != nil {
				scan(n.Shadow.Root)
			}
			if n.Tag == "iframe" && n.ContentFrame != nil {
				if _, err := n.ContentDocument(from); err == nil {
					frames = append(frames, n.ContentFrame)
				}
			}
			return true
		})
	}
	scan(win.Document)
	return frames
}

// ObserveFrames invokes fn once for every iframe that is or becomes
// reachable from win, covering frames mounted after initial load (SPA
// navigation) whether they appear in the light tree or inside an
// already-attached shadow root. The returned func stops observation.
func ObserveFrames(win *dom.Window, fn func(iframe *dom.Node)) func() {
	var mu sync.Mutex
	seen := map[*dom.Node]bool{}

	report := func(n *dom.Node) {
		var scan func(root *dom.Node)
		scan = func(root *dom.Node) {
			root.Walk(func(d *dom.Node) bool {
				if d.Shadow != nil {
					scan(d.Shadow.Root)
				}
				if d.Tag == "iframe" && d.ContentFrame != nil {
					if _, err := d.ContentDocument(win); err == nil {
						mu.Lock()
						first := !seen[d]
						seen[d] = true
						mu.Unlock()
						if first {
							fn(d)
						}
					}
				}
				return true
			})
		}
		scan(n)
	}

	cancel := win.Observe(report)
	report(win.Document)
	return cancel
}
