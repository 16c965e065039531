package dom

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
)

// ErrNotReachable marks a frame whose document is behind a cross-origin
// boundary. Callers degrade to "not reachable"; the error never escapes
// a query.
var ErrNotReachable = errors.New("frame document is not reachable from this origin")

// Window is a browsing context: a document plus its position in the
// frame tree. The parent reference is always traversable (as in real
// window.parent); it is document access that is origin-gated.
type Window struct {
	Href     string
	Origin   string
	Parent   *Window
	Document *Node

	mu        sync.RWMutex
	observers map[int]func(*Node)
	nextObs   int
}

// NewWindow adopts doc into a fresh top-level browsing context.
func NewWindow(href string, doc *Node) *Window {
	w := &Window{
		Href:      href,
		Origin:    originOf(href),
		Document:  doc,
		observers: map[int]func(*Node){},
	}
	doc.adopt(w, nil)
	return w
}

func originOf(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.Scheme == "" {
		return href
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}

func (w *Window) Top() *Window {
	cur := w
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

func (w *Window) SameOrigin(o *Window) bool {
	return o != nil && w.Origin == o.Origin
}

// MountFrame attaches child as the browsing context of an iframe
// element. Observers of the embedding window are notified so a frame
// that mounts after initial load is still picked up.
func MountFrame(iframe *Node, child *Window) error {
	if iframe.Tag != "iframe" {
		return fmt.Errorf("cannot mount frame on <%s>", iframe.Tag)
	}
	iframe.ContentFrame = child
	child.Parent = iframe.owner
	if iframe.owner != nil {
		iframe.owner.notifyAdded(iframe)
	}
	return nil
}

// ContentDocument returns the document of the frame mounted on n,
// enforcing the origin check of the browsing context requesting it.
func (n *Node) ContentDocument(from *Window) (*Node, error) {
	fr := n.ContentFrame
	if fr == nil {
		return nil, fmt.Errorf("iframe has no mounted frame")
	}
	if from != nil && !from.SameOrigin(fr) {
		return nil, ErrNotReachable
	}
	return fr.Document, nil
}

// Observe registers a mutation observer that fires for every node
// inserted into this window's trees (light DOM and shadow roots alike)
// and for every frame mount. The returned func cancels the
// subscription.
func (w *Window) Observe(fn func(added *Node)) func() {
	w.mu.Lock()
	id := w.nextObs
	w.nextObs++
	w.observers[id] = fn
	w.mu.Unlock()
	return func() {
		w.mu.Lock()
		delete(w.observers, id)
		w.mu.Unlock()
	}
}

func (w *Window) notifyAdded(n *Node) {
	w.mu.RLock()
	fns := make([]func(*Node), 0, len(w.observers))
	for _, fn := range w.observers {
		fns = append(fns, fn)
	}
	w.mu.RUnlock()
	for _, fn := range fns {
		fn(n)
	}
}
