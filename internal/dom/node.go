package dom

import (
	"sort"
	"strings"
)

type NodeType int

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
)

// Rect is the layout box of an element. The engine never computes layout;
// boxes come from the capture side (or from tests) and are only compared.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) IsZero() bool {
	return r.X == 0 && r.Y == 0 && r.Width == 0 && r.Height == 0
}

// Contains reports whether o lies fully inside r.
func (r Rect) Contains(o Rect) bool {
	return r.X <= o.X && r.Y <= o.Y &&
		r.X+r.Width >= o.X+o.Width &&
		r.Y+r.Height >= o.Y+o.Height
}

type ShadowMode string

const (
	ShadowOpen   ShadowMode = "open"
	ShadowClosed ShadowMode = "closed"
)

// ShadowRoot is an encapsulated subtree attached to a host element.
// Root is a fragment node; its children are the shadow content.
type ShadowRoot struct {
	Mode ShadowMode
	Host *Node
	Root *Node
}

// Node is a single node in a document tree. Shadow content hangs off
// Shadow, never off Children, so a plain child walk stays in the light
// tree. Iframe elements carry their mounted browsing context in
// ContentFrame.
type Node struct {
	Type         NodeType
	Tag          string
	Attrs        map[string]string
	Text         string
	Rect         Rect
	Parent       *Node
	Children     []*Node
	Shadow       *ShadowRoot
	ContentFrame *Window

	owner            *Window
	containingShadow *ShadowRoot
	listeners        map[string][]*listenerEntry
	nextListenerID   int
}

func NewElement(tag string) *Node {
	return &Node{Type: ElementNode, Tag: strings.ToLower(tag), Attrs: map[string]string{}}
}

func NewText(text string) *Node {
	return &Node{Type: TextNode, Text: text}
}

func newDocumentNode() *Node {
	return &Node{Type: DocumentNode}
}

func (n *Node) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

func (n *Node) HasAttr(key string) bool {
	if n.Attrs == nil {
		return false
	}
	_, ok := n.Attrs[key]
	return ok
}

func (n *Node) SetAttr(key, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = map[string]string{}
	}
	n.Attrs[strings.ToLower(key)] = value
	return n
}

func (n *Node) ID() string { return n.Attr("id") }

func (n *Node) Classes() []string {
	raw := strings.Fields(n.Attr("class"))
	sort.Strings(raw)
	return raw
}

// AppendChild adds c to n's light tree and adopts it into n's window,
// notifying mutation observers so late-mounted frames become visible.
func (n *Node) AppendChild(c *Node) *Node {
	c.Parent = n
	n.Children = append(n.Children, c)
	c.adopt(n.owner, n.containingShadow)
	if n.owner != nil {
		n.owner.notifyAdded(c)
	}
	return c
}

func (n *Node) adopt(w *Window, shadow *ShadowRoot) {
	n.owner = w
	if n.containingShadow == nil {
		n.containingShadow = shadow
	}
	for _, c := range n.Children {
		c.adopt(w, n.containingShadow)
	}
	if n.Shadow != nil {
		n.Shadow.Root.adopt(w, n.Shadow)
	}
}

// AttachShadow creates a shadow root on an element. At most one per host.
func (n *Node) AttachShadow(mode ShadowMode) *ShadowRoot {
	if n.Shadow != nil {
		return n.Shadow
	}
	root := newDocumentNode()
	sr := &ShadowRoot{Mode: mode, Host: n, Root: root}
	root.containingShadow = sr
	root.owner = n.owner
	n.Shadow = sr
	if n.owner != nil {
		n.owner.notifyAdded(root)
	}
	return sr
}

// Walk visits n and every light-tree descendant in document order.
// Returning false from fn stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Closest returns the first of n or its ancestors for which pred holds.
// The walk does not cross a shadow boundary.
func (n *Node) Closest(pred func(*Node) bool) *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == ElementNode && pred(cur) {
			return cur
		}
	}
	return nil
}

// FirstDescendant returns the first light-tree descendant (excluding n
// itself) for which pred holds.
func (n *Node) FirstDescendant(pred func(*Node) bool) *Node {
	var found *Node
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if d.Type == ElementNode && pred(d) {
				found = d
				return false
			}
			return true
		})
		if found != nil {
			break
		}
	}
	return found
}

// TextContent returns the whitespace-collapsed text of n's light subtree.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.Walk(func(d *Node) bool {
		if d.Type == TextNode {
			b.WriteString(d.Text)
			b.WriteString(" ")
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// Owner returns the window this node belongs to, nil if detached.
func (n *Node) Owner() *Window { return n.owner }
