package dom

import (
	"fmt"
	"strings"
)

// The locator grammar is the one the selector deriver emits: a chain of
// compound selectors joined by descendant combinators, each compound
// built from a tag, #id, .classes and [attr="value"] parts. General CSS
// (child/sibling combinators, pseudo classes) is out of scope here on
// purpose; nothing in the system produces it.

type attrMatch struct {
	key      string
	value    string
	hasValue bool
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

// Selector is a parsed locator: one or more compounds related by the
// descendant combinator.
type Selector []compound

// ParseSelector parses a locator string. An empty or malformed locator
// is an error, never a silent match-nothing.
func ParseSelector(s string) (Selector, error) {
	parts := splitSelector(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty selector")
	}
	sel := make(Selector, 0, len(parts))
	for _, p := range parts {
		c, err := parseCompound(p)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", s, err)
		}
		sel = append(sel, c)
	}
	return sel, nil
}

// splitSelector splits on whitespace outside of [...] brackets, so
// [title="two words"] survives.
func splitSelector(s string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
			cur.WriteRune(r)
		case r == ']':
			depth--
			cur.WriteRune(r)
		case (r == ' ' || r == '\t') && depth == 0:
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	readName := func() string {
		start := i
		for i < len(s) && isNameChar(s[i]) {
			i++
		}
		return s[start:i]
	}
	if i < len(s) && isNameChar(s[i]) {
		c.tag = strings.ToLower(readName())
	}
	for i < len(s) {
		switch s[i] {
		case '#':
			i++
			name := readName()
			if name == "" {
				return c, fmt.Errorf("empty id at %q", s)
			}
			c.id = name
		case '.':
			i++
			name := readName()
			if name == "" {
				return c, fmt.Errorf("empty class at %q", s)
			}
			c.classes = append(c.classes, name)
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute at %q", s)
			}
			body := s[i+1 : i+end]
			i += end + 1
			am, err := parseAttr(body)
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, am)
		default:
			return c, fmt.Errorf("unexpected %q in %q", s[i], s)
		}
	}
	if c.tag == "" && c.id == "" && len(c.classes) == 0 && len(c.attrs) == 0 {
		return c, fmt.Errorf("empty compound in %q", s)
	}
	return c, nil
}

func parseAttr(body string) (attrMatch, error) {
	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		return attrMatch{key: strings.ToLower(strings.TrimSpace(body))}, nil
	}
	key := strings.ToLower(strings.TrimSpace(body[:eq]))
	val := strings.TrimSpace(body[eq+1:])
	if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
		val = val[1 : len(val)-1]
	}
	if key == "" {
		return attrMatch{}, fmt.Errorf("empty attribute name in [%s]", body)
	}
	return attrMatch{key: key, value: val, hasValue: true}, nil
}

func isNameChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' ||
		b >= '0' && b <= '9' || b == '-' || b == '_' || b == ':'
}

func (c compound) matches(n *Node) bool {
	if n.Type != ElementNode {
		return false
	}
	if c.tag != "" && c.tag != n.Tag {
		return false
	}
	if c.id != "" && c.id != n.ID() {
		return false
	}
	for _, cls := range c.classes {
		if !hasClass(n, cls) {
			return false
		}
	}
	for _, am := range c.attrs {
		if !n.HasAttr(am.key) {
			return false
		}
		if am.hasValue && n.Attr(am.key) != am.value {
			return false
		}
	}
	return true
}

func hasClass(n *Node, cls string) bool {
	for _, c := range strings.Fields(n.Attr("class")) {
		if c == cls {
			return true
		}
	}
	return false
}

// Matches reports whether n satisfies the full descendant chain. The
// ancestor scan stays within the current tree; a shadow boundary is a
// hard stop, same as CSS.
func (sel Selector) Matches(n *Node) bool {
	if len(sel) == 0 || !sel[len(sel)-1].matches(n) {
		return false
	}
	i := len(sel) - 2
	for cur := n.Parent; cur != nil && i >= 0; cur = cur.Parent {
		if sel[i].matches(cur) {
			i--
		}
	}
	return i < 0
}

// MatchAll returns every element in root's light tree (root included)
// matching sel, in document order.
func MatchAll(root *Node, sel Selector) []*Node {
	var out []*Node
	root.Walk(func(n *Node) bool {
		if sel.Matches(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}
