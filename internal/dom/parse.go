package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// ParseDocument parses an HTML source into a document node. Declarative
// shadow roots (<template shadowrootmode="open|closed">) become real
// shadow roots on their host element, which is how page snapshots carry
// shadow DOM across the wire.
func ParseDocument(src string) (*Node, error) {
	hn, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	doc := newDocumentNode()
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		convert(c, doc, nil)
	}
	return doc, nil
}

func convert(hn *html.Node, parent *Node, shadow *ShadowRoot) {
	switch hn.Type {
	case html.TextNode:
		if strings.TrimSpace(hn.Data) == "" {
			return
		}
		appendConverted(parent, NewText(hn.Data), shadow)
	case html.ElementNode:
		if hn.Data == "template" {
			if mode := templateShadowMode(hn); mode != "" && parent.Type == ElementNode {
				sr := parent.AttachShadow(mode)
				for c := hn.FirstChild; c != nil; c = c.NextSibling {
					convert(c, sr.Root, sr)
				}
				return
			}
		}
		el := NewElement(hn.Data)
		for _, a := range hn.Attr {
			el.SetAttr(a.Key, a.Val)
		}
		appendConverted(parent, el, shadow)
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			convert(c, el, shadow)
		}
	}
}

func appendConverted(parent, child *Node, shadow *ShadowRoot) {
	child.containingShadow = shadow
	parent.AppendChild(child)
}

func templateShadowMode(hn *html.Node) ShadowMode {
	for _, a := range hn.Attr {
		if a.Key == "shadowrootmode" || a.Key == "shadowroot" {
			switch strings.ToLower(a.Val) {
			case "open":
				return ShadowOpen
			case "closed":
				return ShadowClosed
			}
		}
	}
	return ""
}
