package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchEventBubbles(t *testing.T) {
	doc := newDocumentNode()
	outer := doc.AppendChild(NewElement("div"))
	inner := outer.AppendChild(NewElement("button"))

	var order []string
	inner.AddEventListener("click", func(*Event) { order = append(order, "inner") })
	outer.AddEventListener("click", func(*Event) { order = append(order, "outer") })

	ok := inner.DispatchEvent(&Event{Type: "click", Bubbles: true, Cancelable: true})
	assert.True(t, ok)
	assert.Equal(t, []string{"inner", "outer"}, order)
}

func TestDispatchEventNonBubbling(t *testing.T) {
	doc := newDocumentNode()
	outer := doc.AppendChild(NewElement("div"))
	inner := outer.AppendChild(NewElement("button"))

	var hits []string
	outer.AddEventListener("focus", func(*Event) { hits = append(hits, "outer") })
	inner.DispatchEvent(&Event{Type: "focus"})
	assert.Empty(t, hits)
}

func TestStopPropagation(t *testing.T) {
	doc := newDocumentNode()
	outer := doc.AppendChild(NewElement("div"))
	inner := outer.AppendChild(NewElement("button"))

	inner.AddEventListener("click", func(e *Event) { e.StopPropagation() })
	outerHit := false
	outer.AddEventListener("click", func(*Event) { outerHit = true })

	inner.DispatchEvent(&Event{Type: "click", Bubbles: true})
	assert.False(t, outerHit)
}

func TestPreventDefault(t *testing.T) {
	btn := NewElement("button")
	btn.AddEventListener("click", func(e *Event) { e.PreventDefault() })
	ok := btn.DispatchEvent(&Event{Type: "click", Bubbles: true, Cancelable: true})
	assert.False(t, ok)

	// Non-cancelable events cannot be prevented.
	btn2 := NewElement("button")
	btn2.AddEventListener("click", func(e *Event) { e.PreventDefault() })
	ok = btn2.DispatchEvent(&Event{Type: "click", Bubbles: true})
	assert.True(t, ok)
}

func TestDispatchEventHopsShadowBoundary(t *testing.T) {
	doc := newDocumentNode()
	host := doc.AppendChild(NewElement("div"))
	sr := host.AttachShadow(ShadowOpen)
	btn := sr.Root.AppendChild(NewElement("button"))

	var order []string
	btn.AddEventListener("click", func(*Event) { order = append(order, "shadow-button") })
	host.AddEventListener("click", func(*Event) { order = append(order, "host") })

	btn.DispatchEvent(&Event{Type: "click", Bubbles: true})
	assert.Equal(t, []string{"shadow-button", "host"}, order)
}

func TestRemoveEventListener(t *testing.T) {
	btn := NewElement("button")
	hits := 0
	remove := btn.AddEventListener("click", func(*Event) { hits++ })

	btn.DispatchEvent(&Event{Type: "click"})
	remove()
	btn.DispatchEvent(&Event{Type: "click"})
	assert.Equal(t, 1, hits)
}

func TestEventTargetAndModifiers(t *testing.T) {
	doc := newDocumentNode()
	btn := doc.AppendChild(NewElement("button"))

	var seen *Event
	btn.AddEventListener("keydown", func(e *Event) { seen = e })

	btn.DispatchEvent(&Event{Type: "keydown", Key: "Enter", Ctrl: true, Shift: true})
	require.NotNil(t, seen)
	assert.Same(t, btn, seen.Target)
	assert.Equal(t, "Enter", seen.Key)
	assert.True(t, seen.Ctrl)
	assert.True(t, seen.Shift)
}
