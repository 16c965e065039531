package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectorForms(t *testing.T) {
	cases := []string{
		"#login",
		"button",
		"div.card.active",
		`input[name="q"]`,
		`form[name="search"] input[name="q"]`,
		`a[href="/docs"]`,
		`div[title="two words"] span`,
		"input[disabled]",
	}
	for _, c := range cases {
		_, err := ParseSelector(c)
		assert.NoError(t, err, "selector %q", c)
	}
}

func TestParseSelectorErrors(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"#",
		"div.",
		"div[name",
		"!bad",
	}
	for _, c := range cases {
		_, err := ParseSelector(c)
		assert.Error(t, err, "selector %q", c)
	}
}

func TestSelectorMatchesCompound(t *testing.T) {
	btn := NewElement("button")
	btn.SetAttr("id", "save")
	btn.SetAttr("class", "btn primary")
	btn.SetAttr("data-testid", "save-btn")

	for sel, want := range map[string]bool{
		"#save":                     true,
		"button":                    true,
		"button.btn":                true,
		"button.btn.primary":        true,
		`button[data-testid="save-btn"]`: true,
		"[data-testid]":             true,
		"#other":                    false,
		"a":                         false,
		"button.secondary":          false,
		`button[data-testid="x"]`:   false,
	} {
		parsed, err := ParseSelector(sel)
		require.NoError(t, err)
		assert.Equal(t, want, parsed.Matches(btn), "selector %q", sel)
	}
}

func TestSelectorDescendantChain(t *testing.T) {
	doc := newDocumentNode()
	form := doc.AppendChild(NewElement("form").SetAttr("name", "search"))
	wrap := form.AppendChild(NewElement("div"))
	input := wrap.AppendChild(NewElement("input").SetAttr("name", "q"))

	sel, err := ParseSelector(`form[name="search"] input[name="q"]`)
	require.NoError(t, err)
	assert.True(t, sel.Matches(input))

	// The chain requires the ancestor; a detached input does not match.
	lone := NewElement("input").SetAttr("name", "q")
	assert.False(t, sel.Matches(lone))

	matches := MatchAll(doc, sel)
	require.Len(t, matches, 1)
	assert.Same(t, input, matches[0])
}

func TestSelectorStopsAtShadowBoundary(t *testing.T) {
	doc := newDocumentNode()
	host := doc.AppendChild(NewElement("div").SetAttr("id", "host"))
	sr := host.AttachShadow(ShadowOpen)
	span := sr.Root.AppendChild(NewElement("span").SetAttr("class", "inner"))

	sel, err := ParseSelector("#host span.inner")
	require.NoError(t, err)
	// The ancestor scan does not cross the shadow boundary.
	assert.False(t, sel.Matches(span))

	inner, err := ParseSelector("span.inner")
	require.NoError(t, err)
	assert.True(t, inner.Matches(span))
}
