package selector

import (
	"strings"
	"testing"
	"unicode/utf8"

	"webreplay/backend/internal/deepquery"
	"webreplay/backend/internal/dom"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *dom.Node {
	t.Helper()
	doc, err := dom.ParseDocument(src)
	require.NoError(t, err)
	return doc
}

func find(t *testing.T, root *dom.Node, locator string) *dom.Node {
	t.Helper()
	sel, err := dom.ParseSelector(locator)
	require.NoError(t, err)
	matches := dom.MatchAll(root, sel)
	require.NotEmpty(t, matches, "locator %q", locator)
	return matches[0]
}

func TestDeriveIDWins(t *testing.T) {
	doc := parse(t, `<html><body><button id="save" name="s" class="btn">Save now</button></body></html>`)
	btn := find(t, doc, "#save")

	loc, text := Derive(btn, Options{})
	assert.Equal(t, "#save", loc)
	assert.Equal(t, "Save now", text)
}

func TestDeriveNameScopedToForm(t *testing.T) {
	doc := parse(t, `<html><body>
		<form name="search"><input name="q" placeholder="Search"></form>
	</body></html>`)
	input := find(t, doc, `input[name="q"]`)

	loc, text := Derive(input, Options{})
	assert.Equal(t, `form[name="search"] input[name="q"]`, loc)
	assert.Equal(t, "Search", text)
}

func TestDeriveFormWithIDScopesByID(t *testing.T) {
	doc := parse(t, `<html><body>
		<form id="login-form"><input name="user"></form>
	</body></html>`)
	input := find(t, doc, `input[name="user"]`)

	loc, _ := Derive(input, Options{})
	assert.Equal(t, `#login-form input[name="user"]`, loc)
}

func TestDeriveIdentifyingAttribute(t *testing.T) {
	doc := parse(t, `<html><body><a href="/docs">Documentation</a></body></html>`)
	link := find(t, doc, "a")

	loc, text := Derive(link, Options{})
	assert.Equal(t, `a[href="/docs"]`, loc)
	assert.Equal(t, "Documentation", text)
}

func TestDeriveClassFallback(t *testing.T) {
	doc := parse(t, `<html><body><div class="card active">content</div></body></html>`)
	div := find(t, doc, "div.card")

	loc, _ := Derive(div, Options{})
	// Classes are sorted for a stable locator.
	assert.Equal(t, "div.active.card", loc)
}

func TestDeriveDescendantOfIdentifyingAncestor(t *testing.T) {
	doc := parse(t, `<html><body>
		<nav id="menu"><ul><li><span class="icon"></span></li></ul></nav>
	</body></html>`)
	span := find(t, doc, "span.icon")

	loc, _ := Derive(span, Options{})
	assert.Equal(t, "#menu span.icon", loc)

	// The produced locator resolves back to the same element.
	sel, err := dom.ParseSelector(loc)
	require.NoError(t, err)
	matches := dom.MatchAll(doc, sel)
	require.Len(t, matches, 1)
	assert.Same(t, span, matches[0])
}

func TestInteractiveSubstitutionAncestor(t *testing.T) {
	doc := parse(t, `<html><body><button id="go"><span class="label">Go</span></button></body></html>`)
	btn := find(t, doc, "#go")
	span := find(t, doc, "span.label")
	btn.Rect = dom.Rect{X: 0, Y: 0, Width: 100, Height: 40}
	span.Rect = dom.Rect{X: 10, Y: 10, Width: 20, Height: 20}

	loc, text := Derive(span, Options{PreferInteractive: true})
	assert.Equal(t, "#go", loc)
	assert.Equal(t, "Go", text)
}

func TestInteractiveSubstitutionRequiresContainment(t *testing.T) {
	doc := parse(t, `<html><body><button id="go"><span class="label">Go</span></button></body></html>`)
	btn := find(t, doc, "#go")
	span := find(t, doc, "span.label")
	// The button does not contain the span's box, so no substitution.
	btn.Rect = dom.Rect{X: 0, Y: 0, Width: 5, Height: 5}
	span.Rect = dom.Rect{X: 10, Y: 10, Width: 20, Height: 20}

	loc, _ := Derive(span, Options{PreferInteractive: true})
	assert.Equal(t, "#go span.label", loc)
}

func TestInteractiveSubstitutionDescendant(t *testing.T) {
	doc := parse(t, `<html><body><div class="cell"><input name="qty"></div></body></html>`)
	cell := find(t, doc, "div.cell")
	input := find(t, doc, `input[name="qty"]`)
	cell.Rect = dom.Rect{X: 0, Y: 0, Width: 200, Height: 50}
	input.Rect = dom.Rect{X: 5, Y: 5, Width: 100, Height: 30}

	loc, _ := Derive(cell, Options{PreferInteractive: true})
	assert.Equal(t, `input[name="qty"]`, loc)
}

func TestDeriveQueryRoundTrip(t *testing.T) {
	doc := parse(t, `<html><body>
		<button id="save">Save</button>
		<form name="search"><input name="q"></form>
		<nav id="menu"><ul><li><span class="icon"></span></li></ul></nav>
		<a href="/docs">Documentation</a>
	</body></html>`)
	win := dom.NewWindow("https://app.example.com/", doc)

	// A derived locator resolves back to exactly the element it was
	// derived from, through the same query path replay uses.
	for _, locator := range []string{"#save", `input[name="q"]`, "span.icon", "a"} {
		el := find(t, doc, locator)
		derived, _ := Derive(el, Options{})
		matches, err := deepquery.QueryAll(win, derived)
		require.NoError(t, err, "derived %q", derived)
		require.Len(t, matches, 1, "derived %q", derived)
		assert.Same(t, el, matches[0], "derived %q", derived)
	}
}

func TestDescriptiveTextFallbackAndCap(t *testing.T) {
	doc := parse(t, `<html><body><button aria-label="Close dialog"></button></body></html>`)
	btn := find(t, doc, "button")

	_, text := Derive(btn, Options{})
	assert.Equal(t, "Close dialog", text)

	long := strings.Repeat("x", 200)
	doc2 := parse(t, `<html><body><p class="blurb">`+long+`</p></body></html>`)
	p := find(t, doc2, "p.blurb")
	_, text = Derive(p, Options{})
	assert.Len(t, text, 80)
}

func TestDescriptiveTextTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 200)
	doc := parse(t, `<html><body><p class="blurb">`+long+`</p></body></html>`)
	p := find(t, doc, "p.blurb")

	_, text := Derive(p, Options{})
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, 80, utf8.RuneCountInString(text))
}
