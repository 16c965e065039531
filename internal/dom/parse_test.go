package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentBasic(t *testing.T) {
	doc, err := ParseDocument(`<html><body><div id="main"><p>hello</p></div></body></html>`)
	require.NoError(t, err)

	sel, err := ParseSelector("#main")
	require.NoError(t, err)
	matches := MatchAll(doc, sel)
	require.Len(t, matches, 1)
	assert.Equal(t, "div", matches[0].Tag)
	assert.Equal(t, "hello", matches[0].TextContent())
}

func TestParseDocumentDeclarativeShadow(t *testing.T) {
	doc, err := ParseDocument(`
		<html><body>
			<div id="host">
				<template shadowrootmode="open">
					<button id="inner">Go</button>
				</template>
			</div>
		</body></html>`)
	require.NoError(t, err)

	sel, err := ParseSelector("#host")
	require.NoError(t, err)
	host := MatchAll(doc, sel)[0]

	require.NotNil(t, host.Shadow)
	assert.Equal(t, ShadowOpen, host.Shadow.Mode)
	assert.Same(t, host, host.Shadow.Host)

	// Shadow content is not in the light tree.
	innerSel, err := ParseSelector("#inner")
	require.NoError(t, err)
	assert.Empty(t, MatchAll(doc, innerSel))
	require.Len(t, MatchAll(host.Shadow.Root, innerSel), 1)
}

func TestParseDocumentClosedShadow(t *testing.T) {
	doc, err := ParseDocument(`
		<html><body>
			<div id="host"><template shadowrootmode="closed"><span>hidden</span></template></div>
		</body></html>`)
	require.NoError(t, err)

	sel, err := ParseSelector("#host")
	require.NoError(t, err)
	host := MatchAll(doc, sel)[0]
	require.NotNil(t, host.Shadow)
	assert.Equal(t, ShadowClosed, host.Shadow.Mode)
}

func TestParseDocumentPlainTemplateStaysInert(t *testing.T) {
	doc, err := ParseDocument(`<html><body><div id="host"><template><span>x</span></template></div></body></html>`)
	require.NoError(t, err)

	sel, err := ParseSelector("#host")
	require.NoError(t, err)
	host := MatchAll(doc, sel)[0]
	assert.Nil(t, host.Shadow)
}

func TestTextContentCollapsesWhitespace(t *testing.T) {
	doc, err := ParseDocument(`<html><body><p id="p">  hello
		   world  </p></body></html>`)
	require.NoError(t, err)

	sel, err := ParseSelector("#p")
	require.NoError(t, err)
	assert.Equal(t, "hello world", MatchAll(doc, sel)[0].TextContent())
}
