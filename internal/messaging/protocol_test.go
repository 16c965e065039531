package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"webreplay/backend/internal/dom"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWindow(t *testing.T, href string) *dom.Window {
	t.Helper()
	doc, err := dom.ParseDocument("<html><body></body></html>")
	require.NoError(t, err)
	return dom.NewWindow(href, doc)
}

func bodyOf(t *testing.T, w *dom.Window) *dom.Node {
	t.Helper()
	sel, err := dom.ParseSelector("body")
	require.NoError(t, err)
	return dom.MatchAll(w.Document, sel)[0]
}

func mount(t *testing.T, parent *dom.Window, child *dom.Window) {
	t.Helper()
	iframe := bodyOf(t, parent).AppendChild(dom.NewElement("iframe"))
	require.NoError(t, dom.MountFrame(iframe, child))
}

// echoClient answers the echo route with its own href.
func echoClient(t *testing.T, bus *Bus, win *dom.Window) *Client {
	t.Helper()
	c := NewClient(bus, win)
	c.Listen("echo", func(ctx context.Context, req Request) (json.RawMessage, error) {
		return json.Marshal(win.Href)
	})
	t.Cleanup(c.Close)
	return c
}

func hrefOf(t *testing.T, resp Response) string {
	t.Helper()
	require.Nil(t, resp.Error)
	var href string
	require.NoError(t, json.Unmarshal(resp.Payload, &href))
	return href
}

func TestRequestResponseSingleTarget(t *testing.T) {
	bus := NewBus()
	a := newWindow(t, "https://app.example.com/")
	b := newWindow(t, "https://app.example.com/b")

	caller := NewClient(bus, a)
	defer caller.Close()
	echoClient(t, bus, b)

	resps, err := caller.Send(context.Background(), Request{Route: "echo"}, b)
	require.NoError(t, err)
	require.Len(t, resps, 1)
	assert.Equal(t, "https://app.example.com/b", hrefOf(t, resps[0]))
	assert.Equal(t, b.Href, resps[0].Href)
}

func TestSendRejectsEmptyRoute(t *testing.T) {
	bus := NewBus()
	a := newWindow(t, "https://app.example.com/")
	caller := NewClient(bus, a)
	defer caller.Close()

	_, err := caller.Send(context.Background(), Request{})
	assert.Error(t, err)
}

func TestBroadcastAggregatesPostOrder(t *testing.T) {
	bus := NewBus()
	top := newWindow(t, "https://app.example.com/")
	mid1 := newWindow(t, "https://app.example.com/mid1")
	mid2 := newWindow(t, "https://app.example.com/mid2")
	leaf1a := newWindow(t, "https://app.example.com/leaf1a")
	leaf1b := newWindow(t, "https://app.example.com/leaf1b")
	leaf2a := newWindow(t, "https://app.example.com/leaf2a")
	leaf2b := newWindow(t, "https://app.example.com/leaf2b")

	mount(t, top, mid1)
	mount(t, top, mid2)
	mount(t, mid1, leaf1a)
	mount(t, mid1, leaf1b)
	mount(t, mid2, leaf2a)
	mount(t, mid2, leaf2b)

	all := []*dom.Window{top, mid1, mid2, leaf1a, leaf1b, leaf2a, leaf2b}
	for _, w := range all {
		echoClient(t, bus, w)
	}

	caller := NewClient(bus, top, WithTimeout(5*time.Second))
	defer caller.Close()

	resps, err := caller.Send(context.Background(), Request{Route: "echo"})
	require.NoError(t, err)
	require.Len(t, resps, 1)

	flat := Flatten(resps)
	require.Len(t, flat, len(all))

	pos := map[string]int{}
	for i, r := range flat {
		require.Nil(t, r.Error, "frame %s answered with error", r.Href)
		pos[hrefOf(t, r)] = i
	}
	require.Len(t, pos, len(all))

	// Every leaf comes before its own parent; the root closes the list.
	for leaf, mid := range map[string]string{
		"https://app.example.com/leaf1a": "https://app.example.com/mid1",
		"https://app.example.com/leaf1b": "https://app.example.com/mid1",
		"https://app.example.com/leaf2a": "https://app.example.com/mid2",
		"https://app.example.com/leaf2b": "https://app.example.com/mid2",
	} {
		assert.Less(t, pos[leaf], pos[mid], "%s must answer before %s", leaf, mid)
	}
	assert.Equal(t, len(all)-1, pos["https://app.example.com/"])
}

func TestBroadcastSkipsCrossOriginSubtree(t *testing.T) {
	bus := NewBus()
	top := newWindow(t, "https://app.example.com/")
	foreign := newWindow(t, "https://ads.example.net/banner")
	mount(t, top, foreign)

	echoClient(t, bus, top)
	echoClient(t, bus, foreign)

	caller := NewClient(bus, top, WithTimeout(time.Second))
	defer caller.Close()

	resps, err := caller.Send(context.Background(), Request{Route: "echo"})
	require.NoError(t, err)

	flat := Flatten(resps)
	require.Len(t, flat, 1)
	assert.Equal(t, "https://app.example.com/", hrefOf(t, flat[0]))
}

func TestBroadcastDepthLimit(t *testing.T) {
	bus := NewBus()
	top := newWindow(t, "https://app.example.com/")
	mid := newWindow(t, "https://app.example.com/mid")
	leaf := newWindow(t, "https://app.example.com/leaf")
	mount(t, top, mid)
	mount(t, mid, leaf)

	for _, w := range []*dom.Window{top, mid, leaf} {
		echoClient(t, bus, w)
	}

	caller := NewClient(bus, top, WithTimeout(time.Second), WithMaxDepth(1))
	defer caller.Close()

	resps, err := caller.Send(context.Background(), Request{Route: "echo"})
	require.NoError(t, err)

	flat := Flatten(resps)
	require.Len(t, flat, 2, "the leaf lies beyond the depth budget")
}

func TestUnansweredTargetYieldsErrorResponse(t *testing.T) {
	bus := NewBus()
	a := newWindow(t, "https://app.example.com/")
	silent := newWindow(t, "https://app.example.com/silent")

	caller := NewClient(bus, a, WithTimeout(100*time.Millisecond))
	defer caller.Close()

	start := time.Now()
	resps, err := caller.Send(context.Background(), Request{Route: "echo"}, silent)
	require.NoError(t, err)
	require.Len(t, resps, 1)
	require.NotNil(t, resps[0].Error)
	assert.Equal(t, silent.Href, resps[0].Href)
	assert.Less(t, time.Since(start), 5*time.Second, "timeout must bound the wait")
}

func TestHandlerErrorTravelsAsResponseError(t *testing.T) {
	bus := NewBus()
	a := newWindow(t, "https://app.example.com/")
	b := newWindow(t, "https://app.example.com/b")

	caller := NewClient(bus, a)
	defer caller.Close()

	failing := NewClient(bus, b)
	defer failing.Close()
	failing.Listen("echo", func(ctx context.Context, req Request) (json.RawMessage, error) {
		return nil, assert.AnError
	})

	resps, err := caller.Send(context.Background(), Request{Route: "echo"}, b)
	require.NoError(t, err)
	require.Len(t, resps, 1)
	require.NotNil(t, resps[0].Error)
	assert.Contains(t, resps[0].Error.Message, assert.AnError.Error())
}

func TestListenUnbind(t *testing.T) {
	bus := NewBus()
	a := newWindow(t, "https://app.example.com/")
	b := newWindow(t, "https://app.example.com/b")

	caller := NewClient(bus, a, WithTimeout(100*time.Millisecond))
	defer caller.Close()

	answering := NewClient(bus, b)
	defer answering.Close()
	unbind := answering.Listen("echo", func(ctx context.Context, req Request) (json.RawMessage, error) {
		return json.Marshal("ok")
	})
	unbind()

	resps, err := caller.Send(context.Background(), Request{Route: "echo"}, b)
	require.NoError(t, err)
	require.Len(t, resps, 1)
	assert.NotNil(t, resps[0].Error)
}
