package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"webreplay/backend/internal/deepquery"
	"webreplay/backend/internal/dom"
)

const (
	// DefaultRequestTimeout bounds every send whose context carries no
	// deadline. The underlying transport gives no delivery guarantee, so
	// without this a request into a frame that never loads would hang
	// its caller forever.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultMaxDepth bounds broadcast fan-out through pathological
	// frame nesting.
	DefaultMaxDepth = 8
)

// Request is the wire form of a cross-window call.
type Request struct {
	Route     string          `json:"route"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Depth     int             `json:"depth"`
	MaxDepth  int             `json:"max_depth"`
	Broadcast bool            `json:"broadcast,omitempty"`
	SrcHref   string          `json:"src_href"`
}

// Response carries one frame's answer plus the aggregated answers of
// its subtree when the request was a broadcast.
type Response struct {
	Route            string          `json:"route"`
	Href             string          `json:"href"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	Error            *Error          `json:"error,omitempty"`
	BroadcastResults []Response      `json:"broadcast_results,omitempty"`
}

type Error struct {
	Message string `json:"message"`
}

type envelope struct {
	Kind     string    `json:"kind"` // request | response
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`
}

// respRoute scopes a response route by depth so concurrent in-flight
// requests on the same route at different levels of the frame tree
// cannot resolve each other's waiters.
func respRoute(route string, depth int) string {
	return fmt.Sprintf("%s_%d_response", route, depth)
}

// HandlerFunc serves one route at one window.
type HandlerFunc func(ctx context.Context, req Request) (json.RawMessage, error)

type waiter struct {
	ch        chan Response
	remaining int
}

// Client binds the protocol to one window on a bus.
type Client struct {
	bus      *Bus
	win      *dom.Window
	timeout  time.Duration
	maxDepth int

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	waiters  map[string][]*waiter

	unsub func()
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }
func WithMaxDepth(n int) Option          { return func(c *Client) { c.maxDepth = n } }

// NewClient attaches a protocol endpoint to win.
func NewClient(bus *Bus, win *dom.Window, opts ...Option) *Client {
	c := &Client{
		bus:      bus,
		win:      win,
		timeout:  DefaultRequestTimeout,
		maxDepth: DefaultMaxDepth,
		handlers: map[string]HandlerFunc{},
		waiters:  map[string][]*waiter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsub = bus.Subscribe(win, c.onMessage)
	return c
}

// Close detaches the endpoint from the bus.
func (c *Client) Close() {
	if c.unsub != nil {
		c.unsub()
	}
}

// Listen registers a handler for a route. The returned func unbinds it.
func (c *Client) Listen(route string, h HandlerFunc) func() {
	c.mu.Lock()
	c.handlers[route] = h
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.handlers, route)
		c.mu.Unlock()
	}
}

// Send posts req and waits for every targeted window to answer. With no
// explicit targets the request goes to the top window as a broadcast,
// fanning out to the whole frame subtree; the aggregate then holds one
// response per reached frame (see Flatten). A frame that never answers
// within the deadline contributes an error response instead of hanging
// the caller.
func (c *Client) Send(ctx context.Context, req Request, targets ...*dom.Window) ([]Response, error) {
	if req.Route == "" {
		return nil, fmt.Errorf("messaging: request route is empty")
	}
	if req.MaxDepth == 0 {
		req.MaxDepth = c.maxDepth
	}
	req.SrcHref = c.win.Href
	if len(targets) == 0 {
		targets = []*dom.Window{c.win.Top()}
		req.Broadcast = true
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.sendTo(ctx, req, targets), nil
}

// sendTo registers a one-shot waiter keyed to the depth-scoped response
// route, posts to each target, then joins all answers.
func (c *Client) sendTo(ctx context.Context, req Request, targets []*dom.Window) []Response {
	route := respRoute(req.Route, req.Depth)
	w := &waiter{ch: make(chan Response, len(targets)), remaining: len(targets)}
	c.mu.Lock()
	c.waiters[route] = append(c.waiters[route], w)
	c.mu.Unlock()

	data, err := json.Marshal(envelope{Kind: "request", Request: &req})
	if err != nil {
		c.dropWaiter(route, w)
		return []Response{{Route: route, Href: c.win.Href, Error: &Error{Message: err.Error()}}}
	}
	for _, t := range targets {
		c.bus.Post(c.win, t, data)
	}

	out := make([]Response, 0, len(targets))
	for i := 0; i < len(targets); i++ {
		select {
		case resp := <-w.ch:
			out = append(out, resp)
		case <-ctx.Done():
			c.dropWaiter(route, w)
			for j := i; j < len(targets); j++ {
				out = append(out, Response{
					Route: route,
					Href:  targets[j].Href,
					Error: &Error{Message: fmt.Sprintf("no response for %s: %v", req.Route, ctx.Err())},
				})
			}
			return out
		}
	}
	return out
}

func (c *Client) dropWaiter(route string, w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.waiters[route]
	for i, cand := range list {
		if cand == w {
			c.waiters[route] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (c *Client) onMessage(from *dom.Window, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("messaging: dropping malformed message at %s: %v", c.win.Href, err)
		return
	}
	switch {
	case env.Kind == "response" && env.Response != nil:
		c.deliverResponse(*env.Response)
	case env.Kind == "request" && env.Request != nil:
		c.handleRequest(from, *env.Request)
	}
}

func (c *Client) deliverResponse(resp Response) {
	c.mu.Lock()
	list := c.waiters[resp.Route]
	if len(list) == 0 {
		c.mu.Unlock()
		return
	}
	w := list[0]
	w.remaining--
	if w.remaining <= 0 {
		c.waiters[resp.Route] = list[1:]
	}
	c.mu.Unlock()
	w.ch <- resp
}

// handleRequest runs the local handler and, for a broadcast that has
// not exhausted its depth budget, forwards the same request one level
// down to every same-origin child frame, waiting for the full fan-in
// before replying upward. Aggregation is therefore strictly post-order:
// a frame's reply already contains its whole subtree.
func (c *Client) handleRequest(from *dom.Window, req Request) {
	c.mu.Lock()
	h := c.handlers[req.Route]
	c.mu.Unlock()
	if h == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	payload, herr := h(ctx, req)

	var children []Response
	if req.Broadcast && req.Depth < req.MaxDepth {
		frames := deepquery.ChildFrames(c.win, c.win)
		if len(frames) > 0 {
			sub := req
			sub.Depth++
			children = c.sendTo(ctx, sub, frames)
		}
	}

	resp := Response{
		Route:            respRoute(req.Route, req.Depth),
		Href:             c.win.Href,
		Payload:          payload,
		BroadcastResults: children,
	}
	if herr != nil {
		resp.Error = &Error{Message: herr.Error()}
	}
	data, err := json.Marshal(envelope{Kind: "response", Response: &resp})
	if err != nil {
		log.Printf("messaging: cannot marshal response for %s: %v", req.Route, err)
		return
	}
	c.bus.Post(c.win, from, data)
}

// Flatten recovers the full tree of broadcast responses as a single
// post-order sequence: each frame's children come before the frame
// itself, so leaves lead and the broadcast root closes the list.
func Flatten(resps []Response) []Response {
	var out []Response
	var walk func(r Response)
	walk = func(r Response) {
		for _, child := range r.BroadcastResults {
			walk(child)
		}
		r.BroadcastResults = nil
		out = append(out, r)
	}
	for _, r := range resps {
		walk(r)
	}
	return out
}
