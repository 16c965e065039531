package schedule

import (
	"context"
	"encoding/json"
	"sync"

	"webreplay/backend/internal/dom"
	"webreplay/backend/internal/framelocator"
	"webreplay/backend/internal/messaging"
)

// RouteLocateFrame asks every frame in the subtree whether it is the
// one identified by an href; matching frames answer with their frame
// selector chain so the caller can resolve a window handle.
const RouteLocateFrame = "frame.locate"

type locatePayload struct {
	Href string `json:"href"`
}

type locateResult struct {
	Matched bool     `json:"matched"`
	Chain   []string `json:"chain"`
}

// Agent is the per-frame endpoint that answers protocol requests from
// other frames. Every window, whatever its origin, runs its own agent;
// the origin rules live in the transport and in document access, not
// here.
type Agent struct {
	win    *dom.Window
	client *messaging.Client
}

func NewAgent(bus *messaging.Bus, win *dom.Window) *Agent {
	a := &Agent{win: win, client: messaging.NewClient(bus, win)}
	a.client.Listen(RouteLocateFrame, a.handleLocate)
	return a
}

func (a *Agent) Close() { a.client.Close() }

func (a *Agent) handleLocate(ctx context.Context, req messaging.Request) (json.RawMessage, error) {
	var p locatePayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return nil, err
	}
	if p.Href != a.win.Href {
		return json.Marshal(locateResult{})
	}
	return json.Marshal(locateResult{Matched: true, Chain: framelocator.ChainFrom(a.win)})
}

// AgentSet tracks the agents installed below a top window, following
// frames that are mounted after installation.
type AgentSet struct {
	bus *messaging.Bus

	mu      sync.Mutex
	agents  map[*dom.Window]*Agent
	cancels []func()
	closed  bool
}

// InstallAgents attaches an agent to top and every frame mounted below
// it, the way each document's own script would register itself. Frames
// mounted later, in the light tree or inside shadow roots, get agents
// as they appear.
func InstallAgents(bus *messaging.Bus, top *dom.Window) *AgentSet {
	s := &AgentSet{bus: bus, agents: map[*dom.Window]*Agent{}}
	s.install(top)
	return s
}

func (s *AgentSet) install(win *dom.Window) {
	s.mu.Lock()
	if s.closed || s.agents[win] != nil {
		s.mu.Unlock()
		return
	}
	s.agents[win] = NewAgent(s.bus, win)
	cancel := win.Observe(func(added *dom.Node) { s.scan(added) })
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()

	s.scan(win.Document)
}

func (s *AgentSet) scan(root *dom.Node) {
	root.Walk(func(n *dom.Node) bool {
		if n.Shadow != nil {
			s.scan(n.Shadow.Root)
		}
		if n.Tag == "iframe" && n.ContentFrame != nil {
			s.install(n.ContentFrame)
		}
		return true
	})
}

// Agents returns the live agents, one per reachable window.
func (s *AgentSet) Agents() []*Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	return out
}

func (s *AgentSet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, cancel := range s.cancels {
		cancel()
	}
	for _, a := range s.agents {
		a.Close()
	}
	s.agents = map[*dom.Window]*Agent{}
}
