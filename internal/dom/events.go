package dom

// Event is a synthetic DOM event. Replayed events always set Bubbles
// and Cancelable, mirroring what a trusted user gesture would carry.
type Event struct {
	Type       string
	Target     *Node
	Bubbles    bool
	Cancelable bool

	// Keyboard
	Key string

	// Mouse
	ClientX float64
	ClientY float64

	// Modifier flags, shared by mouse and keyboard events.
	Alt   bool
	Ctrl  bool
	Meta  bool
	Shift bool

	stopped   bool
	prevented bool
}

func (e *Event) StopPropagation() { e.stopped = true }

func (e *Event) PreventDefault() {
	if e.Cancelable {
		e.prevented = true
	}
}

func (e *Event) DefaultPrevented() bool { return e.prevented }

type ListenerFunc func(*Event)

type listenerEntry struct {
	id int
	fn ListenerFunc
}

// AddEventListener registers fn for events of the given type dispatched
// to n or bubbling through it. The returned func removes the listener.
func (n *Node) AddEventListener(typ string, fn ListenerFunc) func() {
	if n.listeners == nil {
		n.listeners = map[string][]*listenerEntry{}
	}
	n.nextListenerID++
	entry := &listenerEntry{id: n.nextListenerID, fn: fn}
	n.listeners[typ] = append(n.listeners[typ], entry)
	return func() {
		entries := n.listeners[typ]
		for i, e := range entries {
			if e == entry {
				n.listeners[typ] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// DispatchEvent fires e at n and bubbles it along the ancestor chain,
// hopping from a shadow root to its host the way composed events do.
// It reports whether the default was not prevented.
func (n *Node) DispatchEvent(e *Event) bool {
	e.Target = n
	cur := n
	for cur != nil {
		cur.invoke(e)
		if e.stopped || !e.Bubbles {
			break
		}
		if cur.Parent != nil {
			cur = cur.Parent
			continue
		}
		if cur.containingShadow != nil && cur.containingShadow.Root == cur {
			cur = cur.containingShadow.Host
			continue
		}
		break
	}
	return !e.prevented
}

func (n *Node) invoke(e *Event) {
	entries := n.listeners[e.Type]
	// Copy: a listener may remove itself while running.
	snapshot := append([]*listenerEntry(nil), entries...)
	for _, entry := range snapshot {
		entry.fn(e)
		if e.stopped {
			return
		}
	}
}
