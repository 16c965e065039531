package models

import (
	"encoding/json"
	"fmt"
)

// Action is a closed sum over mouse, keyboard and script interactions.
// The kind tag fully determines which fields are meaningful; decoding
// an unknown kind is an error, not a silent passthrough.
type ActionKind string

const (
	KindMouse    ActionKind = "mouse"
	KindKeyboard ActionKind = "keyboard"
	KindScript   ActionKind = "script"
)

// ActionMeta is the metadata every variant carries. Timestamp is the
// creation time in milliseconds and doubles as a stable ordering key.
type ActionMeta struct {
	Selector    string   `json:"selector"`
	TextContent string   `json:"text_content,omitempty"`
	FrameChain  []string `json:"frame_chain,omitempty"`
	Timestamp   int64    `json:"timestamp"`
}

type Action interface {
	Kind() ActionKind
	Meta() ActionMeta
}

type Modifiers struct {
	Alt   bool `json:"alt,omitempty"`
	Ctrl  bool `json:"ctrl,omitempty"`
	Meta  bool `json:"meta,omitempty"`
	Shift bool `json:"shift,omitempty"`
}

type MouseAction struct {
	ActionMeta
	EventType string    `json:"event_type"` // click, dblclick, mousedown, mouseup, contextmenu
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Modifiers Modifiers `json:"modifiers"`
}

func (a MouseAction) Kind() ActionKind { return KindMouse }
func (a MouseAction) Meta() ActionMeta { return a.ActionMeta }

type KeyboardAction struct {
	ActionMeta
	EventType string    `json:"event_type"` // keydown, keyup
	Key       string    `json:"key"`
	Modifiers Modifiers `json:"modifiers"`
}

func (a KeyboardAction) Kind() ActionKind { return KindKeyboard }
func (a KeyboardAction) Meta() ActionMeta { return a.ActionMeta }

type ScriptAction struct {
	ActionMeta
	Name         string `json:"name"`
	Code         string `json:"code"`
	CompiledCode string `json:"compiled_code"`
	FrameHref    string `json:"frame_href"` // identity of the target frame
}

func (a ScriptAction) Kind() ActionKind { return KindScript }
func (a ScriptAction) Meta() ActionMeta { return a.ActionMeta }

// ActionList serializes a heterogeneous action sequence with a kind
// envelope per element.
type ActionList []Action

type actionEnvelope struct {
	Kind ActionKind      `json:"kind"`
	Body json.RawMessage `json:"body"`
}

func (l ActionList) MarshalJSON() ([]byte, error) {
	envs := make([]actionEnvelope, 0, len(l))
	for _, a := range l {
		body, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		envs = append(envs, actionEnvelope{Kind: a.Kind(), Body: body})
	}
	return json.Marshal(envs)
}

func (l *ActionList) UnmarshalJSON(data []byte) error {
	var envs []actionEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return err
	}
	out := make(ActionList, 0, len(envs))
	for _, env := range envs {
		switch env.Kind {
		case KindMouse:
			var a MouseAction
			if err := json.Unmarshal(env.Body, &a); err != nil {
				return err
			}
			out = append(out, a)
		case KindKeyboard:
			var a KeyboardAction
			if err := json.Unmarshal(env.Body, &a); err != nil {
				return err
			}
			out = append(out, a)
		case KindScript:
			var a ScriptAction
			if err := json.Unmarshal(env.Body, &a); err != nil {
				return err
			}
			out = append(out, a)
		default:
			return fmt.Errorf("unknown action kind %q", env.Kind)
		}
	}
	*l = out
	return nil
}

// ParseActionList decodes a serialized action sequence.
func ParseActionList(data []byte) (ActionList, error) {
	var l ActionList
	if err := l.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return l, nil
}
