package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"webreplay/backend/internal/deepquery"
	"webreplay/backend/internal/dom"
	"webreplay/backend/internal/framelocator"
	"webreplay/backend/internal/messaging"
	"webreplay/backend/internal/models"
)

// ErrCapabilityUnavailable marks a script action that could not run
// because the injection capability is missing. It is surfaced to the
// user-facing layer rather than swallowed, since only a user can grant
// the capability.
var ErrCapabilityUnavailable = errors.New("script execution capability is not available")

// ScriptRunner executes pre-compiled code inside the page's own
// execution world for a resolved window. It must never run the code in
// a privileged context.
type ScriptRunner interface {
	Execute(ctx context.Context, win *dom.Window, compiled string) (json.RawMessage, error)
}

// RunnerFunc adapts a function to ScriptRunner.
type RunnerFunc func(ctx context.Context, win *dom.Window, compiled string) (json.RawMessage, error)

func (f RunnerFunc) Execute(ctx context.Context, win *dom.Window, compiled string) (json.RawMessage, error) {
	return f(ctx, win, compiled)
}

// UnavailableRunner is the runner used when no injection backend is
// wired; every script action fails softly with the capability error.
var UnavailableRunner = RunnerFunc(func(context.Context, *dom.Window, string) (json.RawMessage, error) {
	return nil, ErrCapabilityUnavailable
})

// Executor runs a record's actions in array order against targets
// resolved from its own window. Each action fails independently; one
// bad action never aborts the rest.
type Executor struct {
	win    *dom.Window
	client *messaging.Client
	runner ScriptRunner
}

func NewExecutor(bus *messaging.Bus, win *dom.Window, runner ScriptRunner) *Executor {
	if runner == nil {
		runner = UnavailableRunner
	}
	return &Executor{
		win:    win,
		client: messaging.NewClient(bus, win),
		runner: runner,
	}
}

func (e *Executor) Execute(ctx context.Context, rec models.AutomationRecord) {
	actions, err := rec.GetActions()
	if err != nil {
		log.Printf("Record %s has undecodable actions: %v", rec.UID, err)
		return
	}
	log.Printf("Executing record %s (%d actions)", rec.UID, len(actions))
	for i, action := range actions {
		if err := e.executeAction(ctx, action); err != nil {
			log.Printf("Record %s action %d/%d (%s) failed: %v",
				rec.UID, i+1, len(actions), action.Kind(), err)
		}
	}
}

func (e *Executor) executeAction(ctx context.Context, action models.Action) error {
	switch a := action.(type) {
	case models.MouseAction:
		return e.executeMouse(a)
	case models.KeyboardAction:
		return e.executeKeyboard(a)
	case models.ScriptAction:
		return e.executeScript(ctx, a)
	default:
		return fmt.Errorf("unhandled action kind %q", action.Kind())
	}
}

func (e *Executor) executeMouse(a models.MouseAction) error {
	target, err := e.resolveTarget(a.ActionMeta)
	if err != nil {
		return err
	}
	ev := &dom.Event{
		Type:       a.EventType,
		Bubbles:    true,
		Cancelable: true,
		ClientX:    a.X,
		ClientY:    a.Y,
		Alt:        a.Modifiers.Alt,
		Ctrl:       a.Modifiers.Ctrl,
		Meta:       a.Modifiers.Meta,
		Shift:      a.Modifiers.Shift,
	}
	target.DispatchEvent(ev)
	return nil
}

// executeKeyboard fires a paired keydown/keyup for every key token in
// sequence, carrying the recorded modifier flags on each event.
func (e *Executor) executeKeyboard(a models.KeyboardAction) error {
	target, err := e.resolveTarget(a.ActionMeta)
	if err != nil {
		return err
	}
	for _, token := range keyTokens(a.Key) {
		for _, typ := range []string{"keydown", "keyup"} {
			ev := &dom.Event{
				Type:       typ,
				Bubbles:    true,
				Cancelable: true,
				Key:        token,
				Alt:        a.Modifiers.Alt,
				Ctrl:       a.Modifiers.Ctrl,
				Meta:       a.Modifiers.Meta,
				Shift:      a.Modifiers.Shift,
			}
			target.DispatchEvent(ev)
		}
	}
	return nil
}

// resolveTarget locates the action's element. A single match wins
// outright; among several, the one whose text or title equals the
// recorded text content wins; otherwise the action is skipped with a
// warning, never an abort.
func (e *Executor) resolveTarget(meta models.ActionMeta) (*dom.Node, error) {
	matches, err := deepquery.QueryAll(e.win, meta.Selector)
	if err != nil {
		return nil, err
	}
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("selector %q: %w", meta.Selector, deepquery.ErrNotFound)
	case len(matches) == 1:
		return matches[0], nil
	}
	for _, m := range matches {
		if m.TextContent() == meta.TextContent || m.Attr("title") == meta.TextContent {
			return m, nil
		}
	}
	return nil, fmt.Errorf("selector %q matches %d elements, none with text %q: %w",
		meta.Selector, len(matches), meta.TextContent, deepquery.ErrNotFound)
}

// executeScript resolves the target frame through the messaging
// protocol (locate round trip, then chain resolution) and hands the
// pre-compiled code to the runner bound to the page world.
func (e *Executor) executeScript(ctx context.Context, a models.ScriptAction) error {
	win, err := e.locateFrame(ctx, a.FrameHref)
	if err != nil {
		return err
	}
	if _, err := e.runner.Execute(ctx, win, a.CompiledCode); err != nil {
		return fmt.Errorf("script %q in %s: %w", a.Name, win.Href, err)
	}
	return nil
}

func (e *Executor) locateFrame(ctx context.Context, frameHref string) (*dom.Window, error) {
	if frameHref == "" || frameHref == e.win.Href {
		return e.win, nil
	}
	payload, _ := json.Marshal(locatePayload{Href: frameHref})
	resps, err := e.client.Send(ctx, messaging.Request{
		Route:   RouteLocateFrame,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}
	for _, resp := range messaging.Flatten(resps) {
		if resp.Error != nil || len(resp.Payload) == 0 {
			continue
		}
		var found locateResult
		if err := json.Unmarshal(resp.Payload, &found); err != nil || !found.Matched {
			continue
		}
		if win := framelocator.Resolve(found.Chain, e.win.Top()); win != nil {
			return win, nil
		}
	}
	return nil, fmt.Errorf("frame %q: %w", frameHref, deepquery.ErrNotFound)
}

var specialKeys = map[string]bool{
	"Enter": true, "Tab": true, "Escape": true, "Backspace": true,
	"Delete": true, "Home": true, "End": true, "PageUp": true,
	"PageDown": true, "ArrowUp": true, "ArrowDown": true,
	"ArrowLeft": true, "ArrowRight": true, "Shift": true,
	"Control": true, "Alt": true, "Meta": true, " ": true,
}

// keyTokens splits a recorded key value into the tokens to replay: a
// named key stays whole, free text becomes one token per character.
func keyTokens(key string) []string {
	if key == "" {
		return nil
	}
	runes := []rune(key)
	if len(runes) == 1 || specialKeys[key] {
		return []string{key}
	}
	out := make([]string, 0, len(runes))
	for _, r := range runes {
		out = append(out, string(r))
	}
	return out
}
