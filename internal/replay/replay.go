// Package replay runs a saved automation record against a live Chrome
// session. Targets are resolved with the same deep query semantics the
// in-process engine uses: shadow roots and same-origin frames are
// searched, cross-origin frames are skipped.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"webreplay/backend/internal/models"
	"webreplay/backend/pkg/chrome"

	"github.com/chromedp/chromedp"
)

// ErrChromeUnavailable means no Chrome binary could be found; live
// replay is impossible without one.
var ErrChromeUnavailable = errors.New("chrome browser not found")

type Runner struct {
	headless bool
}

func NewRunner(headless bool) *Runner {
	return &Runner{headless: headless}
}

// Available reports whether a Chrome binary can be found.
func (r *Runner) Available() bool {
	return chrome.GetChromePath() != "" || chrome.GetFlatpakChromePath() != ""
}

// Run executes the record's actions in order in a fresh browser.
// Individual action failures are logged and skipped; only setup
// failures abort the run.
func (r *Runner) Run(ctx context.Context, rec models.AutomationRecord) error {
	actions, err := rec.GetActions()
	if err != nil {
		return fmt.Errorf("record %s has undecodable actions: %w", rec.UID, err)
	}

	chromePath := chrome.GetChromePath()
	if chromePath == "" {
		chromePath = chrome.GetFlatpakChromePath()
	}
	if chromePath == "" {
		return ErrChromeUnavailable
	}

	opts := chrome.AllocatorOptions(chromePath, r.headless, "")
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	runCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))
	defer cancel()

	err = chromedp.Run(runCtx,
		chromedp.Navigate(rec.StartURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(replayScript, nil),
	)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", rec.StartURL, err)
	}

	log.Printf("Replaying record %s (%d actions)", rec.UID, len(actions))
	for i, action := range actions {
		if err := r.runAction(runCtx, action); err != nil {
			log.Printf("Record %s action %d/%d (%s) failed: %v",
				rec.UID, i+1, len(actions), action.Kind(), err)
		}
		chromedp.Run(runCtx, chromedp.Sleep(200*time.Millisecond))
	}
	return nil
}

func (r *Runner) runAction(ctx context.Context, action models.Action) error {
	switch a := action.(type) {
	case models.MouseAction:
		return evalOp(ctx, "mouse", map[string]interface{}{
			"selector":   a.Selector,
			"text":       a.TextContent,
			"event_type": a.EventType,
			"x":          a.X,
			"y":          a.Y,
			"modifiers":  a.Modifiers,
		})
	case models.KeyboardAction:
		return evalOp(ctx, "keyboard", map[string]interface{}{
			"selector":  a.Selector,
			"text":      a.TextContent,
			"key":       a.Key,
			"modifiers": a.Modifiers,
		})
	case models.ScriptAction:
		return evalOp(ctx, "script", map[string]interface{}{
			"frame_href": a.FrameHref,
			"code":       a.CompiledCode,
		})
	default:
		return fmt.Errorf("unhandled action kind %q", action.Kind())
	}
}

type opResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func evalOp(ctx context.Context, op string, args map[string]interface{}) error {
	payload, err := json.Marshal(args)
	if err != nil {
		return err
	}
	var res opResult
	expr := fmt.Sprintf(`window.__replayRun.%s(%s)`, op, payload)
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
		return err
	}
	if !res.OK {
		return errors.New(res.Error)
	}
	return nil
}
