// Package recorder drives a live Chrome session that captures user
// interactions as replayable actions. The capture script runs inside
// the page and derives the same locators the replay side resolves.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"webreplay/backend/internal/models"
	"webreplay/backend/pkg/chrome"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/gorilla/websocket"
)

type DeviceInfo struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	UserAgent string `json:"user_agent"`
}

// CapturedEvent is the wire form the in-page script emits. It is
// converted to a typed action before anything else sees it.
type CapturedEvent struct {
	Kind        string           `json:"kind"` // mouse or keyboard
	EventType   string           `json:"event_type"`
	Selector    string           `json:"selector"`
	TextContent string           `json:"text_content"`
	FrameChain  []string         `json:"frame_chain"`
	Key         string           `json:"key"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	Modifiers   models.Modifiers `json:"modifiers"`
	Timestamp   int64            `json:"timestamp"`
}

// ToAction converts a captured event into its typed action.
func (e CapturedEvent) ToAction() (models.Action, error) {
	meta := models.ActionMeta{
		Selector:    e.Selector,
		TextContent: e.TextContent,
		FrameChain:  e.FrameChain,
		Timestamp:   e.Timestamp,
	}
	switch e.Kind {
	case "mouse":
		return models.MouseAction{
			ActionMeta: meta,
			EventType:  e.EventType,
			X:          e.X,
			Y:          e.Y,
			Modifiers:  e.Modifiers,
		}, nil
	case "keyboard":
		return models.KeyboardAction{
			ActionMeta: meta,
			EventType:  e.EventType,
			Key:        e.Key,
			Modifiers:  e.Modifiers,
		}, nil
	default:
		return nil, fmt.Errorf("unknown captured event kind %q", e.Kind)
	}
}

type ChromeRecorder struct {
	ctx         context.Context
	cancel      context.CancelFunc
	isRecording bool
	actions     models.ActionList
	mutex       sync.RWMutex
	wsConn      *websocket.Conn
	deviceInfo  DeviceInfo
	sessionID   string
}

type RecorderManager struct {
	recorders map[string]*ChromeRecorder
	mutex     sync.RWMutex
}

var Manager = &RecorderManager{
	recorders: make(map[string]*ChromeRecorder),
}

func NewChromeRecorder(sessionID string, device DeviceInfo) *ChromeRecorder {
	return &ChromeRecorder{
		actions:    make(models.ActionList, 0),
		deviceInfo: device,
		sessionID:  sessionID,
	}
}

func (r *ChromeRecorder) StartRecording(targetURL string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.isRecording {
		return fmt.Errorf("recording is already in progress")
	}

	chromePath := chrome.GetChromePath()
	if chromePath == "" {
		chromePath = chrome.GetFlatpakChromePath()
		if chromePath == "" {
			return fmt.Errorf("Chrome browser not found. Please install Google Chrome or Chromium")
		}
	}

	opts := chrome.AllocatorOptions(chromePath, false, r.deviceInfo.UserAgent)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	var ctxCancel context.CancelFunc
	r.ctx, ctxCancel = chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))
	r.cancel = func() {
		ctxCancel()
		allocCancel()
	}

	// The capture script dies with the document on navigation, so it is
	// re-injected after every load event.
	chromedp.ListenTarget(r.ctx, func(ev interface{}) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			go func() {
				if err := chromedp.Run(r.ctx, chromedp.Evaluate(captureScript, nil)); err != nil {
					log.Printf("Failed to reinject capture script: %v", err)
				}
			}()
		}
	})

	tasks := chromedp.Tasks{}
	if r.deviceInfo.Width > 0 && r.deviceInfo.Height > 0 {
		tasks = append(tasks, chromedp.EmulateViewport(int64(r.deviceInfo.Width), int64(r.deviceInfo.Height)))
	}
	tasks = append(tasks,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second), // let dynamic content settle
		chromedp.Evaluate(captureScript, nil),
	)

	if err := chromedp.Run(r.ctx, tasks); err != nil {
		r.cancel()
		return fmt.Errorf("failed to start recording: %w", err)
	}

	r.isRecording = true
	r.actions = make(models.ActionList, 0)

	go r.listenForEvents()

	return nil
}

func (r *ChromeRecorder) StopRecording() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isRecording {
		return fmt.Errorf("no recording in progress")
	}

	if r.cancel != nil {
		r.cancel()
	}

	r.isRecording = false
	return nil
}

func (r *ChromeRecorder) GetActions() models.ActionList {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return append(models.ActionList(nil), r.actions...)
}

func (r *ChromeRecorder) IsRecording() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.isRecording
}

// listenForEvents drains the in-page capture buffer on a short poll and
// mirrors new actions to the WebSocket listener, if any.
func (r *ChromeRecorder) listenForEvents() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if !r.IsRecording() {
				return
			}

			var events []CapturedEvent
			err := chromedp.Run(r.ctx,
				chromedp.Evaluate(`window.__replayCapture && window.__replayCapture.drain()`, &events),
			)
			if err != nil {
				log.Printf("Error getting events: %v", err)
				continue
			}
			if len(events) == 0 {
				continue
			}

			fresh := make(models.ActionList, 0, len(events))
			for _, ev := range events {
				action, err := ev.ToAction()
				if err != nil {
					log.Printf("Dropping captured event: %v", err)
					continue
				}
				fresh = append(fresh, action)
			}

			r.mutex.Lock()
			r.actions = append(r.actions, fresh...)
			ws := r.wsConn
			r.mutex.Unlock()

			if ws != nil {
				for _, action := range fresh {
					data, _ := json.Marshal(action)
					ws.WriteMessage(websocket.TextMessage, data)
				}
			}
		}
	}
}

func (r *ChromeRecorder) SetWebSocketConnection(conn *websocket.Conn) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.wsConn = conn
}

func (rm *RecorderManager) StartRecording(sessionID, targetURL string, device DeviceInfo) error {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	if _, exists := rm.recorders[sessionID]; exists {
		return fmt.Errorf("recording session %s already exists", sessionID)
	}

	recorder := NewChromeRecorder(sessionID, device)
	if err := recorder.StartRecording(targetURL); err != nil {
		return err
	}

	rm.recorders[sessionID] = recorder
	return nil
}

func (rm *RecorderManager) StopRecording(sessionID string) error {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	recorder, exists := rm.recorders[sessionID]
	if !exists {
		return fmt.Errorf("recording session %s not found", sessionID)
	}

	// Keep the session around for saving; cleanup happens after save.
	return recorder.StopRecording()
}

func (rm *RecorderManager) GetRecorder(sessionID string) (*ChromeRecorder, bool) {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	recorder, exists := rm.recorders[sessionID]
	return recorder, exists
}

func (rm *RecorderManager) GetRecordingStatus(sessionID string) (bool, models.ActionList, error) {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	recorder, exists := rm.recorders[sessionID]
	if !exists {
		return false, nil, fmt.Errorf("recording session %s not found", sessionID)
	}

	return recorder.IsRecording(), recorder.GetActions(), nil
}

func (rm *RecorderManager) CleanupRecording(sessionID string) error {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	delete(rm.recorders, sessionID)
	return nil
}
