package handlers

import (
	"log"
	"net/http"

	"webreplay/backend/internal/models"
	"webreplay/backend/internal/recorder"
	"webreplay/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func StartRecording(c *gin.Context) {
	var req struct {
		StartURL  string `json:"start_url" binding:"required,url"`
		Width     int    `json:"width" binding:"min=0"`
		Height    int    `json:"height" binding:"min=0"`
		UserAgent string `json:"user_agent"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sessionID := uuid.New().String()

	deviceInfo := recorder.DeviceInfo{
		Width:     req.Width,
		Height:    req.Height,
		UserAgent: req.UserAgent,
	}

	err := recorder.Manager.StartRecording(sessionID, req.StartURL, deviceInfo)
	if err != nil {
		response.InternalServerError(c, "failed to start recording: "+err.Error())
		return
	}

	response.SuccessWithMessage(c, "recording started", gin.H{
		"session_id": sessionID,
	})
}

func StopRecording(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := recorder.Manager.StopRecording(req.SessionID); err != nil {
		response.InternalServerError(c, "failed to stop recording: "+err.Error())
		return
	}

	response.SuccessWithMessage(c, "recording stopped", nil)
}

func GetRecordingStatus(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.BadRequest(c, "session_id is required")
		return
	}

	isRecording, actions, err := recorder.Manager.GetRecordingStatus(sessionID)
	if err != nil {
		response.NotFound(c, "recording session not found")
		return
	}

	response.Success(c, gin.H{
		"is_recording": isRecording,
		"actions":      actions,
	})
}

// SaveRecording turns a stopped session's captured actions into a
// persisted automation record.
func SaveRecording(c *gin.Context) {
	var req struct {
		SessionID   string `json:"session_id" binding:"required"`
		Name        string `json:"name" binding:"required,min=1,max=200"`
		StartURL    string `json:"start_url" binding:"required,url"`
		AutoRun     bool   `json:"auto_run"`
		FrequencyMS int64  `json:"frequency_ms" binding:"min=0"`
		CronExpr    string `json:"cron_expr" binding:"max=100"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	isRecording, actions, err := recorder.Manager.GetRecordingStatus(req.SessionID)
	if err != nil {
		response.NotFound(c, "recording session not found")
		return
	}

	if isRecording {
		response.BadRequest(c, "stop the recording before saving")
		return
	}

	if len(actions) == 0 {
		response.BadRequest(c, "no actions were recorded")
		return
	}

	rec := models.NewRecord(req.Name)
	rec.StartURL = req.StartURL
	rec.AutoRun = req.AutoRun
	rec.FrequencyMS = req.FrequencyMS
	rec.CronExpr = req.CronExpr
	if err := rec.SetActions(actions); err != nil {
		response.InternalServerError(c, "failed to serialize actions")
		return
	}
	if userID, exists := c.Get("user_id"); exists {
		rec.UserID = userID.(uint)
	}

	if err := recStore.Save(c.Request.Context(), rec); err != nil {
		response.InternalServerError(c, "failed to save record")
		return
	}

	recorder.Manager.CleanupRecording(req.SessionID)

	response.SuccessWithMessage(c, "record saved", rec)
}

func RecordingWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	// The session was created by an authenticated user; possession of
	// its id serves as authorization for the event stream.
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	chromeRecorder, exists := recorder.Manager.GetRecorder(sessionID)
	if !exists {
		conn.WriteJSON(gin.H{"error": "recording session not found"})
		return
	}

	chromeRecorder.SetWebSocketConnection(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("WebSocket read error: %v", err)
			break
		}
	}
}
