package handlers

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strconv"

	"webreplay/backend/internal/models"
	"webreplay/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RecordRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	StartURL    string          `json:"start_url" binding:"required,url"`
	Actions     json.RawMessage `json:"actions"`
	AutoRun     bool            `json:"auto_run"`
	FrequencyMS int64           `json:"frequency_ms" binding:"min=0"`
	CronExpr    string          `json:"cron_expr" binding:"max=100"`
	Paused      bool            `json:"paused"`
}

func GetRecords(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}

	snap, err := recStore.Load(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, "failed to load records")
		return
	}

	records := make([]models.AutomationRecord, 0, len(snap))
	for _, rec := range snap {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreateTimestamp > records[j].CreateTimestamp
	})

	total := int64(len(records))
	start := (page - 1) * pageSize
	if start > len(records) {
		start = len(records)
	}
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}

	response.Page(c, records[start:end], total, page, pageSize)
}

func GetRecord(c *gin.Context) {
	snap, err := recStore.Load(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, "failed to load records")
		return
	}
	rec, ok := snap[c.Param("uid")]
	if !ok {
		response.NotFound(c, "record not found")
		return
	}
	response.Success(c, rec)
}

func CreateRecord(c *gin.Context) {
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rec := models.NewRecord(req.Name)
	if err := applyRequest(&rec, req); err != nil {
		response.BadRequest(c, "invalid actions: "+err.Error())
		return
	}
	if userID, exists := c.Get("user_id"); exists {
		rec.UserID = userID.(uint)
	}

	if err := recStore.Save(c.Request.Context(), rec); err != nil {
		response.InternalServerError(c, "failed to save record")
		return
	}

	response.SuccessWithMessage(c, "record created", rec)
}

func UpdateRecord(c *gin.Context) {
	snap, err := recStore.Load(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, "failed to load records")
		return
	}
	rec, ok := snap[c.Param("uid")]
	if !ok {
		response.NotFound(c, "record not found")
		return
	}

	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := applyRequest(&rec, req); err != nil {
		response.BadRequest(c, "invalid actions: "+err.Error())
		return
	}

	if err := recStore.Save(c.Request.Context(), rec); err != nil {
		response.InternalServerError(c, "failed to save record")
		return
	}

	response.SuccessWithMessage(c, "record updated", rec)
}

func DeleteRecord(c *gin.Context) {
	uid := c.Param("uid")
	snap, err := recStore.Load(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, "failed to load records")
		return
	}
	if _, ok := snap[uid]; !ok {
		response.NotFound(c, "record not found")
		return
	}

	if err := recStore.Delete(c.Request.Context(), uid); err != nil {
		response.InternalServerError(c, "failed to delete record")
		return
	}

	response.SuccessWithMessage(c, "record deleted", nil)
}

// RunRecord triggers an immediate execution. mode=browser replays in a
// live Chrome session; the default runs against the in-process engine.
func RunRecord(c *gin.Context) {
	uid := c.Param("uid")

	if c.DefaultQuery("mode", "engine") == "browser" {
		snap, err := recStore.Load(c.Request.Context())
		if err != nil {
			response.InternalServerError(c, "failed to load records")
			return
		}
		rec, ok := snap[uid]
		if !ok {
			response.NotFound(c, "record not found")
			return
		}
		if !runner.Available() {
			response.InternalServerError(c, "chrome browser not found")
			return
		}
		go func() {
			if err := runner.Run(context.Background(), rec); err != nil {
				log.Printf("Browser replay of %s failed: %v", uid, err)
			}
		}()
		response.SuccessWithMessage(c, "browser replay started", nil)
		return
	}

	if err := scheduler.RunNow(c.Request.Context(), uid); err != nil {
		response.NotFound(c, "record not found")
		return
	}
	response.SuccessWithMessage(c, "record executed", nil)
}

func PauseRecord(c *gin.Context) {
	setPaused(c, true)
}

func ResumeRecord(c *gin.Context) {
	setPaused(c, false)
}

func setPaused(c *gin.Context, paused bool) {
	snap, err := recStore.Load(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, "failed to load records")
		return
	}
	rec, ok := snap[c.Param("uid")]
	if !ok {
		response.NotFound(c, "record not found")
		return
	}

	rec.Paused = paused
	if err := recStore.Save(c.Request.Context(), rec); err != nil {
		response.InternalServerError(c, "failed to save record")
		return
	}

	msg := "record resumed"
	if paused {
		msg = "record paused"
	}
	response.SuccessWithMessage(c, msg, rec)
}

func applyRequest(rec *models.AutomationRecord, req RecordRequest) error {
	if len(req.Actions) > 0 {
		actions, err := models.ParseActionList(req.Actions)
		if err != nil {
			return err
		}
		if err := rec.SetActions(actions); err != nil {
			return err
		}
	}
	rec.Name = req.Name
	rec.StartURL = req.StartURL
	rec.AutoRun = req.AutoRun
	rec.FrequencyMS = req.FrequencyMS
	rec.CronExpr = req.CronExpr
	rec.Paused = req.Paused
	return nil
}
