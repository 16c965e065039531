package handlers

import (
	"webreplay/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// GetSchedulerStatus reports the global pause flag and the live timer
// registry keyed by record UID.
func GetSchedulerStatus(c *gin.Context) {
	response.Success(c, gin.H{
		"all_paused": scheduler.AllPaused(),
		"entries":    scheduler.Entries(),
	})
}

func PauseScheduler(c *gin.Context) {
	scheduler.PauseAll(true)
	response.SuccessWithMessage(c, "scheduler paused", nil)
}

func ResumeScheduler(c *gin.Context) {
	scheduler.PauseAll(false)
	response.SuccessWithMessage(c, "scheduler resumed", nil)
}
