package routes

import (
	"webreplay/backend/internal/api/handlers"
	"webreplay/backend/internal/api/middleware"
	"webreplay/backend/internal/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	// Global middleware
	router.Use(middleware.CORSMiddleware())
	router.Use(gin.Recovery())

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", handlers.HealthCheck)

		// WebSocket endpoint (session id carries authorization)
		v1.GET("/ws/recording", handlers.RecordingWebSocket)

		protected := v1.Group("")
		if cfg.Database.Enabled {
			// Accounts live in MySQL; without it the API runs open.
			auth := v1.Group("/auth")
			{
				auth.POST("/login", handlers.Login)
				auth.POST("/register", handlers.Register)
			}
			protected.Use(middleware.AuthMiddleware())

			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile)
				users.PUT("/profile", handlers.UpdateProfile)
				users.GET("", handlers.GetUsers)
				users.PUT("/:id/password", handlers.AdminChangePassword) // Admin only
			}
		}

		// Automation records
		records := protected.Group("/records")
		{
			records.GET("", handlers.GetRecords)
			records.POST("", handlers.CreateRecord)
			records.GET("/:uid", handlers.GetRecord)
			records.PUT("/:uid", handlers.UpdateRecord)
			records.DELETE("/:uid", handlers.DeleteRecord)
			records.POST("/:uid/run", handlers.RunRecord)
			records.POST("/:uid/pause", handlers.PauseRecord)
			records.POST("/:uid/resume", handlers.ResumeRecord)
		}

		// Scheduler control
		scheduler := protected.Group("/scheduler")
		{
			scheduler.GET("/status", handlers.GetSchedulerStatus)
			scheduler.POST("/pause", handlers.PauseScheduler)
			scheduler.POST("/resume", handlers.ResumeScheduler)
		}

		// Recording sessions
		recording := protected.Group("/recording")
		{
			recording.POST("/start", handlers.StartRecording)
			recording.POST("/stop", handlers.StopRecording)
			recording.GET("/status", handlers.GetRecordingStatus)
			recording.POST("/save", handlers.SaveRecording)
		}
	}

	return router
}
