package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webreplay/backend/internal/api/handlers"
	"webreplay/backend/internal/api/routes"
	"webreplay/backend/internal/config"
	"webreplay/backend/internal/dom"
	"webreplay/backend/internal/messaging"
	"webreplay/backend/internal/models"
	"webreplay/backend/internal/replay"
	"webreplay/backend/internal/schedule"
	"webreplay/backend/internal/store"
	"webreplay/backend/pkg/auth"
	"webreplay/backend/pkg/database"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.JWT.Secret)

	// Initialize the record store
	var recStore store.Store
	if cfg.Database.Enabled {
		if err := database.InitDatabase(cfg); err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		recStore, err = store.NewGorm(database.DB)
		if err != nil {
			log.Fatal("Failed to initialize record store:", err)
		}
	} else {
		log.Println("Database disabled, using in-memory record store")
		recStore = store.NewMemory()
	}

	// Scheduled runs replay in a live browser when Chrome is present;
	// otherwise they run against the in-process engine, which cannot
	// reach real pages but keeps schedules and pause semantics live.
	runner := replay.NewRunner(cfg.Chrome.HeadlessMode)
	var recordRunner schedule.RecordRunner
	if runner.Available() {
		recordRunner = browserRunner{runner}
		log.Println("Chrome found, scheduled runs use live browser replay")
	} else {
		recordRunner = engineRunner()
		log.Println("Chrome not found, scheduled runs use the in-process engine")
	}

	scheduler := schedule.NewScheduler(recStore, recordRunner,
		schedule.WithSettleDelay(time.Duration(cfg.Scheduler.SettleDelayMS)*time.Millisecond))
	if err := scheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize router
	handlers.Init(cfg, recStore, scheduler, runner)
	router := routes.SetupRoutes(cfg)

	// Setup graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down server...")
		scheduler.Stop()
		log.Println("Server shutdown complete")
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// browserRunner adapts the replay runner to the scheduler.
type browserRunner struct {
	runner *replay.Runner
}

func (b browserRunner) Execute(ctx context.Context, rec models.AutomationRecord) {
	if err := b.runner.Run(ctx, rec); err != nil {
		log.Printf("Browser replay of %s failed: %v", rec.UID, err)
	}
}

// engineRunner builds the in-process fallback: a blank page with the
// cross-frame messaging stack installed.
func engineRunner() schedule.RecordRunner {
	doc, err := dom.ParseDocument("<html><head></head><body></body></html>")
	if err != nil {
		log.Fatal("Failed to build fallback document:", err)
	}
	win := dom.NewWindow("about:blank", doc)
	bus := messaging.NewBus()
	schedule.InstallAgents(bus, win)
	return schedule.NewExecutor(bus, win, nil)
}
