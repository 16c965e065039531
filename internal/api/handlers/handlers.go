// Package handlers wires the HTTP surface to the record store, the
// scheduler and the live replay runner.
package handlers

import (
	"webreplay/backend/internal/config"
	"webreplay/backend/internal/replay"
	"webreplay/backend/internal/schedule"
	"webreplay/backend/internal/store"
)

var (
	cfg       *config.Config
	recStore  store.Store
	scheduler *schedule.Scheduler
	runner    *replay.Runner
)

// Init hands the handlers their collaborators. Must run before any
// route is served.
func Init(c *config.Config, st store.Store, sched *schedule.Scheduler, r *replay.Runner) {
	cfg = c
	recStore = st
	scheduler = sched
	runner = r
}
