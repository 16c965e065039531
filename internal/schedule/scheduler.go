// Package schedule turns persisted automation records into live timers
// and executes their actions against resolved targets.
package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"webreplay/backend/internal/models"
	"webreplay/backend/internal/store"

	"github.com/robfig/cron/v3"
)

// DefaultSettleDelay is how long a run-once record waits after load
// before executing, giving the page time to settle.
const DefaultSettleDelay = 3 * time.Second

// entry is the projection the scheduler keeps per record: a timer
// handle and nothing else. Record content always comes from the store
// snapshot.
type entry struct {
	cronID cron.EntryID
	timer  *time.Timer
}

// RecordRunner executes a record's actions. The in-process Executor
// implements it; so does the live browser replay path.
type RecordRunner interface {
	Execute(ctx context.Context, rec models.AutomationRecord)
}

type Scheduler struct {
	st          store.Store
	exec        RecordRunner
	cron        *cron.Cron
	settleDelay time.Duration
	allPaused   atomic.Bool

	mu      sync.RWMutex
	entries map[string]entry
	records store.Snapshot

	unsub func()
}

type SchedulerOption func(*Scheduler)

func WithSettleDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.settleDelay = d }
}

func NewScheduler(st store.Store, exec RecordRunner, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		st:          st,
		exec:        exec,
		cron:        cron.New(cron.WithSeconds()),
		settleDelay: DefaultSettleDelay,
		entries:     map[string]entry{},
		records:     store.Snapshot{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads all records, schedules the auto-run ones, subscribes to
// the change feed and starts the timer backend.
func (s *Scheduler) Start(ctx context.Context) error {
	snap, err := s.st.Load(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: load records: %w", err)
	}
	s.setRecords(snap)

	for _, rec := range snap {
		if !rec.AutoRun {
			continue
		}
		if hasSchedule(rec) {
			if err := s.Schedule(rec); err != nil {
				log.Printf("Failed to schedule record %s: %v", rec.UID, err)
			}
		} else {
			s.runOnce(rec)
		}
	}

	s.unsub = s.st.Subscribe(s.Reconcile)
	s.cron.Start()
	log.Printf("Scheduler started with %d records", len(snap))
	return nil
}

func (s *Scheduler) Stop() {
	if s.unsub != nil {
		s.unsub()
	}
	s.cron.Stop()
	s.mu.Lock()
	for uid := range s.entries {
		s.unscheduleLocked(uid)
	}
	s.mu.Unlock()
	log.Println("Scheduler stopped")
}

func hasSchedule(rec models.AutomationRecord) bool {
	return rec.FrequencyMS > 0 || rec.CronExpr != ""
}

// Schedule installs the timer for a record, unconditionally clearing
// any prior entry first so there is never more than one live timer per
// UID. Records without a frequency or cron expression are left alone.
func (s *Scheduler) Schedule(rec models.AutomationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unscheduleLocked(rec.UID)

	if !hasSchedule(rec) {
		return nil
	}
	spec := rec.CronExpr
	if spec == "" {
		spec = fmt.Sprintf("@every %dms", rec.FrequencyMS)
	}
	uid := rec.UID
	id, err := s.cron.AddFunc(spec, func() { s.tick(uid) })
	if err != nil {
		return fmt.Errorf("scheduler: bad schedule %q for %s: %w", spec, rec.UID, err)
	}
	s.entries[uid] = entry{cronID: id}
	log.Printf("Added schedule for record %s (entry %d): %s", uid, id, spec)
	return nil
}

// runOnce defers a single execution by the settle delay.
func (s *Scheduler) runOnce(rec models.AutomationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unscheduleLocked(rec.UID)
	uid := rec.UID
	t := time.AfterFunc(s.settleDelay, func() {
		s.mu.Lock()
		delete(s.entries, uid)
		s.mu.Unlock()
		s.tick(uid)
	})
	s.entries[uid] = entry{timer: t}
	log.Printf("Deferred one-shot run for record %s", uid)
}

// Unschedule clears the timer and registry entry for a UID. It is
// idempotent and reports whether anything was actually cancelled.
func (s *Scheduler) Unschedule(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unscheduleLocked(uid)
}

func (s *Scheduler) unscheduleLocked(uid string) bool {
	e, ok := s.entries[uid]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	if e.cronID != 0 {
		s.cron.Remove(e.cronID)
	}
	delete(s.entries, uid)
	return true
}

// Reconcile rebuilds the whole schedule from a change notification:
// every record in the old snapshot is unscheduled, every record in the
// new one rescheduled. A full rebuild re-installs timers for untouched
// records too; that is the accepted cost of never diffing wrong.
func (s *Scheduler) Reconcile(ch store.Change) {
	log.Printf("Reconciling schedule: %d -> %d records", len(ch.Old), len(ch.New))
	for uid := range ch.Old {
		s.Unschedule(uid)
	}
	s.setRecords(ch.New)
	for _, rec := range ch.New {
		if err := s.Schedule(rec); err != nil {
			log.Printf("Failed to reschedule record %s: %v", rec.UID, err)
		}
	}
}

// tick fires on every timer interval. Pausing, global or per record,
// suppresses the execution but leaves the timer ticking.
func (s *Scheduler) tick(uid string) {
	if s.allPaused.Load() {
		log.Printf("Skipping record %s: scheduler is paused", uid)
		return
	}
	s.mu.RLock()
	rec, ok := s.records[uid]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if rec.Paused {
		log.Printf("Skipping record %s: record is paused", uid)
		return
	}
	s.exec.Execute(context.Background(), rec)
}

// RunNow executes a record immediately, bypassing its schedule.
func (s *Scheduler) RunNow(ctx context.Context, uid string) error {
	s.mu.RLock()
	rec, ok := s.records[uid]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown record %s", uid)
	}
	s.exec.Execute(ctx, rec)
	return nil
}

func (s *Scheduler) PauseAll(paused bool) {
	s.allPaused.Store(paused)
	log.Printf("Scheduler pause flag set to %v", paused)
}

func (s *Scheduler) AllPaused() bool { return s.allPaused.Load() }

// Entry exposes the live timer handle for a UID; the zero handle and
// false mean no live timer.
func (s *Scheduler) Entry(uid string) (cron.EntryID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[uid]
	return e.cronID, ok
}

// Entries returns a copy of the live timer registry.
func (s *Scheduler) Entries() map[string]cron.EntryID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]cron.EntryID, len(s.entries))
	for uid, e := range s.entries {
		out[uid] = e.cronID
	}
	return out
}

func (s *Scheduler) setRecords(snap store.Snapshot) {
	s.mu.Lock()
	s.records = snap.Clone()
	s.mu.Unlock()
}
