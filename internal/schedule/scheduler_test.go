package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"webreplay/backend/internal/models"
	"webreplay/backend/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner records which records were executed.
type stubRunner struct {
	mu   sync.Mutex
	runs []string
}

func (s *stubRunner) Execute(ctx context.Context, rec models.AutomationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, rec.UID)
}

func (s *stubRunner) uids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.runs...)
}

func repeatingRecord(uid string) models.AutomationRecord {
	return models.AutomationRecord{
		UID:         uid,
		Name:        uid,
		AutoRun:     true,
		FrequencyMS: 3600_000,
	}
}

func TestScheduleIsIdempotent(t *testing.T) {
	s := NewScheduler(store.NewMemory(), &stubRunner{})
	rec := repeatingRecord("rec-1")

	require.NoError(t, s.Schedule(rec))
	first, ok := s.Entry(rec.UID)
	require.True(t, ok)

	require.NoError(t, s.Schedule(rec))
	second, ok := s.Entry(rec.UID)
	require.True(t, ok)

	assert.Len(t, s.Entries(), 1)
	assert.NotEqual(t, first, second, "rescheduling replaces the timer")
}

func TestScheduleWithoutRecurrenceIsNoop(t *testing.T) {
	s := NewScheduler(store.NewMemory(), &stubRunner{})
	rec := models.AutomationRecord{UID: "rec-1", AutoRun: true}

	require.NoError(t, s.Schedule(rec))
	assert.Empty(t, s.Entries())
}

func TestScheduleCronExpression(t *testing.T) {
	s := NewScheduler(store.NewMemory(), &stubRunner{})
	rec := models.AutomationRecord{UID: "rec-1", CronExpr: "0 0 3 * * *"}

	require.NoError(t, s.Schedule(rec))
	assert.Len(t, s.Entries(), 1)
}

func TestScheduleBadCronExpression(t *testing.T) {
	s := NewScheduler(store.NewMemory(), &stubRunner{})
	rec := models.AutomationRecord{UID: "rec-1", CronExpr: "not a schedule"}

	assert.Error(t, s.Schedule(rec))
	assert.Empty(t, s.Entries())
}

func TestUnscheduleIsIdempotent(t *testing.T) {
	s := NewScheduler(store.NewMemory(), &stubRunner{})
	require.NoError(t, s.Schedule(repeatingRecord("rec-1")))

	assert.True(t, s.Unschedule("rec-1"))
	assert.False(t, s.Unschedule("rec-1"))
	assert.False(t, s.Unschedule("never-existed"))
}

func TestStartSchedulesAutoRunRecords(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Save(ctx, repeatingRecord("rec-a")))

	manual := repeatingRecord("rec-b")
	manual.AutoRun = false
	require.NoError(t, st.Save(ctx, manual))

	s := NewScheduler(st, &stubRunner{})
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	entries := s.Entries()
	assert.Contains(t, entries, "rec-a")
	assert.NotContains(t, entries, "rec-b")
}

func TestRunOnceAfterSettleDelay(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	rec := models.AutomationRecord{UID: "rec-once", Name: "once", AutoRun: true}
	require.NoError(t, st.Save(ctx, rec))

	runner := &stubRunner{}
	s := NewScheduler(st, runner, WithSettleDelay(10*time.Millisecond))
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	require.Eventually(t, func() bool {
		return len(runner.uids()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"rec-once"}, runner.uids())

	// The one-shot entry removes itself after firing.
	require.Eventually(t, func() bool {
		_, ok := s.Entry("rec-once")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestReconcileRebuildsSchedule(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Save(ctx, repeatingRecord("rec-a")))
	require.NoError(t, st.Save(ctx, repeatingRecord("rec-b")))

	s := NewScheduler(st, &stubRunner{})
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.ElementsMatch(t, []string{"rec-a", "rec-b"}, keys(s.Entries()))
	bBefore, ok := s.Entry("rec-b")
	require.True(t, ok)

	// The change feed drives the rebuild: drop A, add C.
	require.NoError(t, st.Delete(ctx, "rec-a"))
	require.NoError(t, st.Save(ctx, repeatingRecord("rec-c")))

	assert.ElementsMatch(t, []string{"rec-b", "rec-c"}, keys(s.Entries()))

	// The full rebuild recreates even untouched timers, observable as a
	// fresh entry identity.
	bAfter, ok := s.Entry("rec-b")
	require.True(t, ok)
	assert.NotEqual(t, bBefore, bAfter)
}

func TestTickRespectsPauseFlags(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	rec := repeatingRecord("rec-a")
	require.NoError(t, st.Save(ctx, rec))

	runner := &stubRunner{}
	s := NewScheduler(st, runner)
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	s.PauseAll(true)
	s.tick("rec-a")
	assert.Empty(t, runner.uids(), "global pause suppresses execution")
	_, ok := s.Entry("rec-a")
	assert.True(t, ok, "pause leaves the timer installed")

	s.PauseAll(false)
	rec.Paused = true
	require.NoError(t, st.Save(ctx, rec))
	s.tick("rec-a")
	assert.Empty(t, runner.uids(), "record pause suppresses execution")

	rec.Paused = false
	require.NoError(t, st.Save(ctx, rec))
	s.tick("rec-a")
	assert.Equal(t, []string{"rec-a"}, runner.uids())
}

func TestRunNow(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Save(ctx, repeatingRecord("rec-a")))

	runner := &stubRunner{}
	s := NewScheduler(st, runner)
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	require.NoError(t, s.RunNow(ctx, "rec-a"))
	assert.Equal(t, []string{"rec-a"}, runner.uids())

	assert.Error(t, s.RunNow(ctx, "rec-unknown"))
}

func keys(m map[string]cron.EntryID) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
