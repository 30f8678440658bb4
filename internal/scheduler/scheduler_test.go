package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/service/autoentry"
)

type recordingRunner struct {
	mu    sync.Mutex
	dates []calendar.Date
	err   error
}

func (r *recordingRunner) Run(_ context.Context, today calendar.Date) (autoentry.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = append(r.dates, today)
	return autoentry.Result{Status: autoentry.StatusCreated, Date: today}, r.err
}

func TestRunDailyEntryUsesLocalDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	runner := &recordingRunner{}
	s := NewScheduler("30 0 * * *", runner, calendar.NewNormalizer(loc), nil)
	// 20:00 UTC on Jan 9 is already Jan 10 in IST.
	s.now = func() time.Time { return time.Date(2025, 1, 9, 20, 0, 0, 0, time.UTC) }

	s.runDailyEntry()

	if len(runner.dates) != 1 || runner.dates[0] != "2025-01-10" {
		t.Fatalf("runner dates = %v, want [2025-01-10]", runner.dates)
	}
}

func TestRunDailyEntrySwallowsErrors(t *testing.T) {
	runner := &recordingRunner{err: errors.New("store down")}
	s := NewScheduler("0 6 * * *", runner, calendar.NewNormalizer(time.UTC), nil)

	s.runDailyEntry()

	if len(runner.dates) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.dates))
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler("every morning", &recordingRunner{}, calendar.NewNormalizer(time.UTC), nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStartStop(t *testing.T) {
	s := NewScheduler("0 6 * * *", &recordingRunner{}, calendar.NewNormalizer(time.UTC), nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	s.Stop()
}
