package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/service/autoentry"
)

// Runner executes the daily auto-entry job for a given day.
type Runner interface {
	Run(ctx context.Context, today calendar.Date) (autoentry.Result, error)
}

// Scheduler triggers the auto-entry job in-process on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	runner     Runner
	normalizer calendar.Normalizer
	logger     *zap.Logger
	now        func() time.Time
}

// NewScheduler creates a scheduler evaluating schedule (standard 5-field cron)
// in the normalizer's location.
func NewScheduler(schedule string, runner Runner, normalizer calendar.Normalizer, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(normalizer.Location())),
		schedule:   schedule,
		runner:     runner,
		normalizer: normalizer,
		logger:     logger,
		now:        time.Now,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runDailyEntry); err != nil {
		return fmt.Errorf("schedule auto entry %q: %w", s.schedule, err)
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule), zap.String("location", s.normalizer.Location().String()))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailyEntry() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	today := s.normalizer.Today(s.now())
	result, err := s.runner.Run(ctx, today)
	if err != nil {
		s.logger.Error("scheduled auto entry failed", zap.String("date", string(today)), zap.Error(err))
		return
	}

	s.logger.Info("scheduled auto entry finished", zap.String("date", string(today)), zap.String("status", string(result.Status)))
}
