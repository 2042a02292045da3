package schedulersvc

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/wordwise/backend/core"
)

// LevelSweeper re-evaluates the level of every student and returns the number of promotions.
type LevelSweeper interface {
	SweepLevels(ctx context.Context) (int, error)
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweeper   LevelSweeper
	logger    core.Logger
	timeout   time.Duration
}

func New(sweeper LevelSweeper, logger core.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{scheduler: s, sweeper: sweeper, logger: logger, timeout: 10 * time.Minute}
}

// Start schedules the level sweep every interval and starts the scheduler without blocking.
func (s *Scheduler) Start(interval time.Duration) error {
	if _, err := s.scheduler.Every(interval).WaitForSchedule().Do(s.sweepLevels); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) sweepLevels() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.sweeper.SweepLevels(ctx)
	if err != nil {
		s.logger.Error("sweeping levels", err)
		return
	}
	s.logger.Info("levels swept", map[string]interface{}{"promoted": n})
}
