package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic storage maintenance.
type Scheduler struct {
	cron         *cron.Cron
	ctx          context.Context
	cancel       context.CancelFunc
	maintainFunc func(ctx context.Context) error
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetMaintenanceFunction sets the job to run on the daily schedule.
func (s *Scheduler) SetMaintenanceFunction(f func(ctx context.Context) error) {
	s.maintainFunc = f
}

// Start schedules daily maintenance at 03:00 UTC.
func (s *Scheduler) Start() error {
	if s.maintainFunc == nil {
		log.Println("maintenance function not set, scheduler will not run")
		return nil
	}

	_, err := s.cron.AddFunc("0 3 * * *", func() {
		log.Println("running daily storage maintenance")
		if err := s.maintainFunc(s.ctx); err != nil {
			log.Printf("storage maintenance failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	log.Println("scheduler started, daily maintenance at 03:00 UTC")
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
