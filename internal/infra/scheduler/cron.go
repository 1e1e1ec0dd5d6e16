package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/avelinov/trendwatch/internal/platform/logger"
)

// DigestRunner is implemented by the digest service.
type DigestRunner interface {
	RunDaily(ctx context.Context)
}

// Scheduler fires the daily digest on a cron expression.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
}

func New(spec string, runner DigestRunner, log *logger.Logger) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		log.Info("daily digest run starting")
		runner.RunDaily(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.log.Info("digest scheduler started")
	s.cron.Start()
}

// Stop waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("digest scheduler stopped")
}
