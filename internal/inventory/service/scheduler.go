package service

import (
	"context"
	"sync"
	"time"

	"github.com/maestranza/maestranza-backend/pkg/lock"
	"github.com/maestranza/maestranza-backend/pkg/logger"
)

// Job is a named periodic task
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type scheduledJob struct {
	job      Job
	interval time.Duration
}

// Scheduler runs jobs on fixed intervals. Each run takes a lease named
// after the job so only one replica sweeps at a time. When the lease
// backend fails the job runs without it.
type Scheduler struct {
	locker   lock.Locker
	leaseTTL time.Duration
	logger   *logger.Logger
	jobs     []scheduledJob
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(locker lock.Locker, leaseTTL time.Duration, log *logger.Logger) *Scheduler {
	if locker == nil {
		locker = lock.Local{}
	}
	return &Scheduler{
		locker:   locker,
		leaseTTL: leaseTTL,
		logger:   log.WithComponent("scheduler"),
	}
}

// Schedule registers a job. It must be called before Start.
func (s *Scheduler) Schedule(job Job, interval time.Duration) {
	if interval <= 0 {
		s.logger.Warn().Str("job", job.Name).Msg("job has no interval, not scheduled")
		return
	}
	s.jobs = append(s.jobs, scheduledJob{job: job, interval: interval})
}

// Start starts one goroutine per job. Each job runs immediately and then
// on its interval until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	for _, sj := range s.jobs {
		s.wg.Add(1)
		go func(sj scheduledJob) {
			defer s.wg.Done()
			s.logger.Info().Str("job", sj.job.Name).Dur("interval", sj.interval).Msg("scheduled job started")

			s.runOnce(ctx, sj.job)

			ticker := time.NewTicker(sj.interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					s.logger.Info().Str("job", sj.job.Name).Msg("scheduled job stopped")
					return
				case <-ticker.C:
					s.runOnce(ctx, sj.job)
				}
			}
		}(sj)
	}
}

// Stop stops all job goroutines and waits for running jobs to return
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// runOnce runs a job under its lease. Failures are logged, never retried
// within the cycle.
func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	release, acquired, err := s.locker.TryAcquire(ctx, "scheduler:"+job.Name, s.leaseTTL)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("job", job.Name).Msg("lease unavailable, running without it")
	case !acquired:
		s.logger.Debug().Str("job", job.Name).Msg("lease held elsewhere, skipping cycle")
		return
	default:
		defer release(context.WithoutCancel(ctx))
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error().Err(err).Str("job", job.Name).Dur("duration", time.Since(start)).Msg("scheduled job failed")
		return
	}
	s.logger.Info().Str("job", job.Name).Dur("duration", time.Since(start)).Msg("scheduled job completed")
}
