package scheduler

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

var ErrEmptyJobName = errors.New("job name is required")

// Scheduler wraps a gocron scheduler for the app's background jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	stopOnce  sync.Once
	stopErr   error
}

func New(logger *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithError(func(jobID uuid.UUID, jobName string, err error) {
					logger.Error("scheduler job failed",
						slog.String("job_id", jobID.String()),
						slog.String("job_name", jobName),
						slog.Any("error", err))
				}),
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					logger.Error("scheduler job panicked",
						slog.String("job_id", jobID.String()),
						slog.String("job_name", jobName),
						slog.Any("panic", recoverData))
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Scheduler{scheduler: sched, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("scheduler starting")
	s.scheduler.Start()
}

// Stop shuts down the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// AddIntervalJob registers a job that runs every interval, starting
// immediately.
func (s *Scheduler) AddIntervalJob(name string, interval time.Duration, task func() error) (gocron.Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, err
	}
	s.logger.Info("scheduler job registered",
		slog.String("job_name", name), slog.Duration("interval", interval))
	return job, nil
}
