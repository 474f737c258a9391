package cron

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/billifyhq/billify-backend/pkg/logger"
	"github.com/billifyhq/billify-backend/pkg/metrics"
)

const defaultInterval = 24 * time.Hour

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Metrics  *metrics.CronJobMetrics
}

// Service executes registered cron jobs, each on its own cadence, behind
// a per-job run lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	metrics  *metrics.CronJobMetrics
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		metrics:  params.Metrics,
	}, nil
}

// Run starts one loop per registered job until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	group, groupCtx := errgroup.WithContext(ctx)
	for _, entry := range s.registry.Entries() {
		entry := entry
		group.Go(func() error {
			return s.runLoop(groupCtx, entry)
		})
	}
	return group.Wait()
}

func (s *Service) runLoop(ctx context.Context, entry Entry) error {
	interval := entry.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	s.runCycle(ctx, entry)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			loopCtx := s.logg.WithField(ctx, "job", entry.Job.Name())
			s.logg.Info(loopCtx, "cron loop context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx, entry)
		}
	}
}

func (s *Service) runCycle(ctx context.Context, entry Entry) {
	jobCtx := s.logg.WithField(ctx, "job", entry.Job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")

	if entry.Lock != nil {
		locked, err := entry.Lock.Acquire(jobCtx)
		if err != nil {
			s.logg.Error(jobCtx, "lock acquire failed", err)
			s.recordFailure(entry.Job.Name())
			return
		}
		if !locked {
			s.logg.Info(jobCtx, "another instance is running this job; skipping cycle")
			return
		}
		defer func() {
			if relErr := entry.Lock.Release(jobCtx); relErr != nil {
				s.logg.Error(jobCtx, "failed to release job lock", relErr)
			}
		}()
	}

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := entry.Job.Run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(entry.Job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(entry.Job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.recordSuccess(entry.Job.Name())
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}
