package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classly-app/classly-api/pkg/jobs"
)

const jobTypeRecount = "recount_class"

type classEnumerator interface {
	ListAllIDs(ctx context.Context) ([]string, error)
}

type classRecounter interface {
	RecountClass(ctx context.Context, classID string) error
}

// ReconcilerConfig controls the counter reconciliation loop.
type ReconcilerConfig struct {
	SweepInterval time.Duration
	Workers       int
}

// ReconcilerService restores the denormalized enrollment counters from the
// enrollment rows. It runs per-class recount jobs through a worker queue and
// periodically sweeps every class, so counters drifted by partial failures
// converge without operator intervention.
type ReconcilerService struct {
	classes     classEnumerator
	enrollments classRecounter
	queue       *jobs.Queue
	interval    time.Duration
	metrics     *MetricsService
	logger      *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewReconcilerService(classes classEnumerator, enrollments classRecounter, cfg ReconcilerConfig, metrics *MetricsService, logger *zap.Logger) *ReconcilerService {
	s := &ReconcilerService{
		classes:     classes,
		enrollments: enrollments,
		interval:    cfg.SweepInterval,
		metrics:     metrics,
		logger:      logger,
	}
	if s.interval <= 0 {
		s.interval = 5 * time.Minute
	}
	s.queue = jobs.NewQueue("counter-reconciler", s.handle, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the queue workers and the sweep ticker.
func (s *ReconcilerService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.queue.Start(ctx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
	s.logger.Sugar().Infow("counter reconciler started", "interval", s.interval.String())
}

// Stop halts the sweep loop and drains the workers.
func (s *ReconcilerService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.queue.Stop()
}

// EnqueueRecount schedules an asynchronous recount for a single class.
// Used after a counter write is known to have gone through the fallback path.
func (s *ReconcilerService) EnqueueRecount(classID string) {
	job := jobs.Job{
		ID:      fmt.Sprintf("%s-%d", classID, time.Now().UnixNano()),
		Type:    jobTypeRecount,
		Payload: classID,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Sugar().Warnw("failed to enqueue recount", "class_id", classID, "error", err)
	}
}

// Sweep enqueues a recount job for every class.
func (s *ReconcilerService) Sweep(ctx context.Context) {
	ids, err := s.classes.ListAllIDs(ctx)
	if err != nil {
		s.logger.Sugar().Errorw("reconciler sweep failed to list classes", "error", err)
		return
	}
	for _, id := range ids {
		s.EnqueueRecount(id)
	}
	s.logger.Sugar().Debugw("reconciler sweep enqueued", "classes", len(ids))
}

func (s *ReconcilerService) handle(ctx context.Context, job jobs.Job) error {
	classID, ok := job.Payload.(string)
	if !ok {
		s.logger.Sugar().Errorw("recount job carries unexpected payload", "job_id", job.ID)
		return nil
	}
	if err := s.enrollments.RecountClass(ctx, classID); err != nil {
		return err
	}
	s.metrics.RecordRecount()
	return nil
}
