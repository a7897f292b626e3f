package services

import (
	"context"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/jobs"
	"github.com/nisalrtu/digibrand-cms-sub002/pkg/logger"
)

// JobService exposes the background worker to administrators
type JobService struct {
	worker         *jobs.Worker
	reconciliation *ReconciliationService
	gate           *AccessGate
}

func NewJobService(worker *jobs.Worker, reconciliation *ReconciliationService, gate *AccessGate) *JobService {
	return &JobService{
		worker:         worker,
		reconciliation: reconciliation,
		gate:           gate,
	}
}

// GetStatus returns the worker counters. Without a worker every counter is zero.
func (s *JobService) GetStatus(ctx context.Context) (jobs.WorkerStats, error) {
	if _, err := s.gate.Authorize(ctx, PermJobsManage); err != nil {
		return jobs.WorkerStats{}, err
	}
	if s.worker == nil {
		return jobs.WorkerStats{}, nil
	}
	return s.worker.GetStats(), nil
}

// TriggerReconciliation starts an out-of-schedule sweep. With a worker the
// sweep is queued and the summary is nil; otherwise it runs on the caller.
func (s *JobService) TriggerReconciliation(ctx context.Context) (*SweepSummary, error) {
	actor, err := s.gate.Authorize(ctx, PermJobsManage)
	if err != nil {
		return nil, err
	}
	if s.worker == nil {
		return s.reconciliation.Sweep(ctx)
	}

	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		summary, err := s.reconciliation.Sweep(jobCtx)
		if err != nil {
			return err
		}
		logger.Info("[Job] Manual reconciliation finished",
			"requested_by", actor.UserID,
			"checked", summary.Checked,
			"drifted", summary.Drifted,
		)
		return nil
	})
	return nil, nil
}
