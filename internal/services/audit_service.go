package services

import (
	"context"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/jobs"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
	"github.com/nisalrtu/digibrand-cms-sub002/pkg/logger"
)

// AuditService keeps the append-only audit trail of ledger mutations
type AuditService struct {
	repo   repository.AuditRepository
	gate   *AccessGate
	worker *jobs.Worker
}

// NewAuditService creates a new audit service. A nil worker writes entries inline.
func NewAuditService(repo repository.AuditRepository, gate *AccessGate, worker *jobs.Worker) *AuditService {
	return &AuditService{repo: repo, gate: gate, worker: worker}
}

// Log records an audit entry for the actor in ctx
func (s *AuditService) Log(ctx context.Context, action, entity string, entityID uint, details string) error {
	actor, _ := models.ActorFromContext(ctx)
	return s.repo.Create(ctx, &models.AuditLog{
		UserID:    actor.UserID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})
}

// Record writes the entry in the background. Call it only after the
// transaction it describes has committed.
func (s *AuditService) Record(ctx context.Context, action, entity string, entityID uint, details string) {
	actor, _ := models.ActorFromContext(ctx)
	if s.worker == nil {
		if err := s.Log(ctx, action, entity, entityID, details); err != nil {
			logger.FromContext(ctx).Error("audit write failed", "action", action, "entity", entity, "entity_id", entityID, "error", err)
		}
		return
	}
	// The request context is cancelled once the response is written
	s.worker.EnqueueAsync(func(jobCtx context.Context) error {
		return s.Log(models.ContextWithActor(jobCtx, actor), action, entity, entityID, details)
	})
}

// List retrieves audit logs with filters
func (s *AuditService) List(ctx context.Context, query *repository.ListQuery) ([]models.AuditLog, int64, error) {
	if _, err := s.gate.Authorize(ctx, PermAuditsRead); err != nil {
		return nil, 0, err
	}
	logs, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, 0, storageError("list audit logs", err)
	}
	return logs, total, nil
}
