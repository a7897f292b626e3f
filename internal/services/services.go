package services

import (
	"context"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/config"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/jobs"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
)

// Services holds all service instances
type Services struct {
	Gate           *AccessGate
	Auth           *AuthService
	User           *UserService
	Client         *ClientService
	Project        *ProjectService
	Invoice        *InvoiceService
	Ledger         *LedgerService
	Reconciliation *ReconciliationService
	Statement      *StatementService
	Audit          *AuditService
	Job            *JobService

	repos *repository.Repositories
}

// NewServices creates all service instances. Every service shares one
// access gate so permission checks stay consistent.
func NewServices(repos *repository.Repositories, worker *jobs.Worker, cfg *config.Config) *Services {
	gate := NewAccessGate()
	auditSvc := NewAuditService(repos.Audit, gate, worker)
	clientSvc := NewClientService(repos.Client, gate, auditSvc)
	reconciliationSvc := NewReconciliationService(repos, gate, cfg.ReconcileBatchSize)

	return &Services{
		Gate:           gate,
		Auth:           NewAuthService(repos.User, repos.RefreshToken, cfg),
		User:           NewUserService(repos.User, gate, auditSvc),
		Client:         clientSvc,
		Project:        NewProjectService(repos.Project, clientSvc, gate, auditSvc),
		Invoice:        NewInvoiceService(repos, gate, auditSvc, clientSvc),
		Ledger:         NewLedgerService(repos, gate, auditSvc),
		Reconciliation: reconciliationSvc,
		Statement:      NewStatementService(repos, gate),
		Audit:          auditSvc,
		Job:            NewJobService(worker, reconciliationSvc, gate),
		repos:          repos,
	}
}

// Ping reports whether the database answers
func (s *Services) Ping(ctx context.Context) error {
	return s.repos.Ping(ctx)
}
