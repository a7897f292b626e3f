package services

import (
	"context"
	"errors"
	"strings"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
)

// ProjectService handles projects used for invoice display joins
type ProjectService struct {
	repo    repository.ProjectRepository
	clients *ClientService
	gate    *AccessGate
	audit   *AuditService
}

// NewProjectService creates a new project service
func NewProjectService(repo repository.ProjectRepository, clients *ClientService, gate *AccessGate, audit *AuditService) *ProjectService {
	return &ProjectService{repo: repo, clients: clients, gate: gate, audit: audit}
}

// CreateProjectInput is the payload for a new project
type CreateProjectInput struct {
	ClientID    uint   `json:"client_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=150"`
	Description string `json:"description" validate:"max=2000"`
}

// CreateProject creates a project for an existing client
func (s *ProjectService) CreateProject(ctx context.Context, in CreateProjectInput) (*models.Project, error) {
	if _, err := s.gate.Authorize(ctx, PermClientsWrite); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if _, err := s.clients.IsActive(ctx, in.ClientID); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, withFields(ErrValidation, map[string]string{"client_id": "client does not exist"})
		}
		return nil, err
	}

	project := &models.Project{
		ClientID:    in.ClientID,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, storageError("create project", err)
	}

	s.audit.Record(ctx, models.AuditActionCreate, models.AuditEntityProject, project.ID, project.Name)
	return s.GetProject(ctx, project.ID)
}

// GetProject returns one project with its client
func (s *ProjectService) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	if _, err := s.gate.Authorize(ctx, PermInvoicesRead); err != nil {
		return nil, err
	}
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(ErrProjectNotFound, "find project", err)
	}
	return project, nil
}

// ListProjects lists projects, optionally filtered by client
func (s *ProjectService) ListProjects(ctx context.Context, query *repository.ListQuery) ([]models.Project, int64, error) {
	if _, err := s.gate.Authorize(ctx, PermInvoicesRead); err != nil {
		return nil, 0, err
	}
	projects, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, 0, storageError("list projects", err)
	}
	return projects, total, nil
}
