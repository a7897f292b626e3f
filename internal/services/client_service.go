package services

import (
	"context"
	"strings"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
)

// ClientService handles the billable parties invoices refer to
type ClientService struct {
	repo  repository.ClientRepository
	gate  *AccessGate
	audit *AuditService
}

// NewClientService creates a new client service
func NewClientService(repo repository.ClientRepository, gate *AccessGate, audit *AuditService) *ClientService {
	return &ClientService{repo: repo, gate: gate, audit: audit}
}

// CreateClientInput is the payload for a new client
type CreateClientInput struct {
	CompanyName   string `json:"company_name" validate:"required,max=150" example:"Acme Traders"`
	ContactPerson string `json:"contact_person" validate:"max=100"`
	MobileNumber  string `json:"mobile_number" validate:"max=30"`
	Address       string `json:"address" validate:"max=500"`
	City          string `json:"city" validate:"max=100"`
}

// GetClient returns one client
func (s *ClientService) GetClient(ctx context.Context, id uint) (*models.Client, error) {
	if _, err := s.gate.Authorize(ctx, PermInvoicesRead); err != nil {
		return nil, err
	}
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(ErrClientNotFound, "find client", err)
	}
	return client, nil
}

// IsActive reports whether the client exists and is active
func (s *ClientService) IsActive(ctx context.Context, id uint) (bool, error) {
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, notFoundOr(ErrClientNotFound, "find client", err)
	}
	return client.IsActive, nil
}

// CreateClient creates an active client
func (s *ClientService) CreateClient(ctx context.Context, in CreateClientInput) (*models.Client, error) {
	if _, err := s.gate.Authorize(ctx, PermClientsWrite); err != nil {
		return nil, err
	}
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	client := &models.Client{
		CompanyName:   in.CompanyName,
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		MobileNumber:  strings.TrimSpace(in.MobileNumber),
		Address:       strings.TrimSpace(in.Address),
		City:          strings.TrimSpace(in.City),
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, storageError("create client", err)
	}

	s.audit.Record(ctx, models.AuditActionCreate, models.AuditEntityClient, client.ID, client.CompanyName)
	return client, nil
}

// DeactivateClient soft-deactivates a client. Existing invoices are untouched.
func (s *ClientService) DeactivateClient(ctx context.Context, id uint) (*models.Client, error) {
	if _, err := s.gate.Authorize(ctx, PermClientsWrite); err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return nil, notFoundOr(ErrClientNotFound, "deactivate client", err)
	}
	s.audit.Record(ctx, models.AuditActionDeactivate, models.AuditEntityClient, id, "")
	return s.GetClient(ctx, id)
}

// ListClients lists clients with search and pagination
func (s *ClientService) ListClients(ctx context.Context, query *repository.ListQuery) ([]models.Client, int64, error) {
	if _, err := s.gate.Authorize(ctx, PermInvoicesRead); err != nil {
		return nil, 0, err
	}
	clients, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, 0, storageError("list clients", err)
	}
	return clients, total, nil
}
