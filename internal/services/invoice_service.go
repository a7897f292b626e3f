package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
)

// InvoiceService handles invoice creation and lookups. Changes to money
// or status after creation go through LedgerService.
type InvoiceService struct {
	repos   *repository.Repositories
	gate    *AccessGate
	audit   *AuditService
	clients *ClientService
	now     func() time.Time
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(repos *repository.Repositories, gate *AccessGate, audit *AuditService, clients *ClientService) *InvoiceService {
	return &InvoiceService{
		repos:   repos,
		gate:    gate,
		audit:   audit,
		clients: clients,
		now:     time.Now,
	}
}

// CreateInvoiceInput is the payload for a new invoice
type CreateInvoiceInput struct {
	ClientID      uint             `json:"client_id" validate:"required" example:"1"`
	ProjectID     *uint            `json:"project_id"`
	InvoiceNumber string           `json:"invoice_number" validate:"required,max=50" example:"INV-2026-0001"`
	InvoiceDate   string           `json:"invoice_date" validate:"required,datetime=2006-01-02" example:"2026-03-01"`
	DueDate       string           `json:"due_date" validate:"required,datetime=2006-01-02" example:"2026-03-31"`
	TotalAmount   *decimal.Decimal `json:"total_amount" swaggertype:"string" example:"1000.00"`
	Notes         string           `json:"notes" validate:"max=1000"`
	Status        string           `json:"status" validate:"omitempty,oneof=draft sent" example:"sent"`
}

// CreateInvoice creates an invoice with paid_amount 0 and balance equal to the total
func (s *InvoiceService) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*models.Invoice, error) {
	actor, err := s.gate.Authorize(ctx, PermInvoicesWrite)
	if err != nil {
		return nil, err
	}

	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.TotalAmount == nil {
		return nil, withFields(ErrValidation, map[string]string{"total_amount": "is required"})
	}
	if err := validateTotal(*in.TotalAmount); err != nil {
		return nil, err
	}

	invoiceDate, _ := time.Parse(models.DateLayout, in.InvoiceDate)
	dueDate, _ := time.Parse(models.DateLayout, in.DueDate)
	if dueDate.Before(invoiceDate) {
		return nil, withFields(ErrValidation, map[string]string{"due_date": "must not be before invoice_date"})
	}

	active, err := s.clients.IsActive(ctx, in.ClientID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, withFields(ErrValidation, map[string]string{"client_id": "client does not exist"})
		}
		return nil, err
	}
	if !active {
		return nil, withFields(ErrValidation, map[string]string{"client_id": "client is inactive"})
	}

	if in.ProjectID != nil {
		if err := checkProject(ctx, s.repos.Project, *in.ProjectID, in.ClientID); err != nil {
			return nil, err
		}
		if *in.ProjectID == 0 {
			in.ProjectID = nil
		}
	}

	exists, err := s.repos.Invoice.ExistsByNumber(ctx, in.InvoiceNumber, 0)
	if err != nil {
		return nil, storageError("check invoice number", err)
	}
	if exists {
		return nil, withMessage(ErrDuplicateInvoiceNumber, "invoice number %s already exists", in.InvoiceNumber)
	}

	status := in.Status
	if status == "" {
		status = models.InvoiceStatusDraft
	}
	total := in.TotalAmount.Round(models.MoneyScale)

	invoice := &models.Invoice{
		GUID:          uuid.NewString(),
		ClientID:      in.ClientID,
		ProjectID:     in.ProjectID,
		InvoiceNumber: in.InvoiceNumber,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		TotalAmount:   total,
		PaidAmount:    decimal.Zero,
		BalanceAmount: total,
		Status:        models.DeriveStatus(status, total, decimal.Zero),
		Notes:         optionalString(in.Notes),
		CreatedBy:     actor.UserID,
	}

	if err := s.repos.Invoice.Create(ctx, invoice); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, withMessage(ErrDuplicateInvoiceNumber, "invoice number %s already exists", in.InvoiceNumber)
		}
		return nil, storageError("create invoice", err)
	}

	s.audit.Record(ctx, models.AuditActionCreate, models.AuditEntityInvoice, invoice.ID,
		fmt.Sprintf("invoice %s for %s", invoice.InvoiceNumber, models.FormatMoney(invoice.TotalAmount)))

	return s.GetInvoice(ctx, invoice.ID)
}

// GetInvoice returns the invoice with its client, project and payments
func (s *InvoiceService) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	if _, err := s.gate.Authorize(ctx, PermInvoicesRead); err != nil {
		return nil, err
	}
	invoice, err := s.repos.Invoice.FindWithPayments(ctx, id)
	if err != nil {
		return nil, notFoundOr(ErrInvoiceNotFound, "find invoice", err)
	}
	return invoice, nil
}

// ResolveInvoiceID accepts a numeric id or the invoice guid. The guid is a
// convenience handle only; permissions are checked on every operation.
func (s *InvoiceService) ResolveInvoiceID(ctx context.Context, ref string) (uint, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil && id > 0 {
		return uint(id), nil
	}
	if _, err := uuid.Parse(ref); err != nil {
		return 0, ErrInvoiceNotFound
	}
	if _, err := s.gate.Authorize(ctx, PermInvoicesRead); err != nil {
		return 0, err
	}
	invoice, err := s.repos.Invoice.FindByGUID(ctx, ref)
	if err != nil {
		return 0, notFoundOr(ErrInvoiceNotFound, "find invoice", err)
	}
	return invoice.ID, nil
}

var listableStatuses = map[string]bool{
	models.InvoiceStatusDraft:         true,
	models.InvoiceStatusSent:          true,
	models.InvoiceStatusPartiallyPaid: true,
	models.InvoiceStatusPaid:          true,
	models.InvoiceStatusCancelled:     true,
	models.InvoiceStatusOverdue:       true,
}

// ListInvoices lists invoices; the status filter uses the effective status
func (s *InvoiceService) ListInvoices(ctx context.Context, query *repository.InvoiceQuery) ([]models.Invoice, int64, error) {
	if _, err := s.gate.Authorize(ctx, PermInvoicesRead); err != nil {
		return nil, 0, err
	}
	if query.Status != "" && !listableStatuses[query.Status] {
		return nil, 0, withFields(ErrValidation, map[string]string{"status": "unknown status " + strconv.Quote(query.Status)})
	}
	query.AsOf = s.now()

	invoices, total, err := s.repos.Invoice.List(ctx, query)
	if err != nil {
		return nil, 0, storageError("list invoices", err)
	}
	return invoices, total, nil
}

// ListPayments returns the payments of one invoice, oldest first
func (s *InvoiceService) ListPayments(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	if _, err := s.gate.Authorize(ctx, PermPaymentsRead); err != nil {
		return nil, err
	}
	if _, err := s.repos.Invoice.FindByID(ctx, invoiceID); err != nil {
		return nil, notFoundOr(ErrInvoiceNotFound, "find invoice", err)
	}
	payments, err := s.repos.Payment.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, storageError("list payments", err)
	}
	return payments, nil
}

// Now is the clock used for read-time status evaluation
func (s *InvoiceService) Now() time.Time {
	return s.now()
}

func validateTotal(total decimal.Decimal) error {
	switch {
	case total.IsNegative():
		return withFields(ErrValidation, map[string]string{"total_amount": "must not be negative"})
	case !models.HasValidScale(total):
		return withFields(ErrInvalidAmount, map[string]string{"total_amount": "must have at most two decimal places"})
	case !models.InRange(total):
		return withFields(ErrInvalidAmount, map[string]string{"total_amount": "must be less than " + models.MaxAmount.String()})
	}
	return nil
}

// checkProject verifies the project exists and belongs to the client.
// Zero means no project.
func checkProject(ctx context.Context, repo repository.ProjectRepository, projectID, clientID uint) error {
	if projectID == 0 {
		return nil
	}
	project, err := repo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return withFields(ErrValidation, map[string]string{"project_id": "project does not exist"})
		}
		return storageError("find project", err)
	}
	if project.ClientID != clientID {
		return withFields(ErrValidation, map[string]string{"project_id": "project belongs to another client"})
	}
	return nil
}
