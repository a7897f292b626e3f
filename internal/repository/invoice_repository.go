package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceRepository defines the interface for invoice data access
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Invoice, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Invoice, error)
	FindByGUID(ctx context.Context, guid string) (*models.Invoice, error)
	FindWithPayments(ctx context.Context, id uint) (*models.Invoice, error)
	ExistsByNumber(ctx context.Context, number string, excludeID uint) (bool, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	UpdateDetails(ctx context.Context, invoice *models.Invoice) error
	UpdateDerived(ctx context.Context, invoice *models.Invoice) error
	MarkCancelled(ctx context.Context, invoice *models.Invoice) error
	List(ctx context.Context, query *InvoiceQuery) ([]models.Invoice, int64, error)
	ListAfterID(ctx context.Context, afterID uint, limit int) ([]models.Invoice, error)
}

// InvoiceQuery extends ListQuery with invoice-specific filters
type InvoiceQuery struct {
	*ListQuery
	ClientID  uint
	ProjectID uint
	// Status accepts any stored status plus the read-time "overdue"
	Status string
	AsOf   time.Time
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Project").
		First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForUpdate reads the invoice row holding a write lock until the
// surrounding transaction ends. Must be called inside Transaction.
func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByGUID(ctx context.Context, guid string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Project").
		Where("guid = ?", guid).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindWithPayments(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Project").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("payment_date ASC, id ASC")
		}).
		First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) ExistsByNumber(ctx context.Context, number string, excludeID uint) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("invoice_number = ?", number)
	if excludeID != 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error; err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("invoice %s: %w", invoice.InvoiceNumber, ErrDuplicateKey)
		}
		return err
	}
	return nil
}

// UpdateDetails writes the user-editable columns. Derived money columns
// are left to UpdateDerived.
func (r *invoiceRepository) UpdateDetails(ctx context.Context, invoice *models.Invoice) error {
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]interface{}{
			"invoice_number": invoice.InvoiceNumber,
			"invoice_date":   invoice.InvoiceDate,
			"due_date":       invoice.DueDate,
			"project_id":     invoice.ProjectID,
			"total_amount":   invoice.TotalAmount,
			"notes":          invoice.Notes,
			"updated_at":     invoice.UpdatedAt,
		}).Error
	if err != nil && isDuplicateKeyError(err) {
		return fmt.Errorf("invoice %s: %w", invoice.InvoiceNumber, ErrDuplicateKey)
	}
	return err
}

// UpdateDerived persists paid_amount, balance_amount and status
func (r *invoiceRepository) UpdateDerived(ctx context.Context, invoice *models.Invoice) error {
	res := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]interface{}{
			"paid_amount":    invoice.PaidAmount,
			"balance_amount": invoice.BalanceAmount,
			"status":         invoice.Status,
			"updated_at":     invoice.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepository) MarkCancelled(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]interface{}{
			"status":        invoice.Status,
			"cancelled_at":  invoice.CancelledAt,
			"cancelled_by":  invoice.CancelledBy,
			"cancel_reason": invoice.CancelReason,
			"updated_at":    invoice.UpdatedAt,
		}).Error
}

var invoiceSortColumns = map[string]bool{
	"invoice_number": true,
	"invoice_date":   true,
	"due_date":       true,
	"total_amount":   true,
	"balance_amount": true,
	"created_at":     true,
}

func (r *invoiceRepository) List(ctx context.Context, query *InvoiceQuery) ([]models.Invoice, int64, error) {
	var invoices []models.Invoice
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Invoice{})

	if query.Search != "" {
		db = db.Where("LOWER(invoice_number) LIKE LOWER(?)", likePattern(query.Search))
	}
	if query.ClientID != 0 {
		db = db.Where("client_id = ?", query.ClientID)
	}
	if query.ProjectID != 0 {
		db = db.Where("project_id = ?", query.ProjectID)
	}
	if query.Status != "" {
		db = applyStatusFilter(db, query.Status, models.CivilDate(query.AsOf))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(db, query.ListQuery, invoiceSortColumns, "invoice_date DESC, id DESC").
		Preload("Client").
		Preload("Project").
		Find(&invoices).Error
	return invoices, total, err
}

// applyStatusFilter filters on the effective status as of today, so a sent
// invoice past its due date is listed under overdue and not under sent.
func applyStatusFilter(db *gorm.DB, status string, today time.Time) *gorm.DB {
	open := []string{models.InvoiceStatusSent, models.InvoiceStatusPartiallyPaid}
	switch status {
	case models.InvoiceStatusOverdue:
		return db.Where("status IN ? AND balance_amount > 0 AND due_date < ?", open, today)
	case models.InvoiceStatusSent, models.InvoiceStatusPartiallyPaid:
		return db.Where("status = ? AND NOT (balance_amount > 0 AND due_date < ?)", status, today)
	default:
		return db.Where("status = ?", status)
	}
}

// ListAfterID pages through all invoices by primary key
func (r *invoiceRepository) ListAfterID(ctx context.Context, afterID uint, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}
