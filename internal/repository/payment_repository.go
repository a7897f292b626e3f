package repository

import (
	"context"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentRepository defines the interface for payment data access.
// Payments are insert-only; Delete exists for administrative corrections.
type PaymentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id uint) error
	ListByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error)
	SumByInvoice(ctx context.Context, invoiceID uint) (decimal.Decimal, error)
	CountByInvoice(ctx context.Context, invoiceID uint) (int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Payment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

// SumByInvoice totals payment_amount for one invoice. The result is rounded
// to cents because some drivers hand back the aggregate as a float.
func (r *paymentRepository) SumByInvoice(ctx context.Context, invoiceID uint) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("SUM(payment_amount)").
		Where("invoice_id = ?", invoiceID).
		Row().
		Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(models.MoneyScale), nil
}

func (r *paymentRepository) CountByInvoice(ctx context.Context, invoiceID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("invoice_id = ?", invoiceID).
		Count(&count).Error
	return count, err
}
