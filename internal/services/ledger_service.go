package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/statemachine"
	"github.com/nisalrtu/digibrand-cms-sub002/pkg/logger"
)

// LedgerService is the only writer of an invoice's paid_amount,
// balance_amount and status. Every mutation locks the invoice row and
// runs in a single transaction.
type LedgerService struct {
	repos *repository.Repositories
	gate  *AccessGate
	audit *AuditService
	now   func() time.Time
}

// NewLedgerService creates a new ledger service
func NewLedgerService(repos *repository.Repositories, gate *AccessGate, audit *AuditService) *LedgerService {
	return &LedgerService{
		repos: repos,
		gate:  gate,
		audit: audit,
		now:   time.Now,
	}
}

// RecordPaymentInput is the unvalidated payment payload
type RecordPaymentInput struct {
	Amount    *decimal.Decimal `json:"amount" swaggertype:"string" example:"400.00"`
	Date      string           `json:"date" validate:"omitempty,datetime=2006-01-02" example:"2026-03-01"`
	Method    string           `json:"method" validate:"required,payment_method" example:"bank_transfer"`
	Reference string           `json:"reference" validate:"max=100"`
	Notes     string           `json:"notes" validate:"max=1000"`
}

// RecordPaymentRequest is a payment that passed validation
type RecordPaymentRequest struct {
	Amount    decimal.Decimal
	Date      time.Time
	Method    string
	Reference *string
	Notes     *string
}

// NewRecordPaymentRequest validates in against the server clock. A missing
// date means today; a date after today is rejected.
func NewRecordPaymentRequest(in RecordPaymentInput, now time.Time) (*RecordPaymentRequest, error) {
	fields := ValidationFields(validate.Struct(in))
	if fields == nil {
		fields = map[string]string{}
	}

	amountOK := true
	switch {
	case in.Amount == nil:
		fields["amount"] = "is required"
		amountOK = false
	case in.Amount.Sign() <= 0:
		fields["amount"] = "must be greater than zero"
		amountOK = false
	case !models.HasValidScale(*in.Amount):
		fields["amount"] = "must have at most two decimal places"
		amountOK = false
	case !models.InRange(*in.Amount):
		fields["amount"] = "must be less than " + models.MaxAmount.String()
		amountOK = false
	}

	today := models.CivilDate(now)
	date := today
	if _, bad := fields["date"]; !bad && in.Date != "" {
		parsed, err := time.Parse(models.DateLayout, in.Date)
		if err != nil {
			fields["date"] = "must be a date in YYYY-MM-DD format"
		} else if parsed.After(today) {
			fields["date"] = "must not be in the future"
		} else {
			date = parsed
		}
	}

	if len(fields) > 0 {
		switch {
		case !amountOK:
			return nil, withFields(ErrInvalidAmount, fields)
		case fields["method"] != "":
			return nil, withFields(ErrInvalidMethod, fields)
		case fields["date"] != "":
			return nil, withFields(ErrInvalidDate, fields)
		}
		return nil, withFields(ErrValidation, fields)
	}

	return &RecordPaymentRequest{
		Amount:    in.Amount.Round(models.MoneyScale),
		Date:      date,
		Method:    in.Method,
		Reference: optionalString(in.Reference),
		Notes:     optionalString(in.Notes),
	}, nil
}

// RecordPaymentResult is the recomputed invoice and the new payment
type RecordPaymentResult struct {
	Invoice   *models.Invoice
	PaymentID uint
	Payment   *models.Payment
}

// RecordPayment validates the payment against the live, locked balance,
// inserts it and recomputes the invoice in one transaction.
func (s *LedgerService) RecordPayment(ctx context.Context, invoiceID uint, in RecordPaymentInput) (*RecordPaymentResult, error) {
	actor, err := s.gate.Authorize(ctx, PermRecordPayment)
	if err != nil {
		return nil, err
	}

	req, err := NewRecordPaymentRequest(in, s.now())
	if err != nil {
		return nil, err
	}

	var result RecordPaymentResult
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		invoice, err := tx.Invoice.FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return notFoundOr(ErrInvoiceNotFound, "lock invoice", err)
		}

		switch {
		case invoice.IsCancelled():
			return ErrInvoiceCancelled
		case invoice.IsPaid() || invoice.BalanceAmount.Sign() <= 0:
			return ErrInvoiceAlreadyPaid
		case req.Amount.GreaterThan(invoice.BalanceAmount):
			return withMessage(ErrAmountExceedsBalance, "amount %s exceeds the outstanding balance %s",
				models.FormatMoney(req.Amount), models.FormatMoney(invoice.BalanceAmount))
		}

		payment := &models.Payment{
			GUID:             uuid.NewString(),
			InvoiceID:        invoice.ID,
			PaymentAmount:    req.Amount,
			PaymentDate:      req.Date,
			PaymentMethod:    req.Method,
			PaymentReference: req.Reference,
			Notes:            req.Notes,
			CreatedBy:        actor.UserID,
		}
		if err := tx.Payment.Create(ctx, payment); err != nil {
			return storageError("insert payment", err)
		}

		if err := s.applyPaidAmount(ctx, tx, invoice, invoice.PaidAmount.Add(req.Amount)); err != nil {
			return err
		}

		result = RecordPaymentResult{Invoice: invoice, PaymentID: payment.ID, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, s.failed(ctx, "record payment", invoiceID, err)
	}

	logger.FromContext(ctx).Info("payment recorded",
		"invoice_id", invoiceID,
		"payment_id", result.PaymentID,
		"amount", models.FormatMoney(req.Amount),
		"status", result.Invoice.Status,
		"user_id", actor.UserID,
	)
	s.audit.Record(ctx, models.AuditActionRecordPayment, models.AuditEntityPayment, result.PaymentID,
		fmt.Sprintf("payment of %s (%s) on invoice %s; balance now %s",
			models.FormatMoney(req.Amount), req.Method, result.Invoice.InvoiceNumber,
			models.FormatMoney(result.Invoice.BalanceAmount)))

	return &result, nil
}

// GetOutstandingBalance returns the persisted balance. It never sums payments.
func (s *LedgerService) GetOutstandingBalance(ctx context.Context, invoiceID uint) (*models.BalanceResponse, error) {
	if _, err := s.gate.Authorize(ctx, PermInvoicesRead); err != nil {
		return nil, err
	}

	invoice, err := s.repos.Invoice.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, notFoundOr(ErrInvoiceNotFound, "find invoice", err)
	}

	balance := invoice.ToBalanceResponse(s.now())
	return &balance, nil
}

// DeletePayment removes a mistaken payment and recomputes the invoice from
// the payments that remain.
func (s *LedgerService) DeletePayment(ctx context.Context, paymentID uint, reason string) (*models.Invoice, error) {
	if _, err := s.gate.Authorize(ctx, PermDeletePayment); err != nil {
		return nil, err
	}

	var (
		invoice *models.Invoice
		payment *models.Payment
	)
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		payment, err = tx.Payment.FindByID(ctx, paymentID)
		if err != nil {
			return notFoundOr(ErrPaymentNotFound, "find payment", err)
		}

		invoice, err = tx.Invoice.FindByIDForUpdate(ctx, payment.InvoiceID)
		if err != nil {
			return notFoundOr(ErrInvoiceNotFound, "lock invoice", err)
		}
		if invoice.IsCancelled() {
			return ErrInvoiceCancelled
		}

		if err := tx.Payment.Delete(ctx, payment.ID); err != nil {
			return notFoundOr(ErrPaymentNotFound, "delete payment", err)
		}

		return s.recompute(ctx, tx, invoice)
	})
	if err != nil {
		return nil, s.failed(ctx, "delete payment", 0, err)
	}

	details := fmt.Sprintf("payment of %s removed from invoice %s", models.FormatMoney(payment.PaymentAmount), invoice.InvoiceNumber)
	if reason = strings.TrimSpace(reason); reason != "" {
		details += ": " + reason
	}
	s.audit.Record(ctx, models.AuditActionDeletePayment, models.AuditEntityPayment, payment.ID, details)

	return invoice, nil
}

// RecomputeInvoice rebuilds the derived fields from the payment rows
func (s *LedgerService) RecomputeInvoice(ctx context.Context, invoiceID uint) (*models.Invoice, error) {
	if _, err := s.gate.Authorize(ctx, PermRecomputeInvoice); err != nil {
		return nil, err
	}

	var invoice *models.Invoice
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		invoice, err = tx.Invoice.FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return notFoundOr(ErrInvoiceNotFound, "lock invoice", err)
		}
		return s.recompute(ctx, tx, invoice)
	})
	if err != nil {
		return nil, s.failed(ctx, "recompute invoice", invoiceID, err)
	}

	s.audit.Record(ctx, models.AuditActionRecompute, models.AuditEntityInvoice, invoice.ID,
		fmt.Sprintf("paid %s, balance %s, status %s",
			models.FormatMoney(invoice.PaidAmount), models.FormatMoney(invoice.BalanceAmount), invoice.Status))

	return invoice, nil
}

// CancelInvoice moves an unpaid or partially paid invoice to cancelled
func (s *LedgerService) CancelInvoice(ctx context.Context, invoiceID uint, reason string) (*models.Invoice, error) {
	actor, err := s.gate.Authorize(ctx, PermCancelInvoice)
	if err != nil {
		return nil, err
	}

	var invoice *models.Invoice
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		invoice, err = tx.Invoice.FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return notFoundOr(ErrInvoiceNotFound, "lock invoice", err)
		}

		switch {
		case invoice.IsCancelled():
			return ErrInvoiceCancelled
		case invoice.IsPaid():
			return ErrInvoiceAlreadyPaid
		}

		if err := statemachine.NewInvoiceFSM(invoice).Cancel(ctx); err != nil {
			return withMessage(ErrInvalidState, "%v", err)
		}

		now := s.now()
		invoice.CancelledAt = &now
		invoice.CancelledBy = &actor.UserID
		invoice.CancelReason = optionalString(reason)
		invoice.UpdatedAt = now

		if err := tx.Invoice.MarkCancelled(ctx, invoice); err != nil {
			return storageError("cancel invoice", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.failed(ctx, "cancel invoice", invoiceID, err)
	}

	s.audit.Record(ctx, models.AuditActionCancel, models.AuditEntityInvoice, invoice.ID, strings.TrimSpace(reason))
	return invoice, nil
}

// SendInvoice finalizes a draft invoice
func (s *LedgerService) SendInvoice(ctx context.Context, invoiceID uint) (*models.Invoice, error) {
	if _, err := s.gate.Authorize(ctx, PermInvoicesWrite); err != nil {
		return nil, err
	}

	var invoice *models.Invoice
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		invoice, err = tx.Invoice.FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return notFoundOr(ErrInvoiceNotFound, "lock invoice", err)
		}
		if invoice.IsCancelled() {
			return ErrInvoiceCancelled
		}

		if err := statemachine.NewInvoiceFSM(invoice).Send(ctx); err != nil {
			return withMessage(ErrInvalidState, "only draft invoices can be sent, invoice is %s", invoice.Status)
		}

		// a zero-total invoice settles as soon as it is sent
		return s.applyPaidAmount(ctx, tx, invoice, invoice.PaidAmount)
	})
	if err != nil {
		return nil, s.failed(ctx, "send invoice", invoiceID, err)
	}

	s.audit.Record(ctx, models.AuditActionSend, models.AuditEntityInvoice, invoice.ID, invoice.InvoiceNumber)
	return invoice, nil
}

// ReviseInvoiceInput carries the editable invoice fields; nil means unchanged
type ReviseInvoiceInput struct {
	InvoiceNumber *string          `json:"invoice_number" validate:"omitempty,min=1,max=50"`
	InvoiceDate   *string          `json:"invoice_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate       *string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	ProjectID     *uint            `json:"project_id"`
	TotalAmount   *decimal.Decimal `json:"total_amount" swaggertype:"string"`
	Notes         *string          `json:"notes" validate:"omitempty,max=1000"`
}

// ReviseInvoice edits an invoice under the row lock and re-derives its
// balance and status against the new total.
func (s *LedgerService) ReviseInvoice(ctx context.Context, invoiceID uint, in ReviseInvoiceInput) (*models.Invoice, error) {
	if _, err := s.gate.Authorize(ctx, PermInvoicesWrite); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.TotalAmount != nil {
		if err := validateTotal(*in.TotalAmount); err != nil {
			return nil, err
		}
	}

	var invoice *models.Invoice
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		invoice, err = tx.Invoice.FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return notFoundOr(ErrInvoiceNotFound, "lock invoice", err)
		}
		if invoice.IsCancelled() {
			return ErrInvoiceCancelled
		}

		if in.InvoiceNumber != nil && *in.InvoiceNumber != invoice.InvoiceNumber {
			number := strings.TrimSpace(*in.InvoiceNumber)
			exists, err := tx.Invoice.ExistsByNumber(ctx, number, invoice.ID)
			if err != nil {
				return storageError("check invoice number", err)
			}
			if exists {
				return withMessage(ErrDuplicateInvoiceNumber, "invoice number %s already exists", number)
			}
			invoice.InvoiceNumber = number
		}
		if in.InvoiceDate != nil {
			invoice.InvoiceDate, _ = time.Parse(models.DateLayout, *in.InvoiceDate)
		}
		if in.DueDate != nil {
			invoice.DueDate, _ = time.Parse(models.DateLayout, *in.DueDate)
		}
		if invoice.DueDate.Before(invoice.InvoiceDate) {
			return withFields(ErrValidation, map[string]string{"due_date": "must not be before invoice_date"})
		}
		if in.ProjectID != nil {
			if err := checkProject(ctx, tx.Project, *in.ProjectID, invoice.ClientID); err != nil {
				return err
			}
			invoice.ProjectID = in.ProjectID
			if *in.ProjectID == 0 {
				invoice.ProjectID = nil
			}
		}
		if in.Notes != nil {
			invoice.Notes = optionalString(*in.Notes)
		}
		if in.TotalAmount != nil {
			total := in.TotalAmount.Round(models.MoneyScale)
			if total.LessThan(invoice.PaidAmount) {
				return withMessage(ErrTotalBelowPaid, "total %s is lower than the %s already paid",
					models.FormatMoney(total), models.FormatMoney(invoice.PaidAmount))
			}
			invoice.TotalAmount = total
		}

		invoice.UpdatedAt = s.now()
		if err := tx.Invoice.UpdateDetails(ctx, invoice); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return withMessage(ErrDuplicateInvoiceNumber, "invoice number %s already exists", invoice.InvoiceNumber)
			}
			return storageError("update invoice", err)
		}

		return s.applyPaidAmount(ctx, tx, invoice, invoice.PaidAmount)
	})
	if err != nil {
		return nil, s.failed(ctx, "revise invoice", invoiceID, err)
	}

	s.audit.Record(ctx, models.AuditActionUpdate, models.AuditEntityInvoice, invoice.ID,
		fmt.Sprintf("invoice %s revised, total %s", invoice.InvoiceNumber, models.FormatMoney(invoice.TotalAmount)))
	return invoice, nil
}

// recompute sets paid_amount to the sum of the invoice's payment rows
func (s *LedgerService) recompute(ctx context.Context, tx *repository.Repositories, invoice *models.Invoice) error {
	sum, err := tx.Payment.SumByInvoice(ctx, invoice.ID)
	if err != nil {
		return storageError("sum payments", err)
	}
	return s.applyPaidAmount(ctx, tx, invoice, sum)
}

// applyPaidAmount derives balance and status from paid and persists them.
// The status change goes through the invoice state machine.
func (s *LedgerService) applyPaidAmount(ctx context.Context, tx *repository.Repositories, invoice *models.Invoice, paid decimal.Decimal) error {
	balance := invoice.TotalAmount.Sub(paid)
	if balance.IsNegative() {
		return withMessage(ErrTotalBelowPaid, "payments of %s exceed the invoice total %s",
			models.FormatMoney(paid), models.FormatMoney(invoice.TotalAmount))
	}

	target := models.DeriveStatus(invoice.Status, invoice.TotalAmount, paid)
	if err := statemachine.NewInvoiceFSM(invoice).TransitionTo(ctx, target); err != nil {
		return withMessage(ErrInvalidState, "%v", err)
	}

	invoice.PaidAmount = paid
	invoice.BalanceAmount = balance
	invoice.UpdatedAt = s.now()

	if err := tx.Invoice.UpdateDerived(ctx, invoice); err != nil {
		return notFoundOr(ErrInvoiceNotFound, "update invoice", err)
	}
	return nil
}

// failed normalizes a transaction error and logs storage failures
func (s *LedgerService) failed(ctx context.Context, op string, invoiceID uint, err error) error {
	err = storageError(op, err)
	if e, ok := AsError(err); ok && e.Kind == KindStorage {
		logger.FromContext(ctx).Error(op+" failed", "invoice_id", invoiceID, "error", e.Err)
	}
	return err
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
