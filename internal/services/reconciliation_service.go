package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/shopspring/decimal"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
	"github.com/nisalrtu/digibrand-cms-sub002/pkg/logger"
)

// ReconciliationReport compares an invoice's stored derived fields with the
// values its payment rows imply.
type ReconciliationReport struct {
	InvoiceID       uint     `json:"invoice_id"`
	InvoiceNumber   string   `json:"invoice_number"`
	PaymentCount    int64    `json:"payment_count"`
	TotalAmount     string   `json:"total_amount"`
	StoredPaid      string   `json:"stored_paid_amount"`
	PaymentSum      string   `json:"payment_sum"`
	StoredBalance   string   `json:"stored_balance_amount"`
	ExpectedBalance string   `json:"expected_balance_amount"`
	StoredStatus    string   `json:"stored_status"`
	ExpectedStatus  string   `json:"expected_status"`
	Consistent      bool     `json:"consistent"`
	Issues          []string `json:"issues"`
}

// SweepSummary is the outcome of one pass over every invoice
type SweepSummary struct {
	Checked    int           `json:"checked"`
	Drifted    int           `json:"drifted"`
	DriftedIDs []uint        `json:"drifted_ids"`
	Duration   time.Duration `json:"duration"`
}

// ReconciliationService checks that paid_amount equals the sum of payments
// and that balance and status follow from it. It never writes; drift is
// fixed through LedgerService.RecomputeInvoice.
type ReconciliationService struct {
	repos     *repository.Repositories
	gate      *AccessGate
	batchSize int
	report    func(ctx context.Context, r *ReconciliationReport)
}

// NewReconciliationService creates a reconciliation service. Drift found by
// Sweep is sent to Sentry.
func NewReconciliationService(repos *repository.Repositories, gate *AccessGate, batchSize int) *ReconciliationService {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &ReconciliationService{
		repos:     repos,
		gate:      gate,
		batchSize: batchSize,
		report:    reportDriftToSentry,
	}
}

// Verify reconciles a single invoice
func (s *ReconciliationService) Verify(ctx context.Context, invoiceID uint) (*ReconciliationReport, error) {
	if _, err := s.gate.Authorize(ctx, PermInvoicesRead); err != nil {
		return nil, err
	}

	return s.check(ctx, invoiceID)
}

// Sweep reconciles every invoice in id order, batch by batch. It runs
// without an actor and is meant for the scheduler only.
func (s *ReconciliationService) Sweep(ctx context.Context) (*SweepSummary, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	summary := &SweepSummary{DriftedIDs: []uint{}}

	var afterID uint
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		batch, err := s.repos.Invoice.ListAfterID(ctx, afterID, s.batchSize)
		if err != nil {
			return summary, storageError("list invoices", err)
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			report, err := s.check(ctx, batch[i].ID)
			if err != nil {
				return summary, err
			}
			summary.Checked++
			if !report.Consistent {
				summary.Drifted++
				summary.DriftedIDs = append(summary.DriftedIDs, report.InvoiceID)
				log.Warn("invoice ledger drift",
					"invoice_id", report.InvoiceID,
					"invoice_number", report.InvoiceNumber,
					"issues", strings.Join(report.Issues, "; "),
				)
				s.report(ctx, report)
			}
		}
		afterID = batch[len(batch)-1].ID
	}

	summary.Duration = time.Since(start)
	log.Info("reconciliation sweep finished",
		"checked", summary.Checked,
		"drifted", summary.Drifted,
		"duration", summary.Duration,
	)
	return summary, nil
}

// check re-reads the invoice under the row lock the ledger takes, so the
// stored fields and the payment rows come from the same committed state.
func (s *ReconciliationService) check(ctx context.Context, invoiceID uint) (*ReconciliationReport, error) {
	var report *ReconciliationReport
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		invoice, err := tx.Invoice.FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return notFoundOr(ErrInvoiceNotFound, "find invoice", err)
		}
		sum, err := tx.Payment.SumByInvoice(ctx, invoice.ID)
		if err != nil {
			return storageError("sum payments", err)
		}
		count, err := tx.Payment.CountByInvoice(ctx, invoice.ID)
		if err != nil {
			return storageError("count payments", err)
		}
		report = compareLedger(invoice, sum, count)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func compareLedger(invoice *models.Invoice, sum decimal.Decimal, count int64) *ReconciliationReport {
	expectedBalance := invoice.TotalAmount.Sub(sum)
	expectedStatus := models.DeriveStatus(invoice.Status, invoice.TotalAmount, sum)

	report := &ReconciliationReport{
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		PaymentCount:    count,
		TotalAmount:     models.FormatMoney(invoice.TotalAmount),
		StoredPaid:      models.FormatMoney(invoice.PaidAmount),
		PaymentSum:      models.FormatMoney(sum),
		StoredBalance:   models.FormatMoney(invoice.BalanceAmount),
		ExpectedBalance: models.FormatMoney(expectedBalance),
		StoredStatus:    invoice.Status,
		ExpectedStatus:  expectedStatus,
		Issues:          []string{},
	}

	if !invoice.PaidAmount.Equal(sum) {
		report.Issues = append(report.Issues, fmt.Sprintf("paid_amount %s does not match payment sum %s",
			report.StoredPaid, report.PaymentSum))
	}
	if !invoice.BalanceAmount.Equal(expectedBalance) {
		report.Issues = append(report.Issues, fmt.Sprintf("balance_amount %s should be %s",
			report.StoredBalance, report.ExpectedBalance))
	}
	if expectedBalance.LessThan(decimal.Zero) {
		report.Issues = append(report.Issues, "payments exceed the invoice total")
	}
	if invoice.Status != expectedStatus {
		report.Issues = append(report.Issues, fmt.Sprintf("status %s should be %s", invoice.Status, expectedStatus))
	}
	report.Consistent = len(report.Issues) == 0
	return report
}

func reportDriftToSentry(ctx context.Context, r *ReconciliationReport) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		scope.SetTag("component", "reconciliation")
		scope.SetTag("invoice_id", strconv.FormatUint(uint64(r.InvoiceID), 10))
		scope.SetContext("reconciliation", sentry.Context{
			"invoice_number": r.InvoiceNumber,
			"stored_paid":    r.StoredPaid,
			"payment_sum":    r.PaymentSum,
			"stored_balance": r.StoredBalance,
			"stored_status":  r.StoredStatus,
			"expected":       r.ExpectedStatus,
		})
		hub.CaptureMessage("invoice ledger drift: " + r.InvoiceNumber)
	})
}
