package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/testutil"
)

func TestReconciliation_VerifyDetectsDrift(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-R1", Total: "100.00"})
	_, err := env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay("40.00"))
	require.NoError(t, err)

	report, err := env.svc.Reconciliation.Verify(env.viewer, inv.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, "40.00", report.PaymentSum)
	assert.Equal(t, int64(1), report.PaymentCount)

	require.NoError(t, env.db.Model(&models.Invoice{}).Where("id = ?", inv.ID).
		Updates(map[string]interface{}{"paid_amount": "100.00", "balance_amount": "0.00", "status": models.InvoiceStatusPaid}).Error)

	report, err = env.svc.Reconciliation.Verify(env.viewer, inv.ID)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Len(t, report.Issues, 3)
	assert.Equal(t, "60.00", report.ExpectedBalance)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, report.ExpectedStatus)

	_, err = env.svc.Reconciliation.Verify(context.Background(), inv.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.svc.Reconciliation.Verify(env.viewer, 777)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestReconciliation_SweepReportsEveryDrift(t *testing.T) {
	env := newTestEnv(t)
	var ids []uint
	for _, n := range []string{"INV-S1", "INV-S2", "INV-S3", "INV-S4", "INV-S5"} {
		ids = append(ids, env.invoice(t, testutil.InvoiceFixture{Number: n, Total: "10.00"}).ID)
	}
	// stored paid without any payment rows
	require.NoError(t, env.db.Model(&models.Invoice{}).Where("id IN ?", []uint{ids[1], ids[4]}).
		Updates(map[string]interface{}{"paid_amount": "5.00", "balance_amount": "5.00", "status": models.InvoiceStatusPartiallyPaid}).Error)

	var reported []uint
	env.svc.Reconciliation.report = func(ctx context.Context, r *ReconciliationReport) {
		reported = append(reported, r.InvoiceID)
	}

	summary, err := env.svc.Reconciliation.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Checked)
	assert.Equal(t, 2, summary.Drifted)
	assert.Equal(t, []uint{ids[1], ids[4]}, summary.DriftedIDs)
	assert.Equal(t, summary.DriftedIDs, reported)

	// sweeping never writes
	assertMoney(t, "5.00", env.reload(t, ids[1]).PaidAmount, "drift left for recompute")
}

func TestReconciliation_SweepStopsOnCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	env.invoice(t, testutil.InvoiceFixture{Number: "INV-C1", Total: "10.00"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := env.svc.Reconciliation.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Checked)
}

// paymentAfterBatch records a payment right after the first invoice batch is
// read, before the sweep looks at any invoice in it.
type paymentAfterBatch struct {
	repository.InvoiceRepository
	once func()
}

func (r *paymentAfterBatch) ListAfterID(ctx context.Context, afterID uint, limit int) ([]models.Invoice, error) {
	batch, err := r.InvoiceRepository.ListAfterID(ctx, afterID, limit)
	if r.once != nil {
		r.once()
		r.once = nil
	}
	return batch, err
}

func TestReconciliation_SweepSeesPaymentsCommittedAfterBatchRead(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-RACE", Total: "100.00"})

	repos := *env.repos
	repos.Invoice = &paymentAfterBatch{
		InvoiceRepository: env.repos.Invoice,
		once: func() {
			_, err := env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay("40.00"))
			require.NoError(t, err)
		},
	}
	env.svc.Reconciliation.repos = &repos

	var reported []uint
	env.svc.Reconciliation.report = func(ctx context.Context, r *ReconciliationReport) {
		reported = append(reported, r.InvoiceID)
	}

	summary, err := env.svc.Reconciliation.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Zero(t, summary.Drifted)
	assert.Empty(t, reported)
	assertMoney(t, "40.00", env.reload(t, inv.ID).PaidAmount, "payment committed")

	report, err := env.svc.Reconciliation.Verify(env.viewer, inv.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, "40.00", report.StoredPaid)
}
