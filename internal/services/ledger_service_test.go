package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/testutil"
)

func assertMoney(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Equal(t, want, models.FormatMoney(got), msg)
}

func TestLedger_PartialThenFullPayment(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.svc.Ledger
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-A", Total: "1000.00"})

	balance, err := ledger.GetOutstandingBalance(env.staff, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", balance.BalanceAmount)
	assert.Equal(t, models.InvoiceStatusSent, balance.Status)

	res, err := ledger.RecordPayment(env.staff, inv.ID, pay("400.00"))
	require.NoError(t, err)
	assert.NotZero(t, res.PaymentID)
	assertMoney(t, "400.00", res.Invoice.PaidAmount, "paid")
	assertMoney(t, "600.00", res.Invoice.BalanceAmount, "balance")
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, res.Invoice.Status)

	res, err = ledger.RecordPayment(env.staff, inv.ID, pay("600.00"))
	require.NoError(t, err)
	assertMoney(t, "1000.00", res.Invoice.PaidAmount, "paid")
	assertMoney(t, "0.00", res.Invoice.BalanceAmount, "balance")
	assert.Equal(t, models.InvoiceStatusPaid, res.Invoice.Status)

	stored := env.reload(t, inv.ID)
	assertMoney(t, "1000.00", stored.PaidAmount, "stored paid")
	assertMoney(t, "0.00", stored.BalanceAmount, "stored balance")
	assert.Equal(t, models.InvoiceStatusPaid, stored.Status)

	for _, value := range []string{"0.01", "600.00"} {
		_, err = ledger.RecordPayment(env.staff, inv.ID, pay(value))
		assert.ErrorIs(t, err, ErrInvoiceAlreadyPaid, value)
	}
	assert.Equal(t, int64(2), env.paymentCount(t, inv.ID))
}

func TestLedger_OverBalanceLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-C", Total: "150.00", Paid: "100.00", Status: models.InvoiceStatusPartiallyPaid})
	require.NoError(t, env.db.Create(&models.Payment{
		GUID: "seed-payment", InvoiceID: inv.ID, PaymentAmount: decimal.RequireFromString("100.00"),
		PaymentDate: today(), PaymentMethod: models.PaymentMethodCash, CreatedBy: 1,
	}).Error)

	before := env.reload(t, inv.ID)

	_, err := env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay("75.00"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmountExceedsBalance)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, e.Kind)
	assert.Contains(t, e.Message, "50.00")

	after := env.reload(t, inv.ID)
	assert.Equal(t, before.Status, after.Status)
	assertMoney(t, models.FormatMoney(before.PaidAmount), after.PaidAmount, "paid unchanged")
	assertMoney(t, "50.00", after.BalanceAmount, "balance unchanged")
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
	assert.Equal(t, int64(1), env.paymentCount(t, inv.ID))
}

func TestLedger_OverdueUntilSettled(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-D", Total: "200.00", DueDate: today().AddDate(0, 0, -5)})

	balance, err := env.svc.Ledger.GetOutstandingBalance(env.viewer, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusOverdue, balance.Status)
	assert.Equal(t, models.InvoiceStatusSent, balance.StoredStatus)

	_, err = env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay("200.00"))
	require.NoError(t, err)

	balance, err = env.svc.Ledger.GetOutstandingBalance(env.viewer, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, balance.Status)
	assert.Equal(t, "0.00", balance.BalanceAmount)
}

func TestLedger_ConcurrentPaymentsCannotOverdraw(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-RACE", Total: "1000.00"})

	const writers = 2
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, writers)
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay("600.00"))
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case strings.Contains(err.Error(), ErrAmountExceedsBalance.Code):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	stored := env.reload(t, inv.ID)
	assertMoney(t, "600.00", stored.PaidAmount, "paid")
	assertMoney(t, "400.00", stored.BalanceAmount, "balance")
	assert.Equal(t, int64(1), env.paymentCount(t, inv.ID))
}

func TestLedger_AccessGate(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-AUTH", Total: "100.00"})

	_, err := env.svc.Ledger.RecordPayment(context.Background(), inv.ID, pay("10.00"))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.svc.Ledger.RecordPayment(env.viewer, inv.ID, pay("10.00"))
	assert.ErrorIs(t, err, ErrForbidden)

	// the gate runs before validation
	_, err = env.svc.Ledger.RecordPayment(env.viewer, inv.ID, RecordPaymentInput{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Ledger.GetOutstandingBalance(context.Background(), inv.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.svc.Ledger.CancelInvoice(env.staff, inv.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, int64(0), env.paymentCount(t, inv.ID))
}

func TestLedger_RecordPaymentRejections(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Ledger.RecordPayment(env.staff, 9999, pay("10.00"))
	assert.ErrorIs(t, err, ErrInvoiceNotFound)

	cancelled := env.invoice(t, testutil.InvoiceFixture{Number: "INV-X", Total: "100.00", Status: models.InvoiceStatusCancelled})
	_, err = env.svc.Ledger.RecordPayment(env.staff, cancelled.ID, pay("10.00"))
	assert.ErrorIs(t, err, ErrInvoiceCancelled)

	valid := env.invoice(t, testutil.InvoiceFixture{Number: "INV-V", Total: "100.00"})
	_, err = env.svc.Ledger.RecordPayment(env.staff, valid.ID, RecordPaymentInput{Amount: amount("10.00"), Method: "barter"})
	assert.ErrorIs(t, err, ErrInvalidMethod)
	assert.Equal(t, int64(0), env.paymentCount(t, valid.ID))
}

func TestNewRecordPaymentRequest(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		in         RecordPaymentInput
		wantErr    *Error
		wantFields []string
	}{
		{"missing amount", RecordPaymentInput{Method: "cash"}, ErrInvalidAmount, []string{"amount"}},
		{"zero amount", RecordPaymentInput{Amount: amount("0"), Method: "cash"}, ErrInvalidAmount, []string{"amount"}},
		{"negative amount", RecordPaymentInput{Amount: amount("-5"), Method: "cash"}, ErrInvalidAmount, []string{"amount"}},
		{"three decimals", RecordPaymentInput{Amount: amount("10.005"), Method: "cash"}, ErrInvalidAmount, []string{"amount"}},
		{"beyond column range", RecordPaymentInput{Amount: amount("10000000000000.00"), Method: "cash"}, ErrInvalidAmount, []string{"amount"}},
		{"unknown method", RecordPaymentInput{Amount: amount("10"), Method: "crypto"}, ErrInvalidMethod, []string{"method"}},
		{"missing method", RecordPaymentInput{Amount: amount("10")}, ErrInvalidMethod, []string{"method"}},
		{"future date", RecordPaymentInput{Amount: amount("10"), Method: "cash", Date: "2026-03-16"}, ErrInvalidDate, []string{"date"}},
		{"malformed date", RecordPaymentInput{Amount: amount("10"), Method: "cash", Date: "15/03/2026"}, ErrInvalidDate, []string{"date"}},
		{"long reference", RecordPaymentInput{Amount: amount("10"), Method: "cash", Reference: strings.Repeat("r", 101)}, ErrValidation, []string{"reference"}},
		{"amount wins over method", RecordPaymentInput{Amount: amount("0"), Method: "crypto"}, ErrInvalidAmount, []string{"amount", "method"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRecordPaymentRequest(tt.in, now)
			assert.Nil(t, req)
			require.ErrorIs(t, err, tt.wantErr)
			e, _ := AsError(err)
			assert.Equal(t, KindValidation, e.Kind)
			for _, f := range tt.wantFields {
				assert.Contains(t, e.Fields, f)
			}
		})
	}
}

func TestNewRecordPaymentRequest_Defaults(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)

	req, err := NewRecordPaymentRequest(RecordPaymentInput{Amount: amount("12.5"), Method: "card", Reference: "  "}, now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", models.FormatDate(req.Date))
	assert.Equal(t, "12.50", models.FormatMoney(req.Amount))
	assert.Nil(t, req.Reference)
	assert.Nil(t, req.Notes)

	req, err = NewRecordPaymentRequest(RecordPaymentInput{Amount: amount("1"), Method: "check", Date: "2025-12-31", Notes: "late"}, now)
	require.NoError(t, err)
	assert.Equal(t, "2025-12-31", models.FormatDate(req.Date))
	require.NotNil(t, req.Notes)
	assert.Equal(t, "late", *req.Notes)
}

func TestLedger_DraftInvoiceAcceptsPayment(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-DRAFT", Total: "300.00", Status: models.InvoiceStatusDraft})

	res, err := env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay("100.00"))
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, res.Invoice.Status)
}

func TestLedger_DeletePaymentRecomputes(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-DEL", Total: "1000.00"})

	first, err := env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay("400.00"))
	require.NoError(t, err)
	second, err := env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay("600.00"))
	require.NoError(t, err)
	require.Equal(t, models.InvoiceStatusPaid, second.Invoice.Status)

	_, err = env.svc.Ledger.DeletePayment(env.staff, second.PaymentID, "duplicate")
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := env.svc.Ledger.DeletePayment(env.admin, second.PaymentID, "entered twice")
	require.NoError(t, err)
	assertMoney(t, "400.00", updated.PaidAmount, "paid")
	assertMoney(t, "600.00", updated.BalanceAmount, "balance")
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, updated.Status)

	updated, err = env.svc.Ledger.DeletePayment(env.admin, first.PaymentID, "")
	require.NoError(t, err)
	assertMoney(t, "0.00", updated.PaidAmount, "paid")
	assert.Equal(t, models.InvoiceStatusSent, updated.Status)

	_, err = env.svc.Ledger.DeletePayment(env.admin, first.PaymentID, "")
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	var logs []models.AuditLog
	require.NoError(t, env.db.Where("action = ?", models.AuditActionDeletePayment).Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Contains(t, logs[0].Details, "entered twice")
}

func TestLedger_RecomputeRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-DRIFT", Total: "500.00"})
	_, err := env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay("200.00"))
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&models.Invoice{}).Where("id = ?", inv.ID).
		Updates(map[string]interface{}{"paid_amount": "250.00", "balance_amount": "250.00"}).Error)

	_, err = env.svc.Ledger.RecomputeInvoice(env.staff, inv.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	fixed, err := env.svc.Ledger.RecomputeInvoice(env.admin, inv.ID)
	require.NoError(t, err)
	assertMoney(t, "200.00", fixed.PaidAmount, "paid")
	assertMoney(t, "300.00", fixed.BalanceAmount, "balance")
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, fixed.Status)
}

func TestLedger_CancelInvoice(t *testing.T) {
	env := newTestEnv(t)
	paid := env.invoice(t, testutil.InvoiceFixture{Number: "INV-PAID", Total: "10.00", Paid: "10.00", Status: models.InvoiceStatusPaid})
	open := env.invoice(t, testutil.InvoiceFixture{Number: "INV-OPEN", Total: "10.00", Paid: "4.00", Status: models.InvoiceStatusPartiallyPaid})

	_, err := env.svc.Ledger.CancelInvoice(env.admin, paid.ID, "")
	assert.ErrorIs(t, err, ErrInvoiceAlreadyPaid)

	cancelled, err := env.svc.Ledger.CancelInvoice(env.admin, open.ID, "client closed")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusCancelled, cancelled.Status)

	stored := env.reload(t, open.ID)
	assert.Equal(t, models.InvoiceStatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelledAt)
	require.NotNil(t, stored.CancelReason)
	assert.Equal(t, "client closed", *stored.CancelReason)
	assertMoney(t, "4.00", stored.PaidAmount, "paid kept")

	_, err = env.svc.Ledger.CancelInvoice(env.admin, open.ID, "")
	assert.ErrorIs(t, err, ErrInvoiceCancelled)

	balance, err := env.svc.Ledger.GetOutstandingBalance(env.viewer, open.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusCancelled, balance.Status)
}

func TestLedger_SendInvoice(t *testing.T) {
	env := newTestEnv(t)
	draft := env.invoice(t, testutil.InvoiceFixture{Number: "INV-S1", Total: "80.00", Status: models.InvoiceStatusDraft})
	free := env.invoice(t, testutil.InvoiceFixture{Number: "INV-S2", Total: "0", Status: models.InvoiceStatusDraft})

	sent, err := env.svc.Ledger.SendInvoice(env.staff, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, sent.Status)

	_, err = env.svc.Ledger.SendInvoice(env.staff, draft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	settled, err := env.svc.Ledger.SendInvoice(env.staff, free.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, settled.Status)
	assert.Equal(t, models.InvoiceStatusPaid, env.reload(t, free.ID).Status)
}

func TestLedger_ReviseInvoiceTotal(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-REV", Total: "500.00"})
	_, err := env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay("500.00"))
	require.NoError(t, err)

	_, err = env.svc.Ledger.ReviseInvoice(env.staff, inv.ID, ReviseInvoiceInput{TotalAmount: amount("499.99")})
	assert.ErrorIs(t, err, ErrTotalBelowPaid)
	assertMoney(t, "500.00", env.reload(t, inv.ID).TotalAmount, "total unchanged")

	revised, err := env.svc.Ledger.ReviseInvoice(env.staff, inv.ID, ReviseInvoiceInput{TotalAmount: amount("800.00")})
	require.NoError(t, err)
	assertMoney(t, "300.00", revised.BalanceAmount, "balance")
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, revised.Status)

	other := env.invoice(t, testutil.InvoiceFixture{Number: "INV-OTHER", Total: "1.00"})
	number := other.InvoiceNumber
	_, err = env.svc.Ledger.ReviseInvoice(env.staff, inv.ID, ReviseInvoiceInput{InvoiceNumber: &number})
	assert.ErrorIs(t, err, ErrDuplicateInvoiceNumber)

	due := "2000-01-01"
	_, err = env.svc.Ledger.ReviseInvoice(env.staff, inv.ID, ReviseInvoiceInput{DueDate: &due})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLedger_PaidAlwaysEqualsPaymentSum(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-SUM", Total: "100.00"})

	for _, value := range []string{"0.10", "0.20", "33.33", "33.33", "0.01", "12.34", "30.00"} {
		_, err := env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay(value))
		if err != nil {
			assert.ErrorIs(t, err, ErrAmountExceedsBalance, value)
		}

		stored := env.reload(t, inv.ID)
		sum, err := env.repos.Payment.SumByInvoice(context.Background(), inv.ID)
		require.NoError(t, err)
		assertMoney(t, models.FormatMoney(sum), stored.PaidAmount, "paid == sum after "+value)
		assertMoney(t, models.FormatMoney(stored.TotalAmount.Sub(stored.PaidAmount)), stored.BalanceAmount, "balance == total - paid")
		assert.False(t, stored.BalanceAmount.IsNegative())
	}

	report, err := env.svc.Reconciliation.Verify(env.viewer, inv.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent, report.Issues)
}

func TestLedger_BalanceReadIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-IDEM", Total: "42.00"})
	_, err := env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay("2.00"))
	require.NoError(t, err)

	first, err := env.svc.Ledger.GetOutstandingBalance(env.viewer, inv.ID)
	require.NoError(t, err)
	second, err := env.svc.Ledger.GetOutstandingBalance(env.viewer, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "40.00", first.BalanceAmount)
}

func TestLedger_DeadlineRollsBack(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-TIME", Total: "42.00"})

	ctx, cancel := context.WithCancel(env.staff)
	cancel()

	_, err := env.svc.Ledger.RecordPayment(ctx, inv.ID, pay("2.00"))
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindStorage, e.Kind)
	assert.Equal(t, int64(0), env.paymentCount(t, inv.ID))
	assertMoney(t, "0.00", env.reload(t, inv.ID).PaidAmount, "paid")
}
