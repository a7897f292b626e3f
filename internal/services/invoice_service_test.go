package services

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/testutil"
)

func invoiceInput(clientID uint, number, total string) CreateInvoiceInput {
	return CreateInvoiceInput{
		ClientID:      clientID,
		InvoiceNumber: number,
		InvoiceDate:   models.FormatDate(today()),
		DueDate:       models.FormatDate(today().AddDate(0, 0, 30)),
		TotalAmount:   amount(total),
		Status:        models.InvoiceStatusSent,
	}
}

func TestInvoiceService_CreateInvoice(t *testing.T) {
	env := newTestEnv(t)

	inv, err := env.svc.Invoice.CreateInvoice(env.staff, invoiceInput(env.client.ID, " INV-100 ", "1000"))
	require.NoError(t, err)
	assert.Equal(t, "INV-100", inv.InvoiceNumber)
	assert.NotEmpty(t, inv.GUID)
	assertMoney(t, "1000.00", inv.TotalAmount, "total")
	assertMoney(t, "0.00", inv.PaidAmount, "paid")
	assertMoney(t, "1000.00", inv.BalanceAmount, "balance")
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)
	assert.Equal(t, "Acme", inv.Client.CompanyName)

	in := invoiceInput(env.client.ID, "INV-101", "50")
	in.Status = ""
	draft, err := env.svc.Invoice.CreateInvoice(env.staff, in)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDraft, draft.Status)

	_, err = env.svc.Invoice.CreateInvoice(env.staff, invoiceInput(env.client.ID, "INV-100", "10"))
	assert.ErrorIs(t, err, ErrDuplicateInvoiceNumber)

	_, err = env.svc.Invoice.CreateInvoice(env.viewer, invoiceInput(env.client.ID, "INV-102", "10"))
	assert.ErrorIs(t, err, ErrForbidden)

	var logs int64
	require.NoError(t, env.db.Model(&models.AuditLog{}).Where("entity = ?", models.AuditEntityInvoice).Count(&logs).Error)
	assert.Equal(t, int64(2), logs)
}

func TestInvoiceService_CreateInvoiceValidation(t *testing.T) {
	env := newTestEnv(t)

	inactive := testutil.CreateClient(t, env.db, "Dormant")
	require.NoError(t, env.db.Model(inactive).Update("is_active", false).Error)

	otherClient := testutil.CreateClient(t, env.db, "Globex")
	project, err := env.svc.Project.CreateProject(env.staff, CreateProjectInput{ClientID: otherClient.ID, Name: "Rebrand"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(in *CreateInvoiceInput)
		wantErr *Error
		field   string
	}{
		{"missing total", func(in *CreateInvoiceInput) { in.TotalAmount = nil }, ErrValidation, "total_amount"},
		{"negative total", func(in *CreateInvoiceInput) { in.TotalAmount = amount("-1") }, ErrValidation, "total_amount"},
		{"total beyond column range", func(in *CreateInvoiceInput) { in.TotalAmount = amount("10000000000000") }, ErrInvalidAmount, "total_amount"},
		{"total with cents fraction", func(in *CreateInvoiceInput) { in.TotalAmount = amount("1.001") }, ErrInvalidAmount, "total_amount"},
		{"due before issue", func(in *CreateInvoiceInput) { in.DueDate = models.FormatDate(today().AddDate(0, 0, -1)) }, ErrValidation, "due_date"},
		{"bad date", func(in *CreateInvoiceInput) { in.InvoiceDate = "yesterday" }, ErrValidation, "invoice_date"},
		{"unknown client", func(in *CreateInvoiceInput) { in.ClientID = 9999 }, ErrValidation, "client_id"},
		{"inactive client", func(in *CreateInvoiceInput) { in.ClientID = inactive.ID }, ErrValidation, "client_id"},
		{"foreign project", func(in *CreateInvoiceInput) { in.ProjectID = &project.ID }, ErrValidation, "project_id"},
		{"bad status", func(in *CreateInvoiceInput) { in.Status = models.InvoiceStatusPaid }, ErrValidation, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := invoiceInput(env.client.ID, "INV-V", "10")
			tt.mutate(&in)
			_, err := env.svc.Invoice.CreateInvoice(env.staff, in)
			require.ErrorIs(t, err, tt.wantErr)
			e, _ := AsError(err)
			assert.Contains(t, e.Fields, tt.field)
		})
	}
}

func TestInvoiceService_ListInvoicesByEffectiveStatus(t *testing.T) {
	env := newTestEnv(t)
	env.invoice(t, testutil.InvoiceFixture{Number: "INV-1", Total: "100"})
	env.invoice(t, testutil.InvoiceFixture{Number: "INV-2", Total: "100", DueDate: today().AddDate(0, 0, -2)})
	env.invoice(t, testutil.InvoiceFixture{Number: "INV-3", Total: "100", Paid: "100", Status: models.InvoiceStatusPaid, DueDate: today().AddDate(0, 0, -2)})

	query := &repository.InvoiceQuery{ListQuery: repository.NewListQuery(), Status: models.InvoiceStatusOverdue}
	invoices, total, err := env.svc.Invoice.ListInvoices(env.viewer, query)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, invoices, 1)
	assert.Equal(t, "INV-2", invoices[0].InvoiceNumber)

	_, _, err = env.svc.Invoice.ListInvoices(env.viewer, &repository.InvoiceQuery{ListQuery: repository.NewListQuery(), Status: "late"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInvoiceService_ResolveInvoiceID(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-G", Total: "10"})

	id, err := env.svc.Invoice.ResolveInvoiceID(env.viewer, strconv.FormatUint(uint64(inv.ID), 10))
	require.NoError(t, err)
	assert.Equal(t, inv.ID, id)

	id, err = env.svc.Invoice.ResolveInvoiceID(env.viewer, inv.GUID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, id)

	_, err = env.svc.Invoice.ResolveInvoiceID(env.viewer, "not-an-id")
	assert.ErrorIs(t, err, ErrInvoiceNotFound)

	_, err = env.svc.Invoice.ResolveInvoiceID(env.viewer, "9d7c4f4e-1111-4222-8333-444455556666")
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestInvoiceService_GetInvoiceWithPayments(t *testing.T) {
	env := newTestEnv(t)
	inv := env.invoice(t, testutil.InvoiceFixture{Number: "INV-P", Total: "90"})
	for _, v := range []string{"10", "20"} {
		_, err := env.svc.Ledger.RecordPayment(env.staff, inv.ID, pay(v))
		require.NoError(t, err)
	}

	got, err := env.svc.Invoice.GetInvoice(env.viewer, inv.ID)
	require.NoError(t, err)
	require.Len(t, got.Payments, 2)
	resp := got.ToResponse(env.svc.Invoice.Now())
	assert.Equal(t, "30.00", resp.PaidAmount)
	assert.Equal(t, "60.00", resp.BalanceAmount)

	payments, err := env.svc.Invoice.ListPayments(env.viewer, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	_, err = env.svc.Invoice.GetInvoice(env.viewer, 4242)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}
