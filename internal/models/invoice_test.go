package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name    string
		current string
		total   string
		paid    string
		want    string
	}{
		{"sent without payments", InvoiceStatusSent, "1000.00", "0", InvoiceStatusSent},
		{"draft without payments stays draft", InvoiceStatusDraft, "1000.00", "0", InvoiceStatusDraft},
		{"draft with partial payment", InvoiceStatusDraft, "1000.00", "400.00", InvoiceStatusPartiallyPaid},
		{"sent partial", InvoiceStatusSent, "1000.00", "400.00", InvoiceStatusPartiallyPaid},
		{"exact settle", InvoiceStatusPartiallyPaid, "1000.00", "1000.00", InvoiceStatusPaid},
		{"paid reopened after delete", InvoiceStatusPaid, "1000.00", "0", InvoiceStatusSent},
		{"paid back to partial", InvoiceStatusPaid, "1000.00", "250.00", InvoiceStatusPartiallyPaid},
		{"zero total sent is paid", InvoiceStatusSent, "0", "0", InvoiceStatusPaid},
		{"zero total draft stays draft", InvoiceStatusDraft, "0", "0", InvoiceStatusDraft},
		{"cancelled is sticky", InvoiceStatusCancelled, "1000.00", "1000.00", InvoiceStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.current, dec(tt.total), dec(tt.paid)))
		})
	}
}

func TestEffectiveStatus(t *testing.T) {
	today := time.Date(2026, 3, 15, 16, 30, 0, 0, time.UTC)
	yesterday := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	todayDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		invoice Invoice
		want    string
	}{
		{
			name:    "past due with balance is overdue",
			invoice: Invoice{Status: InvoiceStatusSent, DueDate: yesterday, TotalAmount: dec("200"), PaidAmount: dec("0"), BalanceAmount: dec("200")},
			want:    InvoiceStatusOverdue,
		},
		{
			name:    "partially paid past due is overdue",
			invoice: Invoice{Status: InvoiceStatusPartiallyPaid, DueDate: yesterday, TotalAmount: dec("200"), PaidAmount: dec("50"), BalanceAmount: dec("150")},
			want:    InvoiceStatusOverdue,
		},
		{
			name:    "due today is not overdue",
			invoice: Invoice{Status: InvoiceStatusSent, DueDate: todayDate, TotalAmount: dec("200"), PaidAmount: dec("0"), BalanceAmount: dec("200")},
			want:    InvoiceStatusSent,
		},
		{
			name:    "paid wins over overdue",
			invoice: Invoice{Status: InvoiceStatusPaid, DueDate: yesterday, TotalAmount: dec("200"), PaidAmount: dec("200"), BalanceAmount: dec("0")},
			want:    InvoiceStatusPaid,
		},
		{
			name:    "draft is never overdue",
			invoice: Invoice{Status: InvoiceStatusDraft, DueDate: yesterday, TotalAmount: dec("200"), PaidAmount: dec("0"), BalanceAmount: dec("200")},
			want:    InvoiceStatusDraft,
		},
		{
			name:    "cancelled stays cancelled",
			invoice: Invoice{Status: InvoiceStatusCancelled, DueDate: yesterday, TotalAmount: dec("200"), PaidAmount: dec("0"), BalanceAmount: dec("200")},
			want:    InvoiceStatusCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.invoice.EffectiveStatus(today))
		})
	}
}

func TestOverdueDays(t *testing.T) {
	inv := Invoice{
		Status:        InvoiceStatusSent,
		DueDate:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		TotalAmount:   dec("10"),
		PaidAmount:    dec("0"),
		BalanceAmount: dec("10"),
	}
	assert.Equal(t, 5, inv.OverdueDays(time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, inv.OverdueDays(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)))
}

func TestInvoiceToResponse_FormatsMoney(t *testing.T) {
	inv := Invoice{
		ID:            7,
		InvoiceNumber: "INV-0007",
		Status:        InvoiceStatusPartiallyPaid,
		InvoiceDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		TotalAmount:   dec("1000"),
		PaidAmount:    dec("400"),
		BalanceAmount: dec("600"),
		Payments: []Payment{
			{ID: 1, InvoiceID: 7, PaymentAmount: dec("400"), PaymentDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), PaymentMethod: PaymentMethodCash},
		},
	}

	resp := inv.ToResponse(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "1000.00", resp.TotalAmount)
	assert.Equal(t, "400.00", resp.PaidAmount)
	assert.Equal(t, "600.00", resp.BalanceAmount)
	assert.Equal(t, "2026-12-31", resp.DueDate)
	assert.Equal(t, InvoiceStatusPartiallyPaid, resp.Status)
	assert.Len(t, resp.Payments, 1)
	assert.Equal(t, "400.00", resp.Payments[0].PaymentAmount)

	bal := inv.ToBalanceResponse(time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, InvoiceStatusOverdue, bal.Status)
	assert.Equal(t, InvoiceStatusPartiallyPaid, bal.StoredStatus)
}
