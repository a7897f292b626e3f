package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
)

func TestInvoiceFSM_TransitionTo(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		wantErr bool
	}{
		{models.InvoiceStatusDraft, models.InvoiceStatusSent, false},
		{models.InvoiceStatusDraft, models.InvoiceStatusPartiallyPaid, false},
		{models.InvoiceStatusDraft, models.InvoiceStatusPaid, false},
		{models.InvoiceStatusSent, models.InvoiceStatusPartiallyPaid, false},
		{models.InvoiceStatusSent, models.InvoiceStatusPaid, false},
		{models.InvoiceStatusPartiallyPaid, models.InvoiceStatusPaid, false},
		{models.InvoiceStatusPartiallyPaid, models.InvoiceStatusSent, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusPartiallyPaid, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusSent, false},
		{models.InvoiceStatusPartiallyPaid, models.InvoiceStatusPartiallyPaid, false},
		{models.InvoiceStatusSent, models.InvoiceStatusDraft, true},
		{models.InvoiceStatusPaid, models.InvoiceStatusCancelled, true},
		{models.InvoiceStatusCancelled, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusCancelled, models.InvoiceStatusSent, true},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			inv := &models.Invoice{Status: tt.from}
			err := NewInvoiceFSM(inv).TransitionTo(context.Background(), tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIllegalTransition)
				assert.Equal(t, tt.from, inv.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, inv.Status)
		})
	}
}

func TestInvoiceFSM_SendAndCancel(t *testing.T) {
	ctx := context.Background()

	inv := &models.Invoice{Status: models.InvoiceStatusDraft}
	f := NewInvoiceFSM(inv)
	require.NoError(t, f.Send(ctx))
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)
	assert.ErrorIs(t, f.Send(ctx), ErrIllegalTransition)

	require.NoError(t, f.Cancel(ctx))
	assert.Equal(t, models.InvoiceStatusCancelled, f.Current())
	assert.False(t, f.Can(EventSettle))

	paid := &models.Invoice{Status: models.InvoiceStatusPaid}
	assert.ErrorIs(t, NewInvoiceFSM(paid).Cancel(ctx), ErrIllegalTransition)
}
