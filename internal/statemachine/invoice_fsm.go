package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
)

// Invoice events
const (
	EventSend          = "send"
	EventRecordPartial = "record_partial"
	EventSettle        = "settle"
	EventCancel        = "cancel"
	EventReopen        = "reopen"
	EventReopenPartial = "reopen_partial"
)

// ErrIllegalTransition is returned when no event leads from the current
// stored status to the requested one.
var ErrIllegalTransition = errors.New("illegal invoice status transition")

// InvoiceFSM wraps an invoice with its stored-status state machine.
// Overdue is a read-time view and never appears here.
type InvoiceFSM struct {
	invoice *models.Invoice
	fsm     *fsm.FSM
}

// NewInvoiceFSM creates a new invoice state machine
func NewInvoiceFSM(invoice *models.Invoice) *InvoiceFSM {
	ifsm := &InvoiceFSM{
		invoice: invoice,
	}

	ifsm.fsm = fsm.NewFSM(
		invoice.Status,
		fsm.Events{
			// draft → sent
			{Name: EventSend, Src: []string{models.InvoiceStatusDraft}, Dst: models.InvoiceStatusSent},

			// draft/sent → partially_paid
			{Name: EventRecordPartial, Src: []string{models.InvoiceStatusDraft, models.InvoiceStatusSent}, Dst: models.InvoiceStatusPartiallyPaid},

			// draft/sent/partially_paid → paid
			{Name: EventSettle, Src: []string{models.InvoiceStatusDraft, models.InvoiceStatusSent, models.InvoiceStatusPartiallyPaid}, Dst: models.InvoiceStatusPaid},

			// anything not yet paid → cancelled
			{Name: EventCancel, Src: []string{models.InvoiceStatusDraft, models.InvoiceStatusSent, models.InvoiceStatusPartiallyPaid}, Dst: models.InvoiceStatusCancelled},

			// payments removed, nothing paid any more
			{Name: EventReopen, Src: []string{models.InvoiceStatusPartiallyPaid, models.InvoiceStatusPaid}, Dst: models.InvoiceStatusSent},

			// payments removed or total raised, some still paid
			{Name: EventReopenPartial, Src: []string{models.InvoiceStatusPaid}, Dst: models.InvoiceStatusPartiallyPaid},
		},
		fsm.Callbacks{},
	)

	return ifsm
}

// Send transitions a draft invoice to sent
func (f *InvoiceFSM) Send(ctx context.Context) error {
	return f.fire(ctx, EventSend)
}

// Cancel transitions the invoice to cancelled
func (f *InvoiceFSM) Cancel(ctx context.Context) error {
	return f.fire(ctx, EventCancel)
}

// TransitionTo moves the invoice to target using the single event that
// connects the two states. Staying in the same state is a no-op.
func (f *InvoiceFSM) TransitionTo(ctx context.Context, target string) error {
	current := f.fsm.Current()
	if current == target {
		return nil
	}

	for _, event := range f.fsm.AvailableTransitions() {
		if dst, ok := destinations[event]; ok && dst == target {
			return f.fire(ctx, event)
		}
	}

	return fmt.Errorf("%w: %s → %s", ErrIllegalTransition, current, target)
}

// Current returns the current state
func (f *InvoiceFSM) Current() string {
	return f.fsm.Current()
}

// Can checks if a transition is possible
func (f *InvoiceFSM) Can(event string) bool {
	return f.fsm.Can(event)
}

func (f *InvoiceFSM) fire(ctx context.Context, event string) error {
	if !f.fsm.Can(event) {
		return fmt.Errorf("%w: cannot %s invoice in state %s", ErrIllegalTransition, event, f.fsm.Current())
	}
	if err := f.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("failed to %s invoice: %w", event, err)
	}
	f.invoice.Status = f.fsm.Current()
	return nil
}

var destinations = map[string]string{
	EventSend:          models.InvoiceStatusSent,
	EventRecordPartial: models.InvoiceStatusPartiallyPaid,
	EventSettle:        models.InvoiceStatusPaid,
	EventCancel:        models.InvoiceStatusCancelled,
	EventReopen:        models.InvoiceStatusSent,
	EventReopenPartial: models.InvoiceStatusPartiallyPaid,
}
