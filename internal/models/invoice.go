package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a billable document. PaidAmount, BalanceAmount and Status are
// derived fields written only by the ledger.
type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	GUID          string          `gorm:"column:guid;size:36;uniqueIndex;not null" json:"guid"`
	ClientID      uint            `gorm:"not null;index" json:"client_id"`
	ProjectID     *uint           `gorm:"index" json:"project_id"`
	InvoiceNumber string          `gorm:"size:50;uniqueIndex;not null" json:"invoice_number"`
	InvoiceDate   time.Time       `gorm:"type:date;not null" json:"invoice_date"`
	DueDate       time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"paid_amount"`
	BalanceAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_amount"`
	Status        string          `gorm:"size:20;not null;index" json:"status"`
	Notes         *string         `gorm:"type:text" json:"notes"`
	CreatedBy     uint            `gorm:"not null;index" json:"created_by"`
	CancelledAt   *time.Time      `json:"cancelled_at"`
	CancelledBy   *uint           `json:"cancelled_by"`
	CancelReason  *string         `gorm:"type:text" json:"cancel_reason"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Associations
	Client   Client    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Project  *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Payments []Payment `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

// TableName specifies the table name for Invoice
func (Invoice) TableName() string {
	return "invoices"
}

// Stored invoice status constants. Overdue is never persisted.
const (
	InvoiceStatusDraft         = "draft"
	InvoiceStatusSent          = "sent"
	InvoiceStatusPartiallyPaid = "partially_paid"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusCancelled     = "cancelled"
	InvoiceStatusOverdue       = "overdue"
)

// IsCancelled returns true if the invoice was cancelled
func (i *Invoice) IsCancelled() bool {
	return i.Status == InvoiceStatusCancelled
}

// IsPaid returns true if the stored status is paid
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// DeriveStatus computes the stored status implied by the amounts.
// Cancelled is sticky, and a draft without payments stays a draft.
func DeriveStatus(current string, total, paid decimal.Decimal) string {
	if current == InvoiceStatusCancelled {
		return InvoiceStatusCancelled
	}
	if paid.IsZero() {
		if current == InvoiceStatusDraft {
			return InvoiceStatusDraft
		}
		if total.IsZero() {
			return InvoiceStatusPaid
		}
		return InvoiceStatusSent
	}
	if paid.GreaterThanOrEqual(total) {
		return InvoiceStatusPaid
	}
	return InvoiceStatusPartiallyPaid
}

// EffectiveStatus is the status shown to readers on the given date.
// Paid wins over overdue whenever nothing is left to pay.
func (i *Invoice) EffectiveStatus(asOf time.Time) string {
	switch {
	case i.Status == InvoiceStatusCancelled:
		return InvoiceStatusCancelled
	case i.Status == InvoiceStatusDraft && i.PaidAmount.IsZero():
		return InvoiceStatusDraft
	case i.BalanceAmount.Sign() <= 0:
		return InvoiceStatusPaid
	case CivilDate(i.DueDate).Before(CivilDate(asOf)):
		return InvoiceStatusOverdue
	}
	return i.Status
}

// IsOverdue reports whether the invoice reads as overdue on asOf
func (i *Invoice) IsOverdue(asOf time.Time) bool {
	return i.EffectiveStatus(asOf) == InvoiceStatusOverdue
}

// OverdueDays returns the number of whole days past the due date
func (i *Invoice) OverdueDays(asOf time.Time) int {
	if !i.IsOverdue(asOf) {
		return 0
	}
	return int(CivilDate(asOf).Sub(CivilDate(i.DueDate)).Hours() / 24)
}

// InvoiceResponse is the JSON response format for invoices
type InvoiceResponse struct {
	ID            uint              `json:"id"`
	GUID          string            `json:"guid"`
	ClientID      uint              `json:"client_id"`
	ClientName    string            `json:"client_name,omitempty"`
	ProjectID     *uint             `json:"project_id"`
	ProjectName   string            `json:"project_name,omitempty"`
	InvoiceNumber string            `json:"invoice_number"`
	InvoiceDate   string            `json:"invoice_date"`
	DueDate       string            `json:"due_date"`
	TotalAmount   string            `json:"total_amount"`
	PaidAmount    string            `json:"paid_amount"`
	BalanceAmount string            `json:"balance_amount"`
	Status        string            `json:"status"`
	StoredStatus  string            `json:"stored_status"`
	OverdueDays   int               `json:"overdue_days"`
	Notes         *string           `json:"notes"`
	CreatedBy     uint              `json:"created_by"`
	CancelledAt   *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason  *string           `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Payments      []PaymentResponse `json:"payments,omitempty"`
}

// ToResponse converts Invoice to InvoiceResponse, evaluating overdue on asOf
func (i *Invoice) ToResponse(asOf time.Time) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            i.ID,
		GUID:          i.GUID,
		ClientID:      i.ClientID,
		ClientName:    i.Client.CompanyName,
		ProjectID:     i.ProjectID,
		InvoiceNumber: i.InvoiceNumber,
		InvoiceDate:   FormatDate(i.InvoiceDate),
		DueDate:       FormatDate(i.DueDate),
		TotalAmount:   FormatMoney(i.TotalAmount),
		PaidAmount:    FormatMoney(i.PaidAmount),
		BalanceAmount: FormatMoney(i.BalanceAmount),
		Status:        i.EffectiveStatus(asOf),
		StoredStatus:  i.Status,
		OverdueDays:   i.OverdueDays(asOf),
		Notes:         i.Notes,
		CreatedBy:     i.CreatedBy,
		CancelledAt:   i.CancelledAt,
		CancelReason:  i.CancelReason,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
	if i.Project != nil {
		resp.ProjectName = i.Project.Name
	}
	for idx := range i.Payments {
		resp.Payments = append(resp.Payments, i.Payments[idx].ToResponse())
	}
	return resp
}

// BalanceResponse is the persisted balance of one invoice
type BalanceResponse struct {
	InvoiceID     uint   `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	TotalAmount   string `json:"total_amount"`
	PaidAmount    string `json:"paid_amount"`
	BalanceAmount string `json:"balance_amount"`
	Status        string `json:"status"`
	StoredStatus  string `json:"stored_status"`
	DueDate       string `json:"due_date"`
}

// ToBalanceResponse reads the persisted derived fields without touching payments
func (i *Invoice) ToBalanceResponse(asOf time.Time) BalanceResponse {
	return BalanceResponse{
		InvoiceID:     i.ID,
		InvoiceNumber: i.InvoiceNumber,
		TotalAmount:   FormatMoney(i.TotalAmount),
		PaidAmount:    FormatMoney(i.PaidAmount),
		BalanceAmount: FormatMoney(i.BalanceAmount),
		Status:        i.EffectiveStatus(asOf),
		StoredStatus:  i.Status,
		DueDate:       FormatDate(i.DueDate),
	}
}
