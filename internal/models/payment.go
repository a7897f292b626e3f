package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is money received against exactly one invoice. Rows are never updated.
type Payment struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	GUID             string          `gorm:"column:guid;size:36;uniqueIndex;not null" json:"guid"`
	InvoiceID        uint            `gorm:"not null;index" json:"invoice_id"`
	PaymentAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"payment_amount"`
	PaymentDate      time.Time       `gorm:"type:date;not null;index" json:"payment_date"`
	PaymentMethod    string          `gorm:"size:20;not null" json:"payment_method"`
	PaymentReference *string         `gorm:"size:100" json:"payment_reference"`
	Notes            *string         `gorm:"type:text" json:"notes"`
	CreatedBy        uint            `gorm:"not null;index" json:"created_by"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Payment method constants
const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCheck        = "check"
	PaymentMethodCard         = "card"
	PaymentMethodOnline       = "online"
	PaymentMethodOther        = "other"
)

// PaymentMethods lists every accepted payment method
var PaymentMethods = []string{
	PaymentMethodCash,
	PaymentMethodBankTransfer,
	PaymentMethodCheck,
	PaymentMethodCard,
	PaymentMethodOnline,
	PaymentMethodOther,
}

// IsValidPaymentMethod returns true if method is one of PaymentMethods
func IsValidPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// PaymentResponse is the JSON response format for payments
type PaymentResponse struct {
	ID               uint      `json:"id"`
	GUID             string    `json:"guid"`
	InvoiceID        uint      `json:"invoice_id"`
	PaymentAmount    string    `json:"payment_amount"`
	PaymentDate      string    `json:"payment_date"`
	PaymentMethod    string    `json:"payment_method"`
	PaymentReference *string   `json:"payment_reference"`
	Notes            *string   `json:"notes"`
	CreatedBy        uint      `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
}

// ToResponse converts Payment to PaymentResponse
func (p *Payment) ToResponse() PaymentResponse {
	return PaymentResponse{
		ID:               p.ID,
		GUID:             p.GUID,
		InvoiceID:        p.InvoiceID,
		PaymentAmount:    FormatMoney(p.PaymentAmount),
		PaymentDate:      FormatDate(p.PaymentDate),
		PaymentMethod:    p.PaymentMethod,
		PaymentReference: p.PaymentReference,
		Notes:            p.Notes,
		CreatedBy:        p.CreatedBy,
		CreatedAt:        p.CreatedAt,
	}
}
