package models

import (
	"time"
)

// AuditLog represents a system audit entry
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"size:50;not null" json:"action"` // RECORD_PAYMENT, DELETE_PAYMENT, CANCEL, ...
	Entity    string    `gorm:"size:50;not null" json:"entity"` // Invoice, Payment, Client
	EntityID  uint      `gorm:"index" json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Associations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actions
const (
	AuditActionCreate        = "CREATE"
	AuditActionUpdate        = "UPDATE"
	AuditActionSend          = "SEND"
	AuditActionCancel        = "CANCEL"
	AuditActionRecordPayment = "RECORD_PAYMENT"
	AuditActionDeletePayment = "DELETE_PAYMENT"
	AuditActionRecompute     = "RECOMPUTE"
	AuditActionDeactivate    = "DEACTIVATE"
	AuditActionLogin         = "LOGIN"
)

// Audited entities
const (
	AuditEntityInvoice = "Invoice"
	AuditEntityPayment = "Payment"
	AuditEntityClient  = "Client"
	AuditEntityProject = "Project"
	AuditEntityUser    = "User"
)
