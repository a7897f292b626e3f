package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a service failure. Handlers map it to an HTTP status.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Error is the typed failure returned by every service. Two errors match
// under errors.Is when their codes are equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Stable error codes
var (
	ErrValidation             = &Error{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: "validation failed"}
	ErrInvalidAmount          = &Error{Kind: KindValidation, Code: "INVALID_AMOUNT", Message: "amount must be greater than zero with at most two decimals"}
	ErrInvalidMethod          = &Error{Kind: KindValidation, Code: "INVALID_METHOD", Message: "payment method is not recognized"}
	ErrInvalidDate            = &Error{Kind: KindValidation, Code: "INVALID_DATE", Message: "date is invalid"}
	ErrInvoiceNotFound        = &Error{Kind: KindNotFound, Code: "INVOICE_NOT_FOUND", Message: "invoice not found"}
	ErrPaymentNotFound        = &Error{Kind: KindNotFound, Code: "PAYMENT_NOT_FOUND", Message: "payment not found"}
	ErrClientNotFound         = &Error{Kind: KindNotFound, Code: "CLIENT_NOT_FOUND", Message: "client not found"}
	ErrProjectNotFound        = &Error{Kind: KindNotFound, Code: "PROJECT_NOT_FOUND", Message: "project not found"}
	ErrUserNotFound           = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrAmountExceedsBalance   = &Error{Kind: KindConflict, Code: "AMOUNT_EXCEEDS_BALANCE", Message: "amount exceeds the outstanding balance"}
	ErrInvoiceAlreadyPaid     = &Error{Kind: KindConflict, Code: "INVOICE_ALREADY_PAID", Message: "invoice is already paid"}
	ErrInvoiceCancelled       = &Error{Kind: KindConflict, Code: "INVOICE_CANCELLED", Message: "invoice is cancelled"}
	ErrInvalidState           = &Error{Kind: KindConflict, Code: "INVALID_STATE", Message: "invalid status transition"}
	ErrTotalBelowPaid         = &Error{Kind: KindConflict, Code: "TOTAL_BELOW_PAID", Message: "total cannot be lower than the amount already paid"}
	ErrDuplicateInvoiceNumber = &Error{Kind: KindConflict, Code: "DUPLICATE_INVOICE_NUMBER", Message: "invoice number already exists"}
	ErrDuplicateEmail         = &Error{Kind: KindConflict, Code: "DUPLICATE_EMAIL", Message: "a user with this email already exists"}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: "authentication required"}
	ErrInvalidCredentials     = &Error{Kind: KindUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid credentials"}
	ErrInvalidToken           = &Error{Kind: KindUnauthorized, Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrForbidden              = &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: "insufficient permissions"}
	ErrStorage                = &Error{Kind: KindStorage, Code: "STORAGE_ERROR", Message: "storage failure"}
)

// withMessage returns a copy of base carrying a specific message
func withMessage(base *Error, format string, args ...interface{}) *Error {
	e := *base
	e.Message = fmt.Sprintf(format, args...)
	return &e
}

// withFields returns a copy of base carrying field-level detail
func withFields(base *Error, fields map[string]string) *Error {
	e := *base
	e.Fields = fields
	return &e
}

// storageError wraps a database failure. Typed errors pass through untouched
// so a rollback triggered by a rule violation keeps its code.
func storageError(op string, err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	e := *ErrStorage
	e.Err = fmt.Errorf("%s: %w", op, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		e.Message = "request deadline exceeded, nothing was written"
	}
	return &e
}

// notFoundOr maps gorm.ErrRecordNotFound to notFound and anything else to a storage error
func notFoundOr(notFound *Error, op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return storageError(op, err)
}

// AsError extracts the typed service error from err
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
