package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
)

// PaymentHandler records and corrects payments
type PaymentHandler struct {
	invoiceService   *services.InvoiceService
	ledgerService    *services.LedgerService
	statementService *services.StatementService
}

func NewPaymentHandler(
	invoiceService *services.InvoiceService,
	ledgerService *services.LedgerService,
	statementService *services.StatementService,
) *PaymentHandler {
	return &PaymentHandler{
		invoiceService:   invoiceService,
		ledgerService:    ledgerService,
		statementService: statementService,
	}
}

// RecordPaymentRequest is the payment body. Amount accepts a JSON string
// or number.
type RecordPaymentRequest struct {
	Amount    json.RawMessage `json:"amount" swaggertype:"string" example:"400.00"`
	Date      string          `json:"date" example:"2026-03-01"`
	Method    string          `json:"method" example:"bank_transfer"`
	Reference string          `json:"reference" example:"TRX-8812"`
	Notes     string          `json:"notes"`
}

// RecordPaymentResponse is the recomputed invoice and the new payment id
type RecordPaymentResponse struct {
	Invoice   models.InvoiceResponse `json:"invoice"`
	PaymentID uint                   `json:"payment_id"`
}

// toInput parses the amount exactly. Anything that is not a decimal number
// is reported as an invalid amount.
func (r RecordPaymentRequest) toInput() (services.RecordPaymentInput, error) {
	in := services.RecordPaymentInput{
		Date:      strings.TrimSpace(r.Date),
		Method:    strings.TrimSpace(r.Method),
		Reference: r.Reference,
		Notes:     r.Notes,
	}

	raw := bytes.TrimSpace(r.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return in, nil
	}
	s := strings.TrimSpace(strings.Trim(string(raw), `"`))
	amount, err := decimal.NewFromString(s)
	if err != nil || s == "" {
		return in, &services.Error{
			Kind:    services.KindValidation,
			Code:    services.ErrInvalidAmount.Code,
			Message: services.ErrInvalidAmount.Message,
			Fields:  map[string]string{"amount": "must be a decimal number"},
		}
	}
	in.Amount = &amount
	return in, nil
}

// @Summary Record Payment
// @Description Records a payment against an invoice and recomputes its balance and status atomically
// @Tags Payments
// @Accept json
// @Produce json
// @Param invoice_id path string true "Invoice ID or GUID"
// @Param request body RecordPaymentRequest true "Payment"
// @Success 201 {object} RecordPaymentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoice_id}/payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	id, ok := resolveInvoice(c, h.invoiceService)
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		respondError(c, bindError(err))
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.ledgerService.RecordPayment(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RecordPaymentResponse{
		Invoice:   result.Invoice.ToResponse(h.invoiceService.Now()),
		PaymentID: result.PaymentID,
	})
}

// @Summary Outstanding Balance
// @Description Returns the persisted total, paid amount, balance and status of an invoice
// @Tags Payments
// @Produce json
// @Param invoice_id path string true "Invoice ID or GUID"
// @Success 200 {object} models.BalanceResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoice_id}/balance [get]
func (h *PaymentHandler) Balance(c *gin.Context) {
	id, ok := resolveInvoice(c, h.invoiceService)
	if !ok {
		return
	}
	balance, err := h.ledgerService.GetOutstandingBalance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// @Summary Delete Payment
// @Description Removes a mistaken payment and recomputes the invoice from the remaining payments
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Param request body ReasonRequest false "Reason"
// @Success 200 {object} models.InvoiceResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /payments/{payment_id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "payment_id", services.ErrPaymentNotFound)
	if !ok {
		return
	}
	var req ReasonRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	invoice, err := h.ledgerService.DeletePayment(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice.ToResponse(h.invoiceService.Now()))
}

// @Summary Payment Receipt
// @Tags Payments
// @Produce application/pdf
// @Param payment_id path int true "Payment ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /payments/{payment_id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	id, ok := idParam(c, "payment_id", services.ErrPaymentNotFound)
	if !ok {
		return
	}
	data, filename, err := h.statementService.PaymentReceiptPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	sendDocument(c, data, filename)
}
