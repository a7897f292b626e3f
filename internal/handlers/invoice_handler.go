package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
)

// InvoiceHandler serves invoices and their lifecycle actions
type InvoiceHandler struct {
	invoiceService        *services.InvoiceService
	ledgerService         *services.LedgerService
	reconciliationService *services.ReconciliationService
	statementService      *services.StatementService
}

func NewInvoiceHandler(
	invoiceService *services.InvoiceService,
	ledgerService *services.LedgerService,
	reconciliationService *services.ReconciliationService,
	statementService *services.StatementService,
) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:        invoiceService,
		ledgerService:         ledgerService,
		reconciliationService: reconciliationService,
		statementService:      statementService,
	}
}

// ReasonRequest carries the optional reason of a cancellation or deletion
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=500" example:"issued twice"`
}

// resolveInvoice reads :invoice_id as a numeric id or an invoice guid
func resolveInvoice(c *gin.Context, invoiceService *services.InvoiceService) (uint, bool) {
	id, err := invoiceService.ResolveInvoiceID(c.Request.Context(), c.Param("invoice_id"))
	if err != nil {
		respondError(c, err)
		return 0, false
	}
	return id, true
}

func (h *InvoiceHandler) respondInvoice(c *gin.Context, status int, invoice *models.Invoice) {
	c.JSON(status, invoice.ToResponse(h.invoiceService.Now()))
}

// @Summary List Invoices
// @Description Lists invoices. The status filter matches the effective status, so "overdue" selects unpaid invoices past their due date.
// @Tags Invoices
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by invoice number"
// @Param client_id query int false "Filter by client"
// @Param project_id query int false "Filter by project"
// @Param status query string false "draft, sent, partially_paid, paid, cancelled or overdue"
// @Success 200 {object} ListResponse[models.InvoiceResponse]
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) Index(c *gin.Context) {
	query := &repository.InvoiceQuery{ListQuery: listQuery(c), Status: c.Query("status")}
	if v, err := strconv.ParseUint(c.Query("client_id"), 10, 64); err == nil {
		query.ClientID = uint(v)
	}
	if v, err := strconv.ParseUint(c.Query("project_id"), 10, 64); err == nil {
		query.ProjectID = uint(v)
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	asOf := h.invoiceService.Now()
	responses := make([]models.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, invoices[i].ToResponse(asOf))
	}
	respondList(c, responses, query.ListQuery, total)
}

// @Summary Create Invoice
// @Description Issues an invoice with paid amount 0 and balance equal to the total
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body services.CreateInvoiceInput true "Invoice"
// @Success 201 {object} models.InvoiceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var in services.CreateInvoiceInput
	if err := BindNestedOrFlat(c, "invoice", &in); err != nil {
		respondError(c, bindError(err))
		return
	}
	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondInvoice(c, http.StatusCreated, invoice)
}

// @Summary Get Invoice
// @Tags Invoices
// @Produce json
// @Param invoice_id path string true "Invoice ID or GUID"
// @Success 200 {object} models.InvoiceResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoice_id} [get]
func (h *InvoiceHandler) Show(c *gin.Context) {
	id, ok := resolveInvoice(c, h.invoiceService)
	if !ok {
		return
	}
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondInvoice(c, http.StatusOK, invoice)
}

// @Summary Revise Invoice
// @Description Edits number, dates, project, notes or total. The status is re-derived against the new total.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param invoice_id path string true "Invoice ID or GUID"
// @Param request body services.ReviseInvoiceInput true "Changes"
// @Success 200 {object} models.InvoiceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoice_id} [put]
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := resolveInvoice(c, h.invoiceService)
	if !ok {
		return
	}
	var in services.ReviseInvoiceInput
	if err := BindNestedOrFlat(c, "invoice", &in); err != nil {
		respondError(c, bindError(err))
		return
	}
	invoice, err := h.ledgerService.ReviseInvoice(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondInvoice(c, http.StatusOK, invoice)
}

// @Summary Send Invoice
// @Description Moves a draft to sent
// @Tags Invoices
// @Produce json
// @Param invoice_id path string true "Invoice ID or GUID"
// @Success 200 {object} models.InvoiceResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoice_id}/send [post]
func (h *InvoiceHandler) Send(c *gin.Context) {
	id, ok := resolveInvoice(c, h.invoiceService)
	if !ok {
		return
	}
	invoice, err := h.ledgerService.SendInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondInvoice(c, http.StatusOK, invoice)
}

// @Summary Cancel Invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param invoice_id path string true "Invoice ID or GUID"
// @Param request body ReasonRequest false "Reason"
// @Success 200 {object} models.InvoiceResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoice_id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, ok := resolveInvoice(c, h.invoiceService)
	if !ok {
		return
	}
	var req ReasonRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	invoice, err := h.ledgerService.CancelInvoice(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondInvoice(c, http.StatusOK, invoice)
}

// @Summary Recompute Invoice
// @Description Re-derives paid amount, balance and status from the recorded payments
// @Tags Invoices
// @Produce json
// @Param invoice_id path string true "Invoice ID or GUID"
// @Success 200 {object} models.InvoiceResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoice_id}/recompute [post]
func (h *InvoiceHandler) Recompute(c *gin.Context) {
	id, ok := resolveInvoice(c, h.invoiceService)
	if !ok {
		return
	}
	invoice, err := h.ledgerService.RecomputeInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondInvoice(c, http.StatusOK, invoice)
}

// @Summary Reconcile Invoice
// @Description Compares the stored paid amount, balance and status with the payments. Never writes.
// @Tags Invoices
// @Produce json
// @Param invoice_id path string true "Invoice ID or GUID"
// @Success 200 {object} services.ReconciliationReport
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoice_id}/reconcile [get]
func (h *InvoiceHandler) Reconcile(c *gin.Context) {
	id, ok := resolveInvoice(c, h.invoiceService)
	if !ok {
		return
	}
	report, err := h.reconciliationService.Verify(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary List Invoice Payments
// @Tags Invoices
// @Produce json
// @Param invoice_id path string true "Invoice ID or GUID"
// @Success 200 {array} models.PaymentResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoice_id}/payments [get]
func (h *InvoiceHandler) Payments(c *gin.Context) {
	id, ok := resolveInvoice(c, h.invoiceService)
	if !ok {
		return
	}
	payments, err := h.invoiceService.ListPayments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, payments[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"payments": responses})
}

// @Summary Download Statement
// @Description Renders the invoice statement with its payments
// @Tags Invoices
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param invoice_id path string true "Invoice ID or GUID"
// @Param format query string false "pdf, xlsx or csv" default(pdf)
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{invoice_id}/statement [get]
func (h *InvoiceHandler) Statement(c *gin.Context) {
	id, ok := resolveInvoice(c, h.invoiceService)
	if !ok {
		return
	}
	data, filename, err := h.statementService.Export(c.Request.Context(), id, c.DefaultQuery("format", services.FormatPDF))
	if err != nil {
		respondError(c, err)
		return
	}
	sendDocument(c, data, filename)
}

var documentTypes = map[string]string{
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv; charset=utf-8",
}

func sendDocument(c *gin.Context, data []byte, filename string) {
	contentType, ok := documentTypes[filepath.Ext(filename)]
	if !ok {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
