package services

import (
	"bytes"
	"context"
	"embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/nisalrtu/digibrand-cms-sub002/internal/models"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
)

// Statement formats
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

//go:embed templates/statement.html
var statementFS embed.FS

var statementTemplate = template.Must(template.ParseFS(statementFS, "templates/statement.html"))

// StatementService renders read-only documents for invoices and payments.
// It never runs inside a ledger transaction.
type StatementService struct {
	repos     *repository.Repositories
	gate      *AccessGate
	now       func() time.Time
	htmlToPDF func(html []byte) ([]byte, error)
}

// NewStatementService creates a new statement service
func NewStatementService(repos *repository.Repositories, gate *AccessGate) *StatementService {
	return &StatementService{
		repos:     repos,
		gate:      gate,
		now:       time.Now,
		htmlToPDF: wkhtmlToPDF,
	}
}

type statementLine struct {
	Date      string
	Method    string
	Reference string
	Amount    string
}

type statementData struct {
	Invoice     *models.Invoice
	Client      models.Client
	ProjectName string
	InvoiceDate string
	DueDate     string
	Status      string
	Total       string
	Paid        string
	Balance     string
	GeneratedAt string
	Payments    []statementLine
}

// Export renders the statement of an invoice in the requested format and
// returns the document with a download filename.
func (s *StatementService) Export(ctx context.Context, invoiceID uint, format string) ([]byte, string, error) {
	switch strings.ToLower(format) {
	case "", FormatPDF:
		return s.StatementPDF(ctx, invoiceID)
	case FormatXLSX:
		return s.StatementXLSX(ctx, invoiceID)
	case FormatCSV:
		return s.StatementCSV(ctx, invoiceID)
	}
	return nil, "", withFields(ErrValidation, map[string]string{"format": "must be one of pdf, xlsx, csv"})
}

// StatementPDF renders the invoice statement through wkhtmltopdf
func (s *StatementService) StatementPDF(ctx context.Context, invoiceID uint) ([]byte, string, error) {
	data, err := s.load(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}

	html, err := renderStatementHTML(data)
	if err != nil {
		return nil, "", err
	}

	pdf, err := s.htmlToPDF(html)
	if err != nil {
		return nil, "", fmt.Errorf("render statement pdf: %w", err)
	}
	return pdf, statementFilename(data.Invoice, FormatPDF), nil
}

// StatementXLSX renders the invoice and its payments as a workbook
func (s *StatementService) StatementXLSX(ctx context.Context, invoiceID uint) ([]byte, string, error) {
	data, err := s.load(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Statement"
	_ = f.SetSheetName("Sheet1", sheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})

	_ = f.SetCellValue(sheet, "A1", "Invoice statement "+data.Invoice.InvoiceNumber)
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)

	summary := [][2]interface{}{
		{"Client", data.Client.CompanyName},
		{"Invoice date", data.InvoiceDate},
		{"Due date", data.DueDate},
		{"Status", data.Status},
		{"Total", data.Invoice.TotalAmount.InexactFloat64()},
		{"Paid", data.Invoice.PaidAmount.InexactFloat64()},
		{"Balance", data.Invoice.BalanceAmount.InexactFloat64()},
	}
	for i, row := range summary {
		r := i + 3
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", r), row[0])
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", r), row[1])
	}
	_ = f.SetCellStyle(sheet, "B7", "B9", moneyStyle)

	start := len(summary) + 4
	headers := []string{"Date", "Method", "Reference", "Amount"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, start)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", start), fmt.Sprintf("D%d", start), headerStyle)

	for i, p := range data.Invoice.Payments {
		r := start + i + 1
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", r), models.FormatDate(p.PaymentDate))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", r), p.PaymentMethod)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", r), derefString(p.PaymentReference))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", r), p.PaymentAmount.InexactFloat64())
		_ = f.SetCellStyle(sheet, fmt.Sprintf("D%d", r), fmt.Sprintf("D%d", r), moneyStyle)
	}
	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "C", 24)
	_ = f.SetColWidth(sheet, "D", "D", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), statementFilename(data.Invoice, FormatXLSX), nil
}

// statementCSVHeader is shared by invoice and payment rows so every record
// has the same number of fields.
var statementCSVHeader = []string{
	"record_type", "invoice_number", "client", "invoice_date", "due_date",
	"status", "total_amount", "paid_amount", "balance_amount",
	"payment_id", "payment_date", "payment_method", "payment_reference", "payment_amount",
}

// StatementCSV renders the invoice and its payments as CSV
func (s *StatementService) StatementCSV(ctx context.Context, invoiceID uint) ([]byte, string, error) {
	data, err := s.load(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write(statementCSVHeader)
	_ = writer.Write([]string{
		"invoice", data.Invoice.InvoiceNumber, data.Client.CompanyName, data.InvoiceDate, data.DueDate,
		data.Status, data.Total, data.Paid, data.Balance,
		"", "", "", "", "",
	})
	for _, p := range data.Invoice.Payments {
		_ = writer.Write([]string{
			"payment", data.Invoice.InvoiceNumber, "", "", "",
			"", "", "", "",
			strconv.FormatUint(uint64(p.ID), 10),
			models.FormatDate(p.PaymentDate),
			p.PaymentMethod,
			derefString(p.PaymentReference),
			models.FormatMoney(p.PaymentAmount),
		})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), statementFilename(data.Invoice, FormatCSV), nil
}

// PaymentReceiptPDF renders a one-page receipt for a recorded payment
func (s *StatementService) PaymentReceiptPDF(ctx context.Context, paymentID uint) ([]byte, string, error) {
	if _, err := s.gate.Authorize(ctx, PermPaymentsRead); err != nil {
		return nil, "", err
	}

	payment, err := s.repos.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, "", notFoundOr(ErrPaymentNotFound, "find payment", err)
	}
	invoice, err := s.repos.Invoice.FindByID(ctx, payment.InvoiceID)
	if err != nil {
		return nil, "", notFoundOr(ErrInvoiceNotFound, "find invoice", err)
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Payment receipt "+payment.GUID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Payment receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	rows := [][2]string{
		{"Receipt", payment.GUID},
		{"Received from", invoice.Client.CompanyName},
		{"Invoice", invoice.InvoiceNumber},
		{"Payment date", models.FormatDate(payment.PaymentDate)},
		{"Method", strings.ReplaceAll(payment.PaymentMethod, "_", " ")},
	}
	if ref := derefString(payment.PaymentReference); ref != "" {
		rows = append(rows, [2]string{"Reference", ref})
	}
	for _, row := range rows {
		pdf.Cell(40, 7, row[0]+":")
		pdf.Cell(0, 7, row[1])
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 8, "Amount:")
	pdf.Cell(0, 8, models.FormatMoney(payment.PaymentAmount))
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 8)
	pdf.MultiCell(0, 5, "The sum of "+AmountInWords(payment.PaymentAmount), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 7, "Invoice balance:")
	pdf.Cell(0, 7, models.FormatMoney(invoice.BalanceAmount))
	pdf.Ln(12)

	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(0, 5, "Generated "+s.now().Format("2006-01-02 15:04"))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("receipt_%s.pdf", payment.GUID), nil
}

func (s *StatementService) load(ctx context.Context, invoiceID uint) (*statementData, error) {
	if _, err := s.gate.Authorize(ctx, PermInvoicesRead); err != nil {
		return nil, err
	}

	invoice, err := s.repos.Invoice.FindWithPayments(ctx, invoiceID)
	if err != nil {
		return nil, notFoundOr(ErrInvoiceNotFound, "find invoice", err)
	}

	now := s.now()
	data := &statementData{
		Invoice:     invoice,
		Client:      invoice.Client,
		InvoiceDate: models.FormatDate(invoice.InvoiceDate),
		DueDate:     models.FormatDate(invoice.DueDate),
		Status:      invoice.EffectiveStatus(now),
		Total:       models.FormatMoney(invoice.TotalAmount),
		Paid:        models.FormatMoney(invoice.PaidAmount),
		Balance:     models.FormatMoney(invoice.BalanceAmount),
		GeneratedAt: now.Format("2006-01-02 15:04"),
	}
	if invoice.Project != nil {
		data.ProjectName = invoice.Project.Name
	}
	for _, p := range invoice.Payments {
		data.Payments = append(data.Payments, statementLine{
			Date:      models.FormatDate(p.PaymentDate),
			Method:    p.PaymentMethod,
			Reference: derefString(p.PaymentReference),
			Amount:    models.FormatMoney(p.PaymentAmount),
		})
	}
	return data, nil
}

func renderStatementHTML(data *statementData) ([]byte, error) {
	var buf bytes.Buffer
	if err := statementTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute statement template: %w", err)
	}
	return buf.Bytes(), nil
}

func wkhtmlToPDF(html []byte) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("create pdf generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)

	pdfg.AddPage(wkhtmltopdf.NewPageReader(bytes.NewReader(html)))

	if err := pdfg.Create(); err != nil {
		return nil, err
	}
	return pdfg.Buffer().Bytes(), nil
}

func statementFilename(invoice *models.Invoice, ext string) string {
	return fmt.Sprintf("statement_%s.%s", invoice.InvoiceNumber, ext)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
