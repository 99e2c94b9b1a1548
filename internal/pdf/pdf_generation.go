package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"tyreworks/internal/models"
)

// Generator renders the documents that ride along on notification mails.
// Implemented here with gofpdf; mocked in dispatcher tests.
type Generator interface {
	RenderReceipt(data ReceiptData) ([]byte, error)
	RenderRejectionNotice(data RejectionData) ([]byte, error)
}

type CompanyInfo struct {
	Name    string
	Address string
	Contact string
	Email   string
}

type DocumentGenerator struct {
	Company  CompanyInfo
	fontName string
}

type ReceiptData struct {
	Booking *models.Booking
	Payment *models.Payment
	Title   string // "Booking Confirmed" / "Service Completed"
}

type RejectionData struct {
	BookingID    string
	CustomerName string
	Reason       string
}

func NewDocumentGenerator(company CompanyInfo) *DocumentGenerator {
	return &DocumentGenerator{
		Company:  company,
		fontName: "Helvetica",
	}
}

func (g *DocumentGenerator) RenderReceipt(data ReceiptData) ([]byte, error) {
	b := data.Booking
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s - %s", data.Title, b.ID), false)
	pdf.SetAuthor(g.Company.Name, false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, g.Company.Name, "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 13)
	pdf.CellFormat(0, 8, data.Title, "", 1, "C", false, 0, "")
	g.hr(pdf)
	pdf.Ln(3)

	g.sectionTitle(pdf, "Receipt")
	g.kvLine(pdf, "Booking ID", b.ID)
	g.kvLine(pdf, "Date", time.Now().Format("2006-01-02 15:04"))
	g.kvLine(pdf, "Status", capitalize(string(b.State)))
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Customer")
	g.kvLine(pdf, "Name", b.CustomerName)
	g.kvLine(pdf, "Contact", b.Contact)
	g.kvLine(pdf, "Email", b.Email)
	g.kvLine(pdf, "Area", fmt.Sprintf("%s, %s, %s", b.Area, b.District, b.Taluk))
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Service")
	g.kvLine(pdf, "Preferred date", b.PreferredDate)
	g.kvLine(pdf, "Preferred time", b.PreferredTime)
	g.kvLine(pdf, "Vehicle type", b.VehicleType)
	g.kvLine(pdf, "Vehicle details", b.VehicleDetails)
	g.kvLine(pdf, "Services", strings.Join(b.Services, ", "))
	pdf.Ln(2)
	g.hr(pdf)

	serviceAmount := b.ServiceAmount
	total := b.TotalAmount
	if total == 0 {
		total = serviceAmount + models.BookingFee
	}
	g.sectionTitle(pdf, "Payment")
	g.kvLine(pdf, "Service charges", fmt.Sprintf("Rs %.2f", serviceAmount))
	g.kvLine(pdf, "Booking fee", fmt.Sprintf("Rs %.2f", models.BookingFee))
	pdf.SetFont(g.fontName, "B", 12)
	g.kvLine(pdf, "Total amount", fmt.Sprintf("Rs %.2f", total))
	if data.Payment != nil {
		g.kvLine(pdf, "Payment method", "UPI")
		g.kvLine(pdf, "UPI reference", data.Payment.UPIRef)
	}
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "I", 10)
	pdf.MultiCell(0, 5, fmt.Sprintf("Thank you for choosing %s! For any queries contact %s. This is a computer-generated receipt.",
		g.Company.Name, g.Company.Contact), "", "L", false)

	return g.output(pdf)
}

func (g *DocumentGenerator) RenderRejectionNotice(data RejectionData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Booking Rejected - %s", data.BookingID), false)
	pdf.SetAuthor(g.Company.Name, false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, g.Company.Name, "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 13)
	pdf.CellFormat(0, 8, "Booking Decision Notice", "", 1, "C", false, 0, "")
	g.hr(pdf)
	pdf.Ln(3)

	g.kvLine(pdf, "Booking ID", data.BookingID)
	g.kvLine(pdf, "Customer", data.CustomerName)
	g.kvLine(pdf, "Decision", "Rejected")
	g.kvLine(pdf, "Reason", data.Reason)
	pdf.Ln(3)

	pdf.SetFont(g.fontName, "", 11)
	pdf.MultiCell(0, 6,
		"We are sorry we could not accept your booking at the requested slot. "+
			"The booking fee will be refunded to the UPI account it was paid from. "+
			"You are welcome to book another slot at any time.", "", "L", false)
	pdf.Ln(3)
	g.hr(pdf)

	g.sectionTitle(pdf, "Contact")
	g.kvLine(pdf, "Phone", g.Company.Contact)
	g.kvLine(pdf, "Email", g.Company.Email)
	g.kvLine(pdf, "Address", g.Company.Address)

	return g.output(pdf)
}

// ===== helpers =====

func (g *DocumentGenerator) output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *DocumentGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *DocumentGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *DocumentGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
