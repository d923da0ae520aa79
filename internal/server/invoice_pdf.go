package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/invoicebook/internal/invoice/domain"
	"github.com/smallbiznis/invoicebook/internal/providers/pdf"
)

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	ctx := c.Request.Context()

	invoice, err := s.invoiceSvc.GetByID(ctx, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := invoicePDFData(invoice)
	if invoice.ContactID != nil {
		contact, err := s.contactSvc.GetByID(ctx, invoice.ContactID.String())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		data.BillToName = contact.Name
		data.BillToMobile = contact.Mobile
		data.BillToEmail = contact.Email
	}

	doc, err := s.pdf.GenerateInvoice(ctx, data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", invoice.InvoiceNumber+".pdf"))
	c.Data(http.StatusOK, "application/pdf", doc)
}

func invoicePDFData(invoice invoicedomain.Invoice) pdf.InvoiceData {
	items := make([]pdf.InvoiceItem, 0, len(invoice.LineItems))
	for _, line := range invoice.LineItems {
		items = append(items, pdf.InvoiceItem{
			Description: line.Description,
			Qty:         line.Quantity,
			UnitPrice:   line.Rate.StringFixed(2),
			Discount:    line.Discount.StringFixed(2),
			Amount:      line.Total.StringFixed(2),
		})
	}

	title := "Invoice"
	if invoice.InvoiceType == invoicedomain.InvoiceTypeDeliveryChallan {
		title = "Delivery Challan"
	}

	return pdf.InvoiceData{
		Title:         title,
		BillID:        invoice.BillID,
		InvoiceNumber: invoice.InvoiceNumber,
		InvoiceDate:   invoice.InvoiceDate.Format("02-01-2006"),
		InvoiceType:   string(invoice.InvoiceType),
		SupplyType:    string(invoice.SupplyType),
		Notes:         invoice.Notes,
		Items:         items,
		Total:         invoice.TotalAmount.StringFixed(2),
	}
}
