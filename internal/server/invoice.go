package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/invoicebook/internal/invoice/domain"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
)

type lineItemRequest struct {
	ID          string           `json:"id"`
	ItemID      string           `json:"item_id"`
	Description *string          `json:"description"`
	Quantity    *int64           `json:"quantity"`
	Rate        *decimal.Decimal `json:"rate"`
	Discount    *decimal.Decimal `json:"discount"`
}

type createInvoiceRequest struct {
	ContactID     string            `json:"contact_id"`
	InvoiceNumber string            `json:"invoice_number"`
	InvoiceType   string            `json:"invoice_type"`
	SupplyType    string            `json:"supply_type"`
	InvoiceDate   string            `json:"invoice_date"`
	InternalNote  string            `json:"internal_note"`
	Notes         string            `json:"notes"`
	LineItems     []lineItemRequest `json:"line_items"`
}

type updateInvoiceRequest struct {
	ContactID     *string            `json:"contact_id"`
	InvoiceNumber *string            `json:"invoice_number"`
	InvoiceType   *string            `json:"invoice_type"`
	SupplyType    *string            `json:"supply_type"`
	InvoiceDate   *string            `json:"invoice_date"`
	InternalNote  *string            `json:"internal_note"`
	Notes         *string            `json:"notes"`
	LineItems     *[]lineItemRequest `json:"line_items"`
}

type addLineItemsRequest struct {
	LineItems []lineItemRequest `json:"line_items"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoiceDate, err := parseOptionalCalendarDate(req.InvoiceDate)
	if err != nil {
		AbortWithError(c, invoicedomain.ErrInvalidDate)
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		ContactID:     strings.TrimSpace(req.ContactID),
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		InvoiceType:   strings.TrimSpace(req.InvoiceType),
		SupplyType:    strings.TrimSpace(req.SupplyType),
		InvoiceDate:   invoiceDate,
		InternalNote:  req.InternalNote,
		Notes:         req.Notes,
		LineItems:     toLineItemInputs(req.LineItems),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ContactID       string `form:"contact_id"`
		InvoiceType     string `form:"invoice_type"`
		InvoiceDateFrom string `form:"invoice_date_from"`
		InvoiceDateTo   string `form:"invoice_date_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dateFrom, err := parseOptionalCalendarDate(query.InvoiceDateFrom)
	if err != nil {
		AbortWithError(c, newValidationError("invoice_date_from", "invalid_invoice_date_from", "invalid invoice_date_from"))
		return
	}
	dateTo, err := parseOptionalCalendarDate(query.InvoiceDateTo)
	if err != nil {
		AbortWithError(c, newValidationError("invoice_date_to", "invalid_invoice_date_to", "invalid invoice_date_to"))
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken:       query.PageToken,
		PageSize:        query.PageSize,
		ContactID:       strings.TrimSpace(query.ContactID),
		InvoiceType:     strings.TrimSpace(query.InvoiceType),
		InvoiceDateFrom: dateFrom,
		InvoiceDateTo:   dateTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := invoicedomain.UpdateInvoiceRequest{
		ID:            strings.TrimSpace(c.Param("id")),
		ContactID:     req.ContactID,
		InvoiceNumber: req.InvoiceNumber,
		InvoiceType:   req.InvoiceType,
		SupplyType:    req.SupplyType,
		InternalNote:  req.InternalNote,
		Notes:         req.Notes,
	}
	if req.InvoiceDate != nil {
		invoiceDate, err := parseCalendarDate(*req.InvoiceDate)
		if err != nil {
			AbortWithError(c, invoicedomain.ErrInvalidDate)
			return
		}
		update.InvoiceDate = &invoiceDate
	}
	if req.LineItems != nil {
		lines := toLineItemInputs(*req.LineItems)
		update.LineItems = &lines
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.invoiceSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "deleted": true}})
}

func (s *Server) AddInvoiceLineItems(c *gin.Context) {
	var req addLineItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.LineItems) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.AddLineItems(c.Request.Context(), strings.TrimSpace(c.Param("id")), toLineItemInputs(req.LineItems))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveInvoiceLineItem(c *gin.Context) {
	resp, err := s.invoiceSvc.RemoveLineItem(c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("line_item_id")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetInvoiceNumberInfo reports the next free number and the gaps for the
// period of the requested date.
func (s *Server) GetInvoiceNumberInfo(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		AbortWithError(c, newValidationError("date", "required", "date is required"))
		return
	}
	date, err := parseCalendarDate(raw)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "date must be in DD-MM-YYYY or YYYY-MM-DD format"))
		return
	}

	resp, err := s.invoiceSvc.NumberInfo(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func toLineItemInputs(lines []lineItemRequest) []invoicedomain.LineItemInput {
	inputs := make([]invoicedomain.LineItemInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, invoicedomain.LineItemInput{
			ID:          strings.TrimSpace(line.ID),
			ItemID:      strings.TrimSpace(line.ItemID),
			Description: line.Description,
			Quantity:    line.Quantity,
			Rate:        line.Rate,
			Discount:    line.Discount,
		})
	}
	return inputs
}
