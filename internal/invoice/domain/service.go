package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
	"gorm.io/gorm"
)

// LineItemInput describes a line to create or edit. A set ItemID pulls
// description, rate and discount defaults from the catalog. A set ID edits an
// existing line on the invoice.
type LineItemInput struct {
	ID          string
	ItemID      string
	Description *string
	Quantity    *int64
	Rate        *decimal.Decimal
	Discount    *decimal.Decimal
}

type CreateInvoiceRequest struct {
	ContactID     string
	InvoiceNumber string
	InvoiceType   string
	SupplyType    string
	InvoiceDate   *time.Time
	InternalNote  string
	Notes         string
	LineItems     []LineItemInput
}

// UpdateInvoiceRequest patches an invoice. Nil fields are left untouched and
// a non-nil LineItems replaces the full set of lines.
type UpdateInvoiceRequest struct {
	ID            string
	ContactID     *string
	InvoiceNumber *string
	InvoiceType   *string
	SupplyType    *string
	InvoiceDate   *time.Time
	InternalNote  *string
	Notes         *string
	LineItems     *[]LineItemInput
}

type ListInvoiceRequest struct {
	PageToken       string
	PageSize        int
	ContactID       string
	InvoiceType     string
	InvoiceDateFrom *time.Time
	InvoiceDateTo   *time.Time
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// InvoiceNumberInfo is the numbering state of one period.
type InvoiceNumberInfo struct {
	Date              string   `json:"date"`
	Prefix            string   `json:"prefix"`
	NextInvoiceNumber string   `json:"next_invoice_number"`
	MissingNumbers    []string `json:"missing_numbers"`
	PeriodFull        bool     `json:"period_full"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	Update(ctx context.Context, req UpdateInvoiceRequest) (Invoice, error)
	Delete(ctx context.Context, id string) error
	AddLineItems(ctx context.Context, invoiceID string, items []LineItemInput) (Invoice, error)
	RemoveLineItem(ctx context.Context, invoiceID, lineItemID string) (Invoice, error)

	AllocateIdentifiers(ctx context.Context, tx *gorm.DB, invoice *Invoice) error
	RecomputeTotal(ctx context.Context, invoiceID string) (decimal.Decimal, error)
	PeekNextNumber(ctx context.Context, date time.Time) (string, error)
	ListMissingNumbers(ctx context.Context, date time.Time) ([]string, error)
	NumberInfo(ctx context.Context, date time.Time) (InvoiceNumberInfo, error)
	ComputeLineTotal(quantity int64, rate, discount decimal.Decimal) decimal.Decimal
}
