// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceType classifies the document an invoice represents.
type InvoiceType string

const (
	InvoiceTypeDefault         InvoiceType = "default"
	InvoiceTypeDeliveryChallan InvoiceType = "delivery_challan"
	InvoiceTypeOldDC           InvoiceType = "old_dc"
)

func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceTypeDefault, InvoiceTypeDeliveryChallan, InvoiceTypeOldDC:
		return true
	}
	return false
}

// SupplyType describes the shipping arrangement of an invoice.
type SupplyType string

const (
	SupplyTypeRegular              SupplyType = "regular"
	SupplyTypeBillToShipTo         SupplyType = "bill_to_ship_to"
	SupplyTypeBillFromDispatchFrom SupplyType = "bill_from_dispatch_from"
	SupplyTypeAParty               SupplyType = "a_party"
)

func (t SupplyType) Valid() bool {
	switch t {
	case SupplyTypeRegular, SupplyTypeBillToShipTo, SupplyTypeBillFromDispatchFrom, SupplyTypeAParty:
		return true
	}
	return false
}

// IdentifierColumn names an allocated identifier column on invoices.
type IdentifierColumn string

const (
	ColumnBillID        IdentifierColumn = "bill_id"
	ColumnInvoiceNumber IdentifierColumn = "invoice_number"
)

// Invoice is a billing document. BillID and InvoiceNumber are assigned on
// first save and never change afterwards.
type Invoice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	OwnerID       snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_invoices_owner_bill_id,priority:1;uniqueIndex:ux_invoices_owner_invoice_number,priority:1" json:"owner_id"`
	ContactID     *snowflake.ID   `gorm:"index" json:"contact_id,omitempty"`
	BillID        string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_invoices_owner_bill_id,priority:2" json:"bill_id"`
	InvoiceNumber string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_invoices_owner_invoice_number,priority:2" json:"invoice_number"`
	InvoiceType   InvoiceType     `gorm:"type:varchar(32);not null;default:'default'" json:"invoice_type"`
	SupplyType    SupplyType      `gorm:"type:varchar(32);not null;default:'regular'" json:"supply_type"`
	InvoiceDate   time.Time       `gorm:"type:date;not null" json:"invoice_date"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`
	InternalNote  string          `gorm:"type:text" json:"internal_note,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	LineItems []LineItem `gorm:"-" json:"line_items,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// LineItem is a single billable line. Total is derived from the other
// amounts on every save.
type LineItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OwnerID     snowflake.ID    `gorm:"not null;index" json:"owner_id"`
	ItemID      *snowflake.ID   `gorm:"index" json:"item_id,omitempty"`
	Description string          `gorm:"type:text" json:"description"`
	Quantity    int64           `gorm:"not null;default:1" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"rate"`
	Discount    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"discount"`
	Total       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "line_items" }

// InvoiceLineItem joins invoices and line items.
type InvoiceLineItem struct {
	InvoiceID  snowflake.ID `gorm:"primaryKey"`
	LineItemID snowflake.ID `gorm:"primaryKey;index"`
}

// TableName sets the database table name.
func (InvoiceLineItem) TableName() string { return "invoice_line_items" }
