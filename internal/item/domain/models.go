package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ItemType classifies a catalog entry.
type ItemType string

const (
	ItemTypeService ItemType = "service"
	ItemTypeProduct ItemType = "product"
	ItemTypeCharge  ItemType = "charge"
)

// UnitTypes are the accepted unit of measure codes.
var UnitTypes = []string{
	"Bags", "Bottl", "Box", "Carat", "Cent", "Cm", "Dozen", "Feet", "Gram", "Hrs",
	"Kg", "Ltr", "Mg", "Mlt", "Mm", "Mtr", "Pcs", "Tblet", "Tonne",
}

const DefaultUnitType = "Pcs"

// TaxCategories are stored as labels only; no tax is computed from them.
var TaxCategories = []string{
	"none", "gst-0.25", "gst-1", "gst-3", "gst-5", "gst-12", "gst-18", "gst-28",
	"nil-rated", "non-gst", "exempt",
}

// Item is a billable catalog entry. Line items copy their defaults from it.
type Item struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	OwnerID            snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_items_owner_name,priority:1" json:"owner_id"`
	Name               string            `gorm:"type:varchar(255);not null;uniqueIndex:ux_items_owner_name,priority:2" json:"name"`
	Type               ItemType          `gorm:"type:varchar(16);not null;default:'service'" json:"type"`
	SAC                string            `gorm:"column:sac;type:varchar(32)" json:"sac,omitempty"`
	UnitType           string            `gorm:"type:varchar(32)" json:"unit_type,omitempty"`
	TaxCategory        string            `gorm:"type:varchar(16);not null;default:'none'" json:"tax_category"`
	InvoiceDescription string            `gorm:"type:text" json:"invoice_description,omitempty"`
	Rate               decimal.Decimal   `gorm:"type:decimal(14,2);not null;default:0" json:"rate"`
	Discount           decimal.Decimal   `gorm:"type:decimal(14,2);not null;default:0" json:"discount"`
	WithTax            bool              `gorm:"not null;default:false" json:"with_tax"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Item) TableName() string { return "items" }

// LineDescription is the text copied onto an invoice line.
func (i Item) LineDescription() string {
	if i.InvoiceDescription != "" {
		return i.InvoiceDescription
	}
	return i.Name
}
