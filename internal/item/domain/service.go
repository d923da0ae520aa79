package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
)

const MaxNameLength = 100

type ListItemRequest struct {
	PageToken string
	PageSize  int
	Type      string
	Name      string
}

type ListItemFilter struct {
	Type ItemType
	Name string
}

type ListItemResponse struct {
	pagination.PageInfo
	Items []Item `json:"items"`
}

type CreateItemRequest struct {
	Name               string
	Type               string
	SAC                string
	UnitType           string
	TaxCategory        string
	InvoiceDescription string
	Rate               decimal.Decimal
	Discount           decimal.Decimal
	WithTax            bool
	Metadata           map[string]any
}

type UpdateItemRequest struct {
	ID                 string
	Name               *string
	Type               *string
	SAC                *string
	UnitType           *string
	TaxCategory        *string
	InvoiceDescription *string
	Rate               *decimal.Decimal
	Discount           *decimal.Decimal
	WithTax            *bool
	Metadata           map[string]any
}

type Service interface {
	Create(context.Context, CreateItemRequest) (Item, error)
	List(context.Context, ListItemRequest) (ListItemResponse, error)
	GetByID(ctx context.Context, id string) (Item, error)
	Update(context.Context, UpdateItemRequest) (Item, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOwner       = errors.New("invalid_owner")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrDuplicateName      = errors.New("duplicate_name")
	ErrInvalidSAC         = errors.New("invalid_sac")
	ErrInvalidType        = errors.New("invalid_type")
	ErrInvalidUnitType    = errors.New("invalid_unit_type")
	ErrInvalidTaxCategory = errors.New("invalid_tax_category")
	ErrInvalidRate        = errors.New("invalid_rate")
	ErrInvalidDiscount    = errors.New("invalid_discount")
	ErrNotFound           = errors.New("not_found")
)
