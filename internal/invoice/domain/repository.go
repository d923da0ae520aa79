package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListInvoiceFilter struct {
	ContactID       *snowflake.ID
	InvoiceType     InvoiceType
	InvoiceDateFrom *time.Time
	InvoiceDateTo   *time.Time
}

type Repository interface {
	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindInvoice(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Invoice, error)
	ListInvoices(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	UpdateInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	UpdateTotal(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, total decimal.Decimal, updatedAt time.Time) error
	DeleteInvoice(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error

	InsertLineItem(ctx context.Context, db *gorm.DB, item *LineItem) error
	UpdateLineItem(ctx context.Context, db *gorm.DB, item *LineItem) error
	DeleteLineItems(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) error
	AttachLineItem(ctx context.Context, db *gorm.DB, invoiceID, lineItemID snowflake.ID) error
	DetachLineItem(ctx context.Context, db *gorm.DB, invoiceID, lineItemID snowflake.ID) (bool, error)
	ListLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]LineItem, error)

	MaxIdentifier(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column IdentifierColumn, prefix string) (string, error)
	ListIdentifiers(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column IdentifierColumn, prefix string) ([]string, error)
	IdentifierExists(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column IdentifierColumn, value string) (bool, error)
}

// AllocationLocker narrows the allocation race between instances. It never
// replaces the unique indexes, which stay the arbiter.
type AllocationLocker interface {
	LockAllocation(ctx context.Context, scope string) (token string, ok bool, err error)
	UnlockAllocation(ctx context.Context, scope, token string) error
}
