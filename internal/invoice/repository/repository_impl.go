package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicebook/internal/invoice/domain"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, owner_id, contact_id, bill_id, invoice_number, invoice_type, supply_type,
			invoice_date, total_amount, internal_note, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.OwnerID,
		invoice.ContactID,
		invoice.BillID,
		invoice.InvoiceNumber,
		invoice.InvoiceType,
		invoice.SupplyType,
		invoice.InvoiceDate,
		invoice.TotalAmount,
		invoice.InternalNote,
		invoice.Notes,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) FindInvoice(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, contact_id, bill_id, invoice_number, invoice_type, supply_type,
		        invoice_date, total_amount, internal_note, notes, created_at, updated_at
		 FROM invoices
		 WHERE owner_id = ? AND id = ?`,
		ownerID,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) ListInvoices(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("owner_id = ?", ownerID)
	if filter.ContactID != nil {
		stmt = stmt.Where("contact_id = ?", *filter.ContactID)
	}
	if filter.InvoiceType != "" {
		stmt = stmt.Where("invoice_type = ?", filter.InvoiceType)
	}
	if filter.InvoiceDateFrom != nil {
		stmt = stmt.Where("invoice_date >= ?", *filter.InvoiceDateFrom)
	}
	if filter.InvoiceDateTo != nil {
		stmt = stmt.Where("invoice_date <= ?", *filter.InvoiceDateTo)
	}
	stmt, err := page.Apply(stmt)
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// UpdateInvoice writes the mutable columns. Identifiers and the total are
// owned by allocation and recomputation and are never written here.
func (r *repo) UpdateInvoice(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET contact_id = ?, invoice_type = ?, supply_type = ?, invoice_date = ?,
		     internal_note = ?, notes = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		invoice.ContactID,
		invoice.InvoiceType,
		invoice.SupplyType,
		invoice.InvoiceDate,
		invoice.InternalNote,
		invoice.Notes,
		invoice.UpdatedAt,
		invoice.OwnerID,
		invoice.ID,
	).Error
}

func (r *repo) UpdateTotal(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, total decimal.Decimal, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET total_amount = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		total,
		updatedAt,
		ownerID,
		id,
	).Error
}

func (r *repo) DeleteInvoice(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM invoice_line_items WHERE invoice_id = ?`,
		id,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		`DELETE FROM invoices WHERE owner_id = ? AND id = ?`,
		ownerID,
		id,
	).Error
}

func (r *repo) InsertLineItem(ctx context.Context, db *gorm.DB, item *domain.LineItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO line_items (
			id, owner_id, item_id, description, quantity, rate, discount, total, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.OwnerID,
		item.ItemID,
		item.Description,
		item.Quantity,
		item.Rate,
		item.Discount,
		item.Total,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) UpdateLineItem(ctx context.Context, db *gorm.DB, item *domain.LineItem) error {
	return db.WithContext(ctx).Exec(
		`UPDATE line_items
		 SET item_id = ?, description = ?, quantity = ?, rate = ?, discount = ?, total = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		item.ItemID,
		item.Description,
		item.Quantity,
		item.Rate,
		item.Discount,
		item.Total,
		item.UpdatedAt,
		item.OwnerID,
		item.ID,
	).Error
}

func (r *repo) DeleteLineItems(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`DELETE FROM line_items WHERE owner_id = ? AND id IN ?`,
		ownerID,
		ids,
	).Error
}

func (r *repo) AttachLineItem(ctx context.Context, db *gorm.DB, invoiceID, lineItemID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoice_line_items (invoice_id, line_item_id) VALUES (?, ?)`,
		invoiceID,
		lineItemID,
	).Error
}

func (r *repo) DetachLineItem(ctx context.Context, db *gorm.DB, invoiceID, lineItemID snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM invoice_line_items WHERE invoice_id = ? AND line_item_id = ?`,
		invoiceID,
		lineItemID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := db.WithContext(ctx).Raw(
		`SELECT li.id, li.owner_id, li.item_id, li.description, li.quantity, li.rate,
		        li.discount, li.total, li.created_at, li.updated_at
		 FROM line_items li
		 JOIN invoice_line_items ili ON ili.line_item_id = li.id
		 WHERE ili.invoice_id = ?
		 ORDER BY li.created_at, li.id`,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MaxIdentifier(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column domain.IdentifierColumn, prefix string) (string, error) {
	col, err := identifierColumn(column)
	if err != nil {
		return "", err
	}
	var latest string
	err = db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT COALESCE(MAX(%s), '') FROM invoices WHERE owner_id = ? AND %s LIKE ?`, col, col),
		ownerID,
		likePrefix(prefix),
	).Scan(&latest).Error
	if err != nil {
		return "", err
	}
	return latest, nil
}

func (r *repo) ListIdentifiers(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column domain.IdentifierColumn, prefix string) ([]string, error) {
	col, err := identifierColumn(column)
	if err != nil {
		return nil, err
	}
	var values []string
	err = db.WithContext(ctx).
		Table("invoices").
		Where("owner_id = ?", ownerID).
		Where(col+" LIKE ?", likePrefix(prefix)).
		Order(col).
		Pluck(col, &values).Error
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (r *repo) IdentifierExists(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column domain.IdentifierColumn, value string) (bool, error) {
	col, err := identifierColumn(column)
	if err != nil {
		return false, err
	}
	var count int64
	err = db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT COUNT(1) FROM invoices WHERE owner_id = ? AND %s = ?`, col),
		ownerID,
		value,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func identifierColumn(column domain.IdentifierColumn) (string, error) {
	switch column {
	case domain.ColumnBillID, domain.ColumnInvoiceNumber:
		return string(column), nil
	default:
		return "", fmt.Errorf("unknown identifier column %q", column)
	}
}

// likePrefix builds a LIKE pattern. Prefixes only contain letters, digits
// and '-', so no wildcard escaping is needed.
func likePrefix(prefix string) string {
	return prefix + "%"
}
