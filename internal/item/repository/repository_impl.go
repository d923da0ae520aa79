package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicebook/internal/item/domain"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
	"github.com/smallbiznis/invoicebook/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) store(db *gorm.DB) repository.Repository[domain.Item] {
	return repository.ProvideStore[domain.Item](db)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return r.store(db).Create(ctx, item)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Item, error) {
	return r.store(db).FindOne(ctx, &domain.Item{ID: id, OwnerID: ownerID})
}

func (r *repo) NameTaken(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, name string, excludeID snowflake.ID) (bool, error) {
	scopes := []repository.Scope{}
	if excludeID != 0 {
		scopes = append(scopes, repository.Where("id <> ?", excludeID))
	}
	count, err := r.store(db).Count(ctx, &domain.Item{OwnerID: ownerID, Name: name}, scopes...)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter domain.ListItemFilter, page pagination.Pagination) ([]*domain.Item, error) {
	query := &domain.Item{OwnerID: ownerID, Type: filter.Type}
	scopes := []repository.Scope{}
	if filter.Name != "" {
		scopes = append(scopes, repository.Where("name LIKE ?", "%"+filter.Name+"%"))
	}
	var pageErr error
	scopes = append(scopes, func(stmt *gorm.DB) *gorm.DB {
		paged, err := page.Apply(stmt)
		if err != nil {
			pageErr = err
			return stmt
		}
		return paged
	})

	items, err := r.store(db).Find(ctx, query, scopes...)
	if pageErr != nil {
		return nil, pageErr
	}
	return items, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	_, err := r.store(db).Updates(ctx, &domain.Item{ID: item.ID, OwnerID: item.OwnerID}, map[string]any{
		"name":                item.Name,
		"type":                item.Type,
		"sac":                 item.SAC,
		"unit_type":           item.UnitType,
		"tax_category":        item.TaxCategory,
		"invoice_description": item.InvoiceDescription,
		"rate":                item.Rate,
		"discount":            item.Discount,
		"with_tax":            item.WithTax,
		"metadata":            item.Metadata,
		"updated_at":          item.UpdatedAt,
	})
	return err
}

// Delete removes the catalog entry. Line items keep their copied values and
// lose the reference.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (bool, error) {
	if err := db.WithContext(ctx).Exec(
		`UPDATE line_items SET item_id = NULL WHERE owner_id = ? AND item_id = ?`,
		ownerID,
		id,
	).Error; err != nil {
		return false, err
	}
	deleted, err := r.store(db).Delete(ctx, &domain.Item{ID: id, OwnerID: ownerID})
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}
