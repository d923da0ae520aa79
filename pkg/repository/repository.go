package repository

import (
	"context"

	"gorm.io/gorm"
)

// Scope narrows a query, for example with ordering or extra conditions.
type Scope func(*gorm.DB) *gorm.DB

// Repository is a generic gorm-backed store for simple owner-scoped tables.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, scopes ...Scope) ([]*T, error)
	FindOne(ctx context.Context, query *T, scopes ...Scope) (*T, error)
	Create(ctx context.Context, resource *T) error
	Updates(ctx context.Context, query *T, values map[string]any) (int64, error)
	Delete(ctx context.Context, query *T) (int64, error)
	Count(ctx context.Context, query *T, scopes ...Scope) (int64, error)
}

// OrderBy sorts by column when it is in allow, otherwise by fallback.
func OrderBy(column string, desc bool, allow map[string]bool, fallback string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if !allow[column] {
			return db.Order(fallback)
		}
		if desc {
			return db.Order(column + " desc")
		}
		return db.Order(column + " asc")
	}
}

// Where adds a raw condition.
func Where(query string, args ...any) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}
}
