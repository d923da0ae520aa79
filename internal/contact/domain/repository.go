package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contact *Contact) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Contact, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListContactFilter, page pagination.Pagination) ([]*Contact, error)
	Update(ctx context.Context, db *gorm.DB, contact *Contact) error
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error
}
