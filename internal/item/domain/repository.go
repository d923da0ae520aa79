package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, item *Item) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Item, error)
	NameTaken(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, name string, excludeID snowflake.ID) (bool, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListItemFilter, page pagination.Pagination) ([]*Item, error)
	Update(ctx context.Context, db *gorm.DB, item *Item) error
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (bool, error)
}
