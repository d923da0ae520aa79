package service

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicebook/internal/clock"
	"github.com/smallbiznis/invoicebook/internal/item/domain"
	"github.com/smallbiznis/invoicebook/internal/ownercontext"
	"github.com/smallbiznis/invoicebook/pkg/db"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock `optional:"true"`
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("item.service"),
		genID: p.GenID,
		clock: clk,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateItemRequest) (domain.Item, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.Item{}, err
	}

	now := s.clock.Now()
	item := domain.Item{
		ID:                 s.genID.Generate(),
		OwnerID:            ownerID,
		Name:               strings.TrimSpace(req.Name),
		Type:               domain.ItemType(strings.ToLower(strings.TrimSpace(req.Type))),
		SAC:                strings.TrimSpace(req.SAC),
		UnitType:           strings.TrimSpace(req.UnitType),
		TaxCategory:        strings.ToLower(strings.TrimSpace(req.TaxCategory)),
		InvoiceDescription: strings.TrimSpace(req.InvoiceDescription),
		Rate:               req.Rate,
		Discount:           req.Discount,
		WithTax:            req.WithTax,
		Metadata:           datatypes.JSONMap(req.Metadata),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	applyDefaults(&item)
	if err := validateItem(item); err != nil {
		return domain.Item{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.repo.NameTaken(ctx, tx, ownerID, item.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrDuplicateName
		}
		if err := s.repo.Insert(ctx, tx, &item); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateName
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListItemRequest) (domain.ListItemResponse, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.ListItemResponse{}, err
	}

	filter := domain.ListItemFilter{
		Type: domain.ItemType(strings.ToLower(strings.TrimSpace(req.Type))),
		Name: strings.TrimSpace(req.Name),
	}
	if filter.Type != "" && !validType(filter.Type) {
		return domain.ListItemResponse{}, domain.ErrInvalidType
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}.Normalize()
	items, err := s.repo.List(ctx, s.db, ownerID, filter, page)
	if err != nil {
		return domain.ListItemResponse{}, err
	}

	items, pageInfo := pagination.BuildPageInfo(items, page.PageSize, func(i *domain.Item) pagination.Cursor {
		return pagination.Cursor{ID: int64(i.ID), CreatedAt: i.CreatedAt}
	})

	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return domain.ListItemResponse{PageInfo: pageInfo, Items: out}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Item, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.Item{}, err
	}
	itemID, err := s.parseID(id)
	if err != nil {
		return domain.Item{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if item == nil {
		return domain.Item{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateItemRequest) (domain.Item, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.Item{}, err
	}
	itemID, err := s.parseID(req.ID)
	if err != nil {
		return domain.Item{}, err
	}

	var updated domain.Item
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, ownerID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			item.Name = strings.TrimSpace(*req.Name)
		}
		if req.Type != nil {
			item.Type = domain.ItemType(strings.ToLower(strings.TrimSpace(*req.Type)))
		}
		if req.SAC != nil {
			item.SAC = strings.TrimSpace(*req.SAC)
		}
		if req.UnitType != nil {
			item.UnitType = strings.TrimSpace(*req.UnitType)
		}
		if req.TaxCategory != nil {
			item.TaxCategory = strings.ToLower(strings.TrimSpace(*req.TaxCategory))
		}
		if req.InvoiceDescription != nil {
			item.InvoiceDescription = strings.TrimSpace(*req.InvoiceDescription)
		}
		if req.Rate != nil {
			item.Rate = *req.Rate
		}
		if req.Discount != nil {
			item.Discount = *req.Discount
		}
		if req.WithTax != nil {
			item.WithTax = *req.WithTax
		}
		if req.Metadata != nil {
			item.Metadata = datatypes.JSONMap(req.Metadata)
		}
		applyDefaults(item)
		if err := validateItem(*item); err != nil {
			return err
		}

		taken, err := s.repo.NameTaken(ctx, tx, ownerID, item.Name, item.ID)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrDuplicateName
		}

		item.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, item); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateName
			}
			return err
		}
		updated = *item
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return err
	}
	itemID, err := s.parseID(id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := s.repo.Delete(ctx, tx, ownerID, itemID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrNotFound
		}
		return nil
	})
}

func applyDefaults(item *domain.Item) {
	if item.Type == "" {
		item.Type = domain.ItemTypeService
	}
	if item.UnitType == "" {
		item.UnitType = domain.DefaultUnitType
	}
	if item.TaxCategory == "" {
		item.TaxCategory = "none"
	}
	if item.Metadata == nil {
		item.Metadata = datatypes.JSONMap{}
	}
}

func validateItem(item domain.Item) error {
	if item.Name == "" || utf8.RuneCountInString(item.Name) > domain.MaxNameLength {
		return domain.ErrInvalidName
	}
	if !validSAC(item.SAC) {
		return domain.ErrInvalidSAC
	}
	if !validType(item.Type) {
		return domain.ErrInvalidType
	}
	if !slices.Contains(domain.UnitTypes, item.UnitType) {
		return domain.ErrInvalidUnitType
	}
	if !slices.Contains(domain.TaxCategories, item.TaxCategory) {
		return domain.ErrInvalidTaxCategory
	}
	if item.Rate.LessThan(decimal.Zero) {
		return domain.ErrInvalidRate
	}
	if item.Discount.LessThan(decimal.Zero) {
		return domain.ErrInvalidDiscount
	}
	return nil
}

// validSAC accepts an empty code or up to 12 digits.
func validSAC(sac string) bool {
	if len(sac) > 12 {
		return false
	}
	for _, r := range sac {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validType(t domain.ItemType) bool {
	switch t {
	case domain.ItemTypeService, domain.ItemTypeProduct, domain.ItemTypeCharge:
		return true
	}
	return false
}

func (s *Service) ownerIDFromContext(ctx context.Context) (snowflake.ID, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return 0, domain.ErrInvalidOwner
	}
	return ownerID, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
