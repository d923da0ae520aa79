package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/invoicebook/internal/clock"
	"github.com/smallbiznis/invoicebook/internal/contact/domain"
	"github.com/smallbiznis/invoicebook/internal/ownercontext"
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
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	validate *validator.Validate
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("contact.service"),
		genID:    p.GenID,
		clock:    clk,
		repo:     p.Repo,
		validate: validator.New(),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateContactRequest) (domain.Contact, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.Contact{}, err
	}

	now := s.clock.Now()
	contact := domain.Contact{
		ID:        s.genID.Generate(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(req.Name),
		Mobile:    strings.TrimSpace(req.Mobile),
		Email:     strings.TrimSpace(req.Email),
		Metadata:  datatypes.JSONMap(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if contact.Metadata == nil {
		contact.Metadata = datatypes.JSONMap{}
	}
	if err := s.validateContact(contact); err != nil {
		return domain.Contact{}, err
	}

	if err := s.repo.Insert(ctx, s.db, &contact); err != nil {
		return domain.Contact{}, err
	}
	return contact, nil
}

func (s *Service) List(ctx context.Context, req domain.ListContactRequest) (domain.ListContactResponse, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.ListContactResponse{}, err
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}.Normalize()
	items, err := s.repo.List(ctx, s.db, ownerID, domain.ListContactFilter{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
	}, page)
	if err != nil {
		return domain.ListContactResponse{}, err
	}

	items, pageInfo := pagination.BuildPageInfo(items, page.PageSize, func(c *domain.Contact) pagination.Cursor {
		return pagination.Cursor{ID: int64(c.ID), CreatedAt: c.CreatedAt}
	})

	contacts := make([]domain.Contact, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		contacts = append(contacts, *item)
	}

	return domain.ListContactResponse{PageInfo: pageInfo, Contacts: contacts}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Contact, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.Contact{}, err
	}
	contactID, err := s.parseID(id)
	if err != nil {
		return domain.Contact{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, contactID)
	if err != nil {
		return domain.Contact{}, err
	}
	if item == nil {
		return domain.Contact{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateContactRequest) (domain.Contact, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.Contact{}, err
	}
	contactID, err := s.parseID(req.ID)
	if err != nil {
		return domain.Contact{}, err
	}

	var updated domain.Contact
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contact, err := s.repo.FindByID(ctx, tx, ownerID, contactID)
		if err != nil {
			return err
		}
		if contact == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			contact.Name = strings.TrimSpace(*req.Name)
		}
		if req.Mobile != nil {
			contact.Mobile = strings.TrimSpace(*req.Mobile)
		}
		if req.Email != nil {
			contact.Email = strings.TrimSpace(*req.Email)
		}
		if req.Metadata != nil {
			contact.Metadata = datatypes.JSONMap(req.Metadata)
		}
		if err := s.validateContact(*contact); err != nil {
			return err
		}

		contact.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, contact); err != nil {
			return err
		}
		updated = *contact
		return nil
	})
	if err != nil {
		return domain.Contact{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return err
	}
	contactID, err := s.parseID(id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contact, err := s.repo.FindByID(ctx, tx, ownerID, contactID)
		if err != nil {
			return err
		}
		if contact == nil {
			return domain.ErrNotFound
		}
		if err := s.repo.Delete(ctx, tx, ownerID, contactID); err != nil {
			return err
		}
		s.log.Info("contact deleted", zap.String("contact_id", contactID.String()))
		return nil
	})
}

func (s *Service) validateContact(contact domain.Contact) error {
	if contact.Name == "" {
		return domain.ErrInvalidName
	}
	if utf8.RuneCountInString(contact.Mobile) > domain.MaxMobileLength {
		return domain.ErrInvalidMobile
	}
	if contact.Email != "" {
		if err := s.validate.Var(contact.Email, "email"); err != nil {
			return domain.ErrInvalidEmail
		}
	}
	return nil
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
