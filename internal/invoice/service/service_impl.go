package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicebook/internal/clock"
	"github.com/smallbiznis/invoicebook/internal/config"
	contactdomain "github.com/smallbiznis/invoicebook/internal/contact/domain"
	"github.com/smallbiznis/invoicebook/internal/invoice/domain"
	"github.com/smallbiznis/invoicebook/internal/invoice/numbering"
	itemdomain "github.com/smallbiznis/invoicebook/internal/item/domain"
	"github.com/smallbiznis/invoicebook/internal/observability/metrics"
	"github.com/smallbiznis/invoicebook/internal/observability/tracing"
	"github.com/smallbiznis/invoicebook/internal/ownercontext"
	"github.com/smallbiznis/invoicebook/pkg/db"
	"github.com/smallbiznis/invoicebook/pkg/db/pagination"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock             `optional:"true"`
	Repo      domain.Repository
	Contacts  contactdomain.Repository
	Items     itemdomain.Repository
	Numbering *config.NumberingConfigHolder
	Metrics   *metrics.Metrics        `optional:"true"`
	Locker    domain.AllocationLocker `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	contacts  contactdomain.Repository
	items     itemdomain.Repository
	numbering *config.NumberingConfigHolder
	allocator *numbering.Allocator
	metrics   *metrics.Metrics
	locker    domain.AllocationLocker
}

func NewService(p ServiceParam) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	log := p.Log.Named("invoice.service")
	return &Service{
		db:  p.DB,
		log: log,

		genID:     p.GenID,
		clock:     clk,
		repo:      p.Repo,
		contacts:  p.Contacts,
		items:     p.Items,
		numbering: p.Numbering,
		allocator: numbering.NewAllocator(p.Repo, p.Log, p.Numbering),
		metrics:   p.Metrics,
		locker:    p.Locker,
	}
}

// Create persists a new invoice with its identifiers and initial lines.
// Allocation reads then inserts; a unique-key conflict on the insert means a
// concurrent create took the same identifier, so the whole transaction is
// retried with fresh reads.
func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}

	invoiceType, err := parseInvoiceType(req.InvoiceType)
	if err != nil {
		return domain.Invoice{}, err
	}
	supplyType, err := parseSupplyType(req.SupplyType)
	if err != nil {
		return domain.Invoice{}, err
	}
	invoiceDate := s.clock.Now()
	if req.InvoiceDate != nil {
		if req.InvoiceDate.IsZero() {
			return domain.Invoice{}, domain.ErrInvalidDate
		}
		invoiceDate = *req.InvoiceDate
	}
	invoiceDate = normalizeDate(invoiceDate)

	contactID, err := parseOptionalID(req.ContactID, domain.ErrInvalidContact)
	if err != nil {
		return domain.Invoice{}, err
	}
	for i, line := range req.LineItems {
		if err := precheckLine(line); err != nil {
			return domain.Invoice{}, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	manualNumber := strings.TrimSpace(req.InvoiceNumber)

	ctx, span := tracing.Tracer("invoicebook/invoice").Start(ctx, "invoice.create")
	defer span.End()

	if manualNumber == "" {
		unlock := s.lockAllocation(ctx, ownerID, invoiceDate)
		defer unlock()
	}

	maxAttempts := s.numbering.Get().MaxAllocationAttempts
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		now := s.clock.Now()
		invoice := domain.Invoice{
			ID:            s.genID.Generate(),
			OwnerID:       ownerID,
			ContactID:     contactID,
			InvoiceNumber: manualNumber,
			InvoiceType:   invoiceType,
			SupplyType:    supplyType,
			InvoiceDate:   invoiceDate,
			TotalAmount:   decimal.Zero,
			InternalNote:  strings.TrimSpace(req.InternalNote),
			Notes:         strings.TrimSpace(req.Notes),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.ensureContact(ctx, tx, ownerID, contactID); err != nil {
				return err
			}
			if manualNumber != "" {
				if err := s.allocator.ValidateManualNumber(ctx, tx, ownerID, invoiceDate, manualNumber); err != nil {
					return err
				}
			}
			if err := s.AllocateIdentifiers(ctx, tx, &invoice); err != nil {
				return err
			}
			if err := s.repo.InsertInvoice(ctx, tx, &invoice); err != nil {
				return err
			}

			lines := make([]domain.LineItem, 0, len(req.LineItems))
			for i, input := range req.LineItems {
				line, err := s.createLineItem(ctx, tx, &invoice, input, now)
				if err != nil {
					return fmt.Errorf("line %d: %w", i+1, err)
				}
				lines = append(lines, line)
			}
			invoice.LineItems = lines

			_, err := s.recomputeTotal(ctx, tx, &invoice)
			return err
		})
		if err == nil {
			s.recordAllocation(manualNumber != "", metrics.ResultAllocated)
			s.metrics.ObserveAttempts(attempt)
			span.SetAttributes(attribute.Int("attempts", attempt))
			s.log.Info("invoice created",
				zap.String("invoice_id", invoice.ID.String()),
				zap.String("bill_id", invoice.BillID),
				zap.String("invoice_number", invoice.InvoiceNumber),
				zap.Int("attempt", attempt),
			)
			return invoice, nil
		}

		if db.IsDuplicateKeyErr(err) && manualNumber != "" && s.manualNumberTaken(ctx, ownerID, manualNumber, err) {
			s.recordAllocation(true, metrics.ResultConflict)
			span.SetStatus(codes.Error, "duplicate invoice number")
			return domain.Invoice{}, fmt.Errorf("%w: %s", domain.ErrDuplicateIdentifier, manualNumber)
		}

		if db.IsDuplicateKeyErr(err) {
			s.recordAllocation(manualNumber != "", metrics.ResultConflict)
			s.log.Warn("identifier conflict, retrying",
				zap.String("owner_id", ownerID.String()),
				zap.String("bill_id", invoice.BillID),
				zap.String("invoice_number", invoice.InvoiceNumber),
				zap.Int("attempt", attempt),
			)
			continue
		}

		s.recordAllocation(manualNumber != "", metrics.ResultFailed)
		span.SetStatus(codes.Error, "create failed")
		return domain.Invoice{}, s.storeErr(err)
	}

	s.metrics.RecordAllocation(metrics.KindInvoiceNumber, metrics.ResultExhausted)
	span.SetStatus(codes.Error, "allocation exhausted")
	s.log.Error("identifier allocation exhausted",
		zap.String("owner_id", ownerID.String()),
		zap.Int("attempts", maxAttempts),
	)
	return domain.Invoice{}, fmt.Errorf("%w after %d attempts", domain.ErrAllocationExhausted, maxAttempts)
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}

	invoice, err := s.loadInvoice(ctx, s.db, ownerID, invoiceID)
	if err != nil {
		return domain.Invoice{}, s.storeErr(err)
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	filter := domain.ListInvoiceFilter{}
	if req.ContactID != "" {
		contactID, err := parseID(req.ContactID)
		if err != nil {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidContact
		}
		filter.ContactID = &contactID
	}
	if req.InvoiceType != "" {
		invoiceType, err := parseInvoiceType(req.InvoiceType)
		if err != nil {
			return domain.ListInvoiceResponse{}, err
		}
		filter.InvoiceType = invoiceType
	}
	if req.InvoiceDateFrom != nil {
		from := normalizeDate(*req.InvoiceDateFrom)
		filter.InvoiceDateFrom = &from
	}
	if req.InvoiceDateTo != nil {
		to := normalizeDate(*req.InvoiceDateTo)
		filter.InvoiceDateTo = &to
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}.Normalize()
	items, err := s.repo.ListInvoices(ctx, s.db, ownerID, filter, page)
	if err != nil {
		return domain.ListInvoiceResponse{}, s.storeErr(err)
	}
	items, pageInfo := pagination.BuildPageInfo(items, page.PageSize, func(invoice *domain.Invoice) pagination.Cursor {
		return pagination.Cursor{ID: int64(invoice.ID), CreatedAt: invoice.CreatedAt}
	})

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}
	return domain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

// Update patches the mutable fields of an invoice. Identifiers never change,
// even when the invoice date moves to another period.
func (s *Service) Update(ctx context.Context, req domain.UpdateInvoiceRequest) (domain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}
	invoiceID, err := parseID(req.ID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if req.InvoiceDate != nil && req.InvoiceDate.IsZero() {
		return domain.Invoice{}, domain.ErrInvalidDate
	}
	if req.LineItems != nil {
		for i, line := range *req.LineItems {
			if err := precheckLine(line); err != nil {
				return domain.Invoice{}, fmt.Errorf("line %d: %w", i+1, err)
			}
		}
	}

	var updated domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindInvoice(ctx, tx, ownerID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}

		if req.InvoiceNumber != nil && strings.TrimSpace(*req.InvoiceNumber) != invoice.InvoiceNumber {
			return domain.ErrImmutableIdentifier
		}
		if req.ContactID != nil {
			contactID, err := parseOptionalID(*req.ContactID, domain.ErrInvalidContact)
			if err != nil {
				return err
			}
			if err := s.ensureContact(ctx, tx, ownerID, contactID); err != nil {
				return err
			}
			invoice.ContactID = contactID
		}
		if req.InvoiceType != nil {
			if invoice.InvoiceType, err = parseInvoiceType(*req.InvoiceType); err != nil {
				return err
			}
		}
		if req.SupplyType != nil {
			if invoice.SupplyType, err = parseSupplyType(*req.SupplyType); err != nil {
				return err
			}
		}
		if req.InvoiceDate != nil {
			invoice.InvoiceDate = normalizeDate(*req.InvoiceDate)
		}
		if req.InternalNote != nil {
			invoice.InternalNote = strings.TrimSpace(*req.InternalNote)
		}
		if req.Notes != nil {
			invoice.Notes = strings.TrimSpace(*req.Notes)
		}

		now := s.clock.Now()
		invoice.UpdatedAt = now
		if err := s.repo.UpdateInvoice(ctx, tx, invoice); err != nil {
			return err
		}

		if req.LineItems != nil {
			if err := s.syncLineItems(ctx, tx, invoice, *req.LineItems, now); err != nil {
				return err
			}
			if _, err := s.recomputeTotal(ctx, tx, invoice); err != nil {
				return err
			}
		}

		loaded, err := s.loadInvoice(ctx, tx, ownerID, invoiceID)
		if err != nil {
			return err
		}
		updated = *loaded
		return nil
	})
	if err != nil {
		return domain.Invoice{}, s.storeErr(err)
	}
	return updated, nil
}

// Delete removes an invoice and its lines. Its number becomes a gap.
func (s *Service) Delete(ctx context.Context, id string) error {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindInvoice(ctx, tx, ownerID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		lines, err := s.repo.ListLineItems(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteInvoice(ctx, tx, ownerID, invoiceID); err != nil {
			return err
		}
		ids := make([]snowflake.ID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ID)
		}
		if err := s.repo.DeleteLineItems(ctx, tx, ownerID, ids); err != nil {
			return err
		}
		s.log.Info("invoice deleted",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("invoice_number", invoice.InvoiceNumber),
		)
		return nil
	})
	return s.storeErr(err)
}

func (s *Service) loadInvoice(ctx context.Context, tx *gorm.DB, ownerID, invoiceID snowflake.ID) (*domain.Invoice, error) {
	invoice, err := s.repo.FindInvoice(ctx, tx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	lines, err := s.repo.ListLineItems(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	invoice.LineItems = lines
	return invoice, nil
}

func (s *Service) ensureContact(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID, contactID *snowflake.ID) error {
	if contactID == nil {
		return nil
	}
	contact, err := s.contacts.FindByID(ctx, tx, ownerID, *contactID)
	if err != nil {
		return err
	}
	if contact == nil {
		return domain.ErrInvalidContact
	}
	return nil
}

func (s *Service) recordAllocation(manual bool, result string) {
	kind := metrics.KindInvoiceNumber
	if manual {
		kind = metrics.KindManual
	}
	s.metrics.RecordAllocation(kind, result)
	s.metrics.RecordAllocation(metrics.KindBillID, result)
}

// manualNumberTaken reports whether a unique violation on create was caused
// by the caller's own invoice number rather than a bill id clash.
func (s *Service) manualNumberTaken(ctx context.Context, ownerID snowflake.ID, number string, err error) bool {
	if db.IsDuplicateKeyOn(err, string(domain.ColumnInvoiceNumber)) {
		return true
	}
	if db.IsDuplicateKeyOn(err, string(domain.ColumnBillID)) {
		return false
	}
	exists, lookupErr := s.repo.IdentifierExists(ctx, s.db, ownerID, domain.ColumnInvoiceNumber, number)
	if lookupErr != nil {
		s.log.Warn("manual number lookup failed", zap.String("invoice_number", number), zap.Error(lookupErr))
		return false
	}
	return exists
}

// storeErr marks database errors that are worth retrying.
func (s *Service) storeErr(err error) error {
	if err != nil && db.IsTransientErr(err) {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return err
}

func (s *Service) ownerIDFromContext(ctx context.Context) (snowflake.ID, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return 0, domain.ErrInvalidOwner
	}
	return ownerID, nil
}

func parseInvoiceType(raw string) (domain.InvoiceType, error) {
	value := domain.InvoiceType(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return domain.InvoiceTypeDefault, nil
	}
	if !value.Valid() {
		return "", domain.ErrInvalidInvoiceType
	}
	return value, nil
}

func parseSupplyType(raw string) (domain.SupplyType, error) {
	value := domain.SupplyType(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return domain.SupplyTypeRegular, nil
	}
	if !value.Valid() {
		return "", domain.ErrInvalidSupplyType
	}
	return value, nil
}

// normalizeDate truncates t to its calendar day in UTC.
func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// parseOptionalID returns nil for an empty value and invalid for anything unparsable.
func parseOptionalID(raw string, invalid error) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return nil, invalid
	}
	return &id, nil
}
