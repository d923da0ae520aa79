package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicebook/internal/invoice/domain"
	"github.com/smallbiznis/invoicebook/internal/invoice/format"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AllocateIdentifiers fills in whichever of BillID and InvoiceNumber is
// empty. Populated identifiers are left untouched.
func (s *Service) AllocateIdentifiers(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	if invoice.BillID != "" && invoice.InvoiceNumber != "" {
		return nil
	}

	if invoice.InvoiceNumber == "" {
		number, err := s.allocator.NextNumber(ctx, tx, invoice.OwnerID, invoice.InvoiceDate)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
	}

	if invoice.BillID == "" {
		createdAt := invoice.CreatedAt
		if createdAt.IsZero() {
			createdAt = s.clock.Now()
		}
		billID, err := s.allocator.NextBillID(ctx, tx, invoice.OwnerID, createdAt)
		if err != nil {
			return err
		}
		invoice.BillID = billID
	}
	return nil
}

// PeekNextNumber reports the next invoice number for the period of date
// without reserving it.
func (s *Service) PeekNextNumber(ctx context.Context, date time.Time) (string, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return "", err
	}
	if date.IsZero() {
		return "", domain.ErrInvalidDate
	}
	next, err := s.allocator.NextNumber(ctx, s.db, ownerID, normalizeDate(date))
	if err != nil {
		return "", s.storeErr(err)
	}
	return next, nil
}

func (s *Service) ListMissingNumbers(ctx context.Context, date time.Time) ([]string, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	s.metrics.RecordMissingLookup()
	missing, err := s.allocator.MissingNumbers(ctx, s.db, ownerID, normalizeDate(date))
	if err != nil {
		return nil, s.storeErr(err)
	}
	return missing, nil
}

// NumberInfo combines the next number and the gaps of one period. A full
// period still reports its gaps, with PeriodFull set and no next number.
func (s *Service) NumberInfo(ctx context.Context, date time.Time) (domain.InvoiceNumberInfo, error) {
	missing, err := s.ListMissingNumbers(ctx, date)
	if err != nil {
		return domain.InvoiceNumberInfo{}, err
	}
	full := false
	next, err := s.PeekNextNumber(ctx, date)
	switch {
	case errors.Is(err, domain.ErrSuffixOutOfRange):
		full = true
		next = ""
	case err != nil:
		return domain.InvoiceNumberInfo{}, err
	}
	day := normalizeDate(date)
	return domain.InvoiceNumberInfo{
		Date:              day.Format("2006-01-02"),
		Prefix:            format.PeriodPrefix(day),
		NextInvoiceNumber: next,
		MissingNumbers:    missing,
		PeriodFull:        full,
	}, nil
}

// lockAllocation takes the cross-instance allocation lock for the owner's
// period when one is configured. Failing to get it is not an error.
func (s *Service) lockAllocation(ctx context.Context, ownerID snowflake.ID, date time.Time) func() {
	if s.locker == nil {
		return func() {}
	}
	scope := ownerID.String() + ":" + format.PeriodPrefix(date)
	token, ok, err := s.locker.LockAllocation(ctx, scope)
	if err != nil {
		s.log.Warn("allocation lock unavailable", zap.String("scope", scope), zap.Error(err))
		return func() {}
	}
	if !ok {
		return func() {}
	}
	return func() {
		if err := s.locker.UnlockAllocation(context.WithoutCancel(ctx), scope, token); err != nil {
			s.log.Warn("allocation unlock failed", zap.String("scope", scope), zap.Error(err))
		}
	}
}
