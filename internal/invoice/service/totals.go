package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicebook/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecomputeTotal re-derives the stored total of an invoice from its lines.
func (s *Service) RecomputeTotal(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	id, err := parseID(invoiceID)
	if err != nil {
		return decimal.Zero, err
	}

	var total decimal.Decimal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindInvoice(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}
		total, err = s.recomputeTotal(ctx, tx, invoice)
		return err
	})
	if err != nil {
		return decimal.Zero, s.storeErr(err)
	}
	return total, nil
}

// recomputeTotal sums the attached line totals and writes total_amount only
// when it differs from the stored value, so repeated calls are no-ops.
func (s *Service) recomputeTotal(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) (decimal.Decimal, error) {
	lines, err := s.repo.ListLineItems(ctx, tx, invoice.ID)
	if err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Total)
	}

	if sum.Equal(invoice.TotalAmount) {
		s.metrics.RecordRecompute(false)
		return sum, nil
	}

	now := s.clock.Now()
	if err := s.repo.UpdateTotal(ctx, tx, invoice.OwnerID, invoice.ID, sum, now); err != nil {
		return decimal.Zero, err
	}
	s.log.Debug("invoice total updated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("previous", invoice.TotalAmount.String()),
		zap.String("total", sum.String()),
	)
	invoice.TotalAmount = sum
	invoice.UpdatedAt = now
	s.metrics.RecordRecompute(true)
	return sum, nil
}
