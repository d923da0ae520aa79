package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicebook/internal/invoice/calc"
	"github.com/smallbiznis/invoicebook/internal/invoice/domain"
	"gorm.io/gorm"
)

func (s *Service) ComputeLineTotal(quantity int64, rate, discount decimal.Decimal) decimal.Decimal {
	return calc.LineTotal(quantity, rate, discount)
}

// AddLineItems creates and attaches lines, then recomputes the total.
func (s *Service) AddLineItems(ctx context.Context, invoiceID string, inputs []domain.LineItemInput) (domain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}
	id, err := parseID(invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	for i, input := range inputs {
		if input.ID != "" {
			return domain.Invoice{}, fmt.Errorf("line %d: %w", i+1, domain.ErrInvalidItem)
		}
		if err := precheckLine(input); err != nil {
			return domain.Invoice{}, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	var result domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindInvoice(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		for i, input := range inputs {
			if _, err := s.createLineItem(ctx, tx, invoice, input, now); err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
		}
		if _, err := s.recomputeTotal(ctx, tx, invoice); err != nil {
			return err
		}

		loaded, err := s.loadInvoice(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		result = *loaded
		return nil
	})
	if err != nil {
		return domain.Invoice{}, s.storeErr(err)
	}
	return result, nil
}

// RemoveLineItem detaches and deletes one line, then recomputes the total.
func (s *Service) RemoveLineItem(ctx context.Context, invoiceID, lineItemID string) (domain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}
	id, err := parseID(invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	lineID, err := parseID(lineItemID)
	if err != nil {
		return domain.Invoice{}, err
	}

	var result domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindInvoice(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}

		detached, err := s.repo.DetachLineItem(ctx, tx, id, lineID)
		if err != nil {
			return err
		}
		if !detached {
			return domain.ErrNotFound
		}
		if err := s.repo.DeleteLineItems(ctx, tx, ownerID, []snowflake.ID{lineID}); err != nil {
			return err
		}
		if _, err := s.recomputeTotal(ctx, tx, invoice); err != nil {
			return err
		}

		loaded, err := s.loadInvoice(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		result = *loaded
		return nil
	})
	if err != nil {
		return domain.Invoice{}, s.storeErr(err)
	}
	return result, nil
}

// syncLineItems makes the invoice lines match inputs: lines with an ID are
// edited, lines without one are created and the rest are removed.
func (s *Service) syncLineItems(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice, inputs []domain.LineItemInput, now time.Time) error {
	existing, err := s.repo.ListLineItems(ctx, tx, invoice.ID)
	if err != nil {
		return err
	}
	byID := make(map[snowflake.ID]domain.LineItem, len(existing))
	for _, line := range existing {
		byID[line.ID] = line
	}

	kept := make(map[snowflake.ID]struct{}, len(inputs))
	for i, input := range inputs {
		if input.ID == "" {
			if _, err := s.createLineItem(ctx, tx, invoice, input, now); err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			continue
		}

		lineID, err := parseID(input.ID)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, domain.ErrInvalidItem)
		}
		current, ok := byID[lineID]
		if !ok {
			return fmt.Errorf("line %d: %w", i+1, domain.ErrInvalidItem)
		}
		if _, dup := kept[lineID]; dup {
			return fmt.Errorf("line %d: %w", i+1, domain.ErrInvalidItem)
		}
		line, err := s.buildLineItem(ctx, tx, invoice.OwnerID, input, current)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		line.UpdatedAt = now
		if err := s.repo.UpdateLineItem(ctx, tx, &line); err != nil {
			return err
		}
		kept[lineID] = struct{}{}
	}

	removed := make([]snowflake.ID, 0)
	for _, line := range existing {
		if _, ok := kept[line.ID]; ok {
			continue
		}
		if _, err := s.repo.DetachLineItem(ctx, tx, invoice.ID, line.ID); err != nil {
			return err
		}
		removed = append(removed, line.ID)
	}
	return s.repo.DeleteLineItems(ctx, tx, invoice.OwnerID, removed)
}

func (s *Service) createLineItem(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice, input domain.LineItemInput, now time.Time) (domain.LineItem, error) {
	line, err := s.buildLineItem(ctx, tx, invoice.OwnerID, input, domain.LineItem{
		ID:        s.genID.Generate(),
		OwnerID:   invoice.OwnerID,
		Quantity:  1,
		Rate:      decimal.Zero,
		Discount:  decimal.Zero,
		CreatedAt: now,
	})
	if err != nil {
		return domain.LineItem{}, err
	}
	line.UpdatedAt = now

	if err := s.repo.InsertLineItem(ctx, tx, &line); err != nil {
		return domain.LineItem{}, err
	}
	if err := s.repo.AttachLineItem(ctx, tx, invoice.ID, line.ID); err != nil {
		return domain.LineItem{}, err
	}
	return line, nil
}

// buildLineItem applies catalog defaults and input overrides to base and
// derives the line total.
func (s *Service) buildLineItem(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID, input domain.LineItemInput, base domain.LineItem) (domain.LineItem, error) {
	line := base

	if input.ItemID != "" {
		itemID, err := parseID(input.ItemID)
		if err != nil {
			return domain.LineItem{}, domain.ErrInvalidItem
		}
		item, err := s.items.FindByID(ctx, tx, ownerID, itemID)
		if err != nil {
			return domain.LineItem{}, err
		}
		if item == nil {
			return domain.LineItem{}, domain.ErrInvalidItem
		}
		line.ItemID = &item.ID
		line.Description = item.LineDescription()
		line.Rate = item.Rate
		line.Discount = item.Discount
	}

	if input.Description != nil {
		line.Description = *input.Description
	}
	if input.Quantity != nil {
		line.Quantity = *input.Quantity
	}
	if input.Rate != nil {
		line.Rate = *input.Rate
	}
	if input.Discount != nil {
		line.Discount = *input.Discount
	}

	if err := calc.ValidateLine(line.Quantity, line.Rate, line.Discount); err != nil {
		return domain.LineItem{}, err
	}
	line.Total = calc.LineTotal(line.Quantity, line.Rate, line.Discount)
	return line, nil
}

// precheckLine rejects negative explicit amounts before any database work.
func precheckLine(input domain.LineItemInput) error {
	quantity := int64(0)
	if input.Quantity != nil {
		quantity = *input.Quantity
	}
	rate := decimal.Zero
	if input.Rate != nil {
		rate = *input.Rate
	}
	discount := decimal.Zero
	if input.Discount != nil {
		discount = *input.Discount
	}
	return calc.ValidateLine(quantity, rate, discount)
}
