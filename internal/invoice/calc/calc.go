// Package calc computes line item totals.
package calc

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidRate     = errors.New("invalid_rate")
	ErrInvalidDiscount = errors.New("invalid_discount")
)

// LineTotal returns quantity*rate - discount, floored at zero.
func LineTotal(quantity int64, rate, discount decimal.Decimal) decimal.Decimal {
	total := decimal.NewFromInt(quantity).Mul(rate).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// ValidateLine rejects negative inputs. LineTotal itself never fails.
func ValidateLine(quantity int64, rate, discount decimal.Decimal) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if rate.IsNegative() {
		return ErrInvalidRate
	}
	if discount.IsNegative() {
		return ErrInvalidDiscount
	}
	return nil
}
