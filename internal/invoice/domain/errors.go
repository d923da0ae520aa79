package domain

import (
	"errors"

	"github.com/smallbiznis/invoicebook/internal/invoice/calc"
	"github.com/smallbiznis/invoicebook/internal/invoice/format"
)

var (
	ErrInvalidOwner            = errors.New("invalid_owner")
	ErrInvalidID               = errors.New("invalid_id")
	ErrNotFound                = errors.New("not_found")
	ErrInvalidDate             = errors.New("invalid_date")
	ErrInvalidInvoiceType      = errors.New("invalid_invoice_type")
	ErrInvalidSupplyType       = errors.New("invalid_supply_type")
	ErrInvalidContact          = errors.New("invalid_contact")
	ErrInvalidItem             = errors.New("invalid_item")
	ErrImmutableIdentifier     = errors.New("immutable_identifier")
	ErrPrefixMismatch          = errors.New("prefix_mismatch")
	ErrDuplicateIdentifier     = errors.New("duplicate_identifier")
	ErrAllocationExhausted     = errors.New("allocation_exhausted")
	ErrTransient               = errors.New("transient_failure")
	ErrInvalidIdentifierFormat = format.ErrInvalidIdentifierFormat
	ErrSuffixOutOfRange        = format.ErrSuffixOutOfRange
	ErrInvalidQuantity         = calc.ErrInvalidQuantity
	ErrInvalidRate             = calc.ErrInvalidRate
	ErrInvalidDiscount         = calc.ErrInvalidDiscount
)

// Failure tells a caller what to do about an error.
type Failure int

const (
	FailureNone Failure = iota
	// FailureFixInput means the request itself must change.
	FailureFixInput
	// FailureRetry means the same request may succeed later.
	FailureRetry
	// FailureContactSupport means the request cannot succeed without operator help.
	FailureContactSupport
)

func (f Failure) Action() string {
	switch f {
	case FailureFixInput:
		return "fix_input"
	case FailureRetry:
		return "retry"
	case FailureContactSupport:
		return "contact_support"
	default:
		return ""
	}
}

var fixInputErrors = []error{
	ErrInvalidOwner,
	ErrInvalidID,
	ErrNotFound,
	ErrInvalidDate,
	ErrInvalidInvoiceType,
	ErrInvalidSupplyType,
	ErrInvalidContact,
	ErrInvalidItem,
	ErrImmutableIdentifier,
	ErrPrefixMismatch,
	ErrDuplicateIdentifier,
	ErrInvalidIdentifierFormat,
	ErrInvalidQuantity,
	ErrInvalidRate,
	ErrInvalidDiscount,
}

// Classify maps err to the action a caller should take. Unknown errors are
// reported as FailureContactSupport.
func Classify(err error) Failure {
	if err == nil {
		return FailureNone
	}
	for _, target := range fixInputErrors {
		if errors.Is(err, target) {
			return FailureFixInput
		}
	}
	if errors.Is(err, ErrTransient) {
		return FailureRetry
	}
	// ErrSuffixOutOfRange and ErrAllocationExhausted land here too.
	return FailureContactSupport
}
