package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Failure
	}{
		{nil, FailureNone},
		{ErrInvalidQuantity, FailureFixInput},
		{ErrInvalidRate, FailureFixInput},
		{fmt.Errorf("line 2: %w", ErrInvalidDiscount), FailureFixInput},
		{ErrPrefixMismatch, FailureFixInput},
		{ErrInvalidIdentifierFormat, FailureFixInput},
		{ErrDuplicateIdentifier, FailureFixInput},
		{ErrImmutableIdentifier, FailureFixInput},
		{fmt.Errorf("insert: %w", ErrTransient), FailureRetry},
		{ErrAllocationExhausted, FailureContactSupport},
		{fmt.Errorf("%w: 10000", ErrSuffixOutOfRange), FailureContactSupport},
		{errors.New("connection refused"), FailureContactSupport},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, Classify(tc.err), "err %v", tc.err)
	}
}

func TestFailureAction(t *testing.T) {
	assert.Equal(t, "fix_input", FailureFixInput.Action())
	assert.Equal(t, "retry", FailureRetry.Action())
	assert.Equal(t, "contact_support", FailureContactSupport.Action())
	assert.Equal(t, "", FailureNone.Action())
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, InvoiceTypeDeliveryChallan.Valid())
	assert.False(t, InvoiceType("proforma").Valid())
	assert.True(t, SupplyTypeAParty.Valid())
	assert.False(t, SupplyType("").Valid())
}
