package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInvoice(t *testing.T) {
	provider := New()

	doc, err := provider.GenerateInvoice(context.Background(), InvoiceData{
		BillID:        "INV070125-0001",
		InvoiceNumber: "JAN-25070001",
		InvoiceDate:   "07-01-2025",
		InvoiceType:   "default",
		SupplyType:    "regular",
		BillToName:    "Acme Traders",
		Items: []InvoiceItem{
			{Description: "Consulting", Qty: 5, UnitPrice: "100.00", Discount: "50.00", Amount: "450.00"},
		},
		Total: "450.00",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestGenerateInvoiceRequiresNumber(t *testing.T) {
	_, err := New().GenerateInvoice(context.Background(), InvoiceData{})
	assert.ErrorIs(t, err, ErrMissingInvoiceNumber)
}
